package mpv

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonefold/tonefold/internal/app/playback"
)

// Close must end the signal stream so consumers ranging over Signals()
// terminate.
func TestClose_ClosesSignalChannel(t *testing.T) {
	server, conn := net.Pipe()
	defer server.Close()

	c := &Client{
		conn:    conn,
		signals: make(chan playback.Signal, 32),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	require.NoError(t, c.Close())

	select {
	case _, ok := <-c.signals:
		assert.False(t, ok, "signals must be closed, not carry a value")
	case <-time.After(time.Second):
		t.Fatal("signals channel still open after Close")
	}
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected playback.Signal
		ok       bool
	}{
		{
			name:     "position property",
			line:     `{"event":"property-change","id":1,"name":"time-pos","data":12.5}`,
			expected: playback.Signal{Type: playback.SignalPositionChanged, Position: 12500 * time.Millisecond},
			ok:       true,
		},
		{
			name:     "duration property",
			line:     `{"event":"property-change","id":2,"name":"duration","data":180}`,
			expected: playback.Signal{Type: playback.SignalDurationKnown, Duration: 3 * time.Minute},
			ok:       true,
		},
		{
			name: "cleared property on unload",
			line: `{"event":"property-change","id":1,"name":"time-pos","data":null}`,
			ok:   false,
		},
		{
			name:     "natural end of file",
			line:     `{"event":"end-file","reason":"eof"}`,
			expected: playback.Signal{Type: playback.SignalEnded},
			ok:       true,
		},
		{
			name:     "decode failure",
			line:     `{"event":"end-file","reason":"error"}`,
			expected: playback.Signal{Type: playback.SignalLoadFailed, Reason: "mpv decode error"},
			ok:       true,
		},
		{
			name: "our own stop is not a signal",
			line: `{"event":"end-file","reason":"stop"}`,
			ok:   false,
		},
		{
			name: "command reply ignored",
			line: `{"request_id":0,"error":"success"}`,
			ok:   false,
		},
		{
			name: "unrelated event ignored",
			line: `{"event":"file-loaded"}`,
			ok:   false,
		},
		{
			name: "garbage line ignored",
			line: `not json`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ok := parseEvent([]byte(tt.line))
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, sig)
			}
		})
	}
}
