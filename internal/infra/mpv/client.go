// Package mpv provides a media backend speaking mpv's JSON IPC protocol.
//
// mpv runs as an idle child process with an IPC socket; the client sends
// declarative commands and turns mpv's property-change and end-file
// events into playback signals.
package mpv

import (
	"bufio"
	"encoding/json"
	"net"
	"os/exec"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/tonefold/tonefold/internal/app/playback"
	"github.com/tonefold/tonefold/internal/domain/song"
)

// Config represents mpv backend configuration, decoded from the backend
// settings map.
type Config struct {
	SocketPath        string `mapstructure:"socket_path" default:"/tmp/tonefold-mpv.sock" validate:"required"`
	BinaryPath        string `mapstructure:"binary_path" default:"mpv"`
	StartupTimeoutSec int    `mapstructure:"startup_timeout_sec" default:"5" validate:"gte=1,lte=60"`
}

// Client is a media backend backed by an mpv process.
type Client struct {
	mu   sync.Mutex
	conn net.Conn

	cmd     *exec.Cmd
	signals chan playback.Signal
	done    chan struct{}
}

// New starts mpv (when no socket is listening yet), connects to its IPC
// socket and begins translating events into signals.
func New(cfg Config) (*Client, error) {
	conn, cmd, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:    conn,
		cmd:     cmd,
		signals: make(chan playback.Signal, 32),
		done:    make(chan struct{}),
	}

	// Position and duration arrive as observed properties.
	if err := c.command("observe_property", 1, "time-pos"); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.command("observe_property", 2, "duration"); err != nil {
		_ = c.Close()
		return nil, err
	}

	go c.readLoop()

	return c, nil
}

func connect(cfg Config) (net.Conn, *exec.Cmd, error) {
	if conn, err := net.Dial("unix", cfg.SocketPath); err == nil {
		return conn, nil, nil
	}

	cmd := exec.Command(cfg.BinaryPath,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server="+cfg.SocketPath)
	if err := cmd.Start(); err != nil {
		return nil, nil, errors.Wrap(err, "start mpv")
	}

	deadline := time.Now().Add(time.Duration(cfg.StartupTimeoutSec) * time.Second)
	for {
		conn, err := net.Dial("unix", cfg.SocketPath)
		if err == nil {
			return conn, cmd, nil
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			return nil, nil, errors.Wrapf(err, "mpv socket %s not ready", cfg.SocketPath)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Signals returns the backend signal channel.
func (c *Client) Signals() <-chan playback.Signal {
	return c.signals
}

// Load points mpv at the song's file. The pending previous load, if any,
// is implicitly superseded.
func (c *Client) Load(s song.Song) error {
	return c.command("loadfile", s.Path)
}

// Play starts or resumes the transport.
func (c *Client) Play() error {
	return c.command("set_property", "pause", false)
}

// Pause halts the transport.
func (c *Client) Pause() error {
	return c.command("set_property", "pause", true)
}

// Seek moves to an absolute position within the current song.
func (c *Client) Seek(pos time.Duration) error {
	return c.command("seek", pos.Seconds(), "absolute")
}

// Stop unloads the current song.
func (c *Client) Stop() error {
	return c.command("stop")
}

// Close tears down the connection and the mpv process.
func (c *Client) Close() error {
	close(c.done)
	err := c.conn.Close()
	if c.cmd != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
	return err
}

type request struct {
	Command []any `json:"command"`
}

func (c *Client) command(args ...any) error {
	payload, err := json.Marshal(request{Command: args})
	if err != nil {
		return errors.Wrap(err, "encode mpv command")
	}
	payload = append(payload, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conn.Write(payload); err != nil {
		return errors.Wrap(err, "write mpv command")
	}
	return nil
}

// event is the subset of mpv's event JSON the client cares about.
type event struct {
	Event  string          `json:"event"`
	Name   string          `json:"name"`
	Reason string          `json:"reason"`
	Data   json.RawMessage `json:"data"`
}

// readLoop owns the signals channel: it is closed here on every exit
// path so consumers ranging over Signals() terminate after Close.
func (c *Client) readLoop() {
	defer close(c.signals)

	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		sig, ok := parseEvent(scanner.Bytes())
		if !ok {
			continue
		}
		select {
		case c.signals <- sig:
		case <-c.done:
			return
		default:
			// Channel full: position updates are frequent and lossy,
			// drop this one.
		}
	}

	select {
	case <-c.done:
	default:
		zlog.Warn().Err(scanner.Err()).Msg("mpv: event stream closed")
	}
}

// parseEvent translates one mpv event line into a playback signal.
func parseEvent(line []byte) (playback.Signal, bool) {
	var ev event
	if err := json.Unmarshal(line, &ev); err != nil {
		return playback.Signal{}, false
	}

	switch ev.Event {
	case "property-change":
		var seconds float64
		if err := json.Unmarshal(ev.Data, &seconds); err != nil {
			// Property cleared (null data) on unload; nothing to report.
			return playback.Signal{}, false
		}
		d := time.Duration(seconds * float64(time.Second))
		switch ev.Name {
		case "time-pos":
			return playback.Signal{Type: playback.SignalPositionChanged, Position: d}, true
		case "duration":
			return playback.Signal{Type: playback.SignalDurationKnown, Duration: d}, true
		}

	case "end-file":
		switch ev.Reason {
		case "eof":
			return playback.Signal{Type: playback.SignalEnded}, true
		case "error":
			return playback.Signal{Type: playback.SignalLoadFailed, Reason: "mpv decode error"}, true
		}
		// "stop" and "redirect" are our own doing; not signals.
	}

	return playback.Signal{}, false
}
