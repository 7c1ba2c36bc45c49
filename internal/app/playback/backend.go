package playback

import (
	"time"

	"github.com/tonefold/tonefold/internal/domain/song"
)

// Backend is the media backend boundary. The controller issues declarative
// commands and never blocks on their outcome; results arrive later as
// Signals. A new Load implicitly supersedes any pending one.
type Backend interface {
	Load(s song.Song) error
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	Stop() error
}

// SignalType identifies a backend-reported signal.
type SignalType int

const (
	SignalPositionChanged SignalType = iota // Playback position advanced
	SignalDurationKnown                     // Duration of the loaded song resolved
	SignalEnded                             // Current song played to completion
	SignalLoadFailed                        // Load or decode failed
)

// String returns the string representation of the signal type.
func (s SignalType) String() string {
	switch s {
	case SignalPositionChanged:
		return "position_changed"
	case SignalDurationKnown:
		return "duration_known"
	case SignalEnded:
		return "ended"
	case SignalLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Signal is an asynchronous message from the media backend.
type Signal struct {
	Type     SignalType
	Position time.Duration // SignalPositionChanged
	Duration time.Duration // SignalDurationKnown
	Reason   string        // SignalLoadFailed
}

// Tracker observes play progress for play-count accounting. Implemented
// by the counter package; faked in tests.
type Tracker interface {
	// Observe records a position update for the song at the cursor.
	Observe(songID string, position time.Duration, playing bool)
	// Reset begins a new play-session for the song.
	Reset(songID string)
}
