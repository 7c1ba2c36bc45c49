// Package playback provides the playback state machine that owns the
// queue cursor and drives an external media backend.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // No queue/cursor
	StatePlaying              // Cursor set, transport advancing
	StatePaused               // Cursor set, transport halted (includes stopped-at-end)
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// RepeatMode selects the repeat policy.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Stop at the end of the queue
	RepeatAll                   // Wrap around to the first song
	RepeatOne                   // Restart the current song
)

// String returns the string representation of the repeat mode.
func (r RepeatMode) String() string {
	switch r {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// Cycle returns the next repeat mode in the toggle order (off, all, one).
func (r RepeatMode) Cycle() RepeatMode {
	switch r {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}
