package playback

import "github.com/tonefold/tonefold/internal/domain/song"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackChanged EventType = iota // Cursor moved to a different song
	EventStateChanged                  // Playing/paused toggled without a cursor move
	EventQueueEnded                    // Ran off the end of the queue with repeat off
	EventLoadFailed                    // Backend rejected the current song
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventStateChanged:
		return "state_changed"
	case EventQueueEnded:
		return "queue_ended"
	case EventLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Event represents an observable playback event.
type Event struct {
	Type  EventType
	Song  *song.Song // Song at the cursor (nil when the cursor is gone)
	State State
}
