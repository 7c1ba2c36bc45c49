// Package counter performs at-most-once play-count accounting per
// play-through.
package counter

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// DefaultThreshold is the elapsed position after which a play-through
// counts.
const DefaultThreshold = 5 * time.Second

// Store is the subset of the library store the tracker needs.
type Store interface {
	IncrementPlayCount(ctx context.Context, id string) error
}

// Tracker watches play progress and increments a song's play count once
// per play-session after the elapsed threshold is crossed. Scrubbing back
// and forth within one continuous session counts at most once; a session
// ends when playback stops or the cursor moves, so a later replay counts
// again.
type Tracker struct {
	mu        sync.Mutex
	store     Store
	threshold time.Duration
	counted   map[string]bool // Identities already counted this session
}

// New creates a tracker. A non-positive threshold falls back to
// DefaultThreshold.
func New(store Store, threshold time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{
		store:     store,
		threshold: threshold,
		counted:   make(map[string]bool),
	}
}

// Observe records a position update for the given identity.
func (t *Tracker) Observe(songID string, position time.Duration, playing bool) {
	if !playing || songID == "" || position < t.threshold {
		return
	}

	t.mu.Lock()
	if t.counted[songID] {
		t.mu.Unlock()
		return
	}
	// Marked before the write returns: the increment is issued exactly
	// once per session even if it fails.
	t.counted[songID] = true
	t.mu.Unlock()

	// Fire and forget. Persistence must never block transport state;
	// failures are surfaced in the log only.
	go func() {
		if err := t.store.IncrementPlayCount(context.Background(), songID); err != nil {
			zlog.Error().Err(err).Str("song", songID).Msg("counter: play count increment failed")
		}
	}()
}

// Reset clears the counted marker for the identity, beginning a new
// play-session.
func (t *Tracker) Reset(songID string) {
	if songID == "" {
		return
	}
	t.mu.Lock()
	delete(t.counted, songID)
	t.mu.Unlock()
}
