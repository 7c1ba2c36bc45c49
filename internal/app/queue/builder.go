// Package queue builds playback queues from a source view of the library.
//
// A queue is a point-in-time copy: later mutation of the library (play
// count increments included) never reorders or invalidates a queue that
// is already being played.
package queue

import (
	"math/rand"
	"sort"

	"github.com/tonefold/tonefold/internal/domain/song"
)

// Mode selects the ordering policy for a queue build.
type Mode int

const (
	ModeNone     Mode = iota // Source order as supplied by the caller
	ModeRandom               // Uniform random permutation
	ModeWeighted             // Favors less-frequently-played songs
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeRandom:
		return "random"
	case ModeWeighted:
		return "weighted"
	default:
		return "unknown"
	}
}

// Cycle returns the next mode in the toggle order (none, random, weighted).
func (m Mode) Cycle() Mode {
	switch m {
	case ModeNone:
		return ModeRandom
	case ModeRandom:
		return ModeWeighted
	default:
		return ModeNone
	}
}

// Build returns a fresh ordering of source under the given mode. The
// source slice is never modified; the result is always a copy.
func Build(source []song.Song, mode Mode, rng *rand.Rand) []song.Song {
	q := make([]song.Song, len(source))
	copy(q, source)

	switch mode {
	case ModeRandom:
		// Fisher-Yates over the copy
		rng.Shuffle(len(q), func(i, j int) {
			q[i], q[j] = q[j], q[i]
		})
	case ModeWeighted:
		weightedOrder(q, rng)
	}

	return q
}

// Locate returns the index of the song with the given identity. Used to
// relocate the cursor after a mode switch so audible playback continues
// uninterrupted.
func Locate(q []song.Song, id string) (int, bool) {
	for i, s := range q {
		if s.ID == id {
			return i, true
		}
	}
	return 0, false
}

// weightedOrder orders songs so rarely played ones tend to come first.
// Each song draws a random value scaled by max(total-playCount, 1), the
// floor keeping every song selectable, and the queue is sorted descending
// by draw. A single-pass approximation of weighted sampling without
// replacement.
func weightedOrder(q []song.Song, rng *rand.Rand) {
	var total int
	for _, s := range q {
		total += s.PlayCount
	}

	draws := make([]float64, len(q))
	for i, s := range q {
		weight := total - s.PlayCount
		if weight < 1 {
			weight = 1
		}
		draws[i] = rng.Float64() * float64(weight)
	}

	indices := make([]int, len(q))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return draws[indices[a]] > draws[indices[b]]
	})

	ordered := make([]song.Song, len(q))
	for pos, idx := range indices {
		ordered[pos] = q[idx]
	}
	copy(q, ordered)
}
