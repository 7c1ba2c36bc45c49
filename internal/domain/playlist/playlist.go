// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/tonefold/tonefold/internal/domain/song"
)

// Playlist represents a named, ordered list of song identities.
// Entries are weak references: an identity may no longer resolve to a
// stored song. Consumers filter dangling entries out when materializing
// a view; a dangling entry is never an error.
type Playlist struct {
	ID          int64
	Name        string
	DateCreated time.Time // Immutable
	SongIDs     []string  // Ordered song identities
}

// Contains reports whether the playlist already references the identity.
func (p *Playlist) Contains(id string) bool {
	for _, sid := range p.SongIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// Materialize resolves the playlist against the library, preserving order
// and silently dropping identities that no longer exist.
func (p *Playlist) Materialize(byID map[string]song.Song) []song.Song {
	songs := make([]song.Song, 0, len(p.SongIDs))
	for _, sid := range p.SongIDs {
		if s, ok := byID[sid]; ok {
			songs = append(songs, s)
		}
	}
	return songs
}
