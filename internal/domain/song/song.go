// Package song provides the Song domain entity.
package song

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults applied when a tag cannot be resolved.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// identityNamespace seeds identity derivation. Fixed forever: changing it
// would re-key every library on upgrade.
var identityNamespace = uuid.MustParse("9d1b5aa4-7c52-4fe1-a259-03b1a1a981e0")

// Song represents an imported audio file. The library store owns Song
// records; queues and the playback controller hold snapshots only.
type Song struct {
	ID        string        // Deterministic identity (file name + mtime)
	Path      string        // Source file path
	Title     string
	Artist    string
	Album     string
	Duration  time.Duration // 0 until the backend resolves it
	PlayCount int           // Monotonically non-decreasing
	DateAdded time.Time     // Immutable after first import
}

// Identity derives the deterministic identity for a source file.
// Re-importing an unchanged file yields the same identity; touching the
// file (new mtime) yields a new one.
func Identity(fileName string, modTime time.Time) string {
	seed := fileName + "|" + strconv.FormatInt(modTime.Unix(), 10)
	return uuid.NewSHA1(identityNamespace, []byte(seed)).String()
}

// TitleFromFileName derives a display title from a file name by stripping
// the extension.
func TitleFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ApplyDefaults fills unresolved metadata fields with their documented
// defaults. Missing metadata is not an error.
func (s *Song) ApplyDefaults() {
	if strings.TrimSpace(s.Title) == "" {
		s.Title = TitleFromFileName(s.Path)
	}
	if strings.TrimSpace(s.Artist) == "" {
		s.Artist = UnknownArtist
	}
	if strings.TrimSpace(s.Album) == "" {
		s.Album = UnknownAlbum
	}
}
