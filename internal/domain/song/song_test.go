package song

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_Deterministic(t *testing.T) {
	mod := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	first := Identity("track01.mp3", mod)
	second := Identity("track01.mp3", mod)

	assert.Equal(t, first, second, "same file and mtime must yield the same identity")
	assert.NotEmpty(t, first)
}

func TestIdentity_ChangesWithInput(t *testing.T) {
	mod := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	base := Identity("track01.mp3", mod)

	assert.NotEqual(t, base, Identity("track02.mp3", mod), "different file name must change identity")
	assert.NotEqual(t, base, Identity("track01.mp3", mod.Add(time.Second)), "different mtime must change identity")
}

func TestIdentity_IgnoresSubSecondMtime(t *testing.T) {
	mod := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Filesystems report varying mtime precision; identity only uses whole seconds.
	assert.Equal(t, Identity("a.mp3", mod), Identity("a.mp3", mod.Add(500*time.Millisecond)))
}

func TestTitleFromFileName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		expected string
	}{
		{name: "plain mp3", fileName: "Sultans of Swing.mp3", expected: "Sultans of Swing"},
		{name: "with directory", fileName: "/music/dire straits/Sultans of Swing.flac", expected: "Sultans of Swing"},
		{name: "no extension", fileName: "untitled", expected: "untitled"},
		{name: "dot in name", fileName: "Mr. Blue Sky.ogg", expected: "Mr. Blue Sky"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TitleFromFileName(tt.fileName))
		})
	}
}

func TestSong_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name           string
		song           Song
		expectedTitle  string
		expectedArtist string
		expectedAlbum  string
	}{
		{
			name:           "all metadata missing",
			song:           Song{Path: "/music/demo track.mp3"},
			expectedTitle:  "demo track",
			expectedArtist: UnknownArtist,
			expectedAlbum:  UnknownAlbum,
		},
		{
			name:           "whitespace counts as missing",
			song:           Song{Path: "/music/x.mp3", Title: "  ", Artist: " ", Album: "\t"},
			expectedTitle:  "x",
			expectedArtist: UnknownArtist,
			expectedAlbum:  UnknownAlbum,
		},
		{
			name:           "resolved metadata untouched",
			song:           Song{Path: "/music/x.mp3", Title: "Title", Artist: "Artist", Album: "Album"},
			expectedTitle:  "Title",
			expectedArtist: "Artist",
			expectedAlbum:  "Album",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.song.ApplyDefaults()
			assert.Equal(t, tt.expectedTitle, tt.song.Title)
			assert.Equal(t, tt.expectedArtist, tt.song.Artist)
			assert.Equal(t, tt.expectedAlbum, tt.song.Album)
		})
	}
}
