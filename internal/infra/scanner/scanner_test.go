package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not real audio"), 0o644))
	return path
}

func TestScan_FindsAudioFilesRecursively(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.mp3")
	writeFile(t, root, "sub/b.FLAC")
	writeFile(t, root, "sub/cover.jpg")
	writeFile(t, root, "notes.txt")

	records, err := Scan(root)

	require.NoError(t, err)
	require.Len(t, records, 2, "non-audio files are ignored")

	names := []string{records[0].FileName, records[1].FileName}
	assert.Contains(t, names, "a.mp3")
	assert.Contains(t, names, "b.FLAC")
}

func TestScan_UnreadableTagsStillProduceRecords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "garbage.mp3")

	records, err := Scan(root)

	require.NoError(t, err)
	require.Len(t, records, 1)
	// Metadata stays empty; the importer applies defaults downstream.
	assert.Empty(t, records[0].Title)
	assert.Empty(t, records[0].Artist)
	assert.NotEmpty(t, records[0].Identity)
}

func TestScan_IdentityStableAcrossRescans(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.mp3")

	first, err := Scan(root)
	require.NoError(t, err)
	second, err := Scan(root)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Identity, second[0].Identity)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
