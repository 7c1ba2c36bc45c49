// Package scanner walks a music directory and extracts tag metadata.
package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"

	"github.com/tonefold/tonefold/internal/app/importer"
	"github.com/tonefold/tonefold/internal/domain/song"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".wav":  true,
}

// Scan walks root and returns one import record per audio file found.
// Identity comes from the file name and mtime, so re-scanning an
// unchanged tree produces the same identities. Files whose tags cannot
// be read still produce a record; metadata defaulting happens in the
// importer.
func Scan(root string) ([]importer.Record, error) {
	var records []importer.Record

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rec := importer.Record{
			Identity: song.Identity(info.Name(), info.ModTime()),
			FileName: info.Name(),
			Path:     path,
		}
		readTags(path, &rec)

		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan music root %s", root)
	}

	zlog.Info().Str("root", root).Int("files", len(records)).Msg("scanner: walk complete")
	return records, nil
}

// readTags fills rec from the file's tags when possible. Unresolved tags
// are not an error; the record keeps empty fields.
func readTags(path string, rec *importer.Record) {
	f, err := os.Open(path)
	if err != nil {
		zlog.Debug().Err(err).Str("file", path).Msg("scanner: cannot open for tag read")
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		zlog.Debug().Err(err).Str("file", path).Msg("scanner: tags unresolved, defaults apply")
		return
	}

	rec.Title = m.Title()
	rec.Artist = m.Artist()
	rec.Album = m.Album()
}
