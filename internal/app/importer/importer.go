// Package importer applies library import batches to the store.
package importer

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/tonefold/tonefold/internal/domain/song"
)

// Record is a fully resolved import entry handed over by the scan
// boundary. Optional metadata is left empty when the source file carried
// none; defaulting happens here.
type Record struct {
	Identity string
	FileName string
	Path     string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Policy decides what happens when an identity is already stored.
type Policy int

const (
	Overwrite Policy = iota // Replace the stored metadata
	Skip                    // Keep the stored record untouched
)

// String returns the string representation of the policy.
func (p Policy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name. Unknown names fall back to Overwrite.
func ParsePolicy(name string) Policy {
	if name == "skip" {
		return Skip
	}
	return Overwrite
}

// Store is the subset of the library store the importer needs.
type Store interface {
	ListSongs(ctx context.Context) ([]song.Song, error)
	UpsertSongs(ctx context.Context, batch []song.Song) error
}

// Result summarizes an import run. Skipped duplicates are an outcome of
// the dedup policy, not errors.
type Result struct {
	Imported int
	Skipped  int
}

// Importer turns import records into stored songs.
type Importer struct {
	store  Store
	policy Policy
}

// New creates an importer with the given duplicate policy.
func New(store Store, policy Policy) *Importer {
	return &Importer{store: store, policy: policy}
}

// Import applies metadata defaulting to each record and upserts the
// batch. Under the Skip policy, identities already stored are left
// untouched.
func (im *Importer) Import(ctx context.Context, records []Record) (Result, error) {
	var res Result
	if len(records) == 0 {
		return res, nil
	}

	existing := make(map[string]bool)
	if im.policy == Skip {
		stored, err := im.store.ListSongs(ctx)
		if err != nil {
			return res, errors.Wrap(err, "list existing songs")
		}
		for _, s := range stored {
			existing[s.ID] = true
		}
	}

	now := time.Now().UTC()
	batch := make([]song.Song, 0, len(records))
	for _, r := range records {
		if im.policy == Skip && existing[r.Identity] {
			res.Skipped++
			continue
		}

		s := song.Song{
			ID:        r.Identity,
			Path:      r.Path,
			Title:     r.Title,
			Artist:    r.Artist,
			Album:     r.Album,
			Duration:  r.Duration,
			DateAdded: now,
		}
		if s.Path == "" {
			s.Path = r.FileName
		}
		s.ApplyDefaults()
		batch = append(batch, s)
	}

	if len(batch) == 0 {
		return res, nil
	}
	if err := im.store.UpsertSongs(ctx, batch); err != nil {
		return res, errors.Wrap(err, "upsert batch")
	}
	res.Imported = len(batch)

	zlog.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("importer: batch applied")
	return res, nil
}
