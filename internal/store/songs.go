package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tonefold/tonefold/internal/domain/song"
)

// ListSongs returns a full snapshot of the song collection.
func (s *Store) ListSongs(ctx context.Context) ([]song.Song, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, title, artist, album, duration_ms, play_count, date_added
		FROM songs
		ORDER BY artist, album, title`)
	if err != nil {
		return nil, storageErr(err, "query songs")
	}
	defer rows.Close()

	var songs []song.Song
	for rows.Next() {
		var (
			sg         song.Song
			durationMS int64
		)
		if err := rows.Scan(&sg.ID, &sg.Path, &sg.Title, &sg.Artist, &sg.Album,
			&durationMS, &sg.PlayCount, &sg.DateAdded); err != nil {
			return nil, storageErr(err, "scan song")
		}
		sg.Duration = time.Duration(durationMS) * time.Millisecond
		songs = append(songs, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "iterate songs")
	}

	return songs, nil
}

// UpsertSongs writes the batch, idempotent by identity. Re-submitting an
// existing identity overwrites its metadata; play count and date added
// survive the overwrite (the former is monotone, the latter immutable).
// Each song commits all-or-none on its own; the batch as a whole is not
// atomic, so a mid-batch failure leaves earlier songs written.
func (s *Store) UpsertSongs(ctx context.Context, batch []song.Song) error {
	for _, sg := range batch {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO songs (id, path, title, artist, album, duration_ms, play_count, date_added)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				path = excluded.path,
				title = excluded.title,
				artist = excluded.artist,
				album = excluded.album,
				duration_ms = excluded.duration_ms`,
			sg.ID, sg.Path, sg.Title, sg.Artist, sg.Album,
			sg.Duration.Milliseconds(), sg.PlayCount, sg.DateAdded)
		if err != nil {
			return storageErr(errors.Wrapf(err, "song %s", sg.ID), "upsert song")
		}
	}
	return nil
}

// IncrementPlayCount adds one to a song's play count. The read and the
// write share one transaction scope, so sequential, non-overlapping calls
// never lose an increment. Overlapping calls from separate store
// instances are outside the contract.
func (s *Store) IncrementPlayCount(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin tx")
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT play_count
		FROM songs
		WHERE id = ?`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Mark(errors.Newf("song %s", id), ErrSongNotFound)
	}
	if err != nil {
		return storageErr(err, "read play count")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE songs
		SET play_count = ?
		WHERE id = ?`, count+1, id); err != nil {
		return storageErr(err, "write play count")
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit play count")
	}
	tx = nil

	return nil
}
