package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tonefold/tonefold/internal/domain/playlist"
)

// ListPlaylists returns a full snapshot of the playlist collection,
// including each playlist's ordered song identities. Identities are weak
// references; resolution happens at view time, not here.
func (s *Store) ListPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date_created
		FROM playlists
		ORDER BY date_created, id`)
	if err != nil {
		return nil, storageErr(err, "query playlists")
	}
	defer rows.Close()

	var playlists []playlist.Playlist
	for rows.Next() {
		var p playlist.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.DateCreated); err != nil {
			return nil, storageErr(err, "scan playlist")
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "iterate playlists")
	}

	for i := range playlists {
		ids, err := s.playlistSongIDs(ctx, playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].SongIDs = ids
	}

	return playlists, nil
}

// CreatePlaylist allocates a fresh playlist with no songs and returns its
// id.
func (s *Store) CreatePlaylist(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO playlists (name, date_created)
		VALUES (?, ?)`, name, time.Now().UTC())
	if err != nil {
		return 0, storageErr(err, "insert playlist")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr(err, "playlist id")
	}
	return id, nil
}

// SetPlaylistSongs replaces the playlist's ordered song-id list. A
// duplicate id in the input is dropped silently, first occurrence wins;
// it is a dedup policy, not an error.
func (s *Store) SetPlaylistSongs(ctx context.Context, id int64, songIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin tx")
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int64
	err = tx.QueryRowContext(ctx, `
		SELECT id
		FROM playlists
		WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Mark(errors.Newf("playlist %d", id), ErrPlaylistNotFound)
		}
		return storageErr(err, "lookup playlist")
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM playlist_songs
		WHERE playlist_id = ?`, id); err != nil {
		return storageErr(err, "clear playlist songs")
	}

	seen := make(map[string]bool, len(songIDs))
	position := 0
	for _, sid := range songIDs {
		if seen[sid] {
			continue
		}
		seen[sid] = true

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO playlist_songs (playlist_id, position, song_id)
			VALUES (?, ?, ?)`, id, position, sid); err != nil {
			return storageErr(err, "insert playlist song")
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit playlist songs")
	}
	tx = nil

	return nil
}

// DeletePlaylist removes the playlist and its membership rows. Deleting a
// missing id is a no-op.
func (s *Store) DeletePlaylist(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin tx")
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM playlist_songs
		WHERE playlist_id = ?`, id); err != nil {
		return storageErr(err, "delete playlist songs")
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM playlists
		WHERE id = ?`, id); err != nil {
		return storageErr(err, "delete playlist")
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit playlist delete")
	}
	tx = nil

	return nil
}

func (s *Store) playlistSongIDs(ctx context.Context, id int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT song_id
		FROM playlist_songs
		WHERE playlist_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, storageErr(err, "query playlist songs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, storageErr(err, "scan playlist song")
		}
		ids = append(ids, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "iterate playlist songs")
	}

	return ids, nil
}
