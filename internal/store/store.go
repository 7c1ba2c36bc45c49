// Package store provides durable keyed storage for songs and playlists.
//
// Every operation is individually transactional; no atomicity is
// guaranteed across separate calls. The store serializes its own per-key
// read-modify-write internally, which is what the play-count contract
// relies on for sequential, non-overlapping increments.
package store

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// Sentinel errors. Callers match with errors.Is; none of these trigger an
// automatic retry.
var (
	// ErrStorageUnavailable marks any failure to open or commit against
	// the backing store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrSongNotFound indicates the song identity does not exist.
	ErrSongNotFound = errors.New("song not found")
	// ErrPlaylistNotFound indicates the playlist id does not exist.
	ErrPlaylistNotFound = errors.New("playlist not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	title       TEXT NOT NULL,
	artist      TEXT NOT NULL,
	album       TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	play_count  INTEGER NOT NULL DEFAULT 0,
	date_added  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title);
CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist);

CREATE TABLE IF NOT EXISTS playlists (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	date_created TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_playlists_name ON playlists(name);

CREATE TABLE IF NOT EXISTS playlist_songs (
	playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	song_id     TEXT NOT NULL,
	PRIMARY KEY (playlist_id, position)
);
`

// Store persists the library in a local SQLite database.
type Store struct {
	db *sql.DB
}

// New wraps an existing database handle. The schema is assumed present.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the database at path, creating the schema when missing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr(err, "open database")
	}

	// SQLite allows one writer; the controller issues one increment per
	// play-session, so a single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, storageErr(err, "create schema")
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// storageErr wraps a backing-store failure so callers can match
// ErrStorageUnavailable while keeping the cause.
func storageErr(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrStorageUnavailable)
}
