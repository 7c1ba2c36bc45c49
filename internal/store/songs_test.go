package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"

	"github.com/tonefold/tonefold/internal/domain/song"
)

const upsertSongSQL = `
	INSERT INTO songs (id, path, title, artist, album, duration_ms, play_count, date_added)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		path = excluded.path,
		title = excluded.title,
		artist = excluded.artist,
		album = excluded.album,
		duration_ms = excluded.duration_ms
`

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestListSongs(t *testing.T) {
	s, mock := newMock(t)

	added := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, path, title, artist, album, duration_ms, play_count, date_added
		FROM songs
		ORDER BY artist, album, title`)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "path", "title", "artist", "album", "duration_ms", "play_count", "date_added"}).
			AddRow("id-a", "/music/a.mp3", "A", "Artist", "Album", int64(180000), 3, added).
			AddRow("id-b", "/music/b.mp3", "B", "Artist", "Album", int64(0), 0, added))

	songs, err := s.ListSongs(context.Background())
	if err != nil {
		t.Fatalf("ListSongs error: %v", err)
	}

	if len(songs) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(songs))
	}
	if songs[0].Duration != 3*time.Minute {
		t.Fatalf("expected 3m duration, got %v", songs[0].Duration)
	}
	if songs[1].Duration != 0 {
		t.Fatalf("expected unresolved duration 0, got %v", songs[1].Duration)
	}
	if songs[0].PlayCount != 3 {
		t.Fatalf("expected play count 3, got %d", songs[0].PlayCount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertSongs_IdempotentByIdentity(t *testing.T) {
	s, mock := newMock(t)

	sg := song.Song{
		ID:        "id-a",
		Path:      "/music/a.mp3",
		Title:     "A",
		Artist:    "Artist",
		Album:     "Album",
		Duration:  3 * time.Minute,
		DateAdded: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	// Submitting the same identity twice hits the conflict path the second
	// time; either way exactly one row remains.
	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta(upsertSongSQL)).
			WithArgs(sg.ID, sg.Path, sg.Title, sg.Artist, sg.Album,
				int64(180000), sg.PlayCount, sg.DateAdded).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	if err := s.UpsertSongs(context.Background(), []song.Song{sg}); err != nil {
		t.Fatalf("first upsert error: %v", err)
	}
	if err := s.UpsertSongs(context.Background(), []song.Song{sg}); err != nil {
		t.Fatalf("second upsert error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertSongs_BatchNotAtomic(t *testing.T) {
	s, mock := newMock(t)

	songs := []song.Song{
		{ID: "id-a", Path: "/a.mp3", Title: "A", Artist: "x", Album: "y"},
		{ID: "id-b", Path: "/b.mp3", Title: "B", Artist: "x", Album: "y"},
	}

	mock.ExpectExec(regexp.QuoteMeta(upsertSongSQL)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(upsertSongSQL)).
		WillReturnError(errors.New("disk full"))

	err := s.UpsertSongs(context.Background(), songs)
	if err == nil {
		t.Fatal("expected error from second song")
	}
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	// The first song was committed before the failure; the batch is not
	// rolled back as a whole.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIncrementPlayCount(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT play_count
		FROM songs
		WHERE id = ?`)).
		WithArgs("id-a").
		WillReturnRows(sqlmock.NewRows([]string{"play_count"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE songs
		SET play_count = ?
		WHERE id = ?`)).
		WithArgs(8, "id-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.IncrementPlayCount(context.Background(), "id-a"); err != nil {
		t.Fatalf("IncrementPlayCount error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIncrementPlayCount_SequentialCallsAccumulate(t *testing.T) {
	s, mock := newMock(t)

	// N sequential, non-overlapping calls read the previous value each
	// time: none of the increments is lost.
	const n = 5
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT play_count
			FROM songs
			WHERE id = ?`)).
			WithArgs("id-a").
			WillReturnRows(sqlmock.NewRows([]string{"play_count"}).AddRow(i))
		mock.ExpectExec(regexp.QuoteMeta(`
			UPDATE songs
			SET play_count = ?
			WHERE id = ?`)).
			WithArgs(i+1, "id-a").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	for i := 0; i < n; i++ {
		if err := s.IncrementPlayCount(context.Background(), "id-a"); err != nil {
			t.Fatalf("increment %d error: %v", i, err)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIncrementPlayCount_UnknownSong(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT play_count
		FROM songs
		WHERE id = ?`)).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"play_count"}))
	mock.ExpectRollback()

	err := s.IncrementPlayCount(context.Background(), "gone")
	if !errors.Is(err, ErrSongNotFound) {
		t.Fatalf("expected ErrSongNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIncrementPlayCount_CommitFailureIsStorageUnavailable(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT play_count
		FROM songs
		WHERE id = ?`)).
		WithArgs("id-a").
		WillReturnRows(sqlmock.NewRows([]string{"play_count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE songs
		SET play_count = ?
		WHERE id = ?`)).
		WithArgs(2, "id-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err := s.IncrementPlayCount(context.Background(), "id-a")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
