package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	_ "modernc.org/sqlite"

	"github.com/ethiapath/bagcamp/internal/core"
)

// SQLiteConfig holds configuration for the SQLite event store.
type SQLiteConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file.
	DatabasePath string `mapstructure:"path"`
}

// SQLiteRecorder persists download events to a SQLite database.
type SQLiteRecorder struct {
	db        *sql.DB
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ core.DownloadRecorder = (*SQLiteRecorder)(nil)

func NewSQLiteRecorder(cfg SQLiteConfig) (*SQLiteRecorder, error) {
	if cfg.DatabasePath == "" {
		return nil, errors.New("events database path is required")
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open events db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping events db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS downloads (
			id           TEXT    PRIMARY KEY,
			time         INTEGER NOT NULL,
			principal_id TEXT    NOT NULL,
			content_kind TEXT    NOT NULL,
			content_id   TEXT    NOT NULL,
			path         TEXT    NOT NULL,
			remote_addr  TEXT,
			user_agent   TEXT
		)
	`); err != nil {
		return nil, fmt.Errorf("create events schema: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteRecorder{
		db:        db,
		writeLock: new(sync.Mutex),
	}, nil
}

func (s *SQLiteRecorder) Record(ctx context.Context, event core.DownloadEvent) error {
	if event.ID == "" {
		event.ID = xid.New().String()
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (id, time, principal_id, content_kind, content_id, path, remote_addr, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.Time.Unix(),
		event.PrincipalID,
		string(event.ContentKind),
		event.ContentID,
		event.Path,
		event.RemoteAddr,
		event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert download event: %w", err)
	}
	return nil
}

// CountSince returns the number of downloads recorded after the given time.
func (s *SQLiteRecorder) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM downloads WHERE time > ?`, since.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count download events: %w", err)
	}
	return count, nil
}

func (s *SQLiteRecorder) Close() error {
	return s.db.Close()
}
