package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ethiapath/bagcamp/internal/core"
)

// SQLiteConfig holds configuration for the SQLite catalog backend.
type SQLiteConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file.
	DatabasePath string `mapstructure:"path"`
}

// SQLiteCatalog implements Catalog backed by the releases/tracks tables.
type SQLiteCatalog struct {
	db        *sql.DB
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Catalog = (*SQLiteCatalog)(nil)

func NewSQLiteCatalog(cfg SQLiteConfig) (*SQLiteCatalog, error) {
	if cfg.DatabasePath == "" {
		return nil, errors.New("catalog database path is required")
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}
	if err := initializeDB(db); err != nil {
		return nil, fmt.Errorf("initialize catalog db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteCatalog{
		db:        db,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS releases (
			id            TEXT    PRIMARY KEY,
			artist_id     TEXT    NOT NULL,
			published     INTEGER NOT NULL DEFAULT 0,
			download_path TEXT
		);
		CREATE TABLE IF NOT EXISTS tracks (
			id         TEXT PRIMARY KEY,
			release_id TEXT NOT NULL REFERENCES releases(id),
			file_path  TEXT
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Resolve implements core.ContentResolver. Tracks inherit ownership and
// published state from their release, matching how the upload side stores
// them.
func (c *SQLiteCatalog) Resolve(ctx context.Context, kind core.ContentKind, id string) (*core.Content, error) {
	var (
		path      sql.NullString
		ownerID   string
		published bool
	)

	switch kind {
	case core.KindRelease:
		err := c.db.QueryRowContext(ctx, `
			SELECT download_path, artist_id, published
			FROM releases WHERE id = ?
		`, id).Scan(&path, &ownerID, &published)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrContentNotFound
		} else if err != nil {
			return nil, fmt.Errorf("query release: %w", err)
		}
	case core.KindTrack:
		err := c.db.QueryRowContext(ctx, `
			SELECT t.file_path, r.artist_id, r.published
			FROM tracks t JOIN releases r ON r.id = t.release_id
			WHERE t.id = ?
		`, id).Scan(&path, &ownerID, &published)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrContentNotFound
		} else if err != nil {
			return nil, fmt.Errorf("query track: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}

	// an asset without a file behind it is not downloadable
	if !path.Valid || path.String == "" {
		return nil, core.ErrContentNotFound
	}

	return &core.Content{
		Kind:      kind,
		ID:        id,
		Path:      normalizePath(path.String),
		OwnerID:   ownerID,
		Published: published,
	}, nil
}

// MayDownload implements core.PermissionOracle: the principal owns the
// content, or the content is published.
func (c *SQLiteCatalog) MayDownload(_ context.Context, principal *core.Principal, content *core.Content) (bool, error) {
	if principal == nil || content == nil {
		return false, nil
	}
	return content.OwnerID == principal.ID || content.Published, nil
}

// AddRelease inserts a release row. Used by seeding tools and tests.
func (c *SQLiteCatalog) AddRelease(ctx context.Context, id, artistID, downloadPath string, published bool) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO releases (id, artist_id, published, download_path)
		VALUES (?, ?, ?, ?)
	`, id, artistID, published, downloadPath)
	if err != nil {
		return fmt.Errorf("insert release: %w", err)
	}
	return nil
}

// AddTrack inserts a track row. Used by seeding tools and tests.
func (c *SQLiteCatalog) AddTrack(ctx context.Context, id, releaseID, filePath string) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO tracks (id, release_id, file_path) VALUES (?, ?, ?)
	`, id, releaseID, filePath)
	if err != nil {
		return fmt.Errorf("insert track: %w", err)
	}
	return nil
}

func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

func normalizePath(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
