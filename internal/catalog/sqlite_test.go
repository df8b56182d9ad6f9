package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethiapath/bagcamp/internal/config"
	"github.com/ethiapath/bagcamp/internal/core"
)

func newTestSQLiteCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()

	cat, err := NewSQLiteCatalog(SQLiteConfig{
		DatabasePath: filepath.Join(t.TempDir(), "catalog.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteCatalog: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	ctx := context.Background()
	if err := cat.AddRelease(ctx, "rel-1", "artist-1", "releases/1/album.zip", true); err != nil {
		t.Fatalf("AddRelease: %v", err)
	}
	if err := cat.AddRelease(ctx, "rel-2", "artist-1", "releases/2/wip.zip", false); err != nil {
		t.Fatalf("AddRelease: %v", err)
	}
	if err := cat.AddTrack(ctx, "42", "rel-2", "tracks/42/x.mp3"); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	return cat
}

func TestSQLiteCatalog_Resolve(t *testing.T) {
	cat := newTestSQLiteCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		kind     core.ContentKind
		id       string
		wantErr  error
		wantPath string
	}{
		{"published release", core.KindRelease, "rel-1", nil, "/releases/1/album.zip"},
		{"unpublished release", core.KindRelease, "rel-2", nil, "/releases/2/wip.zip"},
		{"track inherits release", core.KindTrack, "42", nil, "/tracks/42/x.mp3"},
		{"unknown release", core.KindRelease, "rel-404", core.ErrContentNotFound, ""},
		{"unknown track", core.KindTrack, "999", core.ErrContentNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := cat.Resolve(ctx, tt.kind, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if content.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", content.Path, tt.wantPath)
			}
			if content.OwnerID != "artist-1" {
				t.Errorf("owner = %q", content.OwnerID)
			}
		})
	}
}

func TestSQLiteCatalog_TrackOwnershipFromRelease(t *testing.T) {
	cat := newTestSQLiteCatalog(t)
	ctx := context.Background()

	track, err := cat.Resolve(ctx, core.KindTrack, "42")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if track.Published {
		t.Error("track of unpublished release must not be published")
	}

	owner := &core.Principal{ID: "artist-1"}
	stranger := &core.Principal{ID: "listener-9"}

	if ok, err := cat.MayDownload(ctx, owner, track); err != nil || !ok {
		t.Errorf("owner denied: ok=%v err=%v", ok, err)
	}
	if ok, err := cat.MayDownload(ctx, stranger, track); err != nil || ok {
		t.Errorf("stranger allowed: ok=%v err=%v", ok, err)
	}
}

func TestBuild(t *testing.T) {
	cat, err := Build(config.BackendConfig{
		Type: "sqlite",
		Config: map[string]any{
			"path": filepath.Join(t.TempDir(), "catalog.db"),
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_ = cat.Close()

	if _, err := Build(config.BackendConfig{Type: "postgres"}); err == nil {
		t.Error("expected unknown catalog type to fail")
	}

	if _, err := Build(config.BackendConfig{Type: "sqlite"}); err == nil {
		t.Error("expected sqlite catalog without a path to fail")
	}
}
