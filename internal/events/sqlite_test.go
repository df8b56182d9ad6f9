package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethiapath/bagcamp/internal/core"
)

func TestSQLiteRecorder_Record(t *testing.T) {
	recorder, err := NewSQLiteRecorder(SQLiteConfig{
		DatabasePath: filepath.Join(t.TempDir(), "downloads.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	defer func() { _ = recorder.Close() }()

	ctx := context.Background()
	now := time.Now()

	for i, event := range []core.DownloadEvent{
		{
			ID:          "evt-1",
			Time:        now,
			PrincipalID: "user-1",
			ContentKind: core.KindTrack,
			ContentID:   "42",
			Path:        "/tracks/42/x.mp3",
			RemoteAddr:  "203.0.113.7",
			UserAgent:   "test-agent",
		},
		{
			// no ID; the recorder must assign one instead of colliding
			Time:        now,
			PrincipalID: "user-2",
			ContentKind: core.KindRelease,
			ContentID:   "rel-1",
			Path:        "/releases/1/album.zip",
		},
	} {
		if err := recorder.Record(ctx, event); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	count, err := recorder.CountSince(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
