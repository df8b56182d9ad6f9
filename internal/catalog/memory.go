package catalog

import (
	"context"
	"sync"

	"github.com/ethiapath/bagcamp/internal/core"
)

type memoryRelease struct {
	artistID  string
	published bool
	path      string
}

type memoryTrack struct {
	releaseID string
	path      string
}

// MemoryCatalog is an in-memory catalog for tests and local development.
type MemoryCatalog struct {
	mu       sync.RWMutex
	releases map[string]memoryRelease
	tracks   map[string]memoryTrack
}

var _ Catalog = (*MemoryCatalog)(nil)

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		releases: make(map[string]memoryRelease),
		tracks:   make(map[string]memoryTrack),
	}
}

func (c *MemoryCatalog) AddRelease(id, artistID, downloadPath string, published bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases[id] = memoryRelease{
		artistID:  artistID,
		published: published,
		path:      downloadPath,
	}
}

func (c *MemoryCatalog) AddTrack(id, releaseID, filePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[id] = memoryTrack{
		releaseID: releaseID,
		path:      filePath,
	}
}

func (c *MemoryCatalog) Resolve(_ context.Context, kind core.ContentKind, id string) (*core.Content, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch kind {
	case core.KindRelease:
		release, ok := c.releases[id]
		if !ok || release.path == "" {
			return nil, core.ErrContentNotFound
		}
		return &core.Content{
			Kind:      kind,
			ID:        id,
			Path:      normalizePath(release.path),
			OwnerID:   release.artistID,
			Published: release.published,
		}, nil
	case core.KindTrack:
		track, ok := c.tracks[id]
		if !ok || track.path == "" {
			return nil, core.ErrContentNotFound
		}
		release, ok := c.releases[track.releaseID]
		if !ok {
			return nil, core.ErrContentNotFound
		}
		return &core.Content{
			Kind:      kind,
			ID:        id,
			Path:      normalizePath(track.path),
			OwnerID:   release.artistID,
			Published: release.published,
		}, nil
	default:
		return nil, core.ErrContentNotFound
	}
}

func (c *MemoryCatalog) MayDownload(_ context.Context, principal *core.Principal, content *core.Content) (bool, error) {
	if principal == nil || content == nil {
		return false, nil
	}
	return content.OwnerID == principal.ID || content.Published, nil
}

func (c *MemoryCatalog) Close() error {
	return nil // nothing to close :)
}
