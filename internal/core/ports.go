package core

import (
	"context"
	"errors"
)

// ErrContentNotFound is returned by resolvers when no asset backs the
// requested (kind, id) pair, or the asset has no storage path.
var ErrContentNotFound = errors.New("content not found")

// ContentResolver answers "what file backs this asset".
// Implementations: SQLite catalog, in-memory catalog.
type ContentResolver interface {
	// Resolve returns the content for the given kind and id,
	// or ErrContentNotFound.
	Resolve(ctx context.Context, kind ContentKind, id string) (*Content, error)
}

// PermissionOracle decides whether a principal may download an asset.
// The edge never sees this interface; only the issuer consults it.
type PermissionOracle interface {
	// MayDownload reports whether the principal is allowed to download
	// the content. It must not err on the side of allowing.
	MayDownload(ctx context.Context, principal *Principal, content *Content) (bool, error)
}

// DownloadRecorder persists download events.
// Implementations: SQLite store, in-memory store, noop.
type DownloadRecorder interface {
	Record(ctx context.Context, event DownloadEvent) error
	Close() error
}
