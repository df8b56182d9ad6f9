package core

import (
	"fmt"
	"time"
)

// ContentKind identifies what category of asset a download refers to.
type ContentKind string

const (
	KindRelease ContentKind = "release"
	KindTrack   ContentKind = "track"
)

// ParseContentKind validates a wire-level kind string.
func ParseContentKind(s string) (ContentKind, error) {
	switch ContentKind(s) {
	case KindRelease:
		return KindRelease, nil
	case KindTrack:
		return KindTrack, nil
	default:
		return "", fmt.Errorf("unknown content kind %q", s)
	}
}

// Principal represents the authenticated identity of the caller.
// It is produced by the session middleware after verifying a session token.
type Principal struct {
	// ID is the unique subject identifier (the user ID).
	ID string
}

// Content is a downloadable asset as the catalog knows it.
type Content struct {
	// Kind and ID together identify the asset.
	Kind ContentKind
	ID   string

	// Path is the storage path backing this asset, always starting with "/".
	Path string

	// OwnerID is the artist who uploaded the asset.
	OwnerID string

	// Published indicates the asset is visible to everyone.
	Published bool
}

// DownloadEvent records one authorized download for analytics.
// Recording is best-effort and never blocks the authorization decision.
type DownloadEvent struct {
	// ID is the unique event ID (the request's X-Correlation-ID).
	ID string `json:"id"`

	// Time is when the download was authorized.
	Time time.Time `json:"time"`

	PrincipalID string      `json:"principal_id"`
	ContentKind ContentKind `json:"content_kind"`
	ContentID   string      `json:"content_id"`
	Path        string      `json:"path"`

	// RemoteAddr and UserAgent come from the authorizing request.
	RemoteAddr string `json:"remote_addr,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}
