package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethiapath/bagcamp/internal/core"
)

// Claims is the payload of a download token. It travels inside the signed
// token itself; nothing is stored server-side.
type Claims struct {
	// Subject is the ID of the principal the download was authorized for.
	Subject string

	// Path is the single storage path this token grants access to.
	// The edge compares it to the request path with exact string equality.
	Path string

	// ContentKind and ContentID identify the asset, for headers and events.
	ContentKind core.ContentKind
	ContentID   string

	// Audience is the delivery hostname the token is bound to.
	Audience string

	// Issuer identifies the minting authority.
	Issuer string

	// TokenID is a unique ID for log correlation. Assigned at mint time
	// when empty.
	TokenID string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// validate checks that all fields required for minting are present.
// Missing fields are a caller error and must never be silently defaulted.
func (c *Claims) validate() error {
	var missing []string
	if c.Subject == "" {
		missing = append(missing, "subject")
	}
	if c.Path == "" {
		missing = append(missing, "path")
	}
	if c.ContentKind == "" {
		missing = append(missing, "content kind")
	}
	if c.ContentID == "" {
		missing = append(missing, "content id")
	}
	if c.Audience == "" {
		missing = append(missing, "audience")
	}
	if c.Issuer == "" {
		missing = append(missing, "issuer")
	}
	if c.ExpiresAt.IsZero() {
		missing = append(missing, "expiry")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete claims: missing %s", strings.Join(missing, ", "))
	}

	if _, err := core.ParseContentKind(string(c.ContentKind)); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path %q must start with '/'", c.Path)
	}
	if !c.ExpiresAt.After(c.IssuedAt) {
		return errors.New("expiry must be after issue time")
	}
	return nil
}
