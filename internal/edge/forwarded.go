package edge

import (
	"net/http"

	"github.com/ethiapath/bagcamp/internal/core"
)

// Forwarded-context header names. The storage origin and its logs see these
// on every authorized request.
const (
	HeaderUserID      = "X-User-ID"
	HeaderContentKind = "X-Content-Kind"
	HeaderContentID   = "X-Content-ID"
)

// ForwardedContext is the identity information attached to the outbound
// request to the storage origin once a token has been accepted.
type ForwardedContext struct {
	UserID      string
	ContentKind core.ContentKind
	ContentID   string
}

// Apply sets the context headers, replacing any client-supplied values.
func (f ForwardedContext) Apply(h http.Header) {
	h.Set(HeaderUserID, f.UserID)
	h.Set(HeaderContentKind, string(f.ContentKind))
	h.Set(HeaderContentID, f.ContentID)
}
