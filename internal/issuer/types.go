package issuer

import (
	"net/http"
	"time"

	"github.com/ethiapath/bagcamp/internal/core"
	"github.com/ethiapath/bagcamp/internal/token"
)

// AuthorizeRequest asks for a download grant for one asset.
type AuthorizeRequest struct {
	// Principal is the authenticated caller. Authentication itself happens
	// in the API layer; an AuthorizeRequest without a principal is invalid.
	Principal *core.Principal

	Kind core.ContentKind
	ID   string

	// RemoteAddr and UserAgent are recorded with the download event.
	RemoteAddr string
	UserAgent  string
}

// Grant is the result of a successful authorization.
type Grant struct {
	// URL is the fully-qualified download URL on the delivery domain.
	URL string

	// Cookie carries the signed token, scoped to the granted path.
	Cookie *http.Cookie

	// Claims are the minted claims, returned for logging and tests.
	Claims token.Claims

	ExpiresAt time.Time
}

// Minter mints a signed token from a claim set. Satisfied by *token.Codec;
// tests substitute counting fakes.
type Minter interface {
	Mint(claims token.Claims) (string, error)
}
