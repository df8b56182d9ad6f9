package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/ethiapath/bagcamp/internal/core"
)

// Verification failures. The edge collapses all of them to a generic 403
// but logs the specific kind, so they must stay distinguishable.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrBadSignature     = errors.New("bad signature")
	ErrExpired          = errors.New("token expired")
	ErrAudienceMismatch = errors.New("audience mismatch")
	ErrIssuerMismatch   = errors.New("issuer mismatch")
)

// wireClaims is the JWT representation of Claims.
// Field names match what the delivery edge has always expected.
type wireClaims struct {
	Path        string `json:"path"`
	ContentKind string `json:"type"`
	ContentID   string `json:"id"`
	jwt.RegisteredClaims
}

// Codec mints and verifies download tokens with a shared symmetric secret.
// It is pure; both the issuer and the edge hold one.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret must not be empty")
	}
	if issuer == "" {
		return nil, errors.New("issuer must not be empty")
	}
	return &Codec{
		secret: secret,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// WithClock overrides the time source, for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issuer returns the issuer string this codec mints and expects.
func (c *Codec) Issuer() string {
	return c.issuer
}

// Mint serializes and signs the claim set. All required fields must be set
// by the caller; Mint fails fast instead of defaulting them. IssuedAt and
// TokenID are filled in when empty.
func (c *Codec) Mint(claims Claims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = c.issuer
	}
	if claims.IssuedAt.IsZero() {
		claims.IssuedAt = c.now()
	}
	if err := claims.validate(); err != nil {
		return "", fmt.Errorf("minting download token: %w", err)
	}
	if claims.TokenID == "" {
		claims.TokenID = xid.New().String()
	}

	wire := wireClaims{
		Path:        claims.Path,
		ContentKind: string(claims.ContentKind),
		ContentID:   claims.ContentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Audience:  jwt.ClaimStrings{claims.Audience},
			Issuer:    claims.Issuer,
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing download token: %w", err)
	}
	return signed, nil
}

// Verify validates the signature, issuer, audience and expiry of a token and
// decodes its claims. It returns one of the typed failures above on any
// problem and never returns partial claims.
func (c *Codec) Verify(tokenStr, expectedAudience string) (*Claims, error) {
	var wire wireClaims
	_, err := jwt.ParseWithClaims(tokenStr, &wire,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithAudience(expectedAudience),
		jwt.WithIssuer(c.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, err := fromWire(&wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	// the library treats now == exp as still valid; this contract does not.
	if !c.now().Before(claims.ExpiresAt) {
		return nil, ErrExpired
	}
	return claims, nil
}

func fromWire(wire *wireClaims) (*Claims, error) {
	kind, err := core.ParseContentKind(wire.ContentKind)
	if err != nil {
		return nil, err
	}
	if wire.Subject == "" || wire.ContentID == "" || wire.Path == "" {
		return nil, errors.New("missing claim fields")
	}
	if wire.ExpiresAt == nil {
		return nil, errors.New("missing expiry claim")
	}

	claims := &Claims{
		Subject:     wire.Subject,
		Path:        wire.Path,
		ContentKind: kind,
		ContentID:   wire.ContentID,
		Issuer:      wire.Issuer,
		TokenID:     wire.ID,
		ExpiresAt:   wire.ExpiresAt.Time,
	}
	if len(wire.Audience) > 0 {
		claims.Audience = wire.Audience[0]
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %v", ErrAudienceMismatch, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", ErrIssuerMismatch, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
