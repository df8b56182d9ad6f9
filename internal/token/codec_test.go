package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ethiapath/bagcamp/internal/core"
)

var testNow = time.Unix(1700000000, 0)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec([]byte("test-secret"), "https://bagcamp.com")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c.WithClock(func() time.Time { return testNow })
}

func testClaims() Claims {
	return Claims{
		Subject:     "user-1",
		Path:        "/tracks/42/x.mp3",
		ContentKind: core.KindTrack,
		ContentID:   "42",
		Audience:    "media.bagcamp.com",
		Issuer:      "https://bagcamp.com",
		IssuedAt:    testNow,
		ExpiresAt:   testNow.Add(5 * time.Minute),
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := testCodec(t)
	want := testClaims()

	signed, err := codec.Mint(want)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	got, err := codec.Verify(signed, want.Audience)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// TokenID is assigned during Mint
	if got.TokenID == "" {
		t.Error("expected a token ID to be assigned")
	}
	want.TokenID = got.TokenID

	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("claims mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_MintRejectsIncompleteClaims(t *testing.T) {
	codec := testCodec(t)

	tests := []struct {
		name   string
		mutate func(*Claims)
	}{
		{"missing subject", func(c *Claims) { c.Subject = "" }},
		{"missing path", func(c *Claims) { c.Path = "" }},
		{"missing kind", func(c *Claims) { c.ContentKind = "" }},
		{"missing content id", func(c *Claims) { c.ContentID = "" }},
		{"missing audience", func(c *Claims) { c.Audience = "" }},
		{"missing expiry", func(c *Claims) { c.ExpiresAt = time.Time{} }},
		{"relative path", func(c *Claims) { c.Path = "tracks/42/x.mp3" }},
		{"bad kind", func(c *Claims) { c.ContentKind = "album" }},
		{"expiry before issue", func(c *Claims) { c.ExpiresAt = testNow.Add(-time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := testClaims()
			tt.mutate(&claims)
			if _, err := codec.Mint(claims); err == nil {
				t.Error("expected Mint to fail, got nil error")
			}
		})
	}
}

func TestCodec_TamperDetection(t *testing.T) {
	codec := testCodec(t)

	signed, err := codec.Mint(testClaims())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// flip one byte at a time across the whole token; the codec must never
	// hand back claims
	for i := 0; i < len(signed); i++ {
		if signed[i] == '.' {
			continue
		}
		tampered := signed[:i] + string(signed[i]^0x01) + signed[i+1:]
		if tampered == signed {
			continue
		}

		claims, err := codec.Verify(tampered, "media.bagcamp.com")
		if claims != nil {
			t.Fatalf("byte %d: got claims from tampered token", i)
		}
		if !errors.Is(err, ErrBadSignature) && !errors.Is(err, ErrMalformed) {
			t.Fatalf("byte %d: want BadSignature or Malformed, got %v", i, err)
		}
	}
}

func TestCodec_ExpiryBoundary(t *testing.T) {
	codec := testCodec(t)

	tests := []struct {
		name      string
		expiresAt time.Time
		wantErr   error
	}{
		{"one second left", testNow.Add(time.Second), nil},
		{"expires exactly now", testNow, ErrExpired},
		{"expired one second ago", testNow.Add(-time.Second), ErrExpired},
		{"expired ten minutes ago", testNow.Add(-10 * time.Minute), ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := testClaims()
			claims.IssuedAt = tt.expiresAt.Add(-5 * time.Minute)
			claims.ExpiresAt = tt.expiresAt

			signed, err := codec.Mint(claims)
			if err != nil {
				t.Fatalf("Mint: %v", err)
			}

			_, err = codec.Verify(signed, claims.Audience)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Verify: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCodec_AudienceBinding(t *testing.T) {
	codec := testCodec(t)
	claims := testClaims()
	claims.Audience = "a.example.com"

	signed, err := codec.Mint(claims)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := codec.Verify(signed, "b.example.com"); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("want ErrAudienceMismatch, got %v", err)
	}
}

func TestCodec_IssuerMismatch(t *testing.T) {
	minter := testCodec(t)
	signed, err := minter.Mint(testClaims())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	verifier, err := NewCodec([]byte("test-secret"), "https://evil.example.com")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	verifier.WithClock(func() time.Time { return testNow })

	if _, err := verifier.Verify(signed, "media.bagcamp.com"); !errors.Is(err, ErrIssuerMismatch) {
		t.Fatalf("want ErrIssuerMismatch, got %v", err)
	}
}

func TestCodec_WrongSecret(t *testing.T) {
	minter := testCodec(t)
	signed, err := minter.Mint(testClaims())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	verifier, err := NewCodec([]byte("other-secret"), "https://bagcamp.com")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	verifier.WithClock(func() time.Time { return testNow })

	if _, err := verifier.Verify(signed, "media.bagcamp.com"); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("want ErrBadSignature, got %v", err)
	}
}

func TestCodec_Malformed(t *testing.T) {
	codec := testCodec(t)

	for _, tokenStr := range []string{
		"",
		"garbage",
		"a.b",
		strings.Repeat("x", 512),
		"eyJhbGciOiJIUzI1NiJ9..sig",
	} {
		if _, err := codec.Verify(tokenStr, "media.bagcamp.com"); !errors.Is(err, ErrMalformed) {
			t.Errorf("token %q: want ErrMalformed, got %v", tokenStr, err)
		}
	}
}
