package issuer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ethiapath/bagcamp/internal/catalog"
	"github.com/ethiapath/bagcamp/internal/config"
	"github.com/ethiapath/bagcamp/internal/core"
	"github.com/ethiapath/bagcamp/internal/events"
	"github.com/ethiapath/bagcamp/internal/token"
)

var testNow = time.Unix(1700000000, 0)

// countingMinter wraps a real codec and counts Mint calls.
type countingMinter struct {
	codec *token.Codec
	calls int
}

func (m *countingMinter) Mint(claims token.Claims) (string, error) {
	m.calls++
	return m.codec.Mint(claims)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, core.DownloadEvent) error {
	return errors.New("events db unavailable")
}

func (failingRecorder) Close() error { return nil }

func testDownloadConfig() config.DownloadConfig {
	return config.DownloadConfig{
		Domain:     "https://media.bagcamp.com",
		Issuer:     config.DefaultIssuer,
		CookieName: config.DefaultCookieName,
		Window:     5 * time.Minute,
	}
}

func seededCatalog() *catalog.MemoryCatalog {
	cat := catalog.NewMemoryCatalog()
	cat.AddRelease("rel-1", "artist-1", "releases/1/album.zip", true)
	cat.AddRelease("rel-2", "artist-1", "releases/2/unreleased.zip", false)
	cat.AddTrack("42", "rel-2", "tracks/42/x.mp3")
	return cat
}

func newTestService(t *testing.T, recorder core.DownloadRecorder) (*Service, *countingMinter) {
	t.Helper()

	codec, err := token.NewCodec([]byte("test-secret"), config.DefaultIssuer)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	codec.WithClock(func() time.Time { return testNow })
	minter := &countingMinter{codec: codec}

	cat := seededCatalog()
	svc, err := NewService(cat, cat, recorder, minter, testDownloadConfig(), false)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc.WithClock(func() time.Time { return testNow }), minter
}

func TestService_OwnerDownloadsUnpublishedTrack(t *testing.T) {
	recorder := events.NewMemoryRecorder()
	svc, minter := newTestService(t, recorder)

	grant, err := svc.Authorize(context.Background(), AuthorizeRequest{
		Principal: &core.Principal{ID: "artist-1"},
		Kind:      core.KindTrack,
		ID:        "42",
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	if want := "https://media.bagcamp.com/tracks/42/x.mp3"; grant.URL != want {
		t.Errorf("URL = %q, want %q", grant.URL, want)
	}
	if minter.calls != 1 {
		t.Errorf("mint calls = %d, want 1", minter.calls)
	}

	claims := grant.Claims
	if claims.Path != "/tracks/42/x.mp3" {
		t.Errorf("claims path = %q", claims.Path)
	}
	if claims.Audience != "media.bagcamp.com" {
		t.Errorf("claims audience = %q", claims.Audience)
	}
	if got, want := claims.ExpiresAt, testNow.Add(5*time.Minute); !got.Equal(want) {
		t.Errorf("claims expiry = %v, want %v", got, want)
	}

	cookie := grant.Cookie
	if cookie.Name != "download_token" {
		t.Errorf("cookie name = %q", cookie.Name)
	}
	if cookie.Path != "/tracks/42/x.mp3" {
		t.Errorf("cookie path = %q", cookie.Path)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes wrong: %+v", cookie)
	}
	if !cookie.Expires.Equal(claims.ExpiresAt) {
		t.Errorf("cookie expiry = %v, want %v", cookie.Expires, claims.ExpiresAt)
	}

	waitForEvents(t, recorder, 1)
	event := recorder.Events()[0]
	if event.PrincipalID != "artist-1" || event.ContentID != "42" || event.ContentKind != core.KindTrack {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestService_PublishedReleaseForAnyPrincipal(t *testing.T) {
	svc, _ := newTestService(t, events.NewNoopRecorder())

	grant, err := svc.Authorize(context.Background(), AuthorizeRequest{
		Principal: &core.Principal{ID: "listener-9"},
		Kind:      core.KindRelease,
		ID:        "rel-1",
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if grant.Claims.Subject != "listener-9" {
		t.Errorf("claims subject = %q", grant.Claims.Subject)
	}
}

func TestService_FailClosed(t *testing.T) {
	tests := []struct {
		name       string
		req        AuthorizeRequest
		wantStatus int
	}{
		{
			name: "unpublished content, non-owner",
			req: AuthorizeRequest{
				Principal: &core.Principal{ID: "listener-9"},
				Kind:      core.KindRelease,
				ID:        "rel-2",
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "unknown release",
			req: AuthorizeRequest{
				Principal: &core.Principal{ID: "artist-1"},
				Kind:      core.KindRelease,
				ID:        "rel-404",
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "no principal",
			req: AuthorizeRequest{
				Kind: core.KindTrack,
				ID:   "42",
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "bad content kind",
			req: AuthorizeRequest{
				Principal: &core.Principal{ID: "artist-1"},
				Kind:      "album",
				ID:        "rel-1",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing content id",
			req: AuthorizeRequest{
				Principal: &core.Principal{ID: "artist-1"},
				Kind:      core.KindRelease,
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, minter := newTestService(t, events.NewMemoryRecorder())

			grant, err := svc.Authorize(context.Background(), tt.req)
			if grant != nil {
				t.Fatal("expected no grant")
			}

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if httpErr.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", httpErr.StatusCode, tt.wantStatus)
			}
			if minter.calls != 0 {
				t.Errorf("mint calls = %d, want 0", minter.calls)
			}
		})
	}
}

func TestService_RecorderFailureDoesNotBlockGrant(t *testing.T) {
	svc, _ := newTestService(t, failingRecorder{})

	if _, err := svc.Authorize(context.Background(), AuthorizeRequest{
		Principal: &core.Principal{ID: "listener-9"},
		Kind:      core.KindRelease,
		ID:        "rel-1",
	}); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
}

func TestService_DevModeCookieNotSecure(t *testing.T) {
	codec, err := token.NewCodec([]byte("test-secret"), config.DefaultIssuer)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	cat := seededCatalog()
	svc, err := NewService(cat, cat, events.NewNoopRecorder(), codec, testDownloadConfig(), true)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	grant, err := svc.Authorize(context.Background(), AuthorizeRequest{
		Principal: &core.Principal{ID: "listener-9"},
		Kind:      core.KindRelease,
		ID:        "rel-1",
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if grant.Cookie.Secure {
		t.Error("dev mode cookie must not be Secure")
	}
}

func TestNewService_MissingDomainIsConfigError(t *testing.T) {
	codec, err := token.NewCodec([]byte("test-secret"), config.DefaultIssuer)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	cat := catalog.NewMemoryCatalog()

	cfg := testDownloadConfig()
	cfg.Domain = ""
	if _, err := NewService(cat, cat, events.NewNoopRecorder(), codec, cfg, false); err == nil {
		t.Error("expected NewService to fail without a download domain")
	}
}

func waitForEvents(t *testing.T, recorder *events.MemoryRecorder, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(recorder.Events()) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d recorded events, got %d", want, len(recorder.Events()))
}
