package issuer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ethiapath/bagcamp/internal/config"
	"github.com/ethiapath/bagcamp/internal/core"
	"github.com/ethiapath/bagcamp/internal/token"
)

// Service decides whether a download is authorized and, if so, mints a
// scoped token and the cookie that carries it. It is the only component
// with catalog access; the edge works from the token alone.
type Service struct {
	resolver core.ContentResolver
	oracle   core.PermissionOracle
	recorder core.DownloadRecorder
	minter   Minter

	domain     string // delivery base URL
	audience   string // delivery hostname, bound into every token
	issuer     string
	cookieName string
	window     time.Duration
	devMode    bool

	now func() time.Time
}

func NewService(
	resolver core.ContentResolver,
	oracle core.PermissionOracle,
	recorder core.DownloadRecorder,
	minter Minter,
	cfg config.DownloadConfig,
	devMode bool,
) (*Service, error) {
	// a missing delivery domain is a deployment mistake and must surface
	// as a configuration error, never as "forbidden"
	audience, err := cfg.Hostname()
	if err != nil {
		return nil, fmt.Errorf("download domain not configured: %w", err)
	}
	if minter == nil {
		return nil, errors.New("minter is not configured")
	}

	return &Service{
		resolver:   resolver,
		oracle:     oracle,
		recorder:   recorder,
		minter:     minter,
		domain:     strings.TrimSuffix(cfg.Domain, "/"),
		audience:   audience,
		issuer:     cfg.Issuer,
		cookieName: cfg.CookieName,
		window:     cfg.Window,
		devMode:    devMode,
	}, nil
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Authorize resolves the asset, checks permission and mints a download
// grant. It fails closed: no token is minted unless the oracle allows the
// download. Event recording is fire-and-forget.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (*Grant, error) {
	logger := log.Ctx(ctx)

	if req.Principal == nil || req.Principal.ID == "" {
		return nil, httpError(http.StatusUnauthorized, errors.New("no authenticated principal"))
	}
	if _, err := core.ParseContentKind(string(req.Kind)); err != nil {
		return nil, httpError(http.StatusBadRequest, err)
	}
	if req.ID == "" {
		return nil, httpError(http.StatusBadRequest, errors.New("missing content id"))
	}

	content, err := s.resolver.Resolve(ctx, req.Kind, req.ID)
	if err != nil {
		if errors.Is(err, core.ErrContentNotFound) {
			return nil, httpError(http.StatusNotFound,
				fmt.Errorf("%s not found", req.Kind))
		}
		return nil, httpError(http.StatusInternalServerError,
			fmt.Errorf("resolving content: %w", err))
	}

	allowed, err := s.oracle.MayDownload(ctx, req.Principal, content)
	if err != nil {
		return nil, httpError(http.StatusInternalServerError,
			fmt.Errorf("permission check: %w", err))
	}
	if !allowed {
		return nil, httpError(http.StatusForbidden,
			errors.New("you do not have permission to download this file"))
	}

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", req.Principal.ID).Str("path", content.Path)
	})

	now := s.clock()
	expiresAt := now.Add(s.window)
	claims := token.Claims{
		Subject:     req.Principal.ID,
		Path:        content.Path,
		ContentKind: content.Kind,
		ContentID:   content.ID,
		Audience:    s.audience,
		Issuer:      s.issuer,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}

	signed, err := s.minter.Mint(claims)
	if err != nil {
		return nil, httpError(http.StatusInternalServerError,
			fmt.Errorf("minting download token: %w", err))
	}

	s.recordDownload(ctx, req, content)

	return &Grant{
		URL:       s.domain + content.Path,
		Cookie:    s.buildCookie(signed, content.Path, expiresAt),
		Claims:    claims,
		ExpiresAt: expiresAt,
	}, nil
}

// buildCookie scopes the token cookie to exactly the granted path so the
// browser does not replay it on unrelated requests.
func (s *Service) buildCookie(value, path string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    value,
		Path:     path,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   !s.devMode,
		SameSite: http.SameSiteLaxMode,
	}
}

// recordDownload writes the download event without blocking or failing the
// client-visible response.
func (s *Service) recordDownload(ctx context.Context, req AuthorizeRequest, content *core.Content) {
	if s.recorder == nil {
		return
	}

	reqID, _ := ctx.Value("correlation_id").(string)
	event := core.DownloadEvent{
		ID:          reqID,
		Time:        s.clock(),
		PrincipalID: req.Principal.ID,
		ContentKind: content.Kind,
		ContentID:   content.ID,
		Path:        content.Path,
		RemoteAddr:  req.RemoteAddr,
		UserAgent:   req.UserAgent,
	}

	logger := log.Ctx(ctx).With().Str("content_id", content.ID).Logger()
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Msg("download recorder panicked")
			}
		}()
		if err := s.recorder.Record(bgCtx, event); err != nil {
			logger.Error().Err(err).Msg("failed to record download event")
		}
	}()
}
