package edge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ethiapath/bagcamp/internal/token"
)

// Handler gates every file request at the delivery edge. It decides from
// the request alone: token signature, audience, issuer, expiry and exact
// path equality. It has no catalog or database access and must never
// acquire one; any ambiguity is a rejection, never a forward.
type Handler struct {
	codec      *token.Codec
	cookieName string
	upstream   *url.URL
	proxy      *httputil.ReverseProxy
	now        func() time.Time
}

type fwdCtxKey struct{}

func NewHandler(codec *token.Codec, upstreamURL, cookieName string) (*Handler, error) {
	if codec == nil {
		return nil, errors.New("token codec is not configured")
	}
	upstream, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream URL: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("upstream URL %q must be absolute", upstreamURL)
	}
	if cookieName == "" {
		return nil, errors.New("cookie name is not configured")
	}

	h := &Handler{
		codec:      codec,
		cookieName: cookieName,
		upstream:   upstream,
		now:        time.Now,
	}
	h.proxy = &httputil.ReverseProxy{
		Rewrite:        h.rewrite,
		ModifyResponse: h.decorateResponse,
		ErrorHandler:   h.upstreamError,
	}
	return h, nil
}

// WithClock overrides the time source, for tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// ServeHTTP runs the per-request state machine. Strictly linear, no loops,
// no retries; every failure is terminal.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if r.Header.Get("Cookie") == "" {
		logger.Warn().Msg("edge.reject: no cookie header")
		h.reject(w, "missing authentication credentials", false)
		return
	}

	cookie, err := r.Cookie(h.cookieName)
	if err != nil || cookie.Value == "" {
		logger.Warn().Msg("edge.reject: download token cookie not found")
		h.reject(w, "missing download token", false)
		return
	}

	claims, err := h.codec.Verify(cookie.Value, requestHost(r))
	if err != nil {
		// the client keeps a generic message; the log keeps the kind
		switch {
		case errors.Is(err, token.ErrExpired):
			logger.Warn().Err(err).Msg("edge.reject: token expired")
			h.reject(w, "expired token", true)
		default:
			logger.Warn().Err(err).Msg("edge.reject: token verification failed")
			h.reject(w, "invalid token", true)
		}
		return
	}

	// exact string equality, not a prefix: a token for one file must not
	// open any other
	if claims.Path != r.URL.Path {
		logger.Warn().
			Str("token_path", claims.Path).
			Str("request_path", r.URL.Path).
			Str("sub", claims.Subject).
			Msg("edge.reject: path mismatch, possible tampering")
		h.reject(w, "token not valid for this resource", false)
		return
	}

	// the codec already checked expiry; re-check against the wall clock so
	// a codec regression cannot open the gate
	if !h.now().Before(claims.ExpiresAt) {
		logger.Warn().Str("sub", claims.Subject).Msg("edge.reject: token expired")
		h.reject(w, "expired token", true)
		return
	}

	logger.Info().
		Str("sub", claims.Subject).
		Str("content_kind", string(claims.ContentKind)).
		Str("content_id", claims.ContentID).
		Msg("edge.forward: access granted")

	fwd := ForwardedContext{
		UserID:      claims.Subject,
		ContentKind: claims.ContentKind,
		ContentID:   claims.ContentID,
	}
	h.proxy.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), fwdCtxKey{}, fwd)))
}

func (h *Handler) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(h.upstream)
	pr.Out.Host = h.upstream.Host

	// the token must not travel to storage
	pr.Out.Header.Del("Cookie")

	if fwd, ok := pr.In.Context().Value(fwdCtxKey{}).(ForwardedContext); ok {
		fwd.Apply(pr.Out.Header)
	}
}

// decorateResponse adds the download response defaults when the storage
// origin did not set them.
func (h *Handler) decorateResponse(resp *http.Response) error {
	if resp.Header.Get("Cache-Control") == "" {
		resp.Header.Set("Cache-Control", "public, max-age=31536000")
	}
	if resp.Header.Get("Content-Disposition") == "" {
		filename := path.Base(resp.Request.URL.Path)
		resp.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	return nil
}

func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	log.Ctx(r.Context()).Error().Err(err).Msg("edge: upstream fetch failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_, _ = w.Write([]byte(`{"error": "error fetching content from origin"}`))
}

// reject writes a fixed-format 403. When clearCookie is set, the response
// also expires the token cookie so the client does not retry with the same
// bad credential indefinitely.
func (h *Handler) reject(w http.ResponseWriter, msg string, clearCookie bool) {
	if clearCookie {
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookieName,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error": "forbidden: ` + msg + `"}`))
}

// requestHost returns the hostname the client asked for, without the port.
// It is the expected token audience.
func requestHost(r *http.Request) string {
	host := r.Host
	if splitHost, _, err := net.SplitHostPort(host); err == nil {
		host = splitHost
	}
	return host
}
