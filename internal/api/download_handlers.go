package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ethiapath/bagcamp/internal/api/middleware"
	"github.com/ethiapath/bagcamp/internal/api/presenter"
	"github.com/ethiapath/bagcamp/internal/core"
	"github.com/ethiapath/bagcamp/internal/issuer"
)

type AuthorizeDownloadPayload struct {
	// Type selects what is being downloaded: "release" or "track".
	Type string `json:"type"`

	// ReleaseID or TrackID identifies the asset, depending on Type.
	ReleaseID string `json:"releaseId"`
	TrackID   string `json:"trackId"`
}

type AuthorizeDownloadResponse struct {
	Success     bool      `json:"success"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// handleAuthorizeDownload authorizes a download and, on success, sets the
// path-scoped token cookie and returns the delivery URL.
func (s *Server) handleAuthorizeDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload AuthorizeDownloadPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode authorize request payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	kind, err := core.ParseContentKind(payload.Type)
	if err != nil {
		presenter.Error(w, r, "invalid content type", http.StatusBadRequest)
		return
	}

	var contentID string
	switch kind {
	case core.KindRelease:
		contentID = payload.ReleaseID
	case core.KindTrack:
		contentID = payload.TrackID
	}
	if contentID == "" {
		presenter.Error(w, r, "missing content ID", http.StatusBadRequest)
		return
	}

	principal := middleware.PrincipalCtx(ctx)

	remoteAddr := r.Header.Get("X-Forwarded-For")
	if remoteAddr == "" {
		remoteAddr = r.RemoteAddr
	}

	grant, err := s.downloads.Authorize(ctx, issuer.AuthorizeRequest{
		Principal:  principal,
		Kind:       kind,
		ID:         contentID,
		RemoteAddr: remoteAddr,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("download authorization failed")
		presenter.Err(w, r, err, "download authorization failed")
		return
	}

	logger.Info().
		Str("content_kind", string(kind)).
		Str("content_id", contentID).
		Msg("download authorized")

	http.SetCookie(w, grant.Cookie)
	presenter.JSON(w, r, AuthorizeDownloadResponse{
		Success:     true,
		DownloadURL: grant.URL,
		ExpiresAt:   grant.ExpiresAt,
	}, http.StatusOK)
}
