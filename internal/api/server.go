package api

import (
	"net/http"

	"github.com/ethiapath/bagcamp/internal/api/middleware"
	"github.com/ethiapath/bagcamp/internal/issuer"
)

type Server struct {
	downloads     *issuer.Service
	sessionSecret []byte
}

func NewServer(downloads *issuer.Service, sessionSecret []byte) *Server {
	return &Server{
		downloads:     downloads,
		sessionSecret: sessionSecret,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	// download authorization requires a logged-in principal
	mux.Handle("POST "+AuthorizeDownloadRoute,
		middleware.SessionAuth(s.sessionSecret)(http.HandlerFunc(s.handleAuthorizeDownload)))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
