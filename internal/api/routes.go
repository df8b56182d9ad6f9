package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/icanhazbagcamp"

	AuthorizeDownloadRoute = "/v1/download/authorize"
)
