package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethiapath/bagcamp/internal/api"
)

// DownloadGrant is what the origin hands back on a successful authorization.
type DownloadGrant struct {
	// URL is the fully-qualified download URL on the delivery domain.
	URL string

	// ExpiresAt is when the grant stops working.
	ExpiresAt time.Time

	// Cookie is the path-scoped token cookie. Browser callers get it
	// automatically via Set-Cookie; programmatic callers must send it
	// with the download request themselves.
	Cookie *http.Cookie
}

// AuthorizeRelease requests a download grant for a whole release.
func (c *Client) AuthorizeRelease(ctx context.Context, releaseID string) (*DownloadGrant, error) {
	return c.authorize(ctx, api.AuthorizeDownloadPayload{
		Type:      "release",
		ReleaseID: releaseID,
	})
}

// AuthorizeTrack requests a download grant for a single track.
func (c *Client) AuthorizeTrack(ctx context.Context, trackID string) (*DownloadGrant, error) {
	return c.authorize(ctx, api.AuthorizeDownloadPayload{
		Type:    "track",
		TrackID: trackID,
	})
}

func (c *Client) authorize(ctx context.Context, payload api.AuthorizeDownloadPayload) (*DownloadGrant, error) {
	var result api.AuthorizeDownloadResponse
	resp, err := c.post(ctx, c.baseURL+api.AuthorizeDownloadRoute, payload, &result)
	if err != nil {
		return nil, err
	}

	grant := &DownloadGrant{
		URL:       result.DownloadURL,
		ExpiresAt: result.ExpiresAt,
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "download_token" {
			grant.Cookie = cookie
			break
		}
	}
	if grant.Cookie == nil {
		return nil, fmt.Errorf("authorize succeeded but no download cookie was set")
	}
	return grant, nil
}
