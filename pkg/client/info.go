package client

import (
	"context"

	"github.com/ethiapath/bagcamp/internal/api"
	"github.com/ethiapath/bagcamp/internal/buildinfo"
)

// About returns the server's build information.
func (c *Client) About(ctx context.Context) (*buildinfo.Info, error) {
	var info buildinfo.Info
	if err := c.get(ctx, c.baseURL+api.AboutRoute, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
