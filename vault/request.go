package vault

import (
	"context"
	"net/http"
	"time"

	"github.com/jmcleod/vaultsession/transport"
)

// Request sends an authenticated request to {address}/v1/{path}. body, if
// non-nil, is sent as JSON. A 2xx response is returned for the caller to
// decode and close; any other status comes back as a *transport.StatusError.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	start := time.Now()
	resp, err := c.do(ctx, method, path, body)
	c.metrics.Request(method, time.Since(start), err)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if err := c.EnsureValid(ctx); err != nil {
		return nil, err
	}
	req, err := transport.NewRequest(ctx, method, c.addr, path, c.backend.Token(), body)
	if err != nil {
		return nil, err
	}
	resp, err := transport.Send(c.http, req)
	if err != nil {
		c.log.V(1).Info("vault request failed", "method", method, "path", path, "error", err.Error())
		return nil, err
	}
	c.log.V(1).Info("vault request", "method", method, "path", path, "status", resp.StatusCode)
	return resp, nil
}
