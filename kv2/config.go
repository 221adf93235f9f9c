package kv2

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmcleod/vaultsession/transport"
)

// Configuration is the engine-wide configuration of a KV v2 mount. Nil
// fields are left unchanged by Configure.
type Configuration struct {
	CASRequired        *bool   `json:"cas_required,omitempty"`
	DeleteVersionAfter *string `json:"delete_version_after,omitempty"`
	MaxVersions        *int    `json:"max_versions,omitempty"`
}

// Configure updates the mount configuration.
func (c *Client) Configure(ctx context.Context, cfg Configuration) error {
	return c.send(ctx, http.MethodPost, c.mount+"/config", cfg)
}

// GetConfiguration reads the mount configuration.
func (c *Client) GetConfiguration(ctx context.Context) (*Configuration, error) {
	resp, err := c.r.Request(ctx, http.MethodGet, c.mount+"/config", nil)
	if err != nil {
		return nil, fmt.Errorf("reading %s config: %w", c.mount, err)
	}
	var out struct {
		Data Configuration `json:"data"`
	}
	if err := transport.DecodeJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("reading %s config: %w", c.mount, err)
	}
	return &out.Data, nil
}
