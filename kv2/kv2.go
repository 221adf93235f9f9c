// Package kv2 reads and writes secrets in a KV version 2 secrets engine
// through an authenticated session.
package kv2

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmcleod/vaultsession/transport"
)

// DefaultMount is where Vault mounts KV v2 in dev mode.
const DefaultMount = "secret"

// Requester sends an authenticated Vault request. *vault.Client implements
// it.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (*http.Response, error)
}

// Client addresses one KV v2 mount.
type Client struct {
	r     Requester
	mount string
}

// New returns a Client for mount, or DefaultMount when mount is empty.
func New(r Requester, mount string) *Client {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultMount
	}
	return &Client{r: r, mount: mount}
}

// Mount returns the mount path.
func (c *Client) Mount() string { return c.mount }

func (c *Client) path(kind, name string) string {
	return c.mount + "/" + kind + "/" + strings.Trim(name, "/")
}

// VersionMetadata is returned by Vault for a write.
type VersionMetadata struct {
	Version      int       `json:"version"`
	CreatedTime  time.Time `json:"created_time"`
	DeletionTime string    `json:"deletion_time"`
	Destroyed    bool      `json:"destroyed"`
}

type readResponse[T any] struct {
	Data struct {
		Data     T               `json:"data"`
		Metadata VersionMetadata `json:"metadata"`
	} `json:"data"`
}

// Get reads a secret into T. A version of zero reads the latest version.
func Get[T any](ctx context.Context, c *Client, name string, version int) (T, error) {
	var zero T
	path := c.path("data", name)
	if version > 0 {
		path += fmt.Sprintf("?version=%d", version)
	}
	resp, err := c.r.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return zero, fmt.Errorf("reading %s: %w", name, err)
	}
	var out readResponse[T]
	if err := transport.DecodeJSON(resp, &out); err != nil {
		return zero, fmt.Errorf("reading %s: %w", name, err)
	}
	return out.Data.Data, nil
}

// PutOption configures a write.
type PutOption func(*putOptions)

type putOptions struct {
	cas *int
}

// WithCAS makes the write conditional on the secret's current version. Zero
// only writes when the secret does not exist yet.
func WithCAS(version int) PutOption {
	return func(o *putOptions) { o.cas = &version }
}

// Put creates or updates a secret with data and returns the new version's
// metadata.
func (c *Client) Put(ctx context.Context, name string, data any, opts ...PutOption) (*VersionMetadata, error) {
	var o putOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload := struct {
		Data    any `json:"data"`
		Options *struct {
			CAS int `json:"cas"`
		} `json:"options,omitempty"`
	}{Data: data}
	if o.cas != nil {
		payload.Options = &struct {
			CAS int `json:"cas"`
		}{CAS: *o.cas}
	}

	resp, err := c.r.Request(ctx, http.MethodPost, c.path("data", name), payload)
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	if resp.StatusCode == http.StatusNoContent {
		transport.Discard(resp)
		return nil, nil
	}
	var out struct {
		Data VersionMetadata `json:"data"`
	}
	if err := transport.DecodeJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	return &out.Data, nil
}

// Delete soft-deletes the latest version. It can be undone with
// UndeleteVersions.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.send(ctx, http.MethodDelete, c.path("data", name), nil)
}

// DeleteVersions soft-deletes the given versions.
func (c *Client) DeleteVersions(ctx context.Context, name string, versions []int) error {
	return c.send(ctx, http.MethodPost, c.path("delete", name), versionsBody{versions})
}

// UndeleteVersions restores soft-deleted versions.
func (c *Client) UndeleteVersions(ctx context.Context, name string, versions []int) error {
	return c.send(ctx, http.MethodPost, c.path("undelete", name), versionsBody{versions})
}

// DestroyVersions permanently removes the data of the given versions.
func (c *Client) DestroyVersions(ctx context.Context, name string, versions []int) error {
	return c.send(ctx, http.MethodPost, c.path("destroy", name), versionsBody{versions})
}

// DeleteMetadataAllVersions permanently removes the secret, its metadata
// and every version.
func (c *Client) DeleteMetadataAllVersions(ctx context.Context, name string) error {
	return c.send(ctx, http.MethodDelete, c.path("metadata", name), nil)
}

type versionsBody struct {
	Versions []int `json:"versions"`
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	resp, err := c.r.Request(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	transport.Discard(resp)
	return nil
}
