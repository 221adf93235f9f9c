// Package approle manages AppRole roles through an authenticated session.
package approle

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jmcleod/vaultsession/transport"
)

// Requester sends an authenticated Vault request. *vault.Client implements
// it.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (*http.Response, error)
}

// RoleOptions are the settable fields of an AppRole role. Nil fields are
// omitted from the request so Vault keeps its current value.
type RoleOptions struct {
	BindSecretID         *bool    `json:"bind_secret_id,omitempty"`
	SecretIDBoundCIDRs   []string `json:"secret_id_bound_cidrs,omitempty"`
	SecretIDNumUses      *int     `json:"secret_id_num_uses,omitempty"`
	SecretIDTTL          string   `json:"secret_id_ttl,omitempty"`
	EnableLocalSecretIDs *bool    `json:"enable_local_secret_ids,omitempty"`
	TokenTTL             *int     `json:"token_ttl,omitempty"`
	TokenMaxTTL          *int     `json:"token_max_ttl,omitempty"`
	TokenPolicies        []string `json:"token_policies,omitempty"`
	TokenBoundCIDRs      []string `json:"token_bound_cidrs,omitempty"`
	TokenExplicitMaxTTL  *int     `json:"token_explicit_max_ttl,omitempty"`
	TokenNoDefaultPolicy *bool    `json:"token_no_default_policy,omitempty"`
	TokenNumUses         *int     `json:"token_num_uses,omitempty"`
	TokenPeriod          *int     `json:"token_period,omitempty"`
	TokenType            string   `json:"token_type,omitempty"`
}

// CreateOrUpdate writes role name on the approle mount.
func CreateOrUpdate(ctx context.Context, r Requester, name string, opts RoleOptions) error {
	return CreateOrUpdateAt(ctx, r, "approle", name, opts)
}

// CreateOrUpdateAt writes role name on the given AppRole mount.
func CreateOrUpdateAt(ctx context.Context, r Requester, mount, name string, opts RoleOptions) error {
	if name == "" {
		return fmt.Errorf("approle: role name is required")
	}
	path := fmt.Sprintf("auth/%s/role/%s", strings.Trim(mount, "/"), name)
	resp, err := r.Request(ctx, http.MethodPost, path, opts)
	if err != nil {
		return fmt.Errorf("writing approle role %s: %w", name, err)
	}
	transport.Discard(resp)
	return nil
}
