// Package database fetches dynamic credentials from a database secrets
// engine.
package database

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmcleod/vaultsession/transport"
)

// DefaultMount is the conventional mount of the database engine.
const DefaultMount = "database"

// Requester sends an authenticated Vault request. *vault.Client implements
// it.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (*http.Response, error)
}

// Credentials is a leased database login.
type Credentials struct {
	Username  string
	Password  string
	LeaseID   string
	Duration  time.Duration
	Renewable bool
}

// GetCredentials generates credentials for role name on DefaultMount.
func GetCredentials(ctx context.Context, r Requester, name string) (*Credentials, error) {
	return GetCredentialsAt(ctx, r, DefaultMount, name)
}

// GetCredentialsAt generates credentials for role name on mount.
func GetCredentialsAt(ctx context.Context, r Requester, mount, name string) (*Credentials, error) {
	path := fmt.Sprintf("%s/creds/%s", strings.Trim(mount, "/"), name)
	resp, err := r.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("database credentials for %s: %w", name, err)
	}
	secret, err := transport.DecodeSecret(resp)
	if err != nil {
		return nil, fmt.Errorf("database credentials for %s: %w", name, err)
	}

	username, _ := secret.Data["username"].(string)
	password, _ := secret.Data["password"].(string)
	if username == "" || password == "" {
		return nil, fmt.Errorf("database credentials for %s: %w: missing username or password", name, transport.ErrDecode)
	}
	return &Credentials{
		Username:  username,
		Password:  password,
		LeaseID:   secret.LeaseID,
		Duration:  time.Duration(secret.LeaseDuration) * time.Second,
		Renewable: secret.Renewable,
	}, nil
}
