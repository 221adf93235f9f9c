// Package auth implements the Vault auth backends a session client can own:
// a static token, AppRole login and Kubernetes service-account login.
//
// Every backend publishes its credential through a token.Container, so the
// read side (IsExpired, Token, IsRenewable, TotalDuration, Remaining) is safe
// from any goroutine. Authenticate and Renew are writers: the owner must
// never run two of them at once on the same backend.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmcleod/vaultsession/token"
	"github.com/jmcleod/vaultsession/transport"
)

const renewSelfPath = "auth/token/renew-self"

type base struct {
	cred token.Container
	opts options
}

// IsExpired reports whether the published credential has lapsed.
func (b *base) IsExpired() bool {
	return b.cred.IsExpired(b.opts.clock.Now())
}

// Token returns the published bearer token, or "" before the first login.
func (b *base) Token() string {
	return b.cred.Token()
}

// IsRenewable reports whether Vault allows extending the credential.
func (b *base) IsRenewable() bool {
	return b.cred.Renewable()
}

// TotalDuration returns the full validity window of the credential.
func (b *base) TotalDuration() time.Duration {
	return b.cred.ValidFor()
}

// Remaining returns the time left before the credential lapses.
func (b *base) Remaining() time.Duration {
	return b.cred.Remaining(b.opts.clock.Now())
}

// Credential returns the published snapshot, or nil before the first login.
func (b *base) Credential() *token.Credential {
	return b.cred.Load()
}

// login posts body to auth/{mount}/login and publishes the issued token.
func (b *base) login(ctx context.Context, baseURL string, body any) error {
	started := b.opts.clock.Now()
	path := fmt.Sprintf("auth/%s/login", b.opts.mount)

	req, err := transport.NewRequest(ctx, http.MethodPost, baseURL, path, "", body)
	if err != nil {
		return err
	}
	resp, err := transport.Send(b.opts.client, req)
	if err != nil {
		return fmt.Errorf("login at %s: %w", path, err)
	}
	secret, err := transport.DecodeAuth(resp)
	if err != nil {
		return fmt.Errorf("login at %s: %w", path, err)
	}
	if secret.ClientToken == "" {
		return fmt.Errorf("login at %s: %w: empty client_token", path, transport.ErrDecode)
	}

	b.cred.Store(token.NewCredential(token.Params{
		Value:     secret.ClientToken,
		IssuedAt:  started,
		ValidFor:  time.Duration(secret.LeaseDuration) * time.Second,
		Renewable: secret.Renewable,
		Accessor:  secret.Accessor,
		Policies:  secret.Policies,
	}))
	return nil
}

// renewSelf extends the current token. When Vault's answer carries no
// client_token the current token value is kept; a returned one replaces it.
func (b *base) renewSelf(ctx context.Context, baseURL string) error {
	current := b.cred.Load()
	if current == nil {
		return fmt.Errorf("renew: %w: no token issued yet", ErrMissingCredentials)
	}
	started := b.opts.clock.Now()

	req, err := transport.NewRequest(ctx, http.MethodPost, baseURL, renewSelfPath, current.Value(), nil)
	if err != nil {
		return err
	}
	resp, err := transport.Send(b.opts.client, req)
	if err != nil {
		return fmt.Errorf("renew: %w", err)
	}
	secret, err := transport.DecodeAuth(resp)
	if err != nil {
		return fmt.Errorf("renew: %w", err)
	}

	b.cred.Store(current.Renewed(token.Params{
		Value:     secret.ClientToken,
		IssuedAt:  started,
		ValidFor:  time.Duration(secret.LeaseDuration) * time.Second,
		Renewable: secret.Renewable,
		Accessor:  secret.Accessor,
		Policies:  secret.Policies,
	}))
	return nil
}
