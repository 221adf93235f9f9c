package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jmcleod/vaultsession/token"
)

// Token is a caller-supplied static token with a fixed validity window.
// It never logs in and cannot be renewed; once the window has passed the
// session reports it as expired.
type Token struct {
	base
}

// NewToken publishes value as valid for validFor starting now.
func NewToken(value string, validFor time.Duration, opts ...Option) (*Token, error) {
	if value == "" {
		return nil, fmt.Errorf("static token: %w", ErrMissingCredentials)
	}
	if validFor <= 0 {
		return nil, fmt.Errorf("static token: %w", ErrInvalidTTL)
	}
	t := &Token{base: base{opts: buildOptions("token", opts)}}
	t.cred.Store(token.NewCredential(token.Params{
		Value:    value,
		IssuedAt: t.opts.clock.Now(),
		ValidFor: validFor,
	}))
	return t, nil
}

func (t *Token) Name() string { return "token" }

// Authenticate is a no-op: a static token has nothing to log in with.
func (t *Token) Authenticate(context.Context, string) error { return nil }

// Renew is a no-op.
func (t *Token) Renew(context.Context, string) error { return nil }
