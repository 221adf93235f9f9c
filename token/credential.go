// Package token is the credential cache shared by the auth backends.
//
// A Credential is an immutable snapshot of everything Vault told us about a
// client token. A Container publishes one snapshot at a time through an
// atomic pointer: writers build a complete new snapshot and swap it in, and
// readers always see either the old or the new snapshot as a whole. Old
// snapshots are reclaimed by the garbage collector once no reader holds them,
// so a reader can never observe freed memory.
package token

import (
	"slices"
	"time"
)

// Credential is one issued Vault token together with its validity window.
// All fields are fixed at construction.
type Credential struct {
	value     string
	issuedAt  time.Time
	validFor  time.Duration
	renewable bool
	accessor  string
	policies  []string
}

// Params describes a credential returned by a login or renew call.
type Params struct {
	Value     string
	IssuedAt  time.Time
	ValidFor  time.Duration
	Renewable bool
	Accessor  string
	Policies  []string
}

// NewCredential builds an immutable snapshot. IssuedAt is kept at one second
// resolution, matching the lease durations Vault reports.
func NewCredential(p Params) *Credential {
	return &Credential{
		value:     p.Value,
		issuedAt:  p.IssuedAt.Truncate(time.Second),
		validFor:  p.ValidFor,
		renewable: p.Renewable,
		accessor:  p.Accessor,
		policies:  slices.Clone(p.Policies),
	}
}

// Renewed returns the snapshot that replaces c after a successful renewal.
// An empty value keeps the current token, accessor and policies; the
// validity window and renewable flag always come from the renewal.
func (c *Credential) Renewed(p Params) *Credential {
	next := NewCredential(p)
	if p.Value == "" {
		next.value = c.value
		next.accessor = c.accessor
		next.policies = c.policies
	}
	if p.Accessor == "" {
		next.accessor = c.accessor
	}
	if len(p.Policies) == 0 {
		next.policies = c.policies
	}
	return next
}

// Value returns the bearer token.
func (c *Credential) Value() string { return c.value }

// IssuedAt returns when the current validity window started.
func (c *Credential) IssuedAt() time.Time { return c.issuedAt }

// ValidFor returns the length of the validity window.
func (c *Credential) ValidFor() time.Duration { return c.validFor }

// Renewable reports whether Vault allows extending the window.
func (c *Credential) Renewable() bool { return c.renewable }

// Accessor returns the token accessor, if Vault reported one.
func (c *Credential) Accessor() string { return c.accessor }

// Policies returns a copy of the policies attached to the token.
func (c *Credential) Policies() []string { return slices.Clone(c.policies) }

// ExpiresAt returns the end of the validity window.
func (c *Credential) ExpiresAt() time.Time { return c.issuedAt.Add(c.validFor) }

// Expired reports whether at least ValidFor has elapsed since IssuedAt,
// measured in whole seconds.
func (c *Credential) Expired(now time.Time) bool {
	return now.Truncate(time.Second).Sub(c.issuedAt) >= c.validFor
}

// Remaining returns how much of the window is left at now, never negative.
func (c *Credential) Remaining(now time.Time) time.Duration {
	left := c.ExpiresAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
