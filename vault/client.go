// Package vault is the session client: it owns one auth backend, keeps its
// token usable for any number of concurrent callers, and sends
// authenticated requests to Vault.
//
// Reads of the current token never take a lock. Only a caller that finds
// the token expired enters the re-authentication gate, and it re-checks the
// token once inside, so N callers racing one expiry cause one login.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/juju/clock"

	"github.com/jmcleod/vaultsession/internal/util"
	"github.com/jmcleod/vaultsession/journal"
	"github.com/jmcleod/vaultsession/metrics"
	"github.com/jmcleod/vaultsession/token"
	"github.com/jmcleod/vaultsession/transport"
)

// Config is the construction-time configuration of a Client.
type Config struct {
	// Address is the Vault base URL, e.g. "https://vault.example.com:8200".
	Address     string
	RenewPolicy RenewPolicy
}

// Client is a Vault session. It is safe for concurrent use.
type Client struct {
	addr    string
	policy  RenewPolicy
	backend Backend

	// gate serialises re-authentication and renewal. It is a channel so a
	// waiting caller can give up when its context ends.
	gate     chan struct{}
	renewing atomic.Bool

	http    *http.Client
	log     logr.Logger
	clock   clock.Clock
	journal *journal.Journal
	metrics *metrics.Collector
}

// New validates cfg, takes ownership of backend and performs the initial
// login. The backend must not be shared with another Client.
func New(ctx context.Context, cfg Config, backend Backend, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	if _, err := transport.Endpoint(cfg.Address, ""); err != nil {
		return nil, err
	}
	if err := cfg.RenewPolicy.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		addr:    cfg.Address,
		policy:  cfg.RenewPolicy,
		backend: backend,
		gate:    make(chan struct{}, 1),
		http:    http.DefaultClient,
		log:     logr.FromSlogHandler(slog.Default().Handler()),
		clock:   clock.WallClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithValues("backend", backend.Name(), "policy", c.policy.String())

	if err := c.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("initial login: %w", err)
	}
	return c, nil
}

// Address returns the Vault base URL.
func (c *Client) Address() string { return c.addr }

// Policy returns the renew policy chosen at construction.
func (c *Client) Policy() RenewPolicy { return c.policy }

// Backend returns the owned auth backend. Callers must only use its read
// methods.
func (c *Client) Backend() Backend { return c.backend }

// Token returns the current token without checking its validity.
func (c *Client) Token() string { return c.backend.Token() }

// EnsureValid returns nil when the token is usable, logging in again first
// if the policy is Reauthenticate. Under Renew and Disabled an expired token
// yields ErrSessionExpired without any network call.
func (c *Client) EnsureValid(ctx context.Context) error {
	if !c.backend.IsExpired() {
		return nil
	}

	c.metrics.GateEntered()
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.unlock()

	// Someone else may have finished while we waited.
	if !c.backend.IsExpired() {
		return nil
	}

	if c.policy.Kind() == PolicyReauthenticate {
		if err := c.authenticate(ctx); err != nil {
			return err
		}
		if !c.backend.IsExpired() {
			return nil
		}
		// A static token whose window has passed stays expired.
	}

	c.metrics.SessionExpired()
	c.journal.Record(context.WithoutCancel(ctx), c.entry(journal.EventSessionExpired, nil))
	c.log.Info("session expired")
	return ErrSessionExpired
}

func (c *Client) lock(ctx context.Context) error {
	select {
	case c.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) unlock() { <-c.gate }

// authenticate runs a login. The caller holds the gate or owns c exclusively.
func (c *Client) authenticate(ctx context.Context) error {
	err := c.backend.Authenticate(ctx, c.addr)
	c.metrics.Login(c.backend.Name(), c.backend.TotalDuration(), err)
	if err != nil {
		c.log.Error(err, "login failed")
		c.journal.Record(context.WithoutCancel(ctx), c.entry(journal.EventLoginFailure, err))
		return err
	}
	c.logCredential("logged in")
	c.journal.Record(context.WithoutCancel(ctx), c.entry(journal.EventLogin, nil))
	return nil
}

// renew extends the token. The caller holds the gate.
func (c *Client) renew(ctx context.Context) error {
	err := c.backend.Renew(ctx, c.addr)
	c.metrics.Renewal(c.backend.Name(), c.backend.TotalDuration(), err)
	if err != nil {
		c.log.Error(err, "renew failed")
		c.journal.Record(context.WithoutCancel(ctx), c.entry(journal.EventRenewFailure, err))
		return err
	}
	c.logCredential("renewed")
	c.journal.Record(context.WithoutCancel(ctx), c.entry(journal.EventRenew, nil))
	return nil
}

func (c *Client) logCredential(msg string) {
	cred := c.backend.Credential()
	if cred == nil {
		return
	}
	c.log.Info(msg,
		"ttl", cred.ValidFor(),
		"renewable", cred.Renewable(),
		"fingerprint", util.Fingerprint(cred.Value()),
	)
}

func (c *Client) entry(ev journal.Event, err error) journal.Entry {
	e := journal.Entry{Event: ev, Backend: c.backend.Name()}
	if cred := c.backend.Credential(); cred != nil {
		e.Fingerprint = util.Fingerprint(cred.Value())
		e.TTLSeconds = int64(cred.ValidFor() / time.Second)
		e.Renewable = cred.Renewable()
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Status is a point-in-time view of the session.
type Status struct {
	Backend          string    `json:"backend"`
	Policy           string    `json:"policy"`
	Address          string    `json:"address"`
	Expired          bool      `json:"expired"`
	Renewable        bool      `json:"renewable"`
	IssuedAt         time.Time `json:"issued_at,omitzero"`
	ExpiresAt        time.Time `json:"expires_at,omitzero"`
	TTLSeconds       int64     `json:"ttl_seconds"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Accessor         string    `json:"accessor,omitempty"`
	Policies         []string  `json:"policies,omitempty"`
	Fingerprint      string    `json:"fingerprint,omitempty"`
	RenewalRunning   bool      `json:"renewal_running"`
}

// Status reports the current session state without touching the network.
func (c *Client) Status() Status {
	st := Status{
		Backend:        c.backend.Name(),
		Policy:         c.policy.String(),
		Address:        c.addr,
		Expired:        c.backend.IsExpired(),
		RenewalRunning: c.renewing.Load(),
	}
	cred := c.backend.Credential()
	if cred == nil {
		return st
	}
	fillStatus(&st, cred)
	st.RemainingSeconds = int64(c.backend.Remaining() / time.Second)
	return st
}

func fillStatus(st *Status, cred *token.Credential) {
	st.Renewable = cred.Renewable()
	st.IssuedAt = cred.IssuedAt()
	st.ExpiresAt = cred.ExpiresAt()
	st.TTLSeconds = int64(cred.ValidFor() / time.Second)
	st.Accessor = cred.Accessor()
	st.Policies = cred.Policies()
	st.Fingerprint = util.Fingerprint(cred.Value())
}
