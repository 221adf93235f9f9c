// Package journal records session lifecycle events: logins, renewals,
// expiries and the end of the background renewal loop.
//
// Recording never fails the caller. Store and webhook problems are logged
// and the event is still written to the logger.
package journal

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/juju/clock"

	"github.com/jmcleod/vaultsession/internal/uuid"
)

// Event identifies a lifecycle transition.
type Event string

const (
	EventLogin          Event = "login"
	EventLoginFailure   Event = "login_failure"
	EventRenew          Event = "renew"
	EventRenewFailure   Event = "renew_failure"
	EventSessionExpired Event = "session_expired"
	EventRenewalStopped Event = "renewal_stopped"
)

const defaultListLimit = 100

// Entry is one journal record. Token values are never stored; Fingerprint
// identifies the token instead.
type Entry struct {
	ID          string    `json:"id"`
	Event       Event     `json:"event"`
	Backend     string    `json:"backend"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	TTLSeconds  int64     `json:"ttl_seconds,omitempty"`
	Renewable   bool      `json:"renewable"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists journal entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// List returns at most limit entries, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Journal fans an event out to a Store, a logger, an optional webhook and
// an optional failure-spike detector. A nil *Journal discards everything.
type Journal struct {
	store   Store
	log     logr.Logger
	clock   clock.Clock
	webhook *Webhook
	alerts  *alerter
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger events are written to.
func WithLogger(l logr.Logger) Option {
	return func(j *Journal) { j.log = l }
}

// WithClock sets the time source for entry timestamps and alert windows.
func WithClock(c clock.Clock) Option {
	return func(j *Journal) { j.clock = c }
}

// WithWebhook forwards every recorded entry to w. The Journal closes w.
func WithWebhook(w *Webhook) Option {
	return func(j *Journal) { j.webhook = w }
}

// WithAlerts calls fn when threshold failures of one kind are recorded
// within window.
func WithAlerts(fn AlertFunc, threshold int, window time.Duration) Option {
	return func(j *Journal) { j.alerts = newAlerter(fn, threshold, window) }
}

// New returns a Journal writing to store, which may be nil for log-only
// operation.
func New(store Store, opts ...Option) *Journal {
	j := &Journal{
		store: store,
		log:   logr.Discard(),
		clock: clock.WallClock,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.log = j.log.WithValues("component", "journal")
	return j
}

// Record stamps e with an id and time and fans it out.
func (j *Journal) Record(ctx context.Context, e Entry) {
	if j == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.clock.Now().UTC()
	}

	kv := []any{
		"event", string(e.Event),
		"backend", e.Backend,
		"renewable", e.Renewable,
	}
	if e.Fingerprint != "" {
		kv = append(kv, "fingerprint", e.Fingerprint)
	}
	if e.TTLSeconds > 0 {
		kv = append(kv, "ttl", time.Duration(e.TTLSeconds)*time.Second)
	}
	if e.Error != "" {
		kv = append(kv, "error", e.Error)
	}
	j.log.Info("session event", kv...)

	if j.store != nil {
		if err := j.store.Append(ctx, e); err != nil {
			j.log.Error(err, "journal append failed", "event", string(e.Event))
		}
	}
	if j.webhook != nil {
		j.webhook.Enqueue(e)
	}
	j.alerts.observe(e.Event, e.CreatedAt)
}

// List returns up to limit recent entries, newest first. A limit of zero or
// less uses a default of 100.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || j.store == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return j.store.List(ctx, limit)
}

// Close drains the webhook queue, if any.
func (j *Journal) Close() error {
	if j == nil || j.webhook == nil {
		return nil
	}
	j.webhook.Close()
	return nil
}
