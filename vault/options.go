package vault

import (
	"net/http"

	"github.com/go-logr/logr"
	"github.com/juju/clock"

	"github.com/jmcleod/vaultsession/journal"
	"github.com/jmcleod/vaultsession/metrics"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for authenticated requests. The
// backend keeps its own client for login and renew calls.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Client) { v.http = c }
}

// WithLogger sets the logger. By default the process-wide slog handler is
// used.
func WithLogger(l logr.Logger) Option {
	return func(v *Client) { v.log = l }
}

// WithClock sets the time source for the renewal loop's sleeps.
func WithClock(c clock.Clock) Option {
	return func(v *Client) { v.clock = c }
}

// WithJournal records lifecycle events to j.
func WithJournal(j *journal.Journal) Option {
	return func(v *Client) { v.journal = j }
}

// WithMetrics records lifecycle and request metrics to m.
func WithMetrics(m *metrics.Collector) Option {
	return func(v *Client) { v.metrics = m }
}
