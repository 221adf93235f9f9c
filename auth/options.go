package auth

import (
	"net/http"
	"strings"

	"github.com/juju/clock"
)

// Option configures a backend.
type Option func(*options)

type options struct {
	client *http.Client
	clock  clock.Clock
	mount  string
}

// WithHTTPClient sets the HTTP client used for login and renew calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithClock sets the time source used for issue times and expiry checks.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMountPath overrides the auth mount, e.g. "approle-ci" for a login
// at auth/approle-ci/login.
func WithMountPath(mount string) Option {
	return func(o *options) { o.mount = strings.Trim(mount, "/") }
}

func buildOptions(defaultMount string, opts []Option) options {
	o := options{
		client: http.DefaultClient,
		clock:  clock.WallClock,
		mount:  defaultMount,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mount == "" {
		o.mount = defaultMount
	}
	return o
}
