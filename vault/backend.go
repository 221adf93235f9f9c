package vault

import (
	"context"
	"time"

	"github.com/jmcleod/vaultsession/token"
)

// Backend is an auth method owned by one Client.
//
// The read methods must be safe to call from any goroutine at any time and
// must see only complete credential snapshots. Authenticate and Renew are
// writers; the Client never runs two of them at once.
type Backend interface {
	Name() string
	IsExpired() bool
	Token() string
	IsRenewable() bool
	TotalDuration() time.Duration
	Remaining() time.Duration
	Credential() *token.Credential

	Authenticate(ctx context.Context, baseURL string) error
	Renew(ctx context.Context, baseURL string) error
}
