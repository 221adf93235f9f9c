package token

import (
	"sync/atomic"
	"time"
)

// Container holds the currently published Credential. Reads never block and
// may run from any number of goroutines. Store must only be called by one
// writer at a time; the auth backends rely on their owner to guarantee that.
//
// The zero value is an empty container, which reports itself as expired.
type Container struct {
	current atomic.Pointer[Credential]
}

// Load returns the current snapshot, or nil if nothing was issued yet.
func (c *Container) Load() *Credential {
	return c.current.Load()
}

// Store publishes cred as the current snapshot. A nil cred is ignored.
func (c *Container) Store(cred *Credential) {
	if cred == nil {
		return
	}
	c.current.Store(cred)
}

// Token returns the current bearer token, or "" if none was issued.
func (c *Container) Token() string {
	if cred := c.current.Load(); cred != nil {
		return cred.Value()
	}
	return ""
}

// IsExpired reports whether the current snapshot is expired at now. An empty
// container is expired.
func (c *Container) IsExpired(now time.Time) bool {
	cred := c.current.Load()
	if cred == nil {
		return true
	}
	return cred.Expired(now)
}

// Renewable reports the renewable flag of the current snapshot.
func (c *Container) Renewable() bool {
	if cred := c.current.Load(); cred != nil {
		return cred.Renewable()
	}
	return false
}

// ValidFor returns the validity window of the current snapshot.
func (c *Container) ValidFor() time.Duration {
	if cred := c.current.Load(); cred != nil {
		return cred.ValidFor()
	}
	return 0
}

// IssuedAt returns the issue time of the current snapshot.
func (c *Container) IssuedAt() time.Time {
	if cred := c.current.Load(); cred != nil {
		return cred.IssuedAt()
	}
	return time.Time{}
}

// Remaining returns the time left on the current snapshot at now.
func (c *Container) Remaining(now time.Time) time.Duration {
	if cred := c.current.Load(); cred != nil {
		return cred.Remaining(now)
	}
	return 0
}
