package vault

import (
	"context"
	"errors"
	"time"

	"github.com/jmcleod/vaultsession/journal"
)

// RenewBackground runs the renewal loop until it fails or ctx ends. It
// sleeps for TotalDuration*(1-threshold), renews, and repeats with the new
// duration. It returns ErrRenewNotEnabled without a Renew policy,
// ErrNotRenewable once the token cannot be extended, a *RenewError when a
// renew call fails, or ctx's error. The loop never restarts itself.
func (c *Client) RenewBackground(ctx context.Context) error {
	if c.policy.Kind() != PolicyRenew {
		return ErrRenewNotEnabled
	}
	if !c.renewing.CompareAndSwap(false, true) {
		return ErrRenewalRunning
	}
	defer c.renewing.Store(false)

	c.metrics.RenewalLoop(true)
	defer c.metrics.RenewalLoop(false)

	err := c.renewLoop(ctx)

	e := c.entry(journal.EventRenewalStopped, err)
	c.journal.Record(context.WithoutCancel(ctx), e)
	if errors.Is(err, context.Canceled) {
		c.log.Info("renewal loop stopped")
	} else {
		c.log.Error(err, "renewal loop stopped")
	}
	return err
}

// StartBackgroundRenewal runs RenewBackground in a new goroutine. The
// returned channel receives its terminal error and is then closed.
func (c *Client) StartBackgroundRenewal(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- c.RenewBackground(ctx)
	}()
	return done
}

func (c *Client) renewLoop(ctx context.Context) error {
	for {
		total := c.backend.TotalDuration()
		if !c.backend.IsRenewable() || total <= 0 {
			return ErrNotRenewable
		}
		wait := time.Duration(float64(total) * (1 - c.policy.Threshold()))
		c.log.V(1).Info("renewal scheduled", "in", wait, "ttl", total)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(wait):
		}

		if err := c.lock(ctx); err != nil {
			return err
		}
		err := c.renew(ctx)
		c.unlock()
		if err != nil {
			return &RenewError{Err: err}
		}
	}
}
