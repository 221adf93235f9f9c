package vault_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/vaultsession/journal"
	"github.com/jmcleod/vaultsession/transport"
	"github.com/jmcleod/vaultsession/vault"
)

const waitTimeout = 2 * time.Second

func TestRenewBackgroundRequiresRenewPolicy(t *testing.T) {
	for _, policy := range []vault.RenewPolicy{vault.Reauthenticate(), vault.Disabled()} {
		fv := newFakeVault(t, 60)
		h := newHarness(t, fv, policy)
		assert.ErrorIs(t, h.client.RenewBackground(t.Context()), vault.ErrRenewNotEnabled)
	}
}

func TestRenewBackgroundStopsWhenNotRenewable(t *testing.T) {
	fv := newFakeVault(t, 60)
	fv.renewable = false
	h := newHarness(t, fv, vault.Renew(0.75))

	err := h.client.RenewBackground(t.Context())
	require.ErrorIs(t, err, vault.ErrNotRenewable)
	assert.Zero(t, fv.renews.Load())
	assert.Equal(t, []journal.Event{journal.EventLogin, journal.EventRenewalStopped}, h.events(t))
}

func TestRenewBackgroundSchedule(t *testing.T) {
	fv := newFakeVault(t, 60)
	h := newHarness(t, fv, vault.Renew(0.75))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := h.client.StartBackgroundRenewal(ctx)

	// 60s at 0.75 sleeps 15s: nothing at 14s, a renewal at 15s.
	require.NoError(t, h.clk.WaitAdvance(14*time.Second, waitTimeout, 1))
	assert.Zero(t, fv.renews.Load())
	h.clk.Advance(time.Second)
	require.Eventually(t, func() bool { return fv.renews.Load() == 1 }, waitTimeout, time.Millisecond)

	// The renewed token keeps its value and is valid for another 60s.
	require.Eventually(t, func() bool {
		return h.client.Status().IssuedAt.Equal(epoch.Add(15 * time.Second))
	}, waitTimeout, time.Millisecond)
	assert.Equal(t, "s.login-1", h.client.Token())
	assert.True(t, h.client.Status().RenewalRunning)

	// The next sleep is computed from the renewed duration.
	require.NoError(t, h.clk.WaitAdvance(15*time.Second, waitTimeout, 1))
	require.Eventually(t, func() bool { return fv.renews.Load() == 2 }, waitTimeout, time.Millisecond)

	assert.EqualValues(t, 1, fv.logins.Load())
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRenewBackgroundFailureIsTerminal(t *testing.T) {
	fv := newFakeVault(t, 60)
	fv.renewStatus = http.StatusForbidden
	h := newHarness(t, fv, vault.Renew(0.5))

	done := h.client.StartBackgroundRenewal(t.Context())
	require.NoError(t, h.clk.WaitAdvance(30*time.Second, waitTimeout, 1))

	var err error
	select {
	case err = <-done:
	case <-time.After(waitTimeout):
		t.Fatal("renewal loop did not stop")
	}

	var renewErr *vault.RenewError
	require.True(t, errors.As(err, &renewErr))
	assert.ErrorIs(t, err, transport.ErrUnauthorized)
	assert.EqualValues(t, 1, fv.renews.Load())
	assert.Equal(t, []journal.Event{journal.EventLogin, journal.EventRenewFailure, journal.EventRenewalStopped}, h.events(t))

	_, open := <-done
	assert.False(t, open, "the channel is closed after the terminal error")
}

func TestRenewBackgroundCancelledWhileSleeping(t *testing.T) {
	fv := newFakeVault(t, 60)
	h := newHarness(t, fv, vault.Renew(0.5))

	ctx, cancel := context.WithCancel(t.Context())
	done := h.client.StartBackgroundRenewal(ctx)
	require.NoError(t, h.clk.WaitAdvance(0, waitTimeout, 1))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Zero(t, fv.renews.Load())
	assert.Equal(t, "s.login-1", h.client.Token())
	assert.False(t, h.client.Status().Expired)
}

func TestRenewBackgroundRunsOnce(t *testing.T) {
	fv := newFakeVault(t, 60)
	h := newHarness(t, fv, vault.Renew(0.5))

	ctx, cancel := context.WithCancel(t.Context())
	done := h.client.StartBackgroundRenewal(ctx)
	require.NoError(t, h.clk.WaitAdvance(0, waitTimeout, 1))

	assert.ErrorIs(t, h.client.RenewBackground(ctx), vault.ErrRenewalRunning)
	cancel()
	<-done
}

func TestRequestPathSeesRenewedToken(t *testing.T) {
	fv := newFakeVault(t, 60)
	fv.renewLease = 300
	h := newHarness(t, fv, vault.Renew(0.75))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := h.client.StartBackgroundRenewal(ctx)

	require.NoError(t, h.clk.WaitAdvance(15*time.Second, waitTimeout, 1))
	require.Eventually(t, func() bool { return fv.renews.Load() == 1 }, waitTimeout, time.Millisecond)
	// The loop now sleeps 75s; step past the original 60s window only.
	require.NoError(t, h.clk.WaitAdvance(50*time.Second, waitTimeout, 1))

	resp, err := h.client.Request(t.Context(), http.MethodGet, "secret/data/app", nil)
	require.NoError(t, err)
	transport.Discard(resp)
	assert.EqualValues(t, 1, fv.logins.Load())
	assert.EqualValues(t, 1, fv.renews.Load())

	cancel()
	<-done
}

func TestRenewPolicyParsing(t *testing.T) {
	p, err := vault.ParseRenewPolicy("renew", 0.8)
	require.NoError(t, err)
	assert.Equal(t, vault.PolicyRenew, p.Kind())
	assert.Equal(t, 0.8, p.Threshold())
	assert.Equal(t, "renew(0.8)", p.String())

	p, err = vault.ParseRenewPolicy("", 0)
	require.NoError(t, err)
	assert.Equal(t, vault.PolicyReauthenticate, p.Kind())

	p, err = vault.ParseRenewPolicy("Disabled", 0)
	require.NoError(t, err)
	assert.Equal(t, "disabled", p.String())

	_, err = vault.ParseRenewPolicy("renew", 1)
	assert.ErrorIs(t, err, vault.ErrInvalidThreshold)
	_, err = vault.ParseRenewPolicy("renew", -0.1)
	assert.ErrorIs(t, err, vault.ErrInvalidThreshold)
	_, err = vault.ParseRenewPolicy("sometimes", 0)
	assert.Error(t, err)

	var zero vault.RenewPolicy
	assert.Equal(t, vault.PolicyReauthenticate, zero.Kind())
}
