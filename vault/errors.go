package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned on the request path when the token has
	// lapsed and the renew policy does not allow a fresh login.
	ErrSessionExpired = errors.New("session expired")
	// ErrRenewNotEnabled is returned when the renewal loop is started without
	// a Renew policy.
	ErrRenewNotEnabled = errors.New("renew policy not enabled")
	// ErrNotRenewable ends the renewal loop when the backend's token cannot
	// be extended.
	ErrNotRenewable = errors.New("token is not renewable")
	// ErrInvalidThreshold rejects a renew threshold outside [0, 1).
	ErrInvalidThreshold = errors.New("renew threshold must be in [0, 1)")
	// ErrRenewalRunning is returned when a second renewal loop is started on
	// the same client.
	ErrRenewalRunning = errors.New("renewal loop already running")
	// ErrNoBackend is returned by New without an auth backend.
	ErrNoBackend = errors.New("no auth backend")
)

// RenewError is the terminal error of a renewal loop whose renew call
// failed. It unwraps to the backend's error.
type RenewError struct {
	Err error
}

func (e *RenewError) Error() string {
	return fmt.Sprintf("renewal failed: %v", e.Err)
}

func (e *RenewError) Unwrap() error {
	return e.Err
}
