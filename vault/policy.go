package vault

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PolicyKind selects how an expired token is handled.
type PolicyKind int

const (
	// PolicyReauthenticate logs in again on the request path once the token
	// has expired.
	PolicyReauthenticate PolicyKind = iota
	// PolicyRenew renews the token in the background before it expires.
	PolicyRenew
	// PolicyDisabled surfaces ErrSessionExpired once the token has expired.
	PolicyDisabled
)

// RenewPolicy is chosen once when a Client is built. The zero value is
// Reauthenticate.
type RenewPolicy struct {
	kind      PolicyKind
	threshold float64
}

// Reauthenticate returns the lazy re-login policy.
func Reauthenticate() RenewPolicy { return RenewPolicy{kind: PolicyReauthenticate} }

// Renew returns the background renewal policy. The loop renews once the
// threshold fraction of the window is left: 0.75 on a 60 minute token
// renews after 15 minutes.
func Renew(threshold float64) RenewPolicy {
	return RenewPolicy{kind: PolicyRenew, threshold: threshold}
}

// Disabled returns the policy that never recovers an expired token.
func Disabled() RenewPolicy { return RenewPolicy{kind: PolicyDisabled} }

func (p RenewPolicy) Kind() PolicyKind { return p.kind }

// Threshold is only meaningful for PolicyRenew.
func (p RenewPolicy) Threshold() float64 { return p.threshold }

// Validate checks the threshold of a Renew policy.
func (p RenewPolicy) Validate() error {
	if p.kind != PolicyRenew {
		return nil
	}
	if math.IsNaN(p.threshold) || p.threshold < 0 || p.threshold >= 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, p.threshold)
	}
	return nil
}

func (p RenewPolicy) String() string {
	switch p.kind {
	case PolicyRenew:
		return "renew(" + strconv.FormatFloat(p.threshold, 'f', -1, 64) + ")"
	case PolicyDisabled:
		return "disabled"
	default:
		return "reauthenticate"
	}
}

// ParseRenewPolicy reads "reauthenticate", "renew" or "disabled". threshold
// is used for "renew" only.
func ParseRenewPolicy(name string, threshold float64) (RenewPolicy, error) {
	var p RenewPolicy
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reauthenticate", "reauth":
		p = Reauthenticate()
	case "renew":
		p = Renew(threshold)
	case "disabled", "none":
		p = Disabled()
	default:
		return RenewPolicy{}, fmt.Errorf("unknown renew policy %q", name)
	}
	return p, p.Validate()
}
