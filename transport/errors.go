package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrParse     = errors.New("invalid vault address")
	ErrTransport = errors.New("vault request failed")
	ErrDecode    = errors.New("unreadable vault response")

	ErrInvalidRequest = errors.New("vault: invalid request")
	ErrUnauthorized   = errors.New("vault: permission denied")
	ErrNotFound       = errors.New("vault: not found")
	ErrSealed         = errors.New("vault: sealed or unavailable")
	ErrOther          = errors.New("vault: unexpected status")
)

// StatusError is a non-success answer from Vault. It unwraps to the
// sentinel matching its status code, so callers can use errors.Is.
type StatusError struct {
	StatusCode int
	// Errors holds the messages from Vault's {"errors": [...]} body, if any.
	Errors []string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s (%d %s)", e.Unwrap(), e.StatusCode, http.StatusText(e.StatusCode))
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, "; ")
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return SentinelFor(e.StatusCode)
}

// SentinelFor maps a non-2xx status code onto the error taxonomy.
func SentinelFor(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrInvalidRequest
	case http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusServiceUnavailable:
		return ErrSealed
	default:
		return ErrOther
	}
}
