package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/vaultsession/transport"
	"github.com/jmcleod/vaultsession/vault"
)

// ErrorResponse uses Vault's error shape so clients of the agent parse
// both the same way.
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Errors: []string{msg}})
}

// mapError answers a failed forward. Vault's own status and messages are
// passed through unchanged.
func mapError(w http.ResponseWriter, err error) {
	var se *transport.StatusError
	if errors.As(err, &se) {
		msgs := se.Errors
		if len(msgs) == 0 {
			msgs = []string{http.StatusText(se.StatusCode)}
		}
		writeJSON(w, se.StatusCode, ErrorResponse{Errors: msgs})
		return
	}

	switch {
	case errors.Is(err, vault.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, transport.ErrParse):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		// Login failures, transport errors and undecodable answers.
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
