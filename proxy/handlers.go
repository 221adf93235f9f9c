package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/vaultsession/journal"
)

const maxJournalLimit = 1000

// Forward sends the request on to Vault under the session's token and
// copies the answer back. The request body must be JSON.
func (s *Server) Forward(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	var body any
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}
	if len(raw) > 0 {
		if !json.Valid(raw) {
			writeError(w, http.StatusBadRequest, "request body must be JSON")
			return
		}
		body = json.RawMessage(raw)
	}

	resp, err := s.client.Request(r.Context(), r.Method, path, body)
	if err != nil {
		s.log.V(1).Info("forward failed", "method", r.Method, "path", path, "error", err.Error())
		mapError(w, err)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// Status reports the session state.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.client.Status())
}

// HealthResponse is the body of /agent/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Health makes sure the session is usable, logging in again if the policy
// allows it.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.client.EnsureValid(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// JournalResponse is the body of /agent/v1/journal.
type JournalResponse struct {
	Entries []journal.Entry `json:"entries"`
}

// Journal lists recent lifecycle events, newest first.
func (s *Server) Journal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "journal is not enabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = min(n, maxJournalLimit)
	}
	entries, err := s.journal.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, JournalResponse{Entries: entries})
}
