package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/vaultsession/config"
	"github.com/jmcleod/vaultsession/journal"
	bboltjournal "github.com/jmcleod/vaultsession/journal/bbolt"
	"github.com/jmcleod/vaultsession/vault"
)

func TestParseKVData(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{name: "pairs", pairs: []string{"user=svc", "pass=a=b"}, want: map[string]any{"user": "svc", "pass": "a=b"}},
		{name: "json", raw: `{"port":5432}`, want: map[string]any{"port": float64(5432)}},
		{name: "both", raw: `{}`, pairs: []string{"a=b"}, wantErr: true},
		{name: "neither", wantErr: true},
		{name: "bad pair", pairs: []string{"novalue"}, wantErr: true},
		{name: "empty key", pairs: []string{"=x"}, wantErr: true},
		{name: "bad json", raw: `[1]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKVData(tt.raw, tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogging(t *testing.T) {
	defer func() { logLevel, logFormat = "info", "text" }()

	logLevel, logFormat = "debug", "json"
	assert.NoError(t, setupLogging(io.Discard))

	logLevel = "loud"
	assert.Error(t, setupLogging(io.Discard))

	logLevel, logFormat = "info", "xml"
	assert.Error(t, setupLogging(io.Discard))
}

func TestPrintStatus(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, vault.Status{
		Backend:     "approle",
		Address:     "https://vault.example.com",
		Policy:      "renew(0.75)",
		Renewable:   true,
		ExpiresAt:   now.Add(time.Hour),
		TTLSeconds:  3600,
		Fingerprint: "0123456789abcdef",
		Policies:    []string{"default", "app"},
	}, now)

	out := buf.String()
	assert.Contains(t, out, "approle")
	assert.Contains(t, out, "renew(0.75)")
	assert.Contains(t, out, "1h0m0s")
	assert.Contains(t, out, "1 hour from now")
	assert.Contains(t, out, "[default app]")

	buf.Reset()
	printStatus(&buf, vault.Status{Backend: "token", Expired: true, ExpiresAt: now.Add(-3 * time.Minute)}, now)
	assert.Contains(t, buf.String(), "expired 3 minutes ago")
}

func TestJournalOptionsAlertsAndWebhook(t *testing.T) {
	var (
		mu       sync.Mutex
		received []journal.Entry
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e journal.Entry
		if json.NewDecoder(r.Body).Decode(&e) == nil {
			mu.Lock()
			received = append(received, e)
			mu.Unlock()
		}
	}))
	defer hook.Close()

	j := journal.New(nil, journalOptions(config.JournalConfig{
		WebhookURL:     hook.URL,
		AlertThreshold: 2,
		AlertWindow:    time.Minute,
	}, logr.Discard())...)
	j.Record(t.Context(), journal.Entry{Event: journal.EventLoginFailure, Backend: "approle"})
	require.NoError(t, j.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, journal.EventLoginFailure, received[0].Event)
}

// fakeKV is a KV v2 mount that accepts the token "s.cli".
func fakeKV(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Vault-Token") != "s.cli" {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"errors":["permission denied"]}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/v1/secret/data/app", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":{"user":"svc"},"metadata":{"version":1}}}`))
	})
	r.Post("/v1/secret/data/app", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"version":2,"created_time":"2026-06-01T09:00:00Z"}}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func staticTokenEnv(t *testing.T, addr string) {
	t.Setenv("VAULT_ADDR", addr)
	t.Setenv("VAULT_AUTH_METHOD", "token")
	t.Setenv("VAULT_TOKEN", "s.cli")
	t.Setenv("VAULT_RENEW_POLICY", "")
}

func TestKVGetAndPut(t *testing.T) {
	srv := fakeKV(t)
	staticTokenEnv(t, srv.URL)

	out, err := runCLI(t, "kv", "get", "app")
	require.NoError(t, err)
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, map[string]any{"user": "svc"}, data)

	out, err = runCLI(t, "kv", "put", "app", "user=svc2")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote secret/app version 2")
}

func TestKVForbidden(t *testing.T) {
	srv := fakeKV(t)
	staticTokenEnv(t, srv.URL)
	t.Setenv("VAULT_TOKEN", "s.other")

	_, err := runCLI(t, "kv", "get", "app")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestJournalList(t *testing.T) {
	dir := t.TempDir()
	store, err := bboltjournal.NewStoreFromFile(filepath.Join(dir, journalFile), nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), journal.Entry{
		ID: "1", Event: journal.EventLogin, Backend: "approle", Fingerprint: "abcd", TTLSeconds: 3600,
		CreatedAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, store.Append(t.Context(), journal.Entry{
		ID: "2", Event: journal.EventRenewFailure, Backend: "approle", Error: "permission denied",
		CreatedAt: time.Now(),
	}))
	require.NoError(t, store.Close())

	out, err := runCLI(t, "journal", "list", "--data-dir", dir, "--json")
	require.NoError(t, err)
	var entries []journal.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, journal.EventRenewFailure, entries[0].Event)
	assert.Equal(t, "permission denied", entries[0].Error)
}

func TestEventLabel(t *testing.T) {
	assert.Equal(t, "Login Failure", eventLabel(journal.EventLoginFailure))
	assert.Equal(t, "Renew", eventLabel(journal.EventRenew))
	assert.Equal(t, "Renewal Stopped", eventLabel(journal.EventRenewalStopped))
}
