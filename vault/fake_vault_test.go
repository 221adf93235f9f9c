package vault_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/vaultsession/transport"
)

// fakeVault is a minimal Vault: AppRole login, renew-self, a KV-style
// secret path and a path that answers with any status code.
type fakeVault struct {
	srv *httptest.Server

	logins   atomic.Int32
	renews   atomic.Int32
	requests atomic.Int32

	// leases[i] is the lease of login i+1; the last one repeats.
	leases      []int
	renewable   bool
	loginStatus int
	renewStatus int
	renewLease  int
	loginDelay  time.Duration

	mu          sync.Mutex
	seenTokens  []string
	lastHeaders http.Header
	lastBody    []byte
}

func newFakeVault(t *testing.T, leases ...int) *fakeVault {
	t.Helper()
	if len(leases) == 0 {
		leases = []int{3600}
	}
	fv := &fakeVault{
		leases:      leases,
		renewable:   true,
		loginStatus: http.StatusOK,
		renewStatus: http.StatusOK,
		renewLease:  60,
	}

	r := chi.NewRouter()
	r.Post("/v1/auth/approle/login", fv.login)
	r.Post("/v1/auth/token/renew-self", fv.renew)
	r.HandleFunc("/v1/secret/data/{name}", fv.secret)
	r.Get("/v1/status/{code}", func(w http.ResponseWriter, r *http.Request) {
		fv.requests.Add(1)
		code, _ := strconv.Atoi(chi.URLParam(r, "code"))
		w.WriteHeader(code)
	})

	fv.srv = httptest.NewServer(r)
	t.Cleanup(fv.srv.Close)
	return fv
}

func (fv *fakeVault) login(w http.ResponseWriter, r *http.Request) {
	n := int(fv.logins.Add(1))
	if fv.loginDelay > 0 {
		time.Sleep(fv.loginDelay)
	}
	if fv.loginStatus != http.StatusOK {
		w.WriteHeader(fv.loginStatus)
		_, _ = w.Write([]byte(`{"errors":["invalid role or secret ID"]}`))
		return
	}
	lease := fv.leases[min(n, len(fv.leases))-1]
	writeAuth(w, map[string]any{
		"client_token":   fmt.Sprintf("s.login-%d", n),
		"accessor":       fmt.Sprintf("acc-%d", n),
		"policies":       []string{"default"},
		"lease_duration": lease,
		"renewable":      fv.renewable,
	})
}

func (fv *fakeVault) renew(w http.ResponseWriter, r *http.Request) {
	fv.renews.Add(1)
	if fv.renewStatus != http.StatusOK {
		w.WriteHeader(fv.renewStatus)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
		return
	}
	writeAuth(w, map[string]any{"lease_duration": fv.renewLease, "renewable": fv.renewable})
}

func (fv *fakeVault) secret(w http.ResponseWriter, r *http.Request) {
	fv.requests.Add(1)
	body, _ := io.ReadAll(r.Body)

	fv.mu.Lock()
	fv.seenTokens = append(fv.seenTokens, r.Header.Get(transport.HeaderToken))
	fv.lastHeaders = r.Header.Clone()
	fv.lastBody = body
	fv.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"data":{"data":{"name":"` + chi.URLParam(r, "name") + `"}}}`))
}

func (fv *fakeVault) tokens() []string {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	return append([]string(nil), fv.seenTokens...)
}

func (fv *fakeVault) last() (http.Header, []byte) {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	return fv.lastHeaders, fv.lastBody
}

func writeAuth(w http.ResponseWriter, block map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"auth": block})
}
