package journal

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhook_SuccessfulDelivery(t *testing.T) {
	var received Entry
	var auth string
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "Authorization: Bearer hook-secret")
	wh.Enqueue(Entry{ID: "e1", Event: EventRenew, Backend: "approle", TTLSeconds: 3600})
	wh.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "e1", received.ID)
	assert.Equal(t, EventRenew, received.Event)
	assert.EqualValues(t, 3600, received.TTLSeconds)
	assert.Equal(t, "Bearer hook-secret", auth)
}

func TestWebhook_RetryOn500(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "", WithRetryDelay(time.Millisecond))
	wh.Enqueue(Entry{Event: EventLogin})
	wh.Close()

	assert.Equal(t, int32(2), attempts.Load(), "should have retried once after 500")
}

func TestWebhook_NoRetryOn400(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "", WithRetryDelay(time.Millisecond))
	wh.Enqueue(Entry{Event: EventLogin})
	wh.Close()

	assert.Equal(t, int32(1), attempts.Load())
}

func TestWebhook_DropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	var delivered atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "", WithQueueSize(2))
	// The first entry is picked up by the loop and blocks in the handler;
	// wait for that so the queue is empty again.
	wh.Enqueue(Entry{ID: "in-flight"})
	require.Eventually(t, func() bool { return len(wh.events) == 0 }, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		wh.Enqueue(Entry{Event: EventRenew})
	}
	assert.Len(t, wh.events, 2)

	close(release)
	wh.Close()
	assert.Equal(t, int32(3), delivered.Load())
}

func TestWebhook_CloseIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "")
	wh.Close()
	wh.Close()
}
