package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// webhookQueueSize is the bounded channel capacity for outbound entries.
const webhookQueueSize = 1024

// Webhook posts journal entries to an external HTTP endpoint. Entries are
// queued without blocking and sent by one background goroutine; when the
// queue is full, entries are dropped.
type Webhook struct {
	url        string
	authHeader string // "Header: Value", e.g. "Authorization: Bearer xxx"
	client     *http.Client
	log        logr.Logger
	retryDelay time.Duration
	events     chan Entry
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithWebhookClient sets the HTTP client used for delivery.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithWebhookLogger sets the logger for delivery problems.
func WithWebhookLogger(l logr.Logger) WebhookOption {
	return func(w *Webhook) { w.log = l }
}

// WithQueueSize overrides the queue capacity.
func WithQueueSize(n int) WebhookOption {
	return func(w *Webhook) {
		if n > 0 {
			w.events = make(chan Entry, n)
		}
	}
}

// WithRetryDelay sets the pause before the single retry after a 5xx.
func WithRetryDelay(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.retryDelay = d }
}

// NewWebhook creates a dispatcher and starts its background loop.
func NewWebhook(url, authHeader string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		authHeader: authHeader,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        logr.Discard(),
		retryDelay: time.Second,
		events:     make(chan Entry, webhookQueueSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Enqueue adds an entry to the queue. It never blocks.
func (w *Webhook) Enqueue(e Entry) {
	select {
	case w.events <- e:
	default:
		w.log.Info("webhook queue full, dropping entry", "event", string(e.Event))
	}
}

// Close stops accepting entries and waits for queued ones to be sent.
func (w *Webhook) Close() {
	w.closeOnce.Do(func() {
		close(w.events)
		w.wg.Wait()
	})
}

func (w *Webhook) loop() {
	defer w.wg.Done()
	for e := range w.events {
		w.send(e)
	}
}

// send POSTs the entry with one retry on 5xx.
func (w *Webhook) send(e Entry) {
	body, err := json.Marshal(e)
	if err != nil {
		w.log.Error(err, "webhook marshal failed")
		return
	}

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(w.retryDelay)
		}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			w.log.Error(err, "webhook request creation failed")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "vaultsession-journal/1.0")
		if name, value, ok := strings.Cut(w.authHeader, ":"); ok {
			req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
		}

		resp, err := w.client.Do(req)
		if err != nil {
			w.log.Error(err, "webhook request failed", "attempt", attempt+1)
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return
		case resp.StatusCode >= 500:
			w.log.Info("webhook server error", "status", resp.StatusCode, "attempt", attempt+1)
			continue
		default:
			w.log.Info("webhook client error", "status", resp.StatusCode)
			return
		}
	}
}
