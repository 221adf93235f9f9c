package journal

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertLoginFailureSpike AlertType = "login_failure_spike"
	AlertRenewFailureSpike AlertType = "renew_failure_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

const (
	DefaultAlertThreshold = 5
	DefaultAlertWindow    = 5 * time.Minute
)

// alerter keeps one sliding window of failure times per alert type.
type alerter struct {
	mu        sync.Mutex
	fn        AlertFunc
	threshold int
	window    time.Duration
	failures  map[AlertType][]time.Time
}

func newAlerter(fn AlertFunc, threshold int, window time.Duration) *alerter {
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}
	if window <= 0 {
		window = DefaultAlertWindow
	}
	return &alerter{
		fn:        fn,
		threshold: threshold,
		window:    window,
		failures:  make(map[AlertType][]time.Time),
	}
}

func (a *alerter) observe(event Event, at time.Time) {
	if a == nil || a.fn == nil {
		return
	}
	var typ AlertType
	var msg string
	switch event {
	case EventLoginFailure:
		typ, msg = AlertLoginFailureSpike, "login failure rate exceeds threshold"
	case EventRenewFailure:
		typ, msg = AlertRenewFailureSpike, "renew failure rate exceeds threshold"
	default:
		return
	}

	a.mu.Lock()
	times := trimWindow(append(a.failures[typ], at), at, a.window)
	var fire *AlertEvent
	if len(times) >= a.threshold {
		fire = &AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     len(times),
			Threshold: a.threshold,
			Timestamp: at,
		}
		// Reset so one spike raises one alert.
		times = times[:0]
	}
	a.failures[typ] = times
	a.mu.Unlock()

	if fire != nil {
		a.fn(*fire)
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
