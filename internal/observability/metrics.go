package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu                   sync.Mutex
	requestCount         map[string]int64
	requestLatency       map[string]time.Duration
	errorCount           map[string]int64
	transitionCount      map[string]int64
	notificationFailures map[string]int64
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests             map[string]int64 `json:"requests"`
	RequestLatencyMillis map[string]int64 `json:"request_latency_ms"`
	Errors               map[string]int64 `json:"errors"`
	Transitions          map[string]int64 `json:"transitions"`
	NotificationFailures map[string]int64 `json:"notification_failures"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:         make(map[string]int64),
		requestLatency:       make(map[string]time.Duration),
		errorCount:           make(map[string]int64),
		transitionCount:      make(map[string]int64),
		notificationFailures: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestLatency[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTransition counts a lifecycle transition attempt by outcome, which is
// "ok" or the error code that stopped it.
func (m *Metrics) RecordTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCount[transition+"|"+outcome]++
}

// RecordNotificationFailure counts a notification that could not be stored or broadcast.
func (m *Metrics) RecordNotificationFailure(stage string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationFailures[stage]++
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	latency := make(map[string]int64, len(m.requestLatency))
	for k, v := range m.requestLatency {
		latency[k] = v.Milliseconds()
	}
	return Snapshot{
		Requests:             copyCounts(m.requestCount),
		RequestLatencyMillis: latency,
		Errors:               copyCounts(m.errorCount),
		Transitions:          copyCounts(m.transitionCount),
		NotificationFailures: copyCounts(m.notificationFailures),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
