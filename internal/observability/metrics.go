package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	transitions  map[string]int64
	breaches     map[string]int64
	requestTime  map[string]time.Duration
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		transitions:  make(map[string]int64),
		breaches:     make(map[string]int64),
		requestTime:  make(map[string]time.Duration),
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
	m.requestTime[key] += duration
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

// RecordTransition counts a lifecycle transition that changed a ticket.
func (m *Metrics) RecordTransition(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[name]++
}

// RecordBreach counts a persisted SLA breach by SLA type.
func (m *Metrics) RecordBreach(slaType string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaches[slaType]++
}

// Snapshot is a point-in-time copy of the lifecycle counters.
type Snapshot struct {
	Transitions map[string]int64 `json:"transitions"`
	Breaches    map[string]int64 `json:"breaches"`
	Requests    int64            `json:"requests"`
	Errors      int64            `json:"errors"`
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Transitions: map[string]int64{},
		Breaches:    map[string]int64{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.transitions {
		snap.Transitions[k] = v
	}
	for k, v := range m.breaches {
		snap.Breaches[k] = v
	}
	for _, v := range m.requestCount {
		snap.Requests += v
	}
	for _, v := range m.errorCount {
		snap.Errors += v
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
