package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	startedAt    time.Time
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	jobRuns      map[string]JobStat
}

// JobStat summarizes a background job.
type JobStat struct {
	Runs      int64     `json:"runs"`
	Failures  int64     `json:"failures"`
	Processed int64     `json:"processed"`
	LastRunAt time.Time `json:"last_run_at"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	UptimeSeconds    int64              `json:"uptime_seconds"`
	Requests         map[string]int64   `json:"requests"`
	Errors           map[string]int64   `json:"errors"`
	AvgLatencyMillis map[string]float64 `json:"avg_latency_ms"`
	Jobs             map[string]JobStat `json:"jobs"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		startedAt:    time.Now(),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		jobRuns:      make(map[string]JobStat),
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
	m.latencyTotal[key] += duration
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

// RecordJob stores the outcome of one background job run.
func (m *Metrics) RecordJob(name string, processed int, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stat := m.jobRuns[name]
	stat.Runs++
	stat.Processed += int64(processed)
	if err != nil {
		stat.Failures++
	}
	stat.LastRunAt = time.Now()
	m.jobRuns[name] = stat
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		UptimeSeconds:    int64(time.Since(m.startedAt).Seconds()),
		Requests:         make(map[string]int64, len(m.requestCount)),
		Errors:           make(map[string]int64, len(m.errorCount)),
		AvgLatencyMillis: make(map[string]float64, len(m.latencyTotal)),
		Jobs:             make(map[string]JobStat, len(m.jobRuns)),
	}
	for k, v := range m.requestCount {
		snap.Requests[k] = v
		if v > 0 {
			snap.AvgLatencyMillis[k] = float64(m.latencyTotal[k].Microseconds()) / 1000 / float64(v)
		}
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	for k, v := range m.jobRuns {
		snap.Jobs[k] = v
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
