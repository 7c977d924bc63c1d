package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/api/tickets", "POST", "VALIDATION_FAILED")
	m.RecordJob("sla_escalation", 3, nil)
	m.RecordJob("sla_escalation", 0, errors.New("db down"))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/tickets|GET|200"])
	assert.InDelta(t, 20.0, snap.AvgLatencyMillis["/api/tickets|GET|200"], 0.001)
	assert.Equal(t, int64(1), snap.Errors["/api/tickets|POST|VALIDATION_FAILED"])

	job := snap.Jobs["sla_escalation"]
	assert.Equal(t, int64(2), job.Runs)
	assert.Equal(t, int64(1), job.Failures)
	assert.Equal(t, int64(3), job.Processed)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordJob("x", 1, nil)
	})
}
