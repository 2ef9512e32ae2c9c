package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/tickets", "GET", 200, time.Millisecond)
	m.RecordError("/tickets", "GET", "FORBIDDEN")
}

func TestMetricsAccumulates(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/tickets", "POST", "VALIDATION_FAILED")

	assert.Equal(t, int64(2), m.requests["/tickets|GET|200"])
	assert.Equal(t, 40*time.Millisecond, m.latency["/tickets|GET|200"])
	assert.Equal(t, int64(1), m.errors["/tickets|POST|VALIDATION_FAILED"])
}
