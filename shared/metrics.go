package shared

import (
	"sync"
	"time"
)

// SourceMetrics tracks call counts and latency per upstream source. The
// pipeline records every schedule, detail, disclosure and oracle call here;
// the health endpoint exposes a snapshot.
type SourceMetrics struct {
	mutex   sync.RWMutex
	sources map[string]*sourceCounters
}

type sourceCounters struct {
	TotalCalls      int64         `json:"total_calls"`
	SuccessfulCalls int64         `json:"successful_calls"`
	FailedCalls     int64         `json:"failed_calls"`
	TotalLatency    time.Duration `json:"-"`
	AverageLatency  time.Duration `json:"average_latency"`
	LastCallAt      time.Time     `json:"last_call_at"`
	LastError       string        `json:"last_error,omitempty"`
}

// SourceMetricsSnapshot is one source's counters at read time.
type SourceMetricsSnapshot struct {
	Source          string        `json:"source"`
	TotalCalls      int64         `json:"total_calls"`
	SuccessfulCalls int64         `json:"successful_calls"`
	FailedCalls     int64         `json:"failed_calls"`
	SuccessRate     float64       `json:"success_rate"`
	AverageLatency  time.Duration `json:"average_latency"`
	LastCallAt      time.Time     `json:"last_call_at"`
	LastError       string        `json:"last_error,omitempty"`
}

func NewSourceMetrics() *SourceMetrics {
	return &SourceMetrics{sources: make(map[string]*sourceCounters)}
}

// RecordCall records one upstream call's outcome and latency.
func (m *SourceMetrics) RecordCall(source string, err error, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	counters := m.sources[source]
	if counters == nil {
		counters = &sourceCounters{}
		m.sources[source] = counters
	}

	counters.TotalCalls++
	counters.TotalLatency += latency
	counters.AverageLatency = counters.TotalLatency / time.Duration(counters.TotalCalls)
	counters.LastCallAt = time.Now()

	if err != nil {
		counters.FailedCalls++
		counters.LastError = err.Error()
	} else {
		counters.SuccessfulCalls++
		counters.LastError = ""
	}
}

// Snapshot returns the current counters for every recorded source.
func (m *SourceMetrics) Snapshot() []SourceMetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snapshots := make([]SourceMetricsSnapshot, 0, len(m.sources))
	for source, c := range m.sources {
		rate := 0.0
		if c.TotalCalls > 0 {
			rate = float64(c.SuccessfulCalls) / float64(c.TotalCalls) * 100
		}
		snapshots = append(snapshots, SourceMetricsSnapshot{
			Source:          source,
			TotalCalls:      c.TotalCalls,
			SuccessfulCalls: c.SuccessfulCalls,
			FailedCalls:     c.FailedCalls,
			SuccessRate:     rate,
			AverageLatency:  c.AverageLatency,
			LastCallAt:      c.LastCallAt,
			LastError:       c.LastError,
		})
	}
	return snapshots
}
