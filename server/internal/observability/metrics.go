package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for the conversation pipeline. Not exposed as a
// metrics endpoint; surfaced through periodic log lines and tests.
type Metrics struct {
	mu sync.Mutex

	sendTotal        atomic.Int64
	generateTotal    atomic.Int64
	generateFailed   atomic.Int64
	generateTimedOut atomic.Int64

	// Generation duration samples, FIFO bounded.
	durations    []time.Duration
	maxDurations int
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordSend records an accepted send operation.
func (m *Metrics) RecordSend() {
	m.sendTotal.Add(1)
}

// RecordGeneration records a settled generation and its duration.
func (m *Metrics) RecordGeneration(duration time.Duration) {
	m.generateTotal.Add(1)
	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// RecordGenerationFailure records a failed generation.
func (m *Metrics) RecordGenerationFailure(timedOut bool) {
	m.generateFailed.Add(1)
	if timedOut {
		m.generateTimedOut.Add(1)
	}
}

// SendTotal returns the number of accepted sends.
func (m *Metrics) SendTotal() int64 { return m.sendTotal.Load() }

// GenerationTotal returns the number of settled generations.
func (m *Metrics) GenerationTotal() int64 { return m.generateTotal.Load() }

// GenerationFailed returns the number of failed generations.
func (m *Metrics) GenerationFailed() int64 { return m.generateFailed.Load() }

// GenerationTimedOut returns the number of generations that hit their timeout.
func (m *Metrics) GenerationTimedOut() int64 { return m.generateTimedOut.Load() }

// AverageGenerationDuration returns the mean of the retained duration samples.
func (m *Metrics) AverageGenerationDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range m.durations {
		total += d
	}
	return total / time.Duration(len(m.durations))
}
