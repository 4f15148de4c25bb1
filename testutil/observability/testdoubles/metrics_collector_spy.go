package testdoubles

import (
	"sync"
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
)

// MetricsCollectorSpy is a MetricsCollector implementation that captures
// metric calls for testing.
type MetricsCollectorSpy struct {
	durations []SpyDurationRecord
	counters  []SpyCounterRecord
	values    []SpyValueRecord
	mu        sync.Mutex
}

// SpyDurationRecord represents a recorded duration metric.
type SpyDurationRecord struct {
	Metric   string
	Duration time.Duration
	Labels   map[string]string
}

// SpyCounterRecord represents a recorded counter increment.
type SpyCounterRecord struct {
	Metric string
	Labels map[string]string
}

// SpyValueRecord represents a recorded value metric.
type SpyValueRecord struct {
	Metric string
	Value  float64
	Labels map[string]string
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy instance.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

// RecordDuration implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = append(s.durations, SpyDurationRecord{Metric: metric, Duration: duration, Labels: labels})
}

// IncrementCounter implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = append(s.counters, SpyCounterRecord{Metric: metric, Labels: labels})
}

// RecordValue implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = append(s.values, SpyValueRecord{Metric: metric, Value: value, Labels: labels})
}

// Reset clears all recorded metric calls.
func (s *MetricsCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = s.durations[:0]
	s.counters = s.counters[:0]
	s.values = s.values[:0]
}

// GetDurationRecords returns a copy of all recorded duration metrics.
func (s *MetricsCollectorSpy) GetDurationRecords() []SpyDurationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyDurationRecord(nil), s.durations...)
}

// GetCounterRecords returns a copy of all recorded counter increments.
func (s *MetricsCollectorSpy) GetCounterRecords() []SpyCounterRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyCounterRecord(nil), s.counters...)
}

// CounterCount returns how often the given counter metric was incremented.
func (s *MetricsCollectorSpy) CounterCount(metric string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, record := range s.counters {
		if record.Metric == metric {
			count++
		}
	}

	return count
}

// HasDurationWithLabel checks if a duration metric with the given label value was recorded.
func (s *MetricsCollectorSpy) HasDurationWithLabel(metric string, labelKey string, labelValue string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.durations {
		if record.Metric == metric && record.Labels[labelKey] == labelValue {
			return true
		}
	}

	return false
}

// Compile-time check that the spy implements the MetricsCollector port.
var _ circstore.MetricsCollector = (*MetricsCollectorSpy)(nil)
