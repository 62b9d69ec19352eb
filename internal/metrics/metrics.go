package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// TimerMetric captures timing information
type TimerMetric struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// ErrorRateMetric captures error rates
type ErrorRateMetric struct {
	Total     int64   `json:"total"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
}

type timer struct {
	count       int64
	totalTimeMs int64
	minTimeMs   int64
	maxTimeMs   int64
}

type errorRate struct {
	total  int64
	errors int64
}

// Metrics collects counters, gauges, timers and error rates for API calls,
// cache lookups and dashboard requests
type Metrics struct {
	mu           sync.RWMutex
	counters     map[string]*int64
	gauges       map[string]*int64
	timers       map[string]*timer
	errorRates   map[string]*errorRate
	healthChecks map[string]*int64
	startTime    time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:     make(map[string]*int64),
		gauges:       make(map[string]*int64),
		timers:       make(map[string]*timer),
		errorRates:   make(map[string]*errorRate),
		healthChecks: make(map[string]*int64),
		startTime:    time.Now(),
	}
}

// int64Slot returns the slot for name in m, creating it under the write lock
func (m *Metrics) int64Slot(slots map[string]*int64, name string) *int64 {
	m.mu.RLock()
	slot, exists := slots[name]
	m.mu.RUnlock()
	if exists {
		return slot
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Check again, another goroutine may have won the race
	if slot, exists = slots[name]; !exists {
		slot = new(int64)
		slots[name] = slot
	}
	return slot
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	atomic.AddInt64(m.int64Slot(m.counters, name), value)
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	atomic.StoreInt64(m.int64Slot(m.gauges, name), value)
}

// RecordTimer records a timing measurement
func (m *Metrics) RecordTimer(name string, duration time.Duration) {
	durationMs := duration.Milliseconds()

	m.mu.RLock()
	t, exists := m.timers[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if t, exists = m.timers[name]; !exists {
			t = &timer{minTimeMs: math.MaxInt64}
			m.timers[name] = t
		}
		m.mu.Unlock()
	}

	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalTimeMs, durationMs)

	for {
		currentMin := atomic.LoadInt64(&t.minTimeMs)
		if durationMs >= currentMin || atomic.CompareAndSwapInt64(&t.minTimeMs, currentMin, durationMs) {
			break
		}
	}

	for {
		currentMax := atomic.LoadInt64(&t.maxTimeMs)
		if durationMs <= currentMax || atomic.CompareAndSwapInt64(&t.maxTimeMs, currentMax, durationMs) {
			break
		}
	}
}

// RecordSuccess records a successful operation for error rate tracking
func (m *Metrics) RecordSuccess(name string) {
	m.recordErrorRate(name, false)
}

// RecordError records an error for error rate tracking
func (m *Metrics) RecordError(name string) {
	m.recordErrorRate(name, true)
}

// Observe records the outcome and duration of an operation that started at start
func (m *Metrics) Observe(name string, start time.Time, err error) {
	m.IncrementCounter(name + ".calls")
	m.RecordTimer(name, time.Since(start))
	if err != nil {
		m.RecordError(name)
		return
	}
	m.RecordSuccess(name)
}

func (m *Metrics) recordErrorRate(name string, isError bool) {
	m.mu.RLock()
	rate, exists := m.errorRates[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if rate, exists = m.errorRates[name]; !exists {
			rate = &errorRate{}
			m.errorRates[name] = rate
		}
		m.mu.Unlock()
	}

	atomic.AddInt64(&rate.total, 1)
	if isError {
		atomic.AddInt64(&rate.errors, 1)
	}
}

// SetHealth sets the health status of a component
func (m *Metrics) SetHealth(component string, isHealthy bool) {
	var value int64
	if isHealthy {
		value = 1
	}
	atomic.StoreInt64(m.int64Slot(m.healthChecks, component), value)
}

// GetCounters returns all counters
func (m *Metrics) GetCounters() map[string]int64 {
	return m.snapshot(m.counters)
}

// GetGauges returns all gauges
func (m *Metrics) GetGauges() map[string]int64 {
	return m.snapshot(m.gauges)
}

func (m *Metrics) snapshot(slots map[string]*int64) map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make(map[string]int64, len(slots))
	for name, slot := range slots {
		values[name] = atomic.LoadInt64(slot)
	}
	return values
}

// GetTimers returns all timers
func (m *Metrics) GetTimers() map[string]TimerMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timers := make(map[string]TimerMetric, len(m.timers))
	for name, t := range m.timers {
		count := atomic.LoadInt64(&t.count)
		totalTime := atomic.LoadInt64(&t.totalTimeMs)

		var average float64
		if count > 0 {
			average = float64(totalTime) / float64(count)
		}

		timers[name] = TimerMetric{
			Count:         count,
			TotalTimeMs:   totalTime,
			AverageTimeMs: average,
			MinTimeMs:     atomic.LoadInt64(&t.minTimeMs),
			MaxTimeMs:     atomic.LoadInt64(&t.maxTimeMs),
		}
	}
	return timers
}

// GetErrorRates returns all error rates
func (m *Metrics) GetErrorRates() map[string]ErrorRateMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rates := make(map[string]ErrorRateMetric, len(m.errorRates))
	for name, er := range m.errorRates {
		total := atomic.LoadInt64(&er.total)
		errors := atomic.LoadInt64(&er.errors)

		var rate float64
		if total > 0 {
			rate = float64(errors) / float64(total) * 100.0
		}

		rates[name] = ErrorRateMetric{Total: total, Errors: errors, ErrorRate: rate}
	}
	return rates
}

// GetHealthChecks returns all health checks
func (m *Metrics) GetHealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checks := make(map[string]bool, len(m.healthChecks))
	for name, health := range m.healthChecks {
		checks[name] = atomic.LoadInt64(health) > 0
	}
	return checks
}

// GetUptimeSeconds returns the process uptime in seconds
func (m *Metrics) GetUptimeSeconds() int64 {
	return int64(time.Since(m.startTime).Seconds())
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": m.GetUptimeSeconds(),
		"counters":       m.GetCounters(),
		"gauges":         m.GetGauges(),
		"timers":         m.GetTimers(),
		"error_rates":    m.GetErrorRates(),
		"health_checks":  m.GetHealthChecks(),
	}
}
