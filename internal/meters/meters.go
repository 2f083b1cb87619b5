// Package meters provides timing meters for throughput reporting.
package meters

import "time"

// TimeMeter computes the average rate of events since creation or Reset.
type TimeMeter struct {
	start time.Time
	n     int64
}

// NewTimeMeter returns a running meter.
func NewTimeMeter() *TimeMeter {
	return &TimeMeter{start: time.Now()}
}

// Reset zeroes the meter and restarts the clock.
func (m *TimeMeter) Reset() {
	m.start = time.Now()
	m.n = 0
}

// Update records n events.
func (m *TimeMeter) Update(n int64) {
	m.n += n
}

// N returns the number of events recorded.
func (m *TimeMeter) N() int64 { return m.n }

// Avg returns events per second since the meter started.
func (m *TimeMeter) Avg() float64 {
	elapsed := time.Since(m.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.n) / elapsed
}

// StopwatchMeter accumulates wall time across Start/Stop intervals.
type StopwatchMeter struct {
	start   time.Time
	running bool
	sum     time.Duration
	n       int64
}

// Start begins an interval.
func (m *StopwatchMeter) Start() {
	m.start = time.Now()
	m.running = true
}

// Stop ends the interval and attributes n events to it. Stop without a
// matching Start is a no-op.
func (m *StopwatchMeter) Stop(n int64) {
	if !m.running {
		return
	}
	m.sum += time.Since(m.start)
	m.n += n
	m.running = false
}

// N returns the events recorded across all intervals.
func (m *StopwatchMeter) N() int64 { return m.n }

// Sum returns total time across all intervals.
func (m *StopwatchMeter) Sum() time.Duration { return m.sum }

// Avg returns the time per event.
func (m *StopwatchMeter) Avg() time.Duration {
	if m.n == 0 {
		return 0
	}
	return m.sum / time.Duration(m.n)
}
