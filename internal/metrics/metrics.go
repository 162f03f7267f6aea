// Package metrics accumulates process-wide render counters. The /metrics
// handler formats a Snapshot into Prometheus text; nothing here depends on
// a metrics client.
package metrics

import "sync"

// DurationBuckets are the upper bounds, in seconds, of the render duration
// histogram. Render times for full monitor frames sit in the low
// milliseconds, so the buckets crowd the sub-10ms range.
var DurationBuckets = [...]float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1}

// Metrics tracks render activity across all sessions. Methods are safe for
// concurrent use.
type Metrics struct {
	mu sync.Mutex

	framesTotal  uint64
	cellsTotal   uint64
	errorsByCode map[string]uint64
	sessions     int64

	durSum     float64
	durCount   uint64
	durBuckets [len(DurationBuckets)]uint64
}

func New() *Metrics {
	return &Metrics{errorsByCode: make(map[string]uint64)}
}

// FrameRendered records one completed frame: its cell count and the wall
// time the render took.
func (m *Metrics) FrameRendered(cells int, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.framesTotal++
	m.cellsTotal += uint64(cells)
	m.durSum += seconds
	m.durCount++
	// Buckets are cumulative, the way the exposition format wants them.
	for i, bound := range DurationBuckets {
		if seconds <= bound {
			m.durBuckets[i]++
		}
	}
}

// RenderError counts one rejected or failed request by its error code.
func (m *Metrics) RenderError(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorsByCode[code]++
}

func (m *Metrics) SessionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions++
}

func (m *Metrics) SessionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions--
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	FramesTotal    uint64
	CellsTotal     uint64
	ErrorsByCode   map[string]uint64
	ActiveSessions int64

	DurationSum     float64
	DurationCount   uint64
	DurationBuckets [len(DurationBuckets)]uint64
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		FramesTotal:     m.framesTotal,
		CellsTotal:      m.cellsTotal,
		ErrorsByCode:    make(map[string]uint64, len(m.errorsByCode)),
		ActiveSessions:  m.sessions,
		DurationSum:     m.durSum,
		DurationCount:   m.durCount,
		DurationBuckets: m.durBuckets,
	}
	for code, n := range m.errorsByCode {
		s.ErrorsByCode[code] = n
	}
	return s
}
