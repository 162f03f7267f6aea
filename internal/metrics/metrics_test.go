package metrics

import (
	"sync"
	"testing"
)

func TestMetrics_FrameCounters(t *testing.T) {
	m := New()
	m.FrameRendered(100, 0.0004)
	m.FrameRendered(200, 0.002)
	m.FrameRendered(300, 0.2)

	s := m.Snapshot()
	if s.FramesTotal != 3 {
		t.Fatalf("frames: got %d want 3", s.FramesTotal)
	}
	if s.CellsTotal != 600 {
		t.Fatalf("cells: got %d want 600", s.CellsTotal)
	}
	if s.DurationCount != 3 {
		t.Fatalf("duration count: got %d want 3", s.DurationCount)
	}
}

func TestMetrics_HistogramBucketsCumulative(t *testing.T) {
	m := New()
	m.FrameRendered(1, 0.0004) // inside every bucket
	m.FrameRendered(1, 0.004)  // from le=0.005 up
	m.FrameRendered(1, 0.05)   // from le=0.05 up, boundary inclusive
	m.FrameRendered(1, 3)      // only the implicit +Inf bucket

	s := m.Snapshot()
	want := [len(DurationBuckets)]uint64{1, 1, 2, 2, 3, 3}
	if s.DurationBuckets != want {
		t.Fatalf("buckets: got %v want %v", s.DurationBuckets, want)
	}
	if s.DurationCount != 4 {
		t.Fatalf("count: got %d want 4", s.DurationCount)
	}
}

func TestMetrics_ErrorsByCode(t *testing.T) {
	m := New()
	m.RenderError("E_INVALID_WORLD")
	m.RenderError("E_INVALID_WORLD")
	m.RenderError("E_PROTO_BAD_REQUEST")

	s := m.Snapshot()
	if s.ErrorsByCode["E_INVALID_WORLD"] != 2 {
		t.Fatalf("invalid world count: got %d want 2", s.ErrorsByCode["E_INVALID_WORLD"])
	}
	if s.ErrorsByCode["E_PROTO_BAD_REQUEST"] != 1 {
		t.Fatalf("bad request count: got %d want 1", s.ErrorsByCode["E_PROTO_BAD_REQUEST"])
	}

	// The snapshot map is a copy, not a view.
	s.ErrorsByCode["E_INTERNAL"] = 99
	if m.Snapshot().ErrorsByCode["E_INTERNAL"] != 0 {
		t.Fatal("mutating a snapshot should not touch the live counters")
	}
}

func TestMetrics_Sessions(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	if got := m.Snapshot().ActiveSessions; got != 1 {
		t.Fatalf("sessions: got %d want 1", got)
	}
}

func TestMetrics_ConcurrentUpdates(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.FrameRendered(10, 0.001)
				m.RenderError("E_INTERNAL")
			}
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	if s.FramesTotal != 800 {
		t.Fatalf("frames: got %d want 800", s.FramesTotal)
	}
	if s.ErrorsByCode["E_INTERNAL"] != 800 {
		t.Fatalf("errors: got %d want 800", s.ErrorsByCode["E_INTERNAL"])
	}
}
