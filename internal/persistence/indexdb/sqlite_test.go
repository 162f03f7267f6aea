package indexdb

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"voxray.dev/internal/persistence/framelog"
)

func TestIndex_InsertCloseReopenStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "frames.db")

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	idx.Insert(framelog.Record{UnixMS: 1, ID: "r1", Cols: 4, Rows: 3, Cells: 12,
		Voxels: 2, Encoding: "CODES", Digest: "0000000000000001", RenderMS: 2})
	idx.Insert(framelog.Record{UnixMS: 2, ID: "r2", Cols: 4, Rows: 3, Cells: 12,
		Voxels: 2, Encoding: "RLE", Digest: "0000000000000002", RenderMS: 4})
	idx.Insert(framelog.Record{UnixMS: 3, ID: "r3", Cols: 500, Rows: 3,
		Voxels: 2, Code: "E_INVALID_WORLD"})

	// Close drains the writer queue, so everything above is committed.
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()

	st, err := idx2.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Frames != 2 {
		t.Fatalf("frames: got %d want 2", st.Frames)
	}
	if st.Rejected != 1 {
		t.Fatalf("rejected: got %d want 1", st.Rejected)
	}
	if st.Cells != 24 {
		t.Fatalf("cells: got %d want 24", st.Cells)
	}
	if math.Abs(st.MeanRenderMS-3) > 1e-9 {
		t.Fatalf("mean render ms: got %v want 3", st.MeanRenderMS)
	}
	if st.ByEncoding["CODES"] != 1 || st.ByEncoding["RLE"] != 1 {
		t.Fatalf("by encoding: got %v", st.ByEncoding)
	}
}

func TestIndex_EmptyStats(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "frames.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	st, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Frames != 0 || st.Rejected != 0 || st.Cells != 0 {
		t.Fatalf("expected zero stats, got %+v", st)
	}
}

func TestIndex_InsertAfterCloseIsNoOp(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "frames.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Must not panic on the closed channel.
	idx.Insert(framelog.Record{UnixMS: 9, Cols: 1, Rows: 1, Cells: 1})
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
