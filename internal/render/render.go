// Package render turns one validated request into one frame. Rendering is
// a pure function of the request and the tuning constants: no state
// survives between calls and concurrent renders share nothing mutable.
package render

import (
	"fmt"
	"runtime"
	"sync"

	"voxray.dev/internal/frame"
	"voxray.dev/internal/raycast"
	"voxray.dev/internal/tuning"
	"voxray.dev/internal/voxel"
)

// Request is the render input: the sparse world, the viewer position and
// the output grid size. Each request is self-contained.
type Request struct {
	Entries []voxel.Entry
	Viewer  raycast.Vec3
	Cols    int
	Rows    int
}

// Renderer casts rays for whole frames. It is safe for concurrent use;
// every call builds its own world and frame.
type Renderer struct {
	tun     tuning.Tuning
	shader  frame.Shader
	workers int
}

func New(tun tuning.Tuning) *Renderer {
	workers := tun.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Renderer{
		tun:     tun,
		shader:  frame.NewShader(tun.BucketNear, tun.BucketMid),
		workers: workers,
	}
}

// Render validates req, builds the world and traces one ray per cell.
// Invalid input is rejected before any ray is cast; a request that passes
// validation always yields a complete frame.
//
// Rows are fanned out to workers and every worker writes only its own row
// slices, so scheduling order never changes the output and identical
// requests produce byte-identical frames.
func (r *Renderer) Render(req Request) (*frame.Frame, error) {
	if err := r.validate(req); err != nil {
		return nil, err
	}
	world, err := voxel.Build(req.Entries)
	if err != nil {
		return nil, err
	}

	f := frame.New(req.Cols, req.Rows)
	gen := raycast.NewGenerator(req.Viewer, req.Cols, req.Rows, r.tun.HFOVDeg, r.tun.VFOVDeg)

	workers := r.workers
	if workers > req.Rows {
		workers = req.Rows
	}

	rows := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rows {
				out := f.Row(row)
				for col := 0; col < req.Cols; col++ {
					hit, ok := raycast.Trace(world, gen.At(col, row), r.tun.MaxTraceDist)
					out[col] = r.shader.Shade(hit, ok)
				}
			}
		}()
	}
	for row := 0; row < req.Rows; row++ {
		rows <- row
	}
	close(rows)
	wg.Wait()

	return f, nil
}

func (r *Renderer) validate(req Request) error {
	if req.Cols < 1 || req.Rows < 1 {
		return fmt.Errorf("%w: grid %dx%d not positive", voxel.ErrInvalidWorld, req.Cols, req.Rows)
	}
	if req.Cols > r.tun.MaxCols || req.Rows > r.tun.MaxRows {
		return fmt.Errorf("%w: grid %dx%d exceeds %dx%d limit",
			voxel.ErrInvalidWorld, req.Cols, req.Rows, r.tun.MaxCols, r.tun.MaxRows)
	}
	if !req.Viewer.Finite() {
		return fmt.Errorf("%w: viewer position not finite", voxel.ErrInvalidWorld)
	}
	return nil
}
