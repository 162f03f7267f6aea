package raycast

import (
	"math"

	"voxray.dev/internal/voxel"
)

// Face identifies the boundary plane a ray crossed when it entered its hit
// cell.
type Face uint8

const (
	FaceX Face = iota
	FaceY
	FaceZ
)

func (f Face) String() string {
	switch f {
	case FaceX:
		return "x"
	case FaceY:
		return "y"
	case FaceZ:
		return "z"
	}
	return "?"
}

// Hit describes the first occupied cell a ray reached.
type Hit struct {
	Cell     voxel.Coord
	Material voxel.Material
	Distance float64
	Face     Face
}

// axisState carries the per-axis traversal bookkeeping: the current cell
// index, the step direction, the ray distance between successive boundary
// planes of this axis, and the distance at which the next plane is crossed.
type axisState struct {
	cell   int
	step   int
	tDelta float64
	tMax   float64
}

func axisOf(start, dir float64) axisState {
	st := axisState{cell: int(math.Floor(start))}
	switch {
	case dir > 0:
		st.step = 1
		st.tDelta = 1 / dir
		st.tMax = (math.Floor(start) + 1 - start) * st.tDelta
	case dir < 0:
		st.step = -1
		st.tDelta = 1 / -dir
		st.tMax = (start - math.Floor(start)) * st.tDelta
	default:
		// Parallel to this axis: its planes are never crossed.
		st.tDelta = math.Inf(1)
		st.tMax = math.Inf(1)
	}
	return st
}

// Trace walks r cell by cell through w and returns the first occupied cell
// whose entry distance does not exceed maxDist. Dir must be unit length so
// entry distances are world units. When the origin already sits inside an
// occupied cell the hit distance is 0 and the face is FaceY.
//
// When two or three boundary planes are crossed at the same distance the
// axes advance one at a time in X, Y, Z priority order, so corner
// crossings visit cells in a fixed order regardless of evaluation timing.
func Trace(w *voxel.World, r Ray, maxDist float64) (Hit, bool) {
	ax := axisOf(r.Origin.X, r.Dir.X)
	ay := axisOf(r.Origin.Y, r.Dir.Y)
	az := axisOf(r.Origin.Z, r.Dir.Z)

	cell := voxel.Coord{X: ax.cell, Y: ay.cell, Z: az.cell}
	if m := w.MaterialAt(cell); m != voxel.Air {
		return Hit{Cell: cell, Material: m, Distance: 0, Face: FaceY}, true
	}

	for {
		var (
			t    float64
			face Face
		)
		switch {
		case ax.tMax <= ay.tMax && ax.tMax <= az.tMax:
			t = ax.tMax
			ax.cell += ax.step
			ax.tMax += ax.tDelta
			face = FaceX
		case ay.tMax <= az.tMax:
			t = ay.tMax
			ay.cell += ay.step
			ay.tMax += ay.tDelta
			face = FaceY
		default:
			t = az.tMax
			az.cell += az.step
			az.tMax += az.tDelta
			face = FaceZ
		}
		if t > maxDist {
			return Hit{}, false
		}
		cell = voxel.Coord{X: ax.cell, Y: ay.cell, Z: az.cell}
		if m := w.MaterialAt(cell); m != voxel.Air {
			return Hit{Cell: cell, Material: m, Distance: t, Face: face}, true
		}
	}
}
