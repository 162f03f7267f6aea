package raycast

import "math"

// Ray is a view ray: a world-space origin and a unit direction.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// Generator derives one ray per output grid cell for a viewer at a fixed
// position facing north (-Z). Column 0 is the left edge of the view (+X),
// row 0 is the top (+Y). Angles are spread linearly across the field of
// view and sampled at pixel centers, so a 1x1 grid yields the exact
// forward ray.
type Generator struct {
	origin     Vec3
	cols, rows int
	hFOV, vFOV float64
}

// NewGenerator builds a generator for a cols x rows grid. The fields of
// view are in degrees; both dimensions must be at least 1.
func NewGenerator(origin Vec3, cols, rows int, hFOVDeg, vFOVDeg float64) Generator {
	return Generator{
		origin: origin,
		cols:   cols,
		rows:   rows,
		hFOV:   hFOVDeg * math.Pi / 180,
		vFOV:   vFOVDeg * math.Pi / 180,
	}
}

func (g Generator) Cols() int { return g.cols }
func (g Generator) Rows() int { return g.rows }

// At returns the ray for one grid cell. The yaw angle runs from +hFOV/2 at
// the left edge to -hFOV/2 at the right, pitch from +vFOV/2 at the top to
// -vFOV/2 at the bottom.
func (g Generator) At(col, row int) Ray {
	yaw := g.hFOV/2 - (float64(col)+0.5)*g.hFOV/float64(g.cols)
	pitch := g.vFOV/2 - (float64(row)+0.5)*g.vFOV/float64(g.rows)

	sinYaw, cosYaw := math.Sincos(yaw)
	sinPitch, cosPitch := math.Sincos(pitch)

	return Ray{
		Origin: g.origin,
		Dir: Vec3{
			X: cosPitch * sinYaw,
			Y: sinPitch,
			Z: -cosPitch * cosYaw,
		},
	}
}

// Each calls fn once per grid cell in row-major order: row 0 left to
// right, then row 1, and so on.
func (g Generator) Each(fn func(col, row int, r Ray)) {
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			fn(col, row, g.At(col, row))
		}
	}
}
