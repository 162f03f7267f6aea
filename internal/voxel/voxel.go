// Package voxel defines the block materials and the per-request world model.
package voxel

import (
	"errors"
	"fmt"
	"sort"
)

// Material is one of the fixed set of block kinds a cell can hold. The set is
// closed: shading tables index by Material and cover every value, so adding a
// material means extending those tables too.
type Material uint8

const (
	Air Material = iota
	Stone
	Grass
	Dirt
	Water

	// NumMaterials bounds Material values; keep it last.
	NumMaterials
)

var materialTags = [NumMaterials]string{
	Air:   "AIR",
	Stone: "STONE",
	Grass: "GRASS",
	Dirt:  "DIRT",
	Water: "WATER",
}

func (m Material) String() string {
	if m < NumMaterials {
		return materialTags[m]
	}
	return fmt.Sprintf("MATERIAL(%d)", uint8(m))
}

// ParseMaterial maps a wire tag to a Material. ok is false for tags outside
// the fixed set.
func ParseMaterial(tag string) (m Material, ok bool) {
	for i, t := range materialTags {
		if t == tag {
			return Material(i), true
		}
	}
	return Air, false
}

// Coord identifies a unit cell in world space.
type Coord struct {
	X, Y, Z int
}

// Entry is one (coordinate, block) pair as supplied by a render request.
type Entry struct {
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
}

// ErrInvalidWorld reports malformed request input: contradictory cell entries,
// unknown block tags, or out-of-range output dimensions. It is always detected
// before any rendering work starts.
var ErrInvalidWorld = errors.New("invalid world")

// World is the sparse cell→material lookup for one request. It is built once,
// never mutated afterwards, and owned by a single request's pipeline.
//
// Invariant: every stored cell holds a non-Air material; absent cells are Air.
type World struct {
	cells map[Coord]Material
}

// Build validates the request entries and constructs the lookup.
//
// A coordinate may be listed more than once only if every listing agrees on
// the material. AIR entries are legal and occupy nothing, but still conflict
// with a non-AIR entry at the same coordinate.
func Build(entries []Entry) (*World, error) {
	cells := make(map[Coord]Material, len(entries))
	for _, e := range entries {
		m, ok := ParseMaterial(e.Block)
		if !ok {
			return nil, fmt.Errorf("%w: unknown block %q at (%d,%d,%d)", ErrInvalidWorld, e.Block, e.Pos[0], e.Pos[1], e.Pos[2])
		}
		c := Coord{e.Pos[0], e.Pos[1], e.Pos[2]}
		if prev, seen := cells[c]; seen && prev != m {
			return nil, fmt.Errorf("%w: cell (%d,%d,%d) listed as both %s and %s", ErrInvalidWorld, c.X, c.Y, c.Z, prev, m)
		}
		cells[c] = m
	}
	for c, m := range cells {
		if m == Air {
			delete(cells, c)
		}
	}
	return &World{cells: cells}, nil
}

// MaterialAt returns the material occupying c, or Air when c is empty. It
// never fails.
func (w *World) MaterialAt(c Coord) Material {
	return w.cells[c]
}

// Occupied reports how many cells hold a non-Air material.
func (w *World) Occupied() int {
	return len(w.cells)
}

// Coords returns the occupied coordinates in a fixed (X, Y, Z) order.
func (w *World) Coords() []Coord {
	out := make([]Coord, 0, len(w.cells))
	for c := range w.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].Z < out[j].Z
	})
	return out
}
