package frame

import (
	"voxray.dev/internal/raycast"
	"voxray.dev/internal/voxel"
)

// PaletteSize is the number of codes in the display palette. Terminal
// monitors have exactly 16 configurable colour slots.
const PaletteSize = 16

// SkyCode is the background code for rays that reach no occupied cell.
const SkyCode uint8 = 9

// PaletteRGB maps each palette code to the 0xRRGGBB colour the monitor
// should program into that slot before drawing frames. Slots 13-15 keep
// the terminal defaults; the shader never emits them.
var PaletteRGB = [PaletteSize]uint32{
	0:  0xf0f0f0, // white, the blit foreground filler
	1:  0x73b349, // grass near
	2:  0x5f9f35, // grass mid
	3:  0x509026, // grass far
	4:  0x966c4a, // dirt near
	5:  0x79553a, // dirt mid
	6:  0x593d29, // dirt far
	7:  0x3266cc, // water near
	8:  0x4c32cc, // water mid and far
	9:  0x99b2f2, // sky
	10: 0x8f8f8f, // stone near
	11: 0x747474, // stone mid
	12: 0x686868, // stone far
	13: 0x57a64e,
	14: 0xcc4c4c,
	15: 0x111111,
}

// shadeTable picks the palette code for a hit material by distance bucket
// (near, mid, far). Rows only get darker left to right, so longer
// distances never brighten a cell.
var shadeTable = [voxel.NumMaterials][3]uint8{
	voxel.Air:   {SkyCode, SkyCode, SkyCode},
	voxel.Stone: {10, 11, 12},
	voxel.Grass: {1, 2, 3},
	voxel.Dirt:  {4, 5, 6},
	voxel.Water: {7, 8, 8},
}

// Shader maps traversal results to palette codes. Hit distances fall into
// three bands split at the near and mid boundaries.
type Shader struct {
	nearMax, midMax float64
}

func NewShader(nearMax, midMax float64) Shader {
	return Shader{nearMax: nearMax, midMax: midMax}
}

// Bucket returns 0, 1 or 2 for the near, mid and far distance bands.
// Boundaries are inclusive on the near side.
func (s Shader) Bucket(dist float64) int {
	switch {
	case dist <= s.nearMax:
		return 0
	case dist <= s.midMax:
		return 1
	default:
		return 2
	}
}

// Shade converts one traversal result to a palette code. The mapping is
// total: every material and the miss case produce a code.
func (s Shader) Shade(hit raycast.Hit, ok bool) uint8 {
	if !ok {
		return SkyCode
	}
	return shadeTable[hit.Material][s.Bucket(hit.Distance)]
}
