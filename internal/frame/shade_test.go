package frame

import (
	"testing"

	"voxray.dev/internal/raycast"
	"voxray.dev/internal/voxel"
)

func luminance(rgb uint32) float64 {
	r := float64((rgb >> 16) & 0xff)
	g := float64((rgb >> 8) & 0xff)
	b := float64(rgb & 0xff)
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func TestShade_Total(t *testing.T) {
	s := NewShader(12, 28)

	if got := s.Shade(raycast.Hit{}, false); got != SkyCode {
		t.Fatalf("miss: got %d want %d", got, SkyCode)
	}
	for m := voxel.Material(0); m < voxel.NumMaterials; m++ {
		for _, d := range []float64{0, 5, 12, 20, 28, 40, 63.9} {
			code := s.Shade(raycast.Hit{Material: m, Distance: d}, true)
			if code >= PaletteSize {
				t.Fatalf("material %v at %v: code %d outside palette", m, d, code)
			}
		}
	}
}

func TestShade_BucketBoundaries(t *testing.T) {
	s := NewShader(12, 28)
	cases := []struct {
		dist float64
		want int
	}{
		{0, 0}, {11.9, 0}, {12, 0}, {12.0001, 1}, {28, 1}, {28.0001, 2}, {64, 2},
	}
	for _, c := range cases {
		if got := s.Bucket(c.dist); got != c.want {
			t.Fatalf("bucket(%v): got %d want %d", c.dist, got, c.want)
		}
	}
}

func TestShade_DistanceNeverBrightens(t *testing.T) {
	s := NewShader(12, 28)
	dists := []float64{0, 3, 12, 15, 28, 30, 60}

	for m := voxel.Stone; m < voxel.NumMaterials; m++ {
		prev := luminance(PaletteRGB[s.Shade(raycast.Hit{Material: m, Distance: dists[0]}, true)])
		for _, d := range dists[1:] {
			cur := luminance(PaletteRGB[s.Shade(raycast.Hit{Material: m, Distance: d}, true)])
			if cur > prev {
				t.Fatalf("material %v brightens between buckets: %v then %v", m, prev, cur)
			}
			prev = cur
		}
	}
}

func TestShade_DistinctNearCodes(t *testing.T) {
	s := NewShader(12, 28)
	seen := map[uint8]voxel.Material{}
	for m := voxel.Stone; m < voxel.NumMaterials; m++ {
		code := s.Shade(raycast.Hit{Material: m, Distance: 1}, true)
		if other, dup := seen[code]; dup {
			t.Fatalf("materials %v and %v share near code %d", other, m, code)
		}
		if code == SkyCode {
			t.Fatalf("material %v shades to the sky code", m)
		}
		seen[code] = m
	}
}
