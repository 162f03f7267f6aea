package frame

import (
	"bytes"
	"testing"
)

func fillCell(f *Frame, cx, cy int, codes [6]uint8) {
	i := 0
	for dy := 0; dy < 3; dy++ {
		for dx := 0; dx < 2; dx++ {
			f.Set(cx*2+dx, cy*3+dy, codes[i])
			i++
		}
	}
}

func TestCanBlit(t *testing.T) {
	if !New(324, 237).CanBlit() {
		t.Fatal("324x237 should pack into 2x3 cells")
	}
	if New(3, 3).CanBlit() || New(2, 4).CanBlit() {
		t.Fatal("dimensions off the 2x3 lattice should not blit")
	}
}

func TestBlit_UniformCell(t *testing.T) {
	f := New(2, 3)
	fillCell(f, 0, 0, [6]uint8{9, 9, 9, 9, 9, 9})

	got := f.Blit()
	want := []byte{' ', '0', '9'}
	if !bytes.Equal(got, want) {
		t.Fatalf("uniform cell: got %v want %v", got, want)
	}
}

func TestBlit_TwoColourCell(t *testing.T) {
	// Subpixels row by row: 3 7 / 3 3 / 3 7. The sixth subpixel carries
	// the minority colour, so the character's set bits mark the majority
	// and the colour pair comes out swapped.
	f := New(2, 3)
	fillCell(f, 0, 0, [6]uint8{3, 7, 3, 3, 3, 7})

	got := f.Blit()
	want := []byte{157, '3', '7'}
	if !bytes.Equal(got, want) {
		t.Fatalf("two-colour cell: got %v want %v", got, want)
	}
}

func TestBlit_ThirdColourApproximated(t *testing.T) {
	// Rows: 1 1 / 2 2 / 2 5. Colour 5 appears once and is absorbed into
	// the background side of the character.
	f := New(2, 3)
	fillCell(f, 0, 0, [6]uint8{1, 1, 2, 2, 2, 5})

	got := f.Blit()
	want := []byte{131, '1', '2'}
	if !bytes.Equal(got, want) {
		t.Fatalf("three-colour cell: got %v want %v", got, want)
	}
}

func TestBlit_CountTieFavoursLowerCode(t *testing.T) {
	// Both colours fill three subpixels; the lower code becomes the
	// background pick before the swap.
	f := New(2, 3)
	fillCell(f, 0, 0, [6]uint8{4, 6, 4, 6, 4, 6})

	got := f.Blit()
	want := []byte{149, '4', '6'}
	if !bytes.Equal(got, want) {
		t.Fatalf("tied cell: got %v want %v", got, want)
	}
}

func TestBlit_RowLayout(t *testing.T) {
	// Two character cells side by side: text bytes, then foreground hex,
	// then background hex for the whole row.
	f := New(4, 3)
	fillCell(f, 0, 0, [6]uint8{9, 9, 9, 9, 9, 9})
	fillCell(f, 1, 0, [6]uint8{12, 12, 12, 12, 12, 12})

	got := f.Blit()
	want := []byte{' ', ' ', '0', '0', '9', 'c'}
	if !bytes.Equal(got, want) {
		t.Fatalf("row layout: got %v want %v", got, want)
	}
}

func TestBlit_MultipleCharacterRows(t *testing.T) {
	f := New(2, 6)
	fillCell(f, 0, 0, [6]uint8{1, 1, 1, 1, 1, 1})
	fillCell(f, 0, 1, [6]uint8{2, 2, 2, 2, 2, 2})

	got := f.Blit()
	want := []byte{' ', '0', '1', ' ', '0', '2'}
	if !bytes.Equal(got, want) {
		t.Fatalf("two rows: got %v want %v", got, want)
	}
}

func TestBlit_OutputSize(t *testing.T) {
	f := New(324, 237)
	if got, want := len(f.Blit()), (324/2)*(237/3)*3; got != want {
		t.Fatalf("payload size: got %d want %d", got, want)
	}
}
