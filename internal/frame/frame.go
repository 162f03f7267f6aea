// Package frame holds the rendered image types: the row-major code buffer,
// the shader that fills it, and the teletext packing used by terminal
// monitors.
package frame

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Frame is one rendered image: a palette code per display cell, row-major
// with row 0 first.
type Frame struct {
	Cols, Rows int
	Codes      []uint8
}

// New allocates a zeroed frame. Cells default to palette code 0.
func New(cols, rows int) *Frame {
	return &Frame{Cols: cols, Rows: rows, Codes: make([]uint8, cols*rows)}
}

func (f *Frame) At(col, row int) uint8 {
	return f.Codes[row*f.Cols+col]
}

func (f *Frame) Set(col, row int, code uint8) {
	f.Codes[row*f.Cols+col] = code
}

// Row returns one row of the frame as a subslice of the code buffer.
func (f *Frame) Row(row int) []uint8 {
	return f.Codes[row*f.Cols : (row+1)*f.Cols]
}

// Digest is a checksum over the code buffer. Clients compare it against
// the decoded payload to catch reassembly mistakes.
func (f *Frame) Digest() uint64 {
	return xxhash.Sum64(f.Codes)
}

// PaletteDigest identifies the palette table in use so clients can detect
// drift between server and monitor colour setup.
func PaletteDigest() uint64 {
	var buf [PaletteSize * 4]byte
	for i, c := range PaletteRGB {
		binary.BigEndian.PutUint32(buf[i*4:], c)
	}
	return xxhash.Sum64(buf[:])
}
