// Package encoding holds the wire codecs for frame payloads. Payloads are
// base64 strings so they embed directly in JSON messages.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a run of palette codes into base64(varint pairs).
// The pairs are (code, run_len) repeated. Rendered frames are dominated
// by sky and ground runs, so this is usually far smaller than the raw
// buffer.
func EncodeRLE(codes []uint8) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(codes) {
		c := codes[i]
		run := 1
		for j := i + 1; j < len(codes) && codes[j] == c; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(c))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE expands a base64(varint pairs) payload back into palette
// codes. limit caps the expanded size; a payload that would exceed it is
// rejected so a hostile run length cannot balloon memory.
func DecodeRLE(b64 string, limit int) ([]uint8, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint8
	for i := 0; i < len(raw); {
		c, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if c > 0xFF {
			return nil, fmt.Errorf("palette code too large: %d", c)
		}
		if run > uint64(limit-len(out)) {
			return nil, fmt.Errorf("run overflows %d cells", limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint8(c))
		}
	}
	return out, nil
}
