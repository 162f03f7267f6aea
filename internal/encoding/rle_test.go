package encoding

import (
	"bytes"
	"testing"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint8, 0, 200)
	in = append(in, 9, 9, 9, 1, 1, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 10)
	}
	in = append(in, 4, 7, 7, 7)

	enc := EncodeRLE(in)
	out, err := DecodeRLE(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_Empty(t *testing.T) {
	out, err := DecodeRLE(EncodeRLE(nil), 0)
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty, got %d codes", len(out))
	}
}

func TestRLE_RejectsOversizedRun(t *testing.T) {
	in := make([]uint8, 100)
	enc := EncodeRLE(in)
	if _, err := DecodeRLE(enc, 99); err == nil {
		t.Fatal("expected error for run past the cell limit")
	}
}

func TestRLE_RejectsGarbage(t *testing.T) {
	if _, err := DecodeRLE("not base64!!", 10); err == nil {
		t.Fatal("expected base64 error")
	}
	// 0x80 starts a varint that never terminates.
	if _, err := DecodeRLE(EncodeRaw([]byte{0x80}), 10); err == nil {
		t.Fatal("expected varint error")
	}
}

func TestRaw_RoundTrip(t *testing.T) {
	in := []byte{157, '3', '7', 0, 128, 255}
	out, err := DecodeRaw(EncodeRaw(in))
	if err != nil {
		t.Fatalf("DecodeRaw: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Fatalf("round trip: got %v want %v", out, in)
	}
}
