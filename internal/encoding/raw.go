package encoding

import "encoding/base64"

// EncodeRaw packs a byte payload as plain base64. Used for the raw code
// buffer and for blit strings, which carry bytes above 0x7f.
func EncodeRaw(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeRaw reverses EncodeRaw.
func DecodeRaw(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
