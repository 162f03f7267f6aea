package protocol

import (
	"encoding/json"
	"fmt"
)

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeRender  = "RENDER"
	TypeFrame   = "FRAME"
	TypeError   = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// FormatDigest renders a frame or palette digest the way the wire carries
// it: 16 lowercase hex digits.
func FormatDigest(d uint64) string {
	return fmt.Sprintf("%016x", d)
}
