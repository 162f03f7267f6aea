package protocol

import "voxray.dev/internal/voxel"

// Frame payload encodings.
const (
	EncodingCodes = "CODES"
	EncodingRLE   = "RLE"
	EncodingBlit  = "BLIT"
)

// IsKnownEncoding accepts the empty string, which defaults to CODES.
func IsKnownEncoding(enc string) bool {
	switch enc {
	case "", EncodingCodes, EncodingRLE, EncodingBlit:
		return true
	}
	return false
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	// Encodings the client can decode, in preference order.
	Encodings []string `json:"encodings,omitempty"`
	MaxQueue  int      `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	SessionID       string       `json:"session_id"`
	Limits          RenderLimits `json:"limits"`
	RenderParams    RenderParams `json:"render_params"`
	Palette         DigestRef    `json:"palette"`
}

type RenderLimits struct {
	MaxCols         int   `json:"max_cols"`
	MaxRows         int   `json:"max_rows"`
	MaxMessageBytes int64 `json:"max_message_bytes"`
}

type RenderParams struct {
	HFOVDeg      float64 `json:"h_fov_deg"`
	VFOVDeg      float64 `json:"v_fov_deg"`
	MaxTraceDist float64 `json:"max_trace_dist"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// RENDER (client -> server): one self-contained render request. The world
// list is sparse; unlisted cells are air.
type RenderMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version,omitempty"`
	ID              string        `json:"id,omitempty"`
	World           []voxel.Entry `json:"world"`
	Viewer          [3]float64    `json:"viewer"`
	Grid            GridSpec      `json:"grid"`
	Encoding        string        `json:"encoding,omitempty"`
}

type GridSpec struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// FRAME (server -> client). Cols/Rows are pixel dimensions for CODES and
// RLE payloads and character-cell dimensions for BLIT.
type FrameMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ID              string  `json:"id,omitempty"`
	Cols            int     `json:"cols"`
	Rows            int     `json:"rows"`
	Encoding        string  `json:"encoding"`
	Data            string  `json:"data"`
	Digest          string  `json:"digest"`
	RenderMS        float64 `json:"render_ms"`
}

// ERROR (server -> client). The request it answers is rejected whole; the
// connection stays open.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
