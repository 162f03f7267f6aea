package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxray.dev/internal/protocol"
	"voxray.dev/internal/voxel"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", name))
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validate(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// asJSON round-trips a Go message through encoding/json so the schema sees
// exactly the bytes a peer would.
func asJSON(t *testing.T, msg any) any {
	t.Helper()
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return v
}

func TestSchemas_ValidateSamples(t *testing.T) {
	helloSchema := compileSchema(t, "hello.schema.json")
	welcomeSchema := compileSchema(t, "welcome.schema.json")
	renderSchema := compileSchema(t, "render.schema.json")
	frameSchema := compileSchema(t, "frame.schema.json")
	errorSchema := compileSchema(t, "error.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"monitor-7",
	  "capabilities":{"encodings":["BLIT","RLE"],"max_queue":4}
	}`), &hello)
	validate(t, helloSchema, hello)

	var render any
	_ = json.Unmarshal([]byte(`{
	  "type":"RENDER",
	  "protocol_version":"1.0",
	  "id":"r1",
	  "world":[
	    {"pos":[0,0,-6],"block":"STONE"},
	    {"pos":[1,-2,-6],"block":"GRASS"}
	  ],
	  "viewer":[0.5,0.5,0.5],
	  "grid":{"cols":324,"rows":237},
	  "encoding":"BLIT"
	}`), &render)
	validate(t, renderSchema, render)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "s-0001",
		Limits:          protocol.RenderLimits{MaxCols: 324, MaxRows: 237, MaxMessageBytes: 8 << 20},
		RenderParams:    protocol.RenderParams{HFOVDeg: 70, VFOVDeg: 52.5, MaxTraceDist: 64},
		Palette:         protocol.DigestRef{Digest: protocol.FormatDigest(0xabc), Count: 16},
	}
	validate(t, welcomeSchema, asJSON(t, welcome))

	frameMsg := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		ID:              "r1",
		Cols:            162,
		Rows:            79,
		Encoding:        protocol.EncodingBlit,
		Data:            "IDAx",
		Digest:          protocol.FormatDigest(0xdeadbeef),
		RenderMS:        1.62,
	}
	validate(t, frameSchema, asJSON(t, frameMsg))

	errMsg := protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		ID:              "r2",
		Code:            protocol.ErrInvalidWorld,
		Message:         "conflicting materials at (1,2,3)",
	}
	validate(t, errorSchema, asJSON(t, errMsg))
}

func TestSchemas_RejectMalformedRender(t *testing.T) {
	renderSchema := compileSchema(t, "render.schema.json")

	bad := []string{
		// grid missing
		`{"type":"RENDER","world":[],"viewer":[0,0,0]}`,
		// unknown block tag
		`{"type":"RENDER","world":[{"pos":[0,0,0],"block":"LAVA"}],"viewer":[0,0,0],"grid":{"cols":1,"rows":1}}`,
		// two-component position
		`{"type":"RENDER","world":[{"pos":[0,0],"block":"STONE"}],"viewer":[0,0,0],"grid":{"cols":1,"rows":1}}`,
		// zero cols
		`{"type":"RENDER","world":[],"viewer":[0,0,0],"grid":{"cols":0,"rows":1}}`,
	}
	for i, raw := range bad {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("case %d: unmarshal: %v", i, err)
		}
		if err := renderSchema.Validate(v); err == nil {
			t.Fatalf("case %d: expected schema rejection", i)
		}
	}
}

func TestSchemas_EntryShapeMatchesWire(t *testing.T) {
	// voxel.Entry is the struct the render schema's world items describe.
	raw, err := json.Marshal(voxel.Entry{Pos: [3]int{4, -1, -22}, Block: "WATER"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"pos":[4,-1,-22],"block":"WATER"}` {
		t.Fatalf("entry wire shape drifted: %s", raw)
	}
}
