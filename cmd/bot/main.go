package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"voxray.dev/internal/encoding"
	"voxray.dev/internal/protocol"
	"voxray.dev/internal/voxel"
)

// Glyphs for the ASCII dump, indexed by pixel code. Sky is blank; each
// material fades with its shade bucket.
var glyphs = [16]byte{
	0:  '#',
	1:  '@', 2: 'o', 3: '.',
	4:  '%', 5: '=', 6: '-',
	7:  '~', 8: 'w',
	9:  ' ',
	10: 'H', 11: 'h', 12: ':',
	13: '?', 14: '?', 15: '?',
}

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/render", "ws url")
		name     = flag.String("name", "bot", "client name")
		cols     = flag.Int("cols", 64, "output grid columns")
		rows     = flag.Int("rows", 48, "output grid rows")
		enc      = flag.String("encoding", protocol.EncodingCodes, "frame encoding (CODES, RLE, BLIT)")
		frames   = flag.Int("frames", 0, "stop after this many frames (0 = run until interrupt)")
		interval = flag.Duration("interval", 500*time.Millisecond, "delay between requests")
		ascii    = flag.Bool("ascii", false, "dump each frame as ASCII art (CODES and RLE only)")
		dumpReq  = flag.String("dump_request", "", "write one RENDER request JSON to this path and exit")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	if *dumpReq != "" {
		req := renderRequest("r-0", demoScene(), viewerAt(0), *cols, *rows, *enc)
		b, err := json.MarshalIndent(req, "", "  ")
		if err != nil {
			logger.Fatalf("marshal request: %v", err)
		}
		if err := os.WriteFile(*dumpReq, append(b, '\n'), 0o644); err != nil {
			logger.Fatalf("write request: %v", err)
		}
		logger.Printf("wrote %s (%d voxels)", *dumpReq, len(req.World))
		return
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Capabilities: protocol.HelloCapabilities{
			Encodings: []string{*enc},
			MaxQueue:  8,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil {
		logger.Fatalf("parse WELCOME: %v", err)
	}
	logger.Printf("WELCOME session=%s limits=%dx%d fov=%.1fx%.1f trace=%.1f",
		welcome.SessionID, welcome.Limits.MaxCols, welcome.Limits.MaxRows,
		welcome.RenderParams.HFOVDeg, welcome.RenderParams.VFOVDeg,
		welcome.RenderParams.MaxTraceDist)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	scene := demoScene()
	for n := 0; *frames == 0 || n < *frames; n++ {
		select {
		case <-stop:
			return
		default:
		}

		req := renderRequest(fmt.Sprintf("r-%04d", n), scene, viewerAt(n), *cols, *rows, *enc)
		if err := conn.WriteJSON(req); err != nil {
			logger.Fatalf("send RENDER: %v", err)
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			logger.Printf("unparseable reply: %v", err)
			continue
		}
		switch base.Type {
		case protocol.TypeFrame:
			var fm protocol.FrameMsg
			if err := json.Unmarshal(msg, &fm); err != nil {
				logger.Printf("parse FRAME: %v", err)
				continue
			}
			logger.Printf("FRAME id=%s %dx%d enc=%s digest=%s render_ms=%.3f",
				fm.ID, fm.Cols, fm.Rows, fm.Encoding, fm.Digest, fm.RenderMS)
			if *ascii {
				dumpASCII(logger, &fm)
			}
		case protocol.TypeError:
			var em protocol.ErrorMsg
			if err := json.Unmarshal(msg, &em); err != nil {
				continue
			}
			logger.Printf("ERROR id=%s code=%s message=%s", em.ID, em.Code, em.Message)
		default:
			logger.Printf("unexpected reply type %q", base.Type)
		}

		time.Sleep(*interval)
	}
}

// viewerAt walks the camera toward the scene: a slow dolly along -Z with a
// sinusoidal sideways sweep. The camera always faces north, so motion is what
// makes the demo move.
func viewerAt(step int) [3]float64 {
	t := float64(step)
	return [3]float64{
		4 * math.Sin(t/12),
		2.5,
		14 - math.Mod(t/2, 22),
	}
}

func renderRequest(id string, scene []voxel.Entry, viewer [3]float64, cols, rows int, enc string) protocol.RenderMsg {
	return protocol.RenderMsg{
		Type:            protocol.TypeRender,
		ProtocolVersion: protocol.Version,
		ID:              id,
		World:           scene,
		Viewer:          viewer,
		Grid:            protocol.GridSpec{Cols: cols, Rows: rows},
		Encoding:        enc,
	}
}

// demoScene builds a small fixed diorama: a grass slab on dirt, a stone
// column, and a water pool sunk into the grass.
func demoScene() []voxel.Entry {
	var out []voxel.Entry
	put := func(x, y, z int, block string) {
		out = append(out, voxel.Entry{Pos: [3]int{x, y, z}, Block: block})
	}

	for x := -10; x <= 10; x++ {
		for z := -24; z <= 2; z++ {
			surface := "GRASS"
			if x >= 2 && x <= 6 && z >= -14 && z <= -10 {
				surface = "WATER"
			}
			put(x, 0, z, surface)
			put(x, -1, z, "DIRT")
		}
	}

	for y := 1; y <= 5; y++ {
		put(-4, y, -16, "STONE")
		put(-5, y, -16, "STONE")
	}
	put(-4, 6, -16, "STONE")

	return out
}

func dumpASCII(logger *log.Logger, fm *protocol.FrameMsg) {
	var codes []uint8
	var err error
	switch fm.Encoding {
	case protocol.EncodingCodes:
		codes, err = encoding.DecodeRaw(fm.Data)
	case protocol.EncodingRLE:
		codes, err = encoding.DecodeRLE(fm.Data, fm.Cols*fm.Rows)
	default:
		logger.Printf("ascii dump: unsupported encoding %q", fm.Encoding)
		return
	}
	if err != nil {
		logger.Printf("ascii dump: decode: %v", err)
		return
	}
	if len(codes) != fm.Cols*fm.Rows {
		logger.Printf("ascii dump: got %d cells for %dx%d", len(codes), fm.Cols, fm.Rows)
		return
	}

	line := make([]byte, fm.Cols)
	for row := 0; row < fm.Rows; row++ {
		for col := 0; col < fm.Cols; col++ {
			line[col] = glyphs[codes[row*fm.Cols+col]&0x0F]
		}
		fmt.Println(string(line))
	}
}
