package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/websocket"

	"voxray.dev/internal/encoding"
	"voxray.dev/internal/frame"
	"voxray.dev/internal/metrics"
	"voxray.dev/internal/persistence/framelog"
	"voxray.dev/internal/protocol"
	"voxray.dev/internal/raycast"
	"voxray.dev/internal/render"
	"voxray.dev/internal/tuning"
	"voxray.dev/internal/voxel"
)

// Sink consumes one record per served request. Implementations own their
// error handling; the render path does not wait on them.
type Sink interface {
	Record(framelog.Record)
}

// Server serves render sessions over WebSocket and one-shot renders over
// plain POST on the same endpoint.
type Server struct {
	renderer *render.Renderer
	tun      tuning.Tuning
	met      *metrics.Metrics
	sink     Sink
	log      *log.Logger

	upgrader websocket.Upgrader
	nextSess atomic.Uint64
}

func NewServer(r *render.Renderer, tun tuning.Tuning, met *metrics.Metrics, sink Sink, logger *log.Logger) *Server {
	return &Server{
		renderer: r,
		tun:      tun,
		met:      met,
		sink:     sink,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			s.serveSession(rw, r)
			return
		}
		if r.Method == http.MethodPost {
			s.serveOneShot(rw, r)
			return
		}
		http.Error(rw, "websocket upgrade or POST required", http.StatusMethodNotAllowed)
	}
}

func (s *Server) serveSession(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.tun.MaxMessageBytes)

	sessID, out := s.handshake(conn)
	if sessID == "" {
		return
	}
	s.met.SessionOpened()
	defer s.met.SessionClosed()
	s.log.Printf("session %s open from %s", sessID, r.RemoteAddr)
	defer s.log.Printf("session %s closed", sessID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Writer goroutine.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-out:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Reader loop. Every parseable request gets exactly one FRAME or
	// ERROR answer; the connection survives rejected requests.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			cancel()
			return
		}

		base, err := protocol.DecodeBase(msg)
		if err != nil {
			s.reply(ctx, out, s.errorMsg("", protocol.ErrProtoBadRequest, "unparseable message"))
			continue
		}
		if base.Type != protocol.TypeRender {
			s.reply(ctx, out, s.errorMsg("", protocol.ErrProtoBadRequest,
				fmt.Sprintf("unexpected message type %q", base.Type)))
			continue
		}
		var req protocol.RenderMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			s.reply(ctx, out, s.errorMsg("", protocol.ErrProtoBadRequest, "malformed RENDER"))
			continue
		}
		if req.ProtocolVersion != "" && req.ProtocolVersion != protocol.Version {
			s.reply(ctx, out, s.errorMsg(req.ID, protocol.ErrProtoBadRequest, "bad protocol_version"))
			continue
		}

		frameMsg, errMsg := s.HandleRender(r.RemoteAddr, req)
		if errMsg != nil {
			s.reply(ctx, out, *errMsg)
			continue
		}
		s.reply(ctx, out, frameMsg)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return "", nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	sessID = fmt.Sprintf("s-%06d", s.nextSess.Add(1))
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessID,
		Limits: protocol.RenderLimits{
			MaxCols:         s.tun.MaxCols,
			MaxRows:         s.tun.MaxRows,
			MaxMessageBytes: s.tun.MaxMessageBytes,
		},
		RenderParams: protocol.RenderParams{
			HFOVDeg:      s.tun.HFOVDeg,
			VFOVDeg:      s.tun.VFOVDeg,
			MaxTraceDist: s.tun.MaxTraceDist,
		},
		Palette: protocol.DigestRef{
			Digest: protocol.FormatDigest(frame.PaletteDigest()),
			Count:  frame.PaletteSize,
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil
	}
	return sessID, out
}

func (s *Server) serveOneShot(rw http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(rw, r.Body, s.tun.MaxMessageBytes)

	var req protocol.RenderMsg
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeHTTPError(rw, http.StatusBadRequest,
			s.errorMsg("", protocol.ErrProtoBadRequest, "malformed RENDER"))
		return
	}
	if req.ProtocolVersion != "" && req.ProtocolVersion != protocol.Version {
		writeHTTPError(rw, http.StatusBadRequest,
			s.errorMsg(req.ID, protocol.ErrProtoBadRequest, "bad protocol_version"))
		return
	}

	frameMsg, errMsg := s.HandleRender(r.RemoteAddr, req)
	if errMsg != nil {
		status := http.StatusBadRequest
		if errMsg.Code == protocol.ErrInternal {
			status = http.StatusInternalServerError
		}
		writeHTTPError(rw, status, *errMsg)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(frameMsg)
}

// HandleRender serves one request end to end: validate, render, encode,
// account. It never panics the caller; internal failures come back as
// E_INTERNAL.
func (s *Server) HandleRender(remote string, req protocol.RenderMsg) (protocol.FrameMsg, *protocol.ErrorMsg) {
	enc := req.Encoding
	if enc == "" {
		enc = protocol.EncodingCodes
	}
	if !protocol.IsKnownEncoding(enc) {
		return protocol.FrameMsg{}, s.reject(remote, req, protocol.ErrProtoBadRequest,
			fmt.Sprintf("unknown encoding %q", req.Encoding))
	}
	if enc == protocol.EncodingBlit && (req.Grid.Cols%2 != 0 || req.Grid.Rows%3 != 0) {
		return protocol.FrameMsg{}, s.reject(remote, req, protocol.ErrProtoBadRequest,
			fmt.Sprintf("blit needs cols%%2==0 and rows%%3==0, got %dx%d", req.Grid.Cols, req.Grid.Rows))
	}

	start := time.Now()
	f, err := s.renderer.Render(render.Request{
		Entries: req.World,
		Viewer:  raycast.Vec3{X: req.Viewer[0], Y: req.Viewer[1], Z: req.Viewer[2]},
		Cols:    req.Grid.Cols,
		Rows:    req.Grid.Rows,
	})
	if err != nil {
		if errors.Is(err, voxel.ErrInvalidWorld) {
			return protocol.FrameMsg{}, s.reject(remote, req, protocol.ErrInvalidWorld, err.Error())
		}
		s.log.Printf("render %s: %v", req.ID, err)
		return protocol.FrameMsg{}, s.reject(remote, req, protocol.ErrInternal, "render failed")
	}
	elapsed := time.Since(start)

	msg := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		ID:              req.ID,
		Cols:            f.Cols,
		Rows:            f.Rows,
		Encoding:        enc,
		RenderMS:        float64(elapsed.Microseconds()) / 1000,
	}
	switch enc {
	case protocol.EncodingCodes:
		msg.Data = encoding.EncodeRaw(f.Codes)
		msg.Digest = protocol.FormatDigest(f.Digest())
	case protocol.EncodingRLE:
		msg.Data = encoding.EncodeRLE(f.Codes)
		msg.Digest = protocol.FormatDigest(f.Digest())
	case protocol.EncodingBlit:
		blit := f.Blit()
		msg.Cols = f.Cols / 2
		msg.Rows = f.Rows / 3
		msg.Data = encoding.EncodeRaw(blit)
		msg.Digest = protocol.FormatDigest(xxhash.Sum64(blit))
	}

	s.met.FrameRendered(len(f.Codes), elapsed.Seconds())
	s.record(framelog.Record{
		UnixMS:   time.Now().UnixMilli(),
		Remote:   remote,
		ID:       req.ID,
		Cols:     msg.Cols,
		Rows:     msg.Rows,
		Cells:    len(f.Codes),
		Voxels:   len(req.World),
		Encoding: enc,
		Digest:   msg.Digest,
		RenderMS: msg.RenderMS,
	})
	return msg, nil
}

func (s *Server) reject(remote string, req protocol.RenderMsg, code, message string) *protocol.ErrorMsg {
	s.met.RenderError(code)
	s.record(framelog.Record{
		UnixMS:   time.Now().UnixMilli(),
		Remote:   remote,
		ID:       req.ID,
		Cols:     req.Grid.Cols,
		Rows:     req.Grid.Rows,
		Voxels:   len(req.World),
		Encoding: req.Encoding,
		Code:     code,
	})
	m := s.errorMsg(req.ID, code, message)
	return &m
}

func (s *Server) errorMsg(id, code, message string) protocol.ErrorMsg {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
	}
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		ID:              id,
		Code:            code,
		Message:         message,
	}
}

func (s *Server) record(rec framelog.Record) {
	if s.sink != nil {
		s.sink.Record(rec)
	}
}

func (s *Server) reply(ctx context.Context, out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func writeHTTPError(rw http.ResponseWriter, status int, msg protocol.ErrorMsg) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(msg)
}
