package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"voxray.dev/internal/metrics"
	"voxray.dev/internal/persistence/framelog"
	"voxray.dev/internal/persistence/indexdb"
	"voxray.dev/internal/render"
	"voxray.dev/internal/transport/ws"
	"voxray.dev/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite frame index (frame log still written)")
		disableLog = flag.Bool("disable_framelog", false, "disable the jsonl.zst frame log")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if _, err := os.Stat(*tuningPath); os.IsNotExist(err) {
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
	}
	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	var frameLog *framelog.Writer
	if !*disableLog {
		frameLog = framelog.NewWriter(filepath.Join(*dataDir, "frames"))
		defer frameLog.Close()
	}

	var idx *indexdb.Index
	if !*disableDB {
		idx, err = indexdb.Open(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open frame index: %v", err)
		}
		defer idx.Close()
	}

	met := metrics.New()
	renderer := render.New(tune)
	sink := &recordSink{frames: frameLog, idx: idx, log: logger}
	wsSrv := ws.NewServer(renderer, tune, met, sink, logger)

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, met.Snapshot())
	})

	enableAdminHTTP := envBool("VOXRAY_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("VOXRAY_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/stats", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if idx == nil {
				http.Error(rw, "frame index disabled", http.StatusServiceUnavailable)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			stats, err := idx.Stats(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "stats": stats})
		})
	} else {
		logger.Printf("admin endpoints disabled (VOXRAY_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (VOXRAY_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/render", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (grid limit %dx%d, trace dist %.1f)",
		*addr, tune.MaxCols, tune.MaxRows, tune.MaxTraceDist)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// recordSink fans one request record out to the frame log and the sqlite
// index. Either side may be absent.
type recordSink struct {
	frames *framelog.Writer
	idx    *indexdb.Index
	log    *log.Logger
}

func (s *recordSink) Record(rec framelog.Record) {
	if s.frames != nil {
		if err := s.frames.Record(rec); err != nil {
			s.log.Printf("frame log: %v", err)
		}
	}
	if s.idx != nil {
		s.idx.Insert(rec)
	}
}

func writeMetrics(rw http.ResponseWriter, s metrics.Snapshot) {
	fmt.Fprintf(rw, "# HELP voxray_frames_total Total frames rendered.\n")
	fmt.Fprintf(rw, "# TYPE voxray_frames_total counter\n")
	fmt.Fprintf(rw, "voxray_frames_total %d\n", s.FramesTotal)

	fmt.Fprintf(rw, "# HELP voxray_cells_total Total pixel cells rendered.\n")
	fmt.Fprintf(rw, "# TYPE voxray_cells_total counter\n")
	fmt.Fprintf(rw, "voxray_cells_total %d\n", s.CellsTotal)

	fmt.Fprintf(rw, "# HELP voxray_render_errors_total Rejected or failed requests by code.\n")
	fmt.Fprintf(rw, "# TYPE voxray_render_errors_total counter\n")
	for _, code := range sortedCodes(s.ErrorsByCode) {
		fmt.Fprintf(rw, "voxray_render_errors_total{code=%q} %d\n", code, s.ErrorsByCode[code])
	}

	fmt.Fprintf(rw, "# HELP voxray_sessions_active Currently open render sessions.\n")
	fmt.Fprintf(rw, "# TYPE voxray_sessions_active gauge\n")
	fmt.Fprintf(rw, "voxray_sessions_active %d\n", s.ActiveSessions)

	fmt.Fprintf(rw, "# HELP voxray_render_duration_seconds Wall time per rendered frame.\n")
	fmt.Fprintf(rw, "# TYPE voxray_render_duration_seconds histogram\n")
	for i, bound := range metrics.DurationBuckets {
		le := strconv.FormatFloat(bound, 'g', -1, 64)
		fmt.Fprintf(rw, "voxray_render_duration_seconds_bucket{le=%q} %d\n", le, s.DurationBuckets[i])
	}
	fmt.Fprintf(rw, "voxray_render_duration_seconds_bucket{le=\"+Inf\"} %d\n", s.DurationCount)
	fmt.Fprintf(rw, "voxray_render_duration_seconds_sum %.6f\n", s.DurationSum)
	fmt.Fprintf(rw, "voxray_render_duration_seconds_count %d\n", s.DurationCount)
}

func sortedCodes(m map[string]uint64) []string {
	out := make([]string, 0, len(m))
	for code := range m {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
