// Command framestat summarises rotated frame log files offline: totals,
// per-encoding and per-error breakdowns, and the time span covered. It reads
// the same frames-*.jsonl.zst files the server writes, so it works on copied
// or archived logs without a running server or its sqlite index.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"voxray.dev/internal/persistence/framelog"
)

func main() {
	var (
		dir        = flag.String("dir", "./data/frames", "frame log directory (ignored when files are given as args)")
		perRecord  = flag.Bool("records", false, "print one line per record")
		minRenders = flag.Float64("slow_ms", 0, "with -records, only print frames at or above this render_ms")
	)
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		var err error
		files, err = filepath.Glob(filepath.Join(*dir, "frames-*.jsonl.zst"))
		if err != nil || len(files) == 0 {
			fmt.Fprintf(os.Stderr, "no frame logs under %s\n", *dir)
			os.Exit(2)
		}
		sort.Strings(files)
	}

	var (
		frames, rejected int
		cells            uint64
		renderMSSum      float64
		firstMS, lastMS  int64
		byEncoding       = map[string]int{}
		byCode           = map[string]int{}
	)

	for _, path := range files {
		recs, err := framelog.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
		fileFrames, fileRejected := 0, 0
		for _, rec := range recs {
			if firstMS == 0 || rec.UnixMS < firstMS {
				firstMS = rec.UnixMS
			}
			if rec.UnixMS > lastMS {
				lastMS = rec.UnixMS
			}
			if rec.Code != "" {
				rejected++
				fileRejected++
				byCode[rec.Code]++
				continue
			}
			frames++
			fileFrames++
			cells += uint64(rec.Cells)
			renderMSSum += rec.RenderMS
			byEncoding[rec.Encoding]++

			if *perRecord && rec.RenderMS >= *minRenders {
				fmt.Printf("%s id=%-10s %4dx%-4d enc=%-5s voxels=%-6d render_ms=%7.3f digest=%s\n",
					time.UnixMilli(rec.UnixMS).UTC().Format(time.RFC3339),
					rec.ID, rec.Cols, rec.Rows, rec.Encoding, rec.Voxels, rec.RenderMS, rec.Digest)
			}
		}
		fmt.Printf("%s: %d records (%d frames, %d rejected)\n",
			filepath.Base(path), len(recs), fileFrames, fileRejected)
	}

	fmt.Printf("\nframes=%d rejected=%d cells=%d\n", frames, rejected, cells)
	if frames > 0 {
		fmt.Printf("mean_render_ms=%.3f\n", renderMSSum/float64(frames))
	}
	for _, enc := range sortedKeys(byEncoding) {
		fmt.Printf("encoding %-5s %d\n", enc, byEncoding[enc])
	}
	for _, code := range sortedKeys(byCode) {
		fmt.Printf("rejected %-20s %d\n", code, byCode[code])
	}
	if firstMS != 0 {
		fmt.Printf("span %s .. %s\n",
			time.UnixMilli(firstMS).UTC().Format(time.RFC3339),
			time.UnixMilli(lastMS).UTC().Format(time.RFC3339))
	}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
