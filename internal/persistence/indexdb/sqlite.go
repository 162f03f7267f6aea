package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxray.dev/internal/persistence/framelog"
)

// Index is a derived sqlite view over the frame log, feeding the admin
// stats endpoint. A single goroutine applies writes; when it falls behind
// the channel drops records and the frame log keeps the full stream.
type Index struct {
	db *sql.DB

	ch   chan framelog.Record
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Index{
		db: db,
		// Room for frame bursts from many monitors without stalling the
		// render path.
		ch: make(chan framelog.Record, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			unix_ms INTEGER NOT NULL,
			remote TEXT,
			id TEXT,
			cols INTEGER NOT NULL,
			rows INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			voxels INTEGER NOT NULL,
			encoding TEXT,
			digest TEXT,
			render_ms REAL NOT NULL,
			code TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_frames_unix_ms ON frames(unix_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_frames_encoding ON frames(encoding);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Insert queues one record. It never blocks; a saturated queue drops.
func (s *Index) Insert(rec framelog.Record) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- rec:
	default:
		// Drop if the indexer falls behind; the frame log remains the
		// source of truth.
	}
}

func (s *Index) loop() {
	insert, _ := s.db.Prepare(`INSERT INTO frames
		(unix_ms,remote,id,cols,rows,cells,voxels,encoding,digest,render_ms,code)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 512
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(context.Background(), nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	idle := time.NewTicker(250 * time.Millisecond)
	defer idle.Stop()

	for {
		select {
		case rec, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil || insert == nil {
				continue
			}
			if _, err := tx.Stmt(insert).Exec(
				rec.UnixMS,
				rec.Remote,
				rec.ID,
				rec.Cols,
				rec.Rows,
				rec.Cells,
				rec.Voxels,
				rec.Encoding,
				rec.Digest,
				rec.RenderMS,
				rec.Code,
			); err != nil {
				rollback()
				continue
			}
			opCount++
			if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		case <-idle.C:
			// Release the connection between bursts so admin queries can
			// run against a quiet database.
			commit()
		}
	}
}

// Stats are the aggregates served by /admin/v1/stats.
type Stats struct {
	Frames       int64            `json:"frames"`
	Rejected     int64            `json:"rejected"`
	Cells        int64            `json:"cells"`
	MeanRenderMS float64          `json:"mean_render_ms"`
	ByEncoding   map[string]int64 `json:"by_encoding"`
}

func (s *Index) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByEncoding: map[string]int64{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(cells),0), COALESCE(AVG(render_ms),0)
		FROM frames WHERE code = ''`).
		Scan(&st.Frames, &st.Cells, &st.MeanRenderMS)
	if err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM frames WHERE code != ''`).Scan(&st.Rejected); err != nil {
		return st, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT encoding, COUNT(*) FROM frames WHERE code = '' GROUP BY encoding`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var enc string
		var n int64
		if err := rows.Scan(&enc, &n); err != nil {
			return st, err
		}
		st.ByEncoding[enc] = n
	}
	return st, rows.Err()
}
