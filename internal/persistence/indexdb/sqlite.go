// Package indexdb keeps a queryable SQLite index of replayed matches: one
// row per match, one per round and one per saved snapshot.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"matchreplay.ai/internal/persistence/log"
	"matchreplay.ai/internal/persistence/snapshot"
	"matchreplay.ai/internal/wire"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropMatch    atomic.Uint64
	dropRound    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqMatch reqKind = iota + 1
	reqRound
	reqSnapshot
)

type req struct {
	kind reqKind

	match    matchRow
	round    log.RoundEntry
	snapshot snapshotRow
}

type matchRow struct {
	ID         string
	Name       string
	Map        string
	Rounds     int32
	Winner     int32
	Seed       int32
	Width      int32
	Height     int32
	TeamsJSON  string
	RecordedAt string
}

type snapshotRow struct {
	Match      string
	Round      int32
	Path       string
	Digest     string
	RecordedAt string
}

// QueueStats reports writer queue pressure.
type QueueStats struct {
	QueueDepth        int
	QueueCapacity     int
	DropMatchTotal    uint64
	DropRoundTotal    uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			map TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			winner INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			teams_json TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			match TEXT NOT NULL,
			round INTEGER NOT NULL,
			digest TEXT NOT NULL,
			bodies INTEGER NOT NULL,
			spawned INTEGER NOT NULL,
			died INTEGER NOT NULL,
			actions INTEGER NOT NULL,
			teams_json TEXT NOT NULL,
			PRIMARY KEY (match, round)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			match TEXT NOT NULL,
			round INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (match, round)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() QueueStats {
	return QueueStats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropMatchTotal:    s.dropMatch.Load(),
		DropRoundTotal:    s.dropRound.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// RecordMatch indexes a match's header and footer under id.
func (s *SQLiteIndex) RecordMatch(id string, m *wire.Match) {
	if s == nil || s.closed.Load() || m == nil || m.Header == nil {
		return
	}
	teams, _ := json.Marshal(m.Header.Teams)
	r := matchRow{
		ID:         id,
		Name:       id,
		Map:        m.Header.MapName,
		Rounds:     m.MaxRound(),
		Seed:       m.Header.RandomSeed,
		Width:      m.Header.Width(),
		Height:     m.Header.Height(),
		TeamsJSON:  string(teams),
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if m.Footer != nil {
		r.Winner = m.Footer.Winner
	}
	select {
	case s.ch <- req{kind: reqMatch, match: r}:
	default:
		s.dropMatch.Add(1)
	}
}

// RecordRound indexes one round log entry. Entries are dropped when the
// writer falls behind; the round log remains the source of truth.
func (s *SQLiteIndex) RecordRound(e log.RoundEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqRound, round: e}:
	default:
		s.dropRound.Add(1)
	}
}

func (s *SQLiteIndex) RecordSnapshot(path string, h snapshot.Header) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Match:      h.Match,
		Round:      h.Round,
		Path:       path,
		Digest:     h.Digest,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertMatch, _ := s.db.Prepare(`INSERT OR REPLACE INTO matches(id,name,map,rounds,winner,seed,width,height,teams_json,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertRound, _ := s.db.Prepare(`INSERT OR REPLACE INTO rounds(match,round,digest,bodies,spawned,died,actions,teams_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(match,round,path,digest,recorded_at) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertMatch, insertRound, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
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
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqMatch:
			m := r.match
			exec(insertMatch, m.ID, m.Name, m.Map, m.Rounds, m.Winner, m.Seed, m.Width, m.Height, m.TeamsJSON, m.RecordedAt)
		case reqRound:
			e := r.round
			teams, _ := json.Marshal(e.Teams)
			exec(insertRound, e.Match, e.Round, e.Digest, e.Bodies, len(e.Spawned), len(e.Died), e.Actions, string(teams))
		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, sn.Match, sn.Round, sn.Path, sn.Digest, sn.RecordedAt)
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
