// Package log writes per-round replay records as zstd-compressed JSONL.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"matchreplay.ai/internal/sim/gameworld"
	"matchreplay.ai/internal/wire"
)

// SegmentRounds is the number of rounds stored per log file.
const SegmentRounds = 500

// JSONLZstdWriter appends JSON lines to segment files under baseDir. A new
// file is started whenever the caller's segment key changes.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	curSeg int
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		curSeg:  -1,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(seg int, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if seg != w.curSeg {
		if err := w.rotateLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *JSONLZstdWriter) rotateLocked(seg int) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForSegment(seg), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = seg
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		err1 = w.w.Flush()
	}
	if w.enc != nil {
		if err := w.enc.Close(); err1 == nil {
			err1 = err
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	w.w = nil
	w.curSeg = -1
	return err1
}

func (w *JSONLZstdWriter) pathForSegment(seg int) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%06d.jsonl.zst", w.prefix, seg))
}

// RoundEntry is one line of the round log.
type RoundEntry struct {
	Match   string                  `json:"match"`
	Round   int32                   `json:"round"`
	Digest  string                  `json:"digest"`
	Bodies  int                     `json:"bodies"`
	Spawned []int32                 `json:"spawned,omitempty"`
	Died    []int32                 `json:"died,omitempty"`
	Actions int                     `json:"actions"`
	Effects int                     `json:"effects"`
	Teams   []gameworld.TeamSummary `json:"teams"`
}

// EntryFor describes w right after r was applied.
func EntryFor(match string, w *gameworld.World, r *wire.Round) RoundEntry {
	s := w.Summary()
	return RoundEntry{
		Match:   match,
		Round:   r.RoundID,
		Digest:  w.Digest(),
		Bodies:  s.Bodies,
		Spawned: append([]int32(nil), r.Spawned.IDs...),
		Died:    append([]int32(nil), r.DiedIDs...),
		Actions: len(r.Actions.RobotIDs),
		Effects: s.Effects,
		Teams:   s.Teams,
	}
}

// RoundLogger writes one entry per applied round.
type RoundLogger struct{ w *JSONLZstdWriter }

func NewRoundLogger(dir string) *RoundLogger {
	return &RoundLogger{w: NewJSONLZstdWriter(dir, "rounds")}
}

func (l *RoundLogger) WriteRound(e RoundEntry) error {
	return l.w.Write(int(e.Round)/SegmentRounds, e)
}

func (l *RoundLogger) Close() error { return l.w.Close() }

// ReadRounds loads every entry under dir in round order.
func ReadRounds(dir string) ([]RoundEntry, error) {
	names, err := filepath.Glob(filepath.Join(dir, "rounds-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []RoundEntry
	for _, name := range names {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		err = dec.Reset(f)
		if err == nil {
			out, err = readEntries(dec, out)
		}
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(name), err)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out, nil
}

func readEntries(dec *zstd.Decoder, out []RoundEntry) ([]RoundEntry, error) {
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e RoundEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
