package log

import (
	"path/filepath"
	"testing"

	"matchreplay.ai/internal/sim/worldtest"
)

func TestRoundLogger_WriteRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "roundlog")
	m := worldtest.Skirmish(SegmentRounds + 20)
	w := worldtest.NewWorld(t, m)

	l := NewRoundLogger(dir)
	var digests []string
	for id := int32(1); id <= m.MaxRound(); id++ {
		worldtest.ApplyThrough(t, w, m, id)
		e := EntryFor("skirmish", w, m.Round(id))
		digests = append(digests, e.Digest)
		if err := l.WriteRound(e); err != nil {
			t.Fatalf("WriteRound(%d): %v", id, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "rounds-*.jsonl.zst"))
	if len(files) != 2 {
		t.Fatalf("segment files: got %d want 2", len(files))
	}

	got, err := ReadRounds(dir)
	if err != nil {
		t.Fatalf("ReadRounds: %v", err)
	}
	if len(got) != len(digests) {
		t.Fatalf("entries: got %d want %d", len(got), len(digests))
	}
	for i, e := range got {
		if e.Round != int32(i+1) || e.Digest != digests[i] {
			t.Fatalf("entry %d: round=%d digest match=%v", i, e.Round, e.Digest == digests[i])
		}
	}
	if e := got[4]; len(e.Spawned) != 2 || e.Match != "skirmish" || len(e.Teams) != 2 {
		t.Fatalf("round 5 entry: %+v", e)
	}
}

func TestReadRounds_Empty(t *testing.T) {
	got, err := ReadRounds(t.TempDir())
	if err != nil || len(got) != 0 {
		t.Fatalf("empty dir: %v %v", got, err)
	}
}
