package app

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"matchreplay.ai/internal/config"
	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/sim/tuning"
	"matchreplay.ai/internal/sim/worldtest"
	"matchreplay.ai/internal/wire"
)

func TestMatchID(t *testing.T) {
	cases := map[string]string{
		"data/finals.match.zst": "finals",
		"x/y.zst":               "y",
		"plain":                 "plain",
	}
	for in, want := range cases {
		if got := MatchID(in); got != want {
			t.Fatalf("%s: got %q want %q", in, got, want)
		}
	}
}

func TestStatic_MissingFilesUseDefaults(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Data.MetadataPath = filepath.Join(dir, "none.yaml")
	cfg.Data.TuningPath = filepath.Join(dir, "none.yaml")
	cfg.Player.SnapshotStride = 7

	meta, tun, err := Static(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Static: %v", err)
	}
	if meta.MaxHealth(metadata.Headquarters) != metadata.Default().MaxHealth(metadata.Headquarters) {
		t.Fatalf("metadata not defaulted")
	}
	if tun.SnapshotStride != 7 || tun.PathHistoryLength != tuning.Default().PathHistoryLength {
		t.Fatalf("tuning: %+v", tun)
	}
}

func TestStatic_MalformedTuning(t *testing.T) {
	cfg := config.Default()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("path_history_length: [oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg.Data.MetadataPath = ""
	cfg.Data.TuningPath = p
	if _, _, err := Static(cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for malformed tuning")
	}
}

func TestOpenMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skirmish.match.zst")
	if err := wire.WriteMatch(path, worldtest.Skirmish(6)); err != nil {
		t.Fatalf("WriteMatch: %v", err)
	}
	m, w, err := OpenMatch(path, metadata.Default(), tuning.Default(), nil)
	if err != nil {
		t.Fatalf("OpenMatch: %v", err)
	}
	if m.MaxRound() != 6 || w.Turn() != 0 || w.Bodies().Len() != 2 {
		t.Fatalf("match rounds=%d turn=%d bodies=%d", m.MaxRound(), w.Turn(), w.Bodies().Len())
	}
}
