package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ConfigFile(t *testing.T) {
	got, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != Default() {
		t.Fatalf("configs/tuning.yaml drifted from defaults: %+v", got)
	}
}

func TestLoad_PartialFileNormalized(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("boost_turns: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.BoostTurns != 3 {
		t.Fatalf("boost: got %d want 3", got.BoostTurns)
	}
	if got.PathHistoryLength != 20 || got.MinedHistoryWindow != 100 {
		t.Fatalf("defaults not applied: %+v", got)
	}
}
