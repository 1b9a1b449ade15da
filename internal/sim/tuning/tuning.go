package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds replay bookkeeping constants. Zero values are replaced by
// defaults in Normalize.
type Tuning struct {
	PathHistoryLength  int `yaml:"path_history_length"`
	MinedHistoryWindow int `yaml:"mined_history_window"`
	IncomeSampleEvery  int `yaml:"income_sample_every"`
	AuraRadius         int `yaml:"aura_radius"`
	DestabilizeTurns   int `yaml:"destabilize_turns"`
	BoostTurns         int `yaml:"boost_turns"`
	SnapshotStride     int `yaml:"snapshot_stride"`
}

func Default() Tuning {
	return Tuning{
		PathHistoryLength:  20,
		MinedHistoryWindow: 100,
		IncomeSampleEvery:  10,
		AuraRadius:         2,
		DestabilizeTurns:   4,
		BoostTurns:         9,
		SnapshotStride:     50,
	}
}

func (t Tuning) Normalize() Tuning {
	d := Default()
	if t.PathHistoryLength <= 0 {
		t.PathHistoryLength = d.PathHistoryLength
	}
	if t.MinedHistoryWindow <= 0 {
		t.MinedHistoryWindow = d.MinedHistoryWindow
	}
	if t.IncomeSampleEvery <= 0 {
		t.IncomeSampleEvery = d.IncomeSampleEvery
	}
	if t.AuraRadius <= 0 {
		t.AuraRadius = d.AuraRadius
	}
	if t.DestabilizeTurns <= 0 {
		t.DestabilizeTurns = d.DestabilizeTurns
	}
	if t.BoostTurns <= 0 {
		t.BoostTurns = d.BoostTurns
	}
	if t.SnapshotStride <= 0 {
		t.SnapshotStride = d.SnapshotStride
	}
	return t
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.Normalize(), nil
}
