// Package metadata holds static per-match game constants: body types and
// teams. Values are read once and never mutated.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BodyType is the ordinal of a robot or structure kind.
type BodyType int32

const (
	Headquarters BodyType = iota
	Carrier
	Launcher
	Amplifier
	Booster
	Destabilizer

	NumBodyTypes = 6
)

func (t BodyType) String() string {
	switch t {
	case Headquarters:
		return "HEADQUARTERS"
	case Carrier:
		return "CARRIER"
	case Launcher:
		return "LAUNCHER"
	case Amplifier:
		return "AMPLIFIER"
	case Booster:
		return "BOOSTER"
	case Destabilizer:
		return "DESTABILIZER"
	}
	return fmt.Sprintf("BODY_TYPE(%d)", int32(t))
}

func (t BodyType) Valid() bool { return t >= 0 && t < NumBodyTypes }

type BodyTypeDef struct {
	Type                BodyType `yaml:"type"`
	Name                string   `yaml:"name"`
	Health              int32    `yaml:"health"`
	ActionRadiusSquared int32    `yaml:"action_radius_squared"`
	VisionRadiusSquared int32    `yaml:"vision_radius_squared"`
	BytecodeLimit       int32    `yaml:"bytecode_limit"`
}

type TeamDef struct {
	ID          int32  `yaml:"id"`
	Name        string `yaml:"name"`
	PackageName string `yaml:"package_name"`
}

type Metadata struct {
	SpecVersion string        `yaml:"spec_version"`
	BodyTypes   []BodyTypeDef `yaml:"body_types"`
	Teams       []TeamDef     `yaml:"teams"`

	Digest string `yaml:"-"`

	byType [NumBodyTypes]BodyTypeDef
}

func Load(path string) (*Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Metadata, error) {
	var m Metadata
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("metadata.yaml: %w", err)
	}
	sum := sha256.Sum256(raw)
	m.Digest = hex.EncodeToString(sum[:])
	if err := m.index(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metadata) index() error {
	var seen [NumBodyTypes]bool
	for _, d := range m.BodyTypes {
		if !d.Type.Valid() {
			return fmt.Errorf("metadata.yaml: unknown body type %d", int32(d.Type))
		}
		if seen[d.Type] {
			return fmt.Errorf("metadata.yaml: duplicate body type %s", d.Type)
		}
		if d.Health <= 0 {
			return fmt.Errorf("metadata.yaml: %s: health must be positive", d.Type)
		}
		seen[d.Type] = true
		m.byType[d.Type] = d
	}
	for t, ok := range seen {
		if !ok {
			return fmt.Errorf("metadata.yaml: missing body type %s", BodyType(t))
		}
	}
	return nil
}

// Default returns the built-in constants used when no metadata file is given.
func Default() *Metadata {
	m := &Metadata{
		SpecVersion: "1.0.0",
		BodyTypes: []BodyTypeDef{
			{Type: Headquarters, Name: "HEADQUARTERS", Health: 1_000_000, ActionRadiusSquared: 9, VisionRadiusSquared: 34, BytecodeLimit: 20000},
			{Type: Carrier, Name: "CARRIER", Health: 150, ActionRadiusSquared: 9, VisionRadiusSquared: 20, BytecodeLimit: 15000},
			{Type: Launcher, Name: "LAUNCHER", Health: 200, ActionRadiusSquared: 16, VisionRadiusSquared: 20, BytecodeLimit: 20000},
			{Type: Amplifier, Name: "AMPLIFIER", Health: 120, ActionRadiusSquared: 0, VisionRadiusSquared: 34, BytecodeLimit: 10000},
			{Type: Booster, Name: "BOOSTER", Health: 120, ActionRadiusSquared: 0, VisionRadiusSquared: 20, BytecodeLimit: 10000},
			{Type: Destabilizer, Name: "DESTABILIZER", Health: 120, ActionRadiusSquared: 13, VisionRadiusSquared: 20, BytecodeLimit: 10000},
		},
		Teams: []TeamDef{
			{ID: 1, Name: "A", PackageName: "teama"},
			{ID: 2, Name: "B", PackageName: "teamb"},
		},
		Digest: "builtin",
	}
	_ = m.index()
	return m
}

func (m *Metadata) BodyType(t BodyType) (BodyTypeDef, bool) {
	if !t.Valid() {
		return BodyTypeDef{}, false
	}
	return m.byType[t], true
}

// MaxHealth returns the spawn health of t, or 0 for an unknown type.
func (m *Metadata) MaxHealth(t BodyType) int32 {
	if !t.Valid() {
		return 0
	}
	return m.byType[t].Health
}

func (m *Metadata) TeamIDs() []int32 {
	out := make([]int32, 0, len(m.Teams))
	for _, t := range m.Teams {
		out = append(out, t.ID)
	}
	return out
}
