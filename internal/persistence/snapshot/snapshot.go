// Package snapshot persists a replay World at one round so a viewer can
// resume without replaying from round 0.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

var ErrVersion = errors.New("unsupported snapshot version")

// Header is written as a JSON line ahead of the gob body so tools can read
// it without decoding the whole snapshot.
type Header struct {
	Version int    `json:"version"`
	Match   string `json:"match"`
	Round   int32  `json:"round"`
	Digest  string `json:"digest"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Winner int32 `json:"winner"`

	Bodies TableV1 `json:"bodies"`
	Died   TableV1 `json:"died"`
	Dots   TableV1 `json:"dots"`
	Lines  TableV1 `json:"lines"`

	Strings   map[int32]string `json:"strings,omitempty"`
	Paths     []PathV1         `json:"paths"`
	Teams     []TeamV1         `json:"teams"`
	Map       MapV1            `json:"map"`
	Wells     []WellV1         `json:"wells"`
	Islands   []IslandV1       `json:"islands"`
	Effects   []EffectV1       `json:"effects,omitempty"`
	Transient []int32          `json:"transient,omitempty"`
}

type TableV1 struct {
	IDs     []int32   `json:"ids"`
	Columns [][]int32 `json:"columns"`
}

type PathV1 struct {
	ID int32 `json:"id"`
	// Points holds x,y pairs, most recent first.
	Points []int32 `json:"points"`
}

type TeamV1 struct {
	ID           int32        `json:"id"`
	Robots       []int32      `json:"robots"`
	TotalHP      []int64      `json:"total_hp"`
	Resources    []int32      `json:"resources"`
	Change       []int32      `json:"change"`
	Mined        []int32      `json:"mined"`
	MinedHistory [][]int32    `json:"mined_history"`
	Income       [][]IncomeV1 `json:"income"`
}

type IncomeV1 struct {
	Round   int32   `json:"round"`
	Average float64 `json:"average"`
}

type MapV1 struct {
	Name         string  `json:"name"`
	MinX         int32   `json:"min_x"`
	MinY         int32   `json:"min_y"`
	Width        int32   `json:"width"`
	Height       int32   `json:"height"`
	Symmetry     int32   `json:"symmetry"`
	RandomSeed   int32   `json:"random_seed"`
	MaxRounds    int32   `json:"max_rounds"`
	Walls        []bool  `json:"walls,omitempty"`
	Clouds       []bool  `json:"clouds,omitempty"`
	Currents     []int32 `json:"currents,omitempty"`
	WellLayout   []int32 `json:"well_layout,omitempty"`
	IslandLayout []int32 `json:"island_layout,omitempty"`
}

type WellV1 struct {
	Loc        int32 `json:"loc"`
	Resource   int32 `json:"resource"`
	Adamantium int32 `json:"adamantium"`
	Mana       int32 `json:"mana"`
	Elixir     int32 `json:"elixir"`
	Upgraded   bool  `json:"upgraded,omitempty"`
}

type IslandV1 struct {
	ID           int32   `json:"id"`
	Owner        int32   `json:"owner"`
	FlipProgress int32   `json:"flip_progress"`
	Accelerated  bool    `json:"accelerated,omitempty"`
	Cells        []int32 `json:"cells"`
	AuraCells    []int32 `json:"aura_cells"`
}

type EffectV1 struct {
	Kind           int32 `json:"kind"`
	TurnsRemaining int32 `json:"turns_remaining"`
	Team           int32 `json:"team"`
	Loc            int32 `json:"loc"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := write(f, &snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func write(f *os.File, snap *SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	hdr, err := readHeader(br)
	if err != nil {
		return snap, err
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header != hdr {
		return snap, fmt.Errorf("snapshot header line %+v disagrees with body %+v", hdr, snap.Header)
	}
	return snap, nil
}

// ReadHeader returns only the header line of a snapshot file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, err
	}
	defer dec.Close()
	return readHeader(bufio.NewReader(dec))
}

func readHeader(br *bufio.Reader) (Header, error) {
	var hdr Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return hdr, fmt.Errorf("snapshot header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, fmt.Errorf("snapshot header: %w", err)
	}
	if hdr.Version != Version {
		return hdr, fmt.Errorf("%w: %d", ErrVersion, hdr.Version)
	}
	return hdr, nil
}
