package gameworld

import (
	"testing"

	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/sim/tuning"
	"matchreplay.ai/internal/wire"
)

func scriptedWorld(t *testing.T) *World {
	t.Helper()
	h := &wire.Header{MapName: "copy", MaxX: 8, MaxY: 8}
	h.Islands = make([]int32, h.Area())
	h.Islands[9] = 1
	h.ResourceWells = make([]int32, h.Area())
	h.ResourceWells[20] = WellMana
	h.Bodies.Append(1, 1, int32(metadata.Headquarters), 0, 0)
	h.Bodies.Append(2, 2, int32(metadata.Carrier), 3, 3)

	w := New(metadata.Default(), tuning.Default(), nil)
	if err := w.LoadInitialState(h); err != nil {
		t.Fatalf("LoadInitialState: %v", err)
	}
	r := &wire.Round{RoundID: 1}
	r.Moved = wire.MoveTable{IDs: []int32{2}, Xs: []int32{4}, Ys: []int32{3}}
	r.Actions.Append(2, int32(ActionChangeMana), 3)
	r.Actions.Append(2, int32(ActionLaunchAttack), 1)
	r.Actions.Append(1, int32(ActionBoost), EncodeLocation(10))
	r.Dots = wire.DotTable{IDs: []int32{2}, Xs: []int32{1}, Ys: []int32{1}, Red: []int32{1}, Green: []int32{1}, Blue: []int32{1}}
	r.Strings = wire.StringTable{IDs: []int32{2}, Values: []string{"hi"}}
	if err := w.ApplyRound(r); err != nil {
		t.Fatalf("ApplyRound: %v", err)
	}
	return w
}

func TestCopy_Independent(t *testing.T) {
	a := scriptedWorld(t)
	want := a.Digest()
	b := a.Copy()
	if b.Digest() != want {
		t.Fatalf("copy digest differs from source")
	}

	if err := b.bodies.Set(2, BodyHP, 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	b.dots.Clear()
	b.strings[2] = "changed"
	b.paths[2][0] = Point{X: 7, Y: 7}
	b.paths[2] = append(b.paths[2], Point{X: 6, Y: 6})
	b.teams[1].Robots[0] = 99
	b.teams[2].MinedHistory[Mana].Push(1000)
	b.teams[2].Income[Mana] = append(b.teams[2].Income[Mana], IncomeSample{Round: 1})
	b.mapst.Wells[20].Mana = 55
	b.mapst.Islands[1].Cells[0] = 63
	b.mapst.Islands[1].AuraCells[63] = struct{}{}
	b.mapst.Islands[1].Owner = 2
	b.mapst.Effects[0].TurnsRemaining = 100
	b.mapst.Walls = append(b.mapst.Walls, true)
	b.transient[0] = 42
	b.turn = 7

	if got := a.Digest(); got != want {
		t.Fatalf("mutating the copy changed the source")
	}
	if a.paths[2][0] != (Point{X: 4, Y: 3}) || len(a.paths[2]) != 2 {
		t.Fatalf("source path: %v", a.paths[2])
	}
	if a.teams[2].MinedHistory[Mana].Len() != 1 {
		t.Fatalf("source ring length: %d", a.teams[2].MinedHistory[Mana].Len())
	}
	if _, ok := a.mapst.Islands[1].AuraCells[63]; ok {
		t.Fatalf("aura set shared")
	}
}

func TestCopyFrom_Overwrites(t *testing.T) {
	a := scriptedWorld(t)
	b := New(metadata.Default(), tuning.Default(), nil)
	b.strings[99] = "stale"
	b.mapst.Wells[1] = &WellStat{Resource: WellAdamantium}
	b.CopyFrom(a)
	if b.Digest() != a.Digest() {
		t.Fatalf("CopyFrom digest differs")
	}
	if _, ok := b.strings[99]; ok {
		t.Fatalf("stale string survived CopyFrom")
	}

	r := &wire.Round{RoundID: 2, DiedIDs: []int32{2}}
	if err := b.ApplyRound(r); err != nil {
		t.Fatalf("ApplyRound on copy: %v", err)
	}
	if a.turn != 1 || a.bodies.Len() != 2 {
		t.Fatalf("source advanced with copy: turn=%d bodies=%d", a.turn, a.bodies.Len())
	}
}

func TestRing_Bound(t *testing.T) {
	r := NewRing(100)
	var sum int64
	for i := int32(1); i <= 250; i++ {
		r.Push(i)
		if i > 150 {
			sum += int64(i)
		}
	}
	if r.Len() != 100 {
		t.Fatalf("len: got %d want 100", r.Len())
	}
	if got, want := r.Mean(), float64(sum)/100; got != want {
		t.Fatalf("mean: got %v want %v", got, want)
	}
	if v := r.Values(); v[0] != 151 || v[99] != 250 {
		t.Fatalf("values: first=%d last=%d", v[0], v[99])
	}
	if NewRing(3).Mean() != 0 {
		t.Fatalf("empty ring mean not zero")
	}
}

func TestMining_IncomeSamples(t *testing.T) {
	tun := tuning.Default()
	tun.MinedHistoryWindow = 4
	tun.IncomeSampleEvery = 2
	w := New(metadata.Default(), tun, nil)
	h := &wire.Header{MapName: "mine", MaxX: 4, MaxY: 4}
	h.Bodies.Append(3, 1, int32(metadata.Carrier), 0, 0)
	if err := w.LoadInitialState(h); err != nil {
		t.Fatalf("LoadInitialState: %v", err)
	}
	for id := int32(1); id <= 6; id++ {
		r := &wire.Round{RoundID: id}
		r.Teams = wire.TeamResourceTable{TeamIDs: []int32{1}, Adamantium: []int32{0}, Mana: []int32{0}, Elixir: []int32{0}}
		r.Actions.Append(3, int32(ActionChangeAdamantium), id*10)
		if err := w.ApplyRound(r); err != nil {
			t.Fatalf("ApplyRound(%d): %v", id, err)
		}
	}
	inc := w.teams[1].Income[Adamantium]
	if len(inc) != 3 {
		t.Fatalf("samples: %+v", inc)
	}
	// Round 6 window holds 30,40,50,60.
	if inc[2].Round != 6 || inc[2].Average != 45 {
		t.Fatalf("round 6 sample: %+v", inc[2])
	}
	if inc[0].Average != 15 {
		t.Fatalf("round 2 sample: %+v", inc[0])
	}
}
