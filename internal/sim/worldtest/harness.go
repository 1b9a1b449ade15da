// Package worldtest builds scripted matches and replays them through a
// World for black-box tests.
package worldtest

import (
	"testing"

	"matchreplay.ai/internal/sim/gameworld"
	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/sim/tuning"
	"matchreplay.ai/internal/wire"
)

// Builder assembles a match round by round. Round ids are assigned in
// order starting at 1.
type Builder struct {
	m *wire.Match
}

// NewMatch starts an empty w×h map with teams 1 and 2.
func NewMatch(name string, w, h int32) *Builder {
	return &Builder{m: &wire.Match{Header: &wire.Header{
		MapName:   name,
		MaxX:      w,
		MaxY:      h,
		MaxRounds: 2000,
		Teams: []wire.TeamInfo{
			{ID: 1, Name: "A", PackageName: "teama"},
			{ID: 2, Name: "B", PackageName: "teamb"},
		},
	}}}
}

func (b *Builder) Header() *wire.Header { return b.m.Header }

// Body adds a body present at round 0.
func (b *Builder) Body(id, team int32, typ metadata.BodyType, x, y int32) *Builder {
	b.m.Header.Bodies.Append(id, team, int32(typ), x, y)
	return b
}

// Round appends the next round, letting fn fill in its tables.
func (b *Builder) Round(fn func(r *wire.Round)) *Builder {
	r := &wire.Round{RoundID: int32(len(b.m.Rounds) + 1)}
	if fn != nil {
		fn(r)
	}
	b.m.Rounds = append(b.m.Rounds, r)
	return b
}

// Rounds appends n rounds with no events.
func (b *Builder) Rounds(n int) *Builder {
	for i := 0; i < n; i++ {
		b.Round(nil)
	}
	return b
}

func (b *Builder) Winner(team int32) *Builder {
	b.m.Footer = &wire.Footer{Winner: team, TotalRounds: int32(len(b.m.Rounds))}
	return b
}

func (b *Builder) Match() *wire.Match { return b.m }

// NewWorld returns a World at round 0 of m with default metadata and tuning.
func NewWorld(t testing.TB, m *wire.Match) *gameworld.World {
	t.Helper()
	w := gameworld.New(metadata.Default(), tuning.Default(), nil)
	if err := w.LoadInitialState(m.Header); err != nil {
		t.Fatalf("LoadInitialState: %v", err)
	}
	return w
}

// ApplyThrough applies rounds Turn+1..round of m to w.
func ApplyThrough(t testing.TB, w *gameworld.World, m *wire.Match, round int32) {
	t.Helper()
	for id := w.Turn() + 1; id <= round; id++ {
		if err := w.ApplyRound(m.Round(id)); err != nil {
			t.Fatalf("ApplyRound(%d): %v", id, err)
		}
	}
}
