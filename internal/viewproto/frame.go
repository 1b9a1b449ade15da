package viewproto

import (
	"sort"

	"matchreplay.ai/internal/sim/gameworld"
	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/sim/store"
	"matchreplay.ai/internal/wire"
)

// BuildFrame renders w as a frame. Bodies and dead bodies are sorted by id;
// indicators keep their drawing order.
func BuildFrame(match string, w *gameworld.World, maxRound int32) FrameMsg {
	f := FrameMsg{
		Type:            TypeFrame,
		ProtocolVersion: Version,
		Match:           match,
		Round:           w.Turn(),
		MaxRound:        maxRound,
		Winner:          w.Winner(),
		Bodies:          []BodyState{},
		Died:            []DeadBody{},
		Dots:            []Dot{},
		Lines:           []Line{},
		Teams:           w.Summary().Teams,
		Islands:         []IslandState{},
		Wells:           []WellState{},
		Effects:         []EffectState{},
	}
	if f.Teams == nil {
		f.Teams = []gameworld.TeamSummary{}
	}

	bodies := w.Bodies()
	ids := sortedIDs(bodies.IDs())
	for _, id := range ids {
		b, err := w.Body(id)
		if err != nil {
			continue
		}
		bs := BodyState{
			ID:        id,
			Team:      b.Team,
			Type:      b.Type.String(),
			Pos:       [2]int32{b.X, b.Y},
			HP:        b.HP,
			Bytecodes: b.Bytecodes,
			Action:    b.Action.String(),
			Carrying:  [3]int32{b.Adamantium, b.Mana, b.Elixir},
			Anchors:   [2]int32{b.StandardAnchors, b.AcceleratedAnchors},
		}
		if b.Action != gameworld.ActionNone {
			bs.Target = &[2]int32{b.TargetX, b.TargetY}
		}
		bs.Indicator, _ = w.IndicatorString(id)
		f.Bodies = append(f.Bodies, bs)
	}

	died := w.Died()
	for _, id := range sortedIDs(died.IDs()) {
		r, err := died.Lookup(id)
		if err != nil {
			continue
		}
		f.Died = append(f.Died, DeadBody{ID: id, Pos: [2]int32{r.Get(gameworld.DiedX), r.Get(gameworld.DiedY)}})
	}

	w.IndicatorDots().Each(func(r store.Row) {
		f.Dots = append(f.Dots, Dot{
			Robot: r.Get(gameworld.DotRobot),
			Pos:   [2]int32{r.Get(gameworld.DotX), r.Get(gameworld.DotY)},
			RGB:   [3]int32{r.Get(gameworld.DotRed), r.Get(gameworld.DotGreen), r.Get(gameworld.DotBlue)},
		})
	})
	w.IndicatorLines().Each(func(r store.Row) {
		f.Lines = append(f.Lines, Line{
			Robot: r.Get(gameworld.LineRobot),
			From:  [2]int32{r.Get(gameworld.LineStartX), r.Get(gameworld.LineStartY)},
			To:    [2]int32{r.Get(gameworld.LineEndX), r.Get(gameworld.LineEndY)},
			RGB:   [3]int32{r.Get(gameworld.LineRed), r.Get(gameworld.LineGreen), r.Get(gameworld.LineBlue)},
		})
	})

	ms := w.Map()
	for _, id := range sortedKeys(ms.Islands) {
		is := ms.Islands[id]
		f.Islands = append(f.Islands, IslandState{
			ID:           id,
			Owner:        is.Owner,
			FlipProgress: is.FlipProgress,
			Accelerated:  is.Accelerated,
			Cells:        len(is.Cells),
		})
	}
	for _, loc := range sortedKeys(ms.Wells) {
		ws := ms.Wells[loc]
		x, y := w.XY(loc)
		f.Wells = append(f.Wells, WellState{
			Pos:      [2]int32{x, y},
			Resource: ws.Resource,
			Amounts:  [3]int32{ws.Adamantium, ws.Mana, ws.Elixir},
			Upgraded: ws.Upgraded,
		})
	}
	for _, e := range ms.Effects {
		x, y := w.XY(e.Loc)
		f.Effects = append(f.Effects, EffectState{
			Kind:           e.Kind.String(),
			Team:           e.Team,
			Pos:            [2]int32{x, y},
			TurnsRemaining: e.TurnsRemaining,
		})
	}
	return f
}

// Bootstrap describes the match a viewer is attached to.
func Bootstrap(match string, m *wire.Match, current int32) BootstrapResponse {
	h := m.Header
	resp := BootstrapResponse{
		ProtocolVersion: Version,
		Match:           match,
		Round:           current,
		MaxRound:        m.MaxRound(),
		Map: MapInfo{
			Name:      h.MapName,
			Width:     h.Width(),
			Height:    h.Height(),
			Symmetry:  h.Symmetry,
			Seed:      h.RandomSeed,
			MaxRounds: h.MaxRounds,
			Walls:     []int32{},
		},
		Teams: []TeamInfo{},
	}
	if m.Footer != nil {
		resp.Winner = m.Footer.Winner
	}
	for i, wall := range h.Walls {
		if wall {
			resp.Map.Walls = append(resp.Map.Walls, int32(i))
		}
	}
	for _, t := range h.Teams {
		resp.Teams = append(resp.Teams, TeamInfo{ID: t.ID, Name: t.Name, PackageName: t.PackageName})
	}
	for t := metadata.BodyType(0); t < metadata.NumBodyTypes; t++ {
		resp.BodyTypes = append(resp.BodyTypes, t.String())
	}
	return resp
}

func sortedIDs(ids []int32) []int32 {
	out := append([]int32(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys[V any](m map[int32]V) []int32 {
	out := make([]int32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
