package gameworld

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/sim/store"
	"matchreplay.ai/internal/wire"
)

// LoadInitialState resets the World to round 0 of the match described by h.
func (w *World) LoadInitialState(h *wire.Header) error {
	if err := h.Validate(); err != nil {
		return err
	}
	w.reset()

	m := &w.mapst
	m.Name = h.MapName
	m.MinX, m.MinY = h.MinX, h.MinY
	m.Width, m.Height = h.Width(), h.Height()
	m.Symmetry = h.Symmetry
	m.RandomSeed = h.RandomSeed
	m.MaxRounds = h.MaxRounds
	m.Walls = slices.Clone(h.Walls)
	m.Clouds = slices.Clone(h.Clouds)
	m.Currents = slices.Clone(h.Currents)
	m.WellLayout = slices.Clone(h.ResourceWells)
	m.IslandLayout = slices.Clone(h.Islands)

	for _, t := range h.Teams {
		w.team(t.ID)
	}

	if err := w.spawn(&h.Bodies); err != nil {
		return fmt.Errorf("initial bodies: %w", err)
	}

	for loc, kind := range h.ResourceWells {
		if kind == WellNone {
			continue
		}
		m.Wells[int32(loc)] = &WellStat{Resource: kind}
	}

	for loc, id := range h.Islands {
		if id == 0 {
			continue
		}
		is, ok := m.Islands[id]
		if !ok {
			is = &IslandStat{AuraCells: map[int32]struct{}{}}
			m.Islands[id] = is
		}
		is.Cells = append(is.Cells, int32(loc))
	}
	r := int32(w.tuning.AuraRadius)
	for _, is := range m.Islands {
		for _, loc := range is.Cells {
			cx, cy := w.XY(loc)
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					if dx*dx+dy*dy > r*r || !w.InBounds(cx+dx, cy+dy) {
						continue
					}
					is.AuraCells[w.Loc(cx+dx, cy+dy)] = struct{}{}
				}
			}
		}
	}

	w.log.Debug("initial state loaded",
		zap.String("map", m.Name),
		zap.Int32("width", m.Width),
		zap.Int32("height", m.Height),
		zap.Int("bodies", w.bodies.Len()),
		zap.Int("wells", len(m.Wells)),
		zap.Int("islands", len(m.Islands)),
	)
	return nil
}

func (w *World) reset() {
	w.turn = 0
	w.winner = 0
	w.bodies.Clear()
	w.died.Clear()
	w.dots.Clear()
	w.lines.Clear()
	clear(w.strings)
	clear(w.paths)
	clear(w.teams)
	for _, id := range w.meta.TeamIDs() {
		w.teams[id] = newTeamStats(w.tuning.MinedHistoryWindow)
	}
	w.mapst = MapStats{Wells: map[int32]*WellStat{}, Islands: map[int32]*IslandStat{}}
	w.transient = w.transient[:0]
}

// spawn inserts new bodies at full health with derived fields zeroed, seeds
// their path history and bumps the per-team aggregates.
func (w *World) spawn(b *wire.BodyTable) error {
	n := b.Len()
	if n == 0 {
		return nil
	}
	hp := make([]int32, n)
	action := make([]int32, n)
	for i := range hp {
		hp[i] = w.meta.MaxHealth(metadata.BodyType(b.Types[i]))
		action[i] = int32(ActionNone)
	}
	_, err := w.bodies.InsertBulk(b.IDs, store.Columns{
		BodyTeam:   b.TeamIDs,
		BodyType:   b.Types,
		BodyX:      b.Xs,
		BodyY:      b.Ys,
		BodyHP:     hp,
		BodyAction: action,
	})
	if err != nil {
		return err
	}
	for i, id := range b.IDs {
		typ := metadata.BodyType(b.Types[i])
		if !typ.Valid() {
			w.log.Warn("spawned body has unknown type", zap.Int32("robot", id), zap.Int32("type", b.Types[i]))
		} else {
			t := w.team(b.TeamIDs[i])
			t.Robots[typ]++
			t.TotalHP[typ] += int64(hp[i])
		}
		path := make([]Point, 1, w.tuning.PathHistoryLength)
		path[0] = Point{X: b.Xs[i], Y: b.Ys[i]}
		w.paths[id] = path
	}
	return nil
}
