package gameworld

import (
	"fmt"

	"go.uber.org/zap"

	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/sim/store"
	"matchreplay.ai/internal/wire"
)

// ApplyRound advances the World from Turn to r.RoundID. The round id is
// checked before anything is touched. Any other error leaves the World
// partially updated; callers that need a consistent state apply to a copy.
func (w *World) ApplyRound(r *wire.Round) error {
	if want := w.turn + 1; r.RoundID != want {
		return &RoundSequenceError{Want: want, Got: r.RoundID}
	}
	if err := r.Validate(); err != nil {
		return err
	}

	w.applyTeamResources(&r.Teams)
	if err := w.spawn(&r.Spawned); err != nil {
		return fmt.Errorf("round %d spawn: %w", r.RoundID, err)
	}
	if err := w.applyMoves(&r.Moved); err != nil {
		return fmt.Errorf("round %d move: %w", r.RoundID, err)
	}
	w.tickEffects()
	w.clearTransient()
	w.applyActions(&r.Actions)
	w.applyWells(&r.Wells)
	w.applyIslands(&r.Islands)
	w.recordMining(r.RoundID)
	if err := w.applyDeaths(r.DiedIDs); err != nil {
		return fmt.Errorf("round %d deaths: %w", r.RoundID, err)
	}
	if err := w.applyIndicators(r); err != nil {
		return fmt.Errorf("round %d indicators: %w", r.RoundID, err)
	}
	w.turn = r.RoundID
	w.applyBytecodes(&r.Bytecodes)
	return nil
}

func (w *World) applyTeamResources(t *wire.TeamResourceTable) {
	for i, id := range t.TeamIDs {
		ts := w.team(id)
		deltas := [NumResources]int32{t.Adamantium[i], t.Mana[i], t.Elixir[i]}
		for k, d := range deltas {
			ts.Resources[k] += d
			ts.Change[k] = d
			ts.Mined[k] = 0
		}
	}
}

func (w *World) applyMoves(m *wire.MoveTable) error {
	if len(m.IDs) == 0 {
		return nil
	}
	if err := w.bodies.AlterBulk(m.IDs, store.Columns{BodyX: m.Xs, BodyY: m.Ys}); err != nil {
		return err
	}
	limit := w.tuning.PathHistoryLength
	for i, id := range m.IDs {
		p := w.paths[id]
		if len(p) < limit {
			p = append(p, Point{})
		}
		copy(p[1:], p)
		p[0] = Point{X: m.Xs[i], Y: m.Ys[i]}
		w.paths[id] = p
	}
	return nil
}

// tickEffects ages every map effect by one round and drops expired ones.
func (w *World) tickEffects() {
	kept := w.mapst.Effects[:0]
	for _, e := range w.mapst.Effects {
		e.TurnsRemaining--
		if e.TurnsRemaining >= 0 {
			kept = append(kept, e)
		}
	}
	w.mapst.Effects = kept
}

// clearTransient hides last round's one-shot action annotations.
func (w *World) clearTransient() {
	for _, id := range w.transient {
		r, err := w.bodies.Lookup(id)
		if err != nil {
			continue
		}
		i := r.Index()
		w.bodies.Col(BodyAction)[i] = int32(ActionNone)
		w.bodies.Col(BodyTarget)[i] = 0
		w.bodies.Col(BodyTargetX)[i] = 0
		w.bodies.Col(BodyTargetY)[i] = 0
	}
	w.transient = w.transient[:0]
}

func (w *World) applyWells(t *wire.WellTable) {
	for i, loc := range t.Locs {
		ws, ok := w.mapst.Wells[loc]
		if !ok {
			ws = &WellStat{}
			w.mapst.Wells[loc] = ws
		}
		ws.Resource = t.Resources[i]
		ws.Adamantium = t.Adamantium[i]
		ws.Mana = t.Mana[i]
		ws.Elixir = t.Elixir[i]
		ws.Upgraded = t.Upgraded[i]
	}
}

func (w *World) applyIslands(t *wire.IslandTable) {
	for i, id := range t.IDs {
		is, ok := w.mapst.Islands[id]
		if !ok {
			w.log.Debug("island update for unseeded island", zap.Int32("island", id))
			is = &IslandStat{AuraCells: map[int32]struct{}{}}
			w.mapst.Islands[id] = is
		}
		is.FlipProgress = t.FlipProgress[i]
		if owner := t.Owners[i]; owner != is.Owner {
			is.Accelerated = false
			is.Owner = owner
		}
	}
}

// recordMining pushes this round's mined totals into each team's window and
// samples the window mean as income every IncomeSampleEvery rounds.
func (w *World) recordMining(round int32) {
	sample := round%int32(w.tuning.IncomeSampleEvery) == 0
	for _, id := range sortedKeys(w.teams) {
		t := w.teams[id]
		for k := Resource(0); k < NumResources; k++ {
			t.MinedHistory[k].Push(t.Mined[k])
			if sample {
				t.Income[k] = append(t.Income[k], IncomeSample{Round: round, Average: t.MinedHistory[k].Mean()})
			}
		}
	}
}

// applyDeaths records last positions in the Died table, removes the bodies
// and their paths, and debits each type's static max health from the team.
func (w *World) applyDeaths(ids []int32) error {
	w.died.Clear()
	if len(ids) == 0 {
		return nil
	}
	rows, err := w.bodies.LookupIndices(ids, nil)
	if err != nil {
		return err
	}
	xs := make([]int32, len(ids))
	ys := make([]int32, len(ids))
	for i, row := range rows {
		xs[i] = w.bodies.Col(BodyX)[row]
		ys[i] = w.bodies.Col(BodyY)[row]
	}
	if _, err := w.died.InsertBulk(ids, store.Columns{DiedX: xs, DiedY: ys}); err != nil {
		return err
	}
	for _, row := range rows {
		typ := metadata.BodyType(w.bodies.Col(BodyType)[row])
		if !typ.Valid() {
			continue
		}
		t := w.team(w.bodies.Col(BodyTeam)[row])
		t.Robots[typ]--
		t.TotalHP[typ] -= int64(w.meta.MaxHealth(typ))
	}
	if err := w.bodies.DeleteBulk(ids); err != nil {
		return err
	}
	for _, id := range ids {
		delete(w.paths, id)
	}
	return nil
}

// applyIndicators merges indicator strings and replaces dots and lines with
// this round's set.
func (w *World) applyIndicators(r *wire.Round) error {
	for i, id := range r.Strings.IDs {
		w.strings[id] = r.Strings.Values[i]
	}

	w.dots.Clear()
	if n := len(r.Dots.IDs); n > 0 {
		_, err := w.dots.InsertBulk(seq(n), store.Columns{
			DotRobot: r.Dots.IDs,
			DotX:     r.Dots.Xs,
			DotY:     r.Dots.Ys,
			DotRed:   r.Dots.Red,
			DotGreen: r.Dots.Green,
			DotBlue:  r.Dots.Blue,
		})
		if err != nil {
			return err
		}
	}

	w.lines.Clear()
	if n := len(r.Lines.IDs); n > 0 {
		_, err := w.lines.InsertBulk(seq(n), store.Columns{
			LineRobot:  r.Lines.IDs,
			LineStartX: r.Lines.StartXs,
			LineStartY: r.Lines.StartYs,
			LineEndX:   r.Lines.EndXs,
			LineEndY:   r.Lines.EndYs,
			LineRed:    r.Lines.Red,
			LineGreen:  r.Lines.Green,
			LineBlue:   r.Lines.Blue,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *World) applyBytecodes(t *wire.BytecodeTable) {
	col := w.bodies.Col(BodyBytecodes)
	for i, id := range t.IDs {
		r, err := w.bodies.Lookup(id)
		if err != nil {
			w.log.Debug("bytecodes for unknown robot", zap.Int32("robot", id))
			continue
		}
		col[r.Index()] = t.Used[i]
	}
}

func seq(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(i)
	}
	return out
}
