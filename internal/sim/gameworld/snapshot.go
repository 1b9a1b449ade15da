package gameworld

import (
	"errors"
	"fmt"
	"slices"

	"matchreplay.ai/internal/persistence/snapshot"
	"matchreplay.ai/internal/sim/store"
)

var ErrSnapshotDigest = errors.New("snapshot digest mismatch")

// ExportSnapshot captures the full World state.
func (w *World) ExportSnapshot(match string) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			Match:   match,
			Round:   w.turn,
			Digest:  w.Digest(),
		},
		Winner:    w.winner,
		Bodies:    exportTable(w.bodies),
		Died:      exportTable(w.died),
		Dots:      exportTable(w.dots),
		Lines:     exportTable(w.lines),
		Strings:   make(map[int32]string, len(w.strings)),
		Transient: slices.Clone(w.transient),
	}
	for id, v := range w.strings {
		s.Strings[id] = v
	}
	for _, id := range sortedKeys(w.paths) {
		p := w.paths[id]
		pts := make([]int32, 0, 2*len(p))
		for _, pt := range p {
			pts = append(pts, pt.X, pt.Y)
		}
		s.Paths = append(s.Paths, snapshot.PathV1{ID: id, Points: pts})
	}
	for _, id := range sortedKeys(w.teams) {
		t := w.teams[id]
		tv := snapshot.TeamV1{
			ID:        id,
			Robots:    slices.Clone(t.Robots[:]),
			TotalHP:   slices.Clone(t.TotalHP[:]),
			Resources: slices.Clone(t.Resources[:]),
			Change:    slices.Clone(t.Change[:]),
			Mined:     slices.Clone(t.Mined[:]),
		}
		for k := Resource(0); k < NumResources; k++ {
			tv.MinedHistory = append(tv.MinedHistory, t.MinedHistory[k].Values())
			inc := make([]snapshot.IncomeV1, len(t.Income[k]))
			for i, smp := range t.Income[k] {
				inc[i] = snapshot.IncomeV1{Round: smp.Round, Average: smp.Average}
			}
			tv.Income = append(tv.Income, inc)
		}
		s.Teams = append(s.Teams, tv)
	}

	m := &w.mapst
	s.Map = snapshot.MapV1{
		Name:         m.Name,
		MinX:         m.MinX,
		MinY:         m.MinY,
		Width:        m.Width,
		Height:       m.Height,
		Symmetry:     m.Symmetry,
		RandomSeed:   m.RandomSeed,
		MaxRounds:    m.MaxRounds,
		Walls:        slices.Clone(m.Walls),
		Clouds:       slices.Clone(m.Clouds),
		Currents:     slices.Clone(m.Currents),
		WellLayout:   slices.Clone(m.WellLayout),
		IslandLayout: slices.Clone(m.IslandLayout),
	}
	for _, loc := range sortedKeys(m.Wells) {
		ws := m.Wells[loc]
		s.Wells = append(s.Wells, snapshot.WellV1{
			Loc:        loc,
			Resource:   ws.Resource,
			Adamantium: ws.Adamantium,
			Mana:       ws.Mana,
			Elixir:     ws.Elixir,
			Upgraded:   ws.Upgraded,
		})
	}
	for _, id := range sortedKeys(m.Islands) {
		is := m.Islands[id]
		s.Islands = append(s.Islands, snapshot.IslandV1{
			ID:           id,
			Owner:        is.Owner,
			FlipProgress: is.FlipProgress,
			Accelerated:  is.Accelerated,
			Cells:        slices.Clone(is.Cells),
			AuraCells:    sortedKeys(is.AuraCells),
		})
	}
	for _, e := range m.Effects {
		s.Effects = append(s.Effects, snapshot.EffectV1{
			Kind:           int32(e.Kind),
			TurnsRemaining: e.TurnsRemaining,
			Team:           e.Team,
			Loc:            e.Loc,
		})
	}
	return s
}

// ImportSnapshot replaces the World state with s and checks the result
// against the digest recorded in the header. Metadata, tuning and logger
// are kept.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("%w: %d", snapshot.ErrVersion, s.Header.Version)
	}
	w.reset()
	w.turn = s.Header.Round
	w.winner = s.Winner

	tables := []struct {
		t   *store.Table
		src snapshot.TableV1
	}{
		{w.bodies, s.Bodies},
		{w.died, s.Died},
		{w.dots, s.Dots},
		{w.lines, s.Lines},
	}
	for _, tb := range tables {
		if err := tb.t.Load(store.Dump{IDs: tb.src.IDs, Columns: tb.src.Columns}); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}

	for id, v := range s.Strings {
		w.strings[id] = v
	}
	for _, p := range s.Paths {
		if len(p.Points)%2 != 0 {
			return fmt.Errorf("import: path %d has odd coordinate count", p.ID)
		}
		pts := make([]Point, 0, max(len(p.Points)/2, w.tuning.PathHistoryLength))
		for i := 0; i < len(p.Points); i += 2 {
			pts = append(pts, Point{X: p.Points[i], Y: p.Points[i+1]})
		}
		w.paths[p.ID] = pts
	}

	clear(w.teams)
	for _, tv := range s.Teams {
		t := newTeamStats(w.tuning.MinedHistoryWindow)
		copy(t.Robots[:], tv.Robots)
		copy(t.TotalHP[:], tv.TotalHP)
		copy(t.Resources[:], tv.Resources)
		copy(t.Change[:], tv.Change)
		copy(t.Mined[:], tv.Mined)
		for k := 0; k < int(NumResources) && k < len(tv.MinedHistory); k++ {
			for _, v := range tv.MinedHistory[k] {
				t.MinedHistory[k].Push(v)
			}
		}
		for k := 0; k < int(NumResources) && k < len(tv.Income); k++ {
			for _, smp := range tv.Income[k] {
				t.Income[k] = append(t.Income[k], IncomeSample{Round: smp.Round, Average: smp.Average})
			}
		}
		w.teams[tv.ID] = t
	}

	m := &w.mapst
	m.Name = s.Map.Name
	m.MinX, m.MinY = s.Map.MinX, s.Map.MinY
	m.Width, m.Height = s.Map.Width, s.Map.Height
	m.Symmetry = s.Map.Symmetry
	m.RandomSeed = s.Map.RandomSeed
	m.MaxRounds = s.Map.MaxRounds
	m.Walls = slices.Clone(s.Map.Walls)
	m.Clouds = slices.Clone(s.Map.Clouds)
	m.Currents = slices.Clone(s.Map.Currents)
	m.WellLayout = slices.Clone(s.Map.WellLayout)
	m.IslandLayout = slices.Clone(s.Map.IslandLayout)
	for _, wv := range s.Wells {
		m.Wells[wv.Loc] = &WellStat{
			Resource:   wv.Resource,
			Adamantium: wv.Adamantium,
			Mana:       wv.Mana,
			Elixir:     wv.Elixir,
			Upgraded:   wv.Upgraded,
		}
	}
	for _, iv := range s.Islands {
		is := &IslandStat{
			Owner:        iv.Owner,
			FlipProgress: iv.FlipProgress,
			Accelerated:  iv.Accelerated,
			Cells:        slices.Clone(iv.Cells),
			AuraCells:    make(map[int32]struct{}, len(iv.AuraCells)),
		}
		for _, c := range iv.AuraCells {
			is.AuraCells[c] = struct{}{}
		}
		m.Islands[iv.ID] = is
	}
	for _, e := range s.Effects {
		m.Effects = append(m.Effects, MapEffect{
			Kind:           EffectKind(e.Kind),
			TurnsRemaining: e.TurnsRemaining,
			Team:           e.Team,
			Loc:            e.Loc,
		})
	}
	w.transient = append(w.transient[:0], s.Transient...)

	if s.Header.Digest != "" {
		if got := w.Digest(); got != s.Header.Digest {
			return fmt.Errorf("%w: round %d: got %s want %s", ErrSnapshotDigest, w.turn, got, s.Header.Digest)
		}
	}
	return nil
}

func exportTable(t *store.Table) snapshot.TableV1 {
	d := t.Dump()
	return snapshot.TableV1{IDs: d.IDs, Columns: d.Columns}
}
