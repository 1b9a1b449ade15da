package gameworld

// TeamSummary is a flat per-team view used by the round log, the index and
// the viewer.
type TeamSummary struct {
	ID         int32 `json:"id"`
	Robots     int32 `json:"robots"`
	TotalHP    int64 `json:"total_hp"`
	Adamantium int32 `json:"adamantium"`
	Mana       int32 `json:"mana"`
	Elixir     int32 `json:"elixir"`
	Islands    int32 `json:"islands"`
}

type Summary struct {
	Round   int32         `json:"round"`
	Bodies  int           `json:"bodies"`
	Died    int           `json:"died"`
	Effects int           `json:"effects"`
	Teams   []TeamSummary `json:"teams"`
}

func (w *World) Summary() Summary {
	s := Summary{
		Round:   w.turn,
		Bodies:  w.bodies.Len(),
		Died:    w.died.Len(),
		Effects: len(w.mapst.Effects),
	}
	owned := map[int32]int32{}
	for _, is := range w.mapst.Islands {
		if is.Owner != 0 {
			owned[is.Owner]++
		}
	}
	for _, id := range sortedKeys(w.teams) {
		t := w.teams[id]
		ts := TeamSummary{
			ID:         id,
			Robots:     t.LiveRobots(),
			Adamantium: t.Resources[Adamantium],
			Mana:       t.Resources[Mana],
			Elixir:     t.Resources[Elixir],
			Islands:    owned[id],
		}
		for _, hp := range t.TotalHP {
			ts.TotalHP += hp
		}
		s.Teams = append(s.Teams, ts)
	}
	return s
}
