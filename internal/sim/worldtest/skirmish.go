package worldtest

import (
	"fmt"

	"matchreplay.ai/internal/sim/gameworld"
	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/wire"
)

const (
	skirmishSize = 20
	unitLifetime = 12
)

type unit struct {
	id, team, x, y, born int32
}

// Skirmish generates a deterministic match of the given length on a 20×20
// map: two headquarters, two wells, two islands, carriers spawned every
// five rounds that walk toward the center, mine, draw indicators and die
// after twelve rounds. It exercises every delta table.
func Skirmish(rounds int) *wire.Match {
	b := NewMatch("skirmish", skirmishSize, skirmishSize)
	h := b.Header()
	area := skirmishSize * skirmishSize
	h.RandomSeed = 7
	h.Symmetry = 1
	h.ResourceWells = make([]int32, area)
	h.Islands = make([]int32, area)
	h.Walls = make([]bool, area)
	loc := func(x, y int32) int32 { return y*skirmishSize + x }
	h.ResourceWells[loc(2, 2)] = gameworld.WellAdamantium
	h.ResourceWells[loc(17, 17)] = gameworld.WellMana
	for _, c := range [][2]int32{{5, 5}, {5, 6}, {6, 5}} {
		h.Islands[loc(c[0], c[1])] = 1
	}
	for _, c := range [][2]int32{{14, 14}, {14, 13}, {13, 14}} {
		h.Islands[loc(c[0], c[1])] = 2
	}
	h.Walls[loc(10, 0)] = true
	b.Body(1, 1, metadata.Headquarters, 1, 1)
	b.Body(2, 2, metadata.Headquarters, 18, 18)

	var alive []unit
	for i := 0; i < rounds; i++ {
		rid := int32(i + 1)
		b.Round(func(r *wire.Round) {
			r.Teams = wire.TeamResourceTable{
				TeamIDs:    []int32{1, 2},
				Adamantium: []int32{2, 1},
				Mana:       []int32{1, 2},
				Elixir:     []int32{0, 0},
			}

			var survivors []unit
			for _, u := range alive {
				if rid-u.born >= unitLifetime {
					r.DiedIDs = append(r.DiedIDs, u.id)
					continue
				}
				survivors = append(survivors, u)
			}
			alive = survivors

			for k := range alive {
				u := &alive[k]
				u.x += sign(10 - u.x)
				u.y += sign(10 - u.y)
				r.Moved.IDs = append(r.Moved.IDs, u.id)
				r.Moved.Xs = append(r.Moved.Xs, u.x)
				r.Moved.Ys = append(r.Moved.Ys, u.y)

				switch rid % 3 {
				case 0:
					r.Actions.Append(u.id, int32(gameworld.ActionChangeAdamantium), 2)
				case 1:
					r.Actions.Append(u.id, int32(gameworld.ActionPickUpResource), gameworld.EncodeLocation(loc(2, 2)))
				case 2:
					r.Actions.Append(u.id, int32(gameworld.ActionChangeHealth), -5)
				}
				r.Dots.IDs = append(r.Dots.IDs, u.id)
				r.Dots.Xs = append(r.Dots.Xs, u.x)
				r.Dots.Ys = append(r.Dots.Ys, u.y)
				r.Dots.Red = append(r.Dots.Red, 255)
				r.Dots.Green = append(r.Dots.Green, 0)
				r.Dots.Blue = append(r.Dots.Blue, 0)
			}

			if rid%5 == 0 {
				for _, s := range []unit{{id: 100 + 2*rid, team: 1, x: 2, y: 1}, {id: 101 + 2*rid, team: 2, x: 17, y: 18}} {
					s.born = rid
					r.Spawned.Append(s.id, s.team, int32(metadata.Carrier), s.x, s.y)
					r.Actions.Append(1+(s.team-1), int32(gameworld.ActionSpawnUnit), s.id)
					alive = append(alive, s)
				}
			}

			if rid%6 == 0 {
				r.Actions.Append(1, int32(gameworld.ActionBuildAcceleratedAnchor), 0)
				r.Actions.Append(2, int32(gameworld.ActionBuildStandardAnchor), 0)
			}
			if rid%11 == 0 {
				r.Actions.Append(wire.NullRobot, int32(gameworld.ActionBoost), gameworld.EncodeLocation(loc(5, 5)))
			}
			if rid == 20 {
				r.Islands = wire.IslandTable{IDs: []int32{1, 2}, Owners: []int32{1, 2}, FlipProgress: []int32{30, 10}}
			}
			if rid%4 == 0 {
				r.Wells = wire.WellTable{
					Locs:       []int32{loc(2, 2)},
					Resources:  []int32{gameworld.WellAdamantium},
					Adamantium: []int32{rid},
					Mana:       []int32{0},
					Elixir:     []int32{0},
					Upgraded:   []bool{rid >= 40},
				}
			}

			r.Strings = wire.StringTable{IDs: []int32{1}, Values: []string{fmt.Sprintf("round %d", rid)}}
			r.Bytecodes = wire.BytecodeTable{IDs: []int32{1, 2}, Used: []int32{1000 + rid, 2000 + rid}}
		})
	}
	return b.Winner(1).Match()
}

func sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
