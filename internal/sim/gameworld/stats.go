package gameworld

import (
	"cmp"
	"slices"

	"matchreplay.ai/internal/sim/metadata"
)

type Point struct {
	X, Y int32
}

// Resource indexes the three per-team resource arrays.
type Resource int

const (
	Adamantium Resource = iota
	Mana
	Elixir
	NumResources
)

func (r Resource) String() string {
	switch r {
	case Adamantium:
		return "adamantium"
	case Mana:
		return "mana"
	case Elixir:
		return "elixir"
	}
	return "unknown"
}

// Well resource kinds as they appear on the wire. Zero means no well.
const (
	WellNone       int32 = 0
	WellAdamantium int32 = 1
	WellMana       int32 = 2
	WellElixir     int32 = 3
)

// Ring is a fixed-capacity window of the most recent samples.
type Ring struct {
	buf   []int32
	start int
	n     int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]int32, capacity)}
}

func (r *Ring) Cap() int { return len(r.buf) }
func (r *Ring) Len() int { return r.n }

// Push appends v, dropping the oldest sample when full.
func (r *Ring) Push(v int32) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Mean is the average of the held samples, or 0 when empty.
func (r *Ring) Mean() float64 {
	if r.n == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < r.n; i++ {
		sum += int64(r.buf[(r.start+i)%len(r.buf)])
	}
	return float64(sum) / float64(r.n)
}

// Values returns the samples oldest first.
func (r *Ring) Values() []int32 {
	out := make([]int32, r.n)
	for i := range out {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *Ring) clone() *Ring {
	return &Ring{buf: slices.Clone(r.buf), start: r.start, n: r.n}
}

type IncomeSample struct {
	Round   int32
	Average float64
}

// TeamStats aggregates one team's state. The per-type arrays are indexed by
// metadata.BodyType and the resource arrays by Resource.
type TeamStats struct {
	Robots  [metadata.NumBodyTypes]int32
	TotalHP [metadata.NumBodyTypes]int64

	Resources [NumResources]int32
	Change    [NumResources]int32
	Mined     [NumResources]int32

	MinedHistory [NumResources]*Ring
	Income       [NumResources][]IncomeSample
}

func newTeamStats(window int) *TeamStats {
	t := &TeamStats{}
	for k := range t.MinedHistory {
		t.MinedHistory[k] = NewRing(window)
	}
	return t
}

func (t *TeamStats) LiveRobots() int32 {
	var n int32
	for _, c := range t.Robots {
		n += c
	}
	return n
}

func (t *TeamStats) clone() *TeamStats {
	out := *t
	for k := range t.MinedHistory {
		out.MinedHistory[k] = t.MinedHistory[k].clone()
		out.Income[k] = slices.Clone(t.Income[k])
	}
	return &out
}

type WellStat struct {
	Resource   int32
	Adamantium int32
	Mana       int32
	Elixir     int32
	Upgraded   bool
}

type IslandStat struct {
	Owner        int32
	FlipProgress int32
	Accelerated  bool
	Cells        []int32
	// AuraCells is every cell within the aura radius of an island cell.
	AuraCells map[int32]struct{}
}

func (s *IslandStat) clone() *IslandStat {
	out := *s
	out.Cells = slices.Clone(s.Cells)
	out.AuraCells = make(map[int32]struct{}, len(s.AuraCells))
	for c := range s.AuraCells {
		out.AuraCells[c] = struct{}{}
	}
	return &out
}

type EffectKind int32

const (
	EffectDestabilize EffectKind = iota
	EffectBoost
)

func (k EffectKind) String() string {
	switch k {
	case EffectDestabilize:
		return "destabilize"
	case EffectBoost:
		return "boost"
	}
	return "unknown"
}

type MapEffect struct {
	Kind           EffectKind
	TurnsRemaining int32
	Team           int32
	Loc            int32
}

// MapStats holds the static map layers loaded from the header and the
// mutable well, island and effect state.
type MapStats struct {
	Name       string
	MinX, MinY int32
	Width      int32
	Height     int32
	Symmetry   int32
	RandomSeed int32
	MaxRounds  int32

	Walls        []bool
	Clouds       []bool
	Currents     []int32
	WellLayout   []int32
	IslandLayout []int32

	Wells   map[int32]*WellStat
	Islands map[int32]*IslandStat
	Effects []MapEffect
}

func (m *MapStats) copyFrom(src *MapStats) {
	wells, islands := m.Wells, m.Islands
	*m = *src
	m.Walls = slices.Clone(src.Walls)
	m.Clouds = slices.Clone(src.Clouds)
	m.Currents = slices.Clone(src.Currents)
	m.WellLayout = slices.Clone(src.WellLayout)
	m.IslandLayout = slices.Clone(src.IslandLayout)
	m.Effects = slices.Clone(src.Effects)

	if wells == nil {
		wells = make(map[int32]*WellStat, len(src.Wells))
	}
	clear(wells)
	for loc, ws := range src.Wells {
		c := *ws
		wells[loc] = &c
	}
	m.Wells = wells

	if islands == nil {
		islands = make(map[int32]*IslandStat, len(src.Islands))
	}
	clear(islands)
	for id, is := range src.Islands {
		islands[id] = is.clone()
	}
	m.Islands = islands
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
