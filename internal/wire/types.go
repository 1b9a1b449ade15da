// Package wire reads and writes match files: a zstd stream holding one map
// header frame, one delta frame per round and an optional footer.
//
// Every record is columnar. Decoding into an existing Round reuses its
// slices, so a caller that keeps one Round as scratch decodes a whole match
// without per-field allocation.
package wire

// NullRobot marks an action record that has no acting body.
const NullRobot int32 = -1

type TeamInfo struct {
	ID          int32
	Name        string
	PackageName string
}

// BodyTable lists bodies present at match start or spawned in a round.
type BodyTable struct {
	IDs     []int32
	TeamIDs []int32
	Types   []int32
	Xs      []int32
	Ys      []int32
}

func (b *BodyTable) Len() int { return len(b.IDs) }

func (b *BodyTable) Append(id, team, typ, x, y int32) {
	b.IDs = append(b.IDs, id)
	b.TeamIDs = append(b.TeamIDs, team)
	b.Types = append(b.Types, typ)
	b.Xs = append(b.Xs, x)
	b.Ys = append(b.Ys, y)
}

// Header is the one-time map description at the start of a match.
type Header struct {
	MapName    string
	MinX, MinY int32
	MaxX, MaxY int32

	Bodies     BodyTable
	RandomSeed int32

	// Per-cell layers, row-major, Width()*Height() entries each.
	Walls         []bool
	Clouds        []bool
	Currents      []int32
	ResourceWells []int32
	Islands       []int32

	Symmetry  int32
	MaxRounds int32
	Teams     []TeamInfo
}

func (h *Header) Width() int32  { return h.MaxX - h.MinX }
func (h *Header) Height() int32 { return h.MaxY - h.MinY }
func (h *Header) Area() int     { return int(h.Width()) * int(h.Height()) }

type TeamResourceTable struct {
	TeamIDs    []int32
	Adamantium []int32
	Mana       []int32
	Elixir     []int32
}

type MoveTable struct {
	IDs []int32
	Xs  []int32
	Ys  []int32
}

type ActionTable struct {
	RobotIDs []int32
	Actions  []int32
	Targets  []int32
}

func (a *ActionTable) Append(robot, action, target int32) {
	a.RobotIDs = append(a.RobotIDs, robot)
	a.Actions = append(a.Actions, action)
	a.Targets = append(a.Targets, target)
}

type WellTable struct {
	Locs       []int32
	Resources  []int32
	Adamantium []int32
	Mana       []int32
	Elixir     []int32
	Upgraded   []bool
}

type IslandTable struct {
	IDs          []int32
	Owners       []int32
	FlipProgress []int32
}

type StringTable struct {
	IDs    []int32
	Values []string
}

type DotTable struct {
	IDs   []int32
	Xs    []int32
	Ys    []int32
	Red   []int32
	Green []int32
	Blue  []int32
}

type LineTable struct {
	IDs     []int32
	StartXs []int32
	StartYs []int32
	EndXs   []int32
	EndYs   []int32
	Red     []int32
	Green   []int32
	Blue    []int32
}

type BytecodeTable struct {
	IDs  []int32
	Used []int32
}

// Round is the delta record of a single round.
type Round struct {
	RoundID int32

	Teams     TeamResourceTable
	Spawned   BodyTable
	Moved     MoveTable
	Actions   ActionTable
	Wells     WellTable
	Islands   IslandTable
	DiedIDs   []int32
	Strings   StringTable
	Dots      DotTable
	Lines     LineTable
	Bytecodes BytecodeTable
}

type Footer struct {
	Winner      int32
	TotalRounds int32
}

// Match is a fully buffered match file.
type Match struct {
	Header *Header
	Rounds []*Round
	Footer *Footer
}

// MaxRound is the id of the last round in the match (0 when there are none).
func (m *Match) MaxRound() int32 {
	if len(m.Rounds) == 0 {
		return 0
	}
	return m.Rounds[len(m.Rounds)-1].RoundID
}

// Round returns the delta with the given id; rounds are numbered from 1.
func (m *Match) Round(id int32) *Round {
	if id < 1 || int(id) > len(m.Rounds) {
		return nil
	}
	return m.Rounds[id-1]
}
