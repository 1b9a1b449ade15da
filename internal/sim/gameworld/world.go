// Package gameworld holds the replay state of one match at one round and the
// delta rules that move it from round N to round N+1.
package gameworld

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/sim/store"
	"matchreplay.ai/internal/sim/tuning"
)

var ErrRoundSequence = errors.New("round out of sequence")

// RoundSequenceError reports a delta whose round id is not Turn+1.
type RoundSequenceError struct {
	Want int32
	Got  int32
}

func (e *RoundSequenceError) Error() string {
	return fmt.Sprintf("%v: got round %d want %d", ErrRoundSequence, e.Got, e.Want)
}

func (e *RoundSequenceError) Unwrap() error { return ErrRoundSequence }

// Body table fields.
const (
	BodyTeam store.Field = iota
	BodyType
	BodyX
	BodyY
	BodyBytecodes
	BodyAction
	BodyTarget
	BodyTargetX
	BodyTargetY
	BodyAdamantium
	BodyMana
	BodyElixir
	BodyPrevAdamantium
	BodyPrevMana
	BodyPrevElixir
	BodyStandardAnchors
	BodyAcceleratedAnchors
	BodyHP
)

var BodySchema = store.Schema{Name: "bodies", Fields: []string{
	"team", "type", "x", "y", "bytecodes", "action", "target", "target_x", "target_y",
	"adamantium", "mana", "elixir", "prev_adamantium", "prev_mana", "prev_elixir",
	"standard_anchors", "accelerated_anchors", "hp",
}}

const (
	DiedX store.Field = iota
	DiedY
)

var DiedSchema = store.Schema{Name: "died", Fields: []string{"x", "y"}}

// Indicator dots and lines are keyed by their position in the round's
// indicator list; the drawing robot is kept in the robot column since one
// robot may draw several per round.
const (
	DotRobot store.Field = iota
	DotX
	DotY
	DotRed
	DotGreen
	DotBlue
)

var DotSchema = store.Schema{Name: "indicator_dots", Fields: []string{"robot", "x", "y", "red", "green", "blue"}}

const (
	LineRobot store.Field = iota
	LineStartX
	LineStartY
	LineEndX
	LineEndY
	LineRed
	LineGreen
	LineBlue
)

var LineSchema = store.Schema{Name: "indicator_lines", Fields: []string{"robot", "start_x", "start_y", "end_x", "end_y", "red", "green", "blue"}}

// World is one replay snapshot. A World is owned by a single goroutine;
// readers receive copies.
type World struct {
	meta   *metadata.Metadata
	tuning tuning.Tuning
	log    *zap.Logger

	turn   int32
	winner int32

	bodies  *store.Table
	died    *store.Table
	dots    *store.Table
	lines   *store.Table
	strings map[int32]string
	paths   map[int32][]Point
	teams   map[int32]*TeamStats
	mapst   MapStats

	// transient lists bodies whose action annotation is visible for one
	// round only.
	transient []int32
}

// New builds an empty World at round 0. A nil meta uses metadata.Default and
// a nil logger discards output.
func New(meta *metadata.Metadata, tun tuning.Tuning, log *zap.Logger) *World {
	if meta == nil {
		meta = metadata.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	tun = tun.Normalize()
	w := &World{
		meta:    meta,
		tuning:  tun,
		log:     log,
		bodies:  store.New(BodySchema),
		died:    store.New(DiedSchema),
		dots:    store.New(DotSchema),
		lines:   store.New(LineSchema),
		strings: map[int32]string{},
		paths:   map[int32][]Point{},
		teams:   map[int32]*TeamStats{},
	}
	w.mapst.Wells = map[int32]*WellStat{}
	w.mapst.Islands = map[int32]*IslandStat{}
	for _, id := range meta.TeamIDs() {
		w.teams[id] = newTeamStats(w.tuning.MinedHistoryWindow)
	}
	return w
}

func (w *World) Turn() int32                  { return w.turn }
func (w *World) Winner() int32                { return w.winner }
func (w *World) SetWinner(team int32)         { w.winner = team }
func (w *World) Metadata() *metadata.Metadata { return w.meta }
func (w *World) Tuning() tuning.Tuning        { return w.tuning }

// Bodies, Died, IndicatorDots and IndicatorLines return the live tables.
// Callers must treat them as read-only.
func (w *World) Bodies() *store.Table         { return w.bodies }
func (w *World) Died() *store.Table           { return w.died }
func (w *World) IndicatorDots() *store.Table  { return w.dots }
func (w *World) IndicatorLines() *store.Table { return w.lines }
func (w *World) Map() *MapStats               { return &w.mapst }

func (w *World) IndicatorString(id int32) (string, bool) {
	s, ok := w.strings[id]
	return s, ok
}

func (w *World) IndicatorStrings() map[int32]string { return w.strings }

// Path returns the recent positions of a body, most recent first.
func (w *World) Path(id int32) []Point { return w.paths[id] }

func (w *World) Team(id int32) (*TeamStats, bool) {
	t, ok := w.teams[id]
	return t, ok
}

func (w *World) TeamIDs() []int32 { return sortedKeys(w.teams) }

// team returns the stats for id, creating them for a team that the
// metadata did not list.
func (w *World) team(id int32) *TeamStats {
	t, ok := w.teams[id]
	if !ok {
		w.log.Debug("team stats created on demand", zap.Int32("team", id))
		t = newTeamStats(w.tuning.MinedHistoryWindow)
		w.teams[id] = t
	}
	return t
}

// Loc maps a map coordinate to its cell index.
func (w *World) Loc(x, y int32) int32 {
	return (y-w.mapst.MinY)*w.mapst.Width + (x - w.mapst.MinX)
}

// XY maps a cell index back to its coordinate.
func (w *World) XY(loc int32) (int32, int32) {
	if w.mapst.Width <= 0 {
		return 0, 0
	}
	return w.mapst.MinX + loc%w.mapst.Width, w.mapst.MinY + loc/w.mapst.Width
}

func (w *World) InBounds(x, y int32) bool {
	m := &w.mapst
	return x >= m.MinX && y >= m.MinY && x < m.MinX+m.Width && y < m.MinY+m.Height
}

// BodyView is a detached copy of one body row.
type BodyView struct {
	ID                 int32
	Team               int32
	Type               metadata.BodyType
	X, Y               int32
	Bytecodes          int32
	Action             Action
	Target             int32
	TargetX, TargetY   int32
	Adamantium         int32
	Mana               int32
	Elixir             int32
	PrevAdamantium     int32
	PrevMana           int32
	PrevElixir         int32
	StandardAnchors    int32
	AcceleratedAnchors int32
	HP                 int32
}

func (w *World) Body(id int32) (BodyView, error) {
	r, err := w.bodies.Lookup(id)
	if err != nil {
		return BodyView{}, err
	}
	return BodyView{
		ID:                 id,
		Team:               r.Get(BodyTeam),
		Type:               metadata.BodyType(r.Get(BodyType)),
		X:                  r.Get(BodyX),
		Y:                  r.Get(BodyY),
		Bytecodes:          r.Get(BodyBytecodes),
		Action:             Action(r.Get(BodyAction)),
		Target:             r.Get(BodyTarget),
		TargetX:            r.Get(BodyTargetX),
		TargetY:            r.Get(BodyTargetY),
		Adamantium:         r.Get(BodyAdamantium),
		Mana:               r.Get(BodyMana),
		Elixir:             r.Get(BodyElixir),
		PrevAdamantium:     r.Get(BodyPrevAdamantium),
		PrevMana:           r.Get(BodyPrevMana),
		PrevElixir:         r.Get(BodyPrevElixir),
		StandardAnchors:    r.Get(BodyStandardAnchors),
		AcceleratedAnchors: r.Get(BodyAcceleratedAnchors),
		HP:                 r.Get(BodyHP),
	}, nil
}
