package gameworld

import (
	"fmt"

	"go.uber.org/zap"

	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/sim/store"
	"matchreplay.ai/internal/wire"
)

// Action is the tag of a per-round action record. ActionNone marks a body
// with no visible action.
type Action int32

const (
	ActionNone Action = -1

	ActionThrowAttack Action = iota - 1
	ActionLaunchAttack
	ActionPickUpResource
	ActionPlaceResource
	ActionDestabilize
	ActionBoost
	ActionBuildStandardAnchor
	ActionBuildAcceleratedAnchor
	ActionPickUpAnchor
	ActionPlaceAnchor
	ActionChangeAdamantium
	ActionChangeMana
	ActionChangeElixir
	ActionSpawnUnit
	ActionChangeHealth
	ActionDieException
)

var actionNames = [...]string{
	"throw_attack",
	"launch_attack",
	"pick_up_resource",
	"place_resource",
	"destabilize",
	"boost",
	"build_standard_anchor",
	"build_accelerated_anchor",
	"pick_up_anchor",
	"place_anchor",
	"change_adamantium",
	"change_mana",
	"change_elixir",
	"spawn_unit",
	"change_health",
	"die_exception",
}

func (a Action) String() string {
	if a == ActionNone {
		return "none"
	}
	if a >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", int32(a))
}

// DecodeLocation turns a negative action target into a cell index.
func DecodeLocation(target int32) int32 { return -target - 1 }

// EncodeLocation is the inverse of DecodeLocation.
func EncodeLocation(loc int32) int32 { return -loc - 1 }

// locationTarget accepts either an encoded (negative) location or a plain
// cell index.
func locationTarget(target int32) int32 {
	if target < 0 {
		return DecodeLocation(target)
	}
	return target
}

func (w *World) applyActions(t *wire.ActionTable) {
	for i, robot := range t.RobotIDs {
		w.applyAction(robot, Action(t.Actions[i]), t.Targets[i])
	}
}

func (w *World) applyAction(robot int32, a Action, target int32) {
	switch a {
	case ActionThrowAttack:
		row, ok := w.actor(robot, a)
		if !ok {
			return
		}
		w.bodies.Col(BodyPrevAdamantium)[row] = w.bodies.Col(BodyAdamantium)[row]
		w.bodies.Col(BodyPrevMana)[row] = w.bodies.Col(BodyMana)[row]
		w.bodies.Col(BodyPrevElixir)[row] = w.bodies.Col(BodyElixir)[row]
		w.bodies.Col(BodyAdamantium)[row] = 0
		w.bodies.Col(BodyMana)[row] = 0
		w.bodies.Col(BodyElixir)[row] = 0
		w.annotateTarget(robot, row, a, target)

	case ActionLaunchAttack:
		row, ok := w.actor(robot, a)
		if !ok {
			return
		}
		w.annotateTarget(robot, row, a, target)

	case ActionPickUpResource, ActionPlaceResource:
		row, ok := w.actor(robot, a)
		if !ok {
			return
		}
		x, y := w.XY(locationTarget(target))
		w.annotate(robot, row, a, target, x, y)

	case ActionDestabilize, ActionBoost:
		team := int32(0)
		if robot != wire.NullRobot {
			if r, err := w.bodies.Lookup(robot); err == nil {
				team = r.Get(BodyTeam)
			}
		}
		turns := w.tuning.DestabilizeTurns
		kind := EffectDestabilize
		if a == ActionBoost {
			turns = w.tuning.BoostTurns
			kind = EffectBoost
		}
		w.mapst.Effects = append(w.mapst.Effects, MapEffect{
			Kind:           kind,
			TurnsRemaining: int32(turns),
			Team:           team,
			Loc:            locationTarget(target),
		})

	case ActionBuildStandardAnchor, ActionBuildAcceleratedAnchor:
		row, ok := w.actor(robot, a)
		if !ok {
			return
		}
		f := BodyStandardAnchors
		if a == ActionBuildAcceleratedAnchor {
			f = BodyAcceleratedAnchors
		}
		w.bodies.Col(f)[row]++

	case ActionPickUpAnchor:
		row, ok := w.actor(robot, a)
		if !ok {
			return
		}
		f := BodyStandardAnchors
		if target%2 == 1 {
			f = BodyAcceleratedAnchors
		}
		src, err := w.bodies.Lookup(target / 2)
		if err != nil {
			w.log.Debug("anchor pickup from unknown body", zap.Int32("robot", robot), zap.Int32("source", target/2))
			return
		}
		if w.bodies.Col(f)[src.Index()] > 0 {
			w.bodies.Col(f)[src.Index()]--
		}
		w.bodies.Col(f)[row]++
		w.annotate(robot, row, a, target/2, src.Get(BodyX), src.Get(BodyY))

	case ActionPlaceAnchor:
		row, ok := w.actor(robot, a)
		if !ok {
			return
		}
		is, found := w.mapst.Islands[target]
		if !found {
			w.log.Debug("anchor placed on unknown island", zap.Int32("robot", robot), zap.Int32("island", target))
			return
		}
		is.Owner = w.bodies.Col(BodyTeam)[row]
		is.Accelerated = w.bodies.Col(BodyAcceleratedAnchors)[row] > 0
		w.bodies.Col(BodyStandardAnchors)[row] = 0
		w.bodies.Col(BodyAcceleratedAnchors)[row] = 0
		var x, y int32
		if len(is.Cells) > 0 {
			x, y = w.XY(is.Cells[0])
		}
		w.annotate(robot, row, a, target, x, y)

	case ActionChangeAdamantium, ActionChangeMana, ActionChangeElixir:
		row, ok := w.actor(robot, a)
		if !ok {
			return
		}
		k := Resource(a - ActionChangeAdamantium)
		if target > 0 && metadata.BodyType(w.bodies.Col(BodyType)[row]) != metadata.Headquarters {
			w.team(w.bodies.Col(BodyTeam)[row]).Mined[k] += target
		}
		w.bodies.Col(resourceField(k))[row] += target

	case ActionSpawnUnit:

	case ActionChangeHealth:
		row, ok := w.actor(robot, a)
		if !ok {
			return
		}
		w.bodies.Col(BodyHP)[row] += target
		if typ := metadata.BodyType(w.bodies.Col(BodyType)[row]); typ.Valid() {
			w.team(w.bodies.Col(BodyTeam)[row]).TotalHP[typ] += int64(target)
		}

	case ActionDieException:
		w.log.Info("robot died with exception", zap.Int32("robot", robot), zap.Int32("round", w.turn+1))

	default:
		w.log.Warn("undefined action", zap.Int32("robot", robot), zap.Int32("action", int32(a)), zap.Int32("target", target))
	}
}

// actor resolves the acting body's row, logging and returning false for a
// null or unknown robot.
func (w *World) actor(robot int32, a Action) (int, bool) {
	if robot == wire.NullRobot {
		w.log.Debug("action without actor", zap.Stringer("action", a))
		return 0, false
	}
	r, err := w.bodies.Lookup(robot)
	if err != nil {
		w.log.Debug("action by unknown robot", zap.Int32("robot", robot), zap.Stringer("action", a))
		return 0, false
	}
	return r.Index(), true
}

// annotateTarget sets the action annotation for a target that is either a
// body id or an encoded location. An attack on a body that is already gone
// keeps its side effects but shows no annotation.
func (w *World) annotateTarget(robot int32, row int, a Action, target int32) {
	if target < 0 {
		x, y := w.XY(DecodeLocation(target))
		w.annotate(robot, row, a, target, x, y)
		return
	}
	tr, err := w.bodies.Lookup(target)
	if err != nil {
		w.log.Debug("action target not found", zap.Int32("robot", robot), zap.Stringer("action", a), zap.Int32("target", target))
		return
	}
	w.annotate(robot, row, a, target, tr.Get(BodyX), tr.Get(BodyY))
}

func (w *World) annotate(robot int32, row int, a Action, target, x, y int32) {
	w.bodies.Col(BodyAction)[row] = int32(a)
	w.bodies.Col(BodyTarget)[row] = target
	w.bodies.Col(BodyTargetX)[row] = x
	w.bodies.Col(BodyTargetY)[row] = y
	w.transient = append(w.transient, robot)
}

func resourceField(k Resource) store.Field {
	switch k {
	case Mana:
		return BodyMana
	case Elixir:
		return BodyElixir
	}
	return BodyAdamantium
}
