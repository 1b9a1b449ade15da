// Package player drives a World through a match, caching snapshots so that
// seeking backward does not replay from round 0.
package player

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"matchreplay.ai/internal/sim/gameworld"
	"matchreplay.ai/internal/wire"
)

var ErrBaseState = errors.New("base world is not at round 0")

type Options struct {
	// Stride is the round interval between cached snapshots.
	Stride int
	// OnRound, when set, is called once for every round applied beyond the
	// farthest round computed so far. The World must not be retained.
	OnRound func(w *gameworld.World, r *wire.Round)
	Logger  *zap.Logger
}

// Player owns every World it hands out. Current is replaced, never mutated,
// so a World returned by Seek stays valid until the caller seeks again.
type Player struct {
	match *wire.Match
	opts  Options
	log   *zap.Logger

	cache    map[int32]*gameworld.World
	current  *gameworld.World
	farthest int32
}

func New(match *wire.Match, base *gameworld.World, opts Options) (*Player, error) {
	if opts.Stride <= 0 {
		opts.Stride = base.Tuning().SnapshotStride
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Player{opts: opts, log: opts.Logger}
	if err := p.Reset(match, base); err != nil {
		return nil, err
	}
	return p, nil
}

// Reset loads a new match. base must be the match's round 0 state.
func (p *Player) Reset(match *wire.Match, base *gameworld.World) error {
	if match == nil || base == nil {
		return errors.New("player: nil match or base world")
	}
	if base.Turn() != 0 {
		return fmt.Errorf("%w: turn %d", ErrBaseState, base.Turn())
	}
	p.match = match
	p.cache = map[int32]*gameworld.World{0: base.Copy()}
	p.current = base.Copy()
	p.farthest = 0
	return nil
}

func (p *Player) Current() *gameworld.World { return p.current }
func (p *Player) Turn() int32               { return p.current.Turn() }
func (p *Player) MaxRound() int32           { return p.match.MaxRound() }
func (p *Player) Farthest() int32           { return p.farthest }
func (p *Player) Match() *wire.Match        { return p.match }

func (p *Player) CachedRounds() []int32 {
	out := make([]int32, 0, len(p.cache))
	for r := range p.cache {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Seek moves to round, clamped to [0, MaxRound]. Rounds are replayed on a
// private copy; Current changes only if the replay completes. A cancelled
// context abandons the copy and returns ctx.Err().
func (p *Player) Seek(ctx context.Context, round int32) (*gameworld.World, error) {
	round = max(0, min(round, p.MaxRound()))
	if round == p.current.Turn() {
		return p.current, nil
	}

	start := p.nearest(round)
	if cur := p.current.Turn(); cur < round && cur > start.Turn() {
		start = p.current
	}
	work := start.Copy()

	for work.Turn() < round {
		if err := ctx.Err(); err != nil {
			return p.current, err
		}
		next := work.Turn() + 1
		r := p.match.Round(next)
		if err := work.ApplyRound(r); err != nil {
			return p.current, fmt.Errorf("seek to %d: %w", round, err)
		}
		if next == p.MaxRound() && p.match.Footer != nil {
			work.SetWinner(p.match.Footer.Winner)
		}
		if next > p.farthest {
			p.farthest = next
			if p.opts.OnRound != nil {
				p.opts.OnRound(work, r)
			}
		}
		if int(next)%p.opts.Stride == 0 {
			if _, ok := p.cache[next]; !ok {
				p.cache[next] = work.Copy()
				p.log.Debug("snapshot cached", zap.Int32("round", next), zap.Int("cached", len(p.cache)))
			}
		}
	}
	p.current = work
	return work, nil
}

func (p *Player) StepForward(ctx context.Context) (*gameworld.World, error) {
	return p.Seek(ctx, p.current.Turn()+1)
}

func (p *Player) StepBackward(ctx context.Context) (*gameworld.World, error) {
	return p.Seek(ctx, p.current.Turn()-1)
}

// AddSnapshot caches a copy of w, typically one restored from disk, so
// later seeks can start from it. Rounds up to w's turn count as computed.
func (p *Player) AddSnapshot(w *gameworld.World) error {
	t := w.Turn()
	if t < 0 || t > p.MaxRound() {
		return fmt.Errorf("player: snapshot round %d outside match (max %d)", t, p.MaxRound())
	}
	p.cache[t] = w.Copy()
	p.farthest = max(p.farthest, t)
	return nil
}

// Invalidate drops cached snapshots after round from. Round 0 is kept.
func (p *Player) Invalidate(from int32) {
	for r := range p.cache {
		if r > from && r != 0 {
			delete(p.cache, r)
		}
	}
	if p.farthest > from {
		p.farthest = max(from, 0)
	}
}

func (p *Player) nearest(round int32) *gameworld.World {
	best := int32(0)
	for r := range p.cache {
		if r <= round && r > best {
			best = r
		}
	}
	return p.cache[best]
}
