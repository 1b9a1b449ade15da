package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"matchreplay.ai/internal/sim/encoding"
)

var ErrMalformed = errors.New("malformed match data")

// maxColumn bounds a single decoded column so a corrupt count cannot force
// a huge allocation.
const maxColumn = 1 << 24

type encoder struct {
	buf []byte
}

func (e *encoder) reset() { e.buf = e.buf[:0] }

func (e *encoder) i32(v int32) { e.buf = binary.AppendVarint(e.buf, int64(v)) }

func (e *encoder) count(n int) { e.buf = binary.AppendUvarint(e.buf, uint64(n)) }

func (e *encoder) col(vals []int32) {
	e.count(len(vals))
	for _, v := range vals {
		e.buf = binary.AppendVarint(e.buf, int64(v))
	}
}

func (e *encoder) bools(vals []bool) {
	e.count(len(vals))
	var cur byte
	for i, v := range vals {
		if v {
			cur |= 1 << (i % 8)
		}
		if i%8 == 7 {
			e.buf = append(e.buf, cur)
			cur = 0
		}
	}
	if len(vals)%8 != 0 {
		e.buf = append(e.buf, cur)
	}
}

func (e *encoder) str(s string) {
	e.count(len(s))
	e.buf = append(e.buf, s...)
}

func (e *encoder) strs(vals []string) {
	e.count(len(vals))
	for _, s := range vals {
		e.str(s)
	}
}

// layer writes a per-cell map layer run-length encoded.
func (e *encoder) layer(vals []int32) {
	e.count(len(vals))
	raw := encoding.AppendRLE(nil, vals)
	e.count(len(raw))
	e.buf = append(e.buf, raw...)
}

func (e *encoder) boolLayer(vals []bool) {
	tmp := make([]int32, len(vals))
	for i, v := range vals {
		if v {
			tmp[i] = 1
		}
	}
	e.layer(tmp)
}

// decoder reads a single frame payload. The first failure sticks; later
// reads return zero values and the error is reported once by finish.
type decoder struct {
	b   []byte
	off int
	err error

	tmp []int32
}

func (d *decoder) reset(b []byte) {
	d.b = b
	d.off = 0
	d.err = nil
}

func (d *decoder) fail(what string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s at offset %d", ErrMalformed, what, d.off)
	}
}

func (d *decoder) finish() error {
	if d.err == nil && d.off != len(d.b) {
		d.fail(fmt.Sprintf("%d trailing bytes", len(d.b)-d.off))
	}
	return d.err
}

func (d *decoder) i32() int32 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.b[d.off:])
	if n <= 0 {
		d.fail("bad varint")
		return 0
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		d.fail("int32 out of range")
		return 0
	}
	d.off += n
	return int32(v)
}

func (d *decoder) count() int {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.b[d.off:])
	if n <= 0 {
		d.fail("bad count")
		return 0
	}
	if v > maxColumn {
		d.fail("count too large")
		return 0
	}
	d.off += n
	return int(v)
}

// col decodes an int32 column into dst, reusing its capacity.
func (d *decoder) col(dst []int32) []int32 {
	n := d.count()
	dst = dst[:0]
	for i := 0; i < n && d.err == nil; i++ {
		dst = append(dst, d.i32())
	}
	return dst
}

func (d *decoder) bools(dst []bool) []bool {
	n := d.count()
	dst = dst[:0]
	nbytes := (n + 7) / 8
	if d.err != nil {
		return dst
	}
	if d.off+nbytes > len(d.b) {
		d.fail("short bool column")
		return dst
	}
	for i := 0; i < n; i++ {
		dst = append(dst, d.b[d.off+i/8]&(1<<(i%8)) != 0)
	}
	d.off += nbytes
	return dst
}

func (d *decoder) str() string {
	n := d.count()
	if d.err != nil {
		return ""
	}
	if d.off+n > len(d.b) {
		d.fail("short string")
		return ""
	}
	s := string(d.b[d.off : d.off+n])
	d.off += n
	return s
}

func (d *decoder) strs(dst []string) []string {
	n := d.count()
	dst = dst[:0]
	for i := 0; i < n && d.err == nil; i++ {
		dst = append(dst, d.str())
	}
	return dst
}

func (d *decoder) layer(dst []int32) []int32 {
	n := d.count()
	size := d.count()
	if d.err != nil {
		return dst[:0]
	}
	if d.off+size > len(d.b) {
		d.fail("short layer")
		return dst[:0]
	}
	out, err := encoding.DecodeRLE(d.b[d.off:d.off+size], n, dst)
	if err != nil {
		d.fail("layer: " + err.Error())
		return out[:0]
	}
	d.off += size
	return out
}

func (d *decoder) boolLayer(dst []bool) []bool {
	d.tmp = d.layer(d.tmp)
	dst = dst[:0]
	for _, v := range d.tmp {
		dst = append(dst, v != 0)
	}
	return dst
}

func (e *encoder) header(h *Header) {
	e.str(h.MapName)
	e.i32(h.MinX)
	e.i32(h.MinY)
	e.i32(h.MaxX)
	e.i32(h.MaxY)
	e.bodies(&h.Bodies)
	e.i32(h.RandomSeed)
	e.boolLayer(h.Walls)
	e.boolLayer(h.Clouds)
	e.layer(h.Currents)
	e.layer(h.ResourceWells)
	e.layer(h.Islands)
	e.i32(h.Symmetry)
	e.i32(h.MaxRounds)
	e.count(len(h.Teams))
	for _, t := range h.Teams {
		e.i32(t.ID)
		e.str(t.Name)
		e.str(t.PackageName)
	}
}

func (d *decoder) header(h *Header) {
	h.MapName = d.str()
	h.MinX = d.i32()
	h.MinY = d.i32()
	h.MaxX = d.i32()
	h.MaxY = d.i32()
	d.bodies(&h.Bodies)
	h.RandomSeed = d.i32()
	h.Walls = d.boolLayer(h.Walls)
	h.Clouds = d.boolLayer(h.Clouds)
	h.Currents = d.layer(h.Currents)
	h.ResourceWells = d.layer(h.ResourceWells)
	h.Islands = d.layer(h.Islands)
	h.Symmetry = d.i32()
	h.MaxRounds = d.i32()
	n := d.count()
	h.Teams = h.Teams[:0]
	for i := 0; i < n && d.err == nil; i++ {
		h.Teams = append(h.Teams, TeamInfo{ID: d.i32(), Name: d.str(), PackageName: d.str()})
	}
}

func (e *encoder) bodies(b *BodyTable) {
	e.col(b.IDs)
	e.col(b.TeamIDs)
	e.col(b.Types)
	e.col(b.Xs)
	e.col(b.Ys)
}

func (d *decoder) bodies(b *BodyTable) {
	b.IDs = d.col(b.IDs)
	b.TeamIDs = d.col(b.TeamIDs)
	b.Types = d.col(b.Types)
	b.Xs = d.col(b.Xs)
	b.Ys = d.col(b.Ys)
}

func (e *encoder) round(r *Round) {
	e.i32(r.RoundID)

	e.col(r.Teams.TeamIDs)
	e.col(r.Teams.Adamantium)
	e.col(r.Teams.Mana)
	e.col(r.Teams.Elixir)

	e.bodies(&r.Spawned)

	e.col(r.Moved.IDs)
	e.col(r.Moved.Xs)
	e.col(r.Moved.Ys)

	e.col(r.Actions.RobotIDs)
	e.col(r.Actions.Actions)
	e.col(r.Actions.Targets)

	e.col(r.Wells.Locs)
	e.col(r.Wells.Resources)
	e.col(r.Wells.Adamantium)
	e.col(r.Wells.Mana)
	e.col(r.Wells.Elixir)
	e.bools(r.Wells.Upgraded)

	e.col(r.Islands.IDs)
	e.col(r.Islands.Owners)
	e.col(r.Islands.FlipProgress)

	e.col(r.DiedIDs)

	e.col(r.Strings.IDs)
	e.strs(r.Strings.Values)

	e.col(r.Dots.IDs)
	e.col(r.Dots.Xs)
	e.col(r.Dots.Ys)
	e.col(r.Dots.Red)
	e.col(r.Dots.Green)
	e.col(r.Dots.Blue)

	e.col(r.Lines.IDs)
	e.col(r.Lines.StartXs)
	e.col(r.Lines.StartYs)
	e.col(r.Lines.EndXs)
	e.col(r.Lines.EndYs)
	e.col(r.Lines.Red)
	e.col(r.Lines.Green)
	e.col(r.Lines.Blue)

	e.col(r.Bytecodes.IDs)
	e.col(r.Bytecodes.Used)
}

func (d *decoder) round(r *Round) {
	r.RoundID = d.i32()

	r.Teams.TeamIDs = d.col(r.Teams.TeamIDs)
	r.Teams.Adamantium = d.col(r.Teams.Adamantium)
	r.Teams.Mana = d.col(r.Teams.Mana)
	r.Teams.Elixir = d.col(r.Teams.Elixir)

	d.bodies(&r.Spawned)

	r.Moved.IDs = d.col(r.Moved.IDs)
	r.Moved.Xs = d.col(r.Moved.Xs)
	r.Moved.Ys = d.col(r.Moved.Ys)

	r.Actions.RobotIDs = d.col(r.Actions.RobotIDs)
	r.Actions.Actions = d.col(r.Actions.Actions)
	r.Actions.Targets = d.col(r.Actions.Targets)

	r.Wells.Locs = d.col(r.Wells.Locs)
	r.Wells.Resources = d.col(r.Wells.Resources)
	r.Wells.Adamantium = d.col(r.Wells.Adamantium)
	r.Wells.Mana = d.col(r.Wells.Mana)
	r.Wells.Elixir = d.col(r.Wells.Elixir)
	r.Wells.Upgraded = d.bools(r.Wells.Upgraded)

	r.Islands.IDs = d.col(r.Islands.IDs)
	r.Islands.Owners = d.col(r.Islands.Owners)
	r.Islands.FlipProgress = d.col(r.Islands.FlipProgress)

	r.DiedIDs = d.col(r.DiedIDs)

	r.Strings.IDs = d.col(r.Strings.IDs)
	r.Strings.Values = d.strs(r.Strings.Values)

	r.Dots.IDs = d.col(r.Dots.IDs)
	r.Dots.Xs = d.col(r.Dots.Xs)
	r.Dots.Ys = d.col(r.Dots.Ys)
	r.Dots.Red = d.col(r.Dots.Red)
	r.Dots.Green = d.col(r.Dots.Green)
	r.Dots.Blue = d.col(r.Dots.Blue)

	r.Lines.IDs = d.col(r.Lines.IDs)
	r.Lines.StartXs = d.col(r.Lines.StartXs)
	r.Lines.StartYs = d.col(r.Lines.StartYs)
	r.Lines.EndXs = d.col(r.Lines.EndXs)
	r.Lines.EndYs = d.col(r.Lines.EndYs)
	r.Lines.Red = d.col(r.Lines.Red)
	r.Lines.Green = d.col(r.Lines.Green)
	r.Lines.Blue = d.col(r.Lines.Blue)

	r.Bytecodes.IDs = d.col(r.Bytecodes.IDs)
	r.Bytecodes.Used = d.col(r.Bytecodes.Used)
}

func (e *encoder) footer(f *Footer) {
	e.i32(f.Winner)
	e.i32(f.TotalRounds)
}

func (d *decoder) footer(f *Footer) {
	f.Winner = d.i32()
	f.TotalRounds = d.i32()
}
