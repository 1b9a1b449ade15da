package gameworld

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"slices"

	"matchreplay.ai/internal/sim/store"
)

// Digest hashes the full replay state in a fixed order. Two Worlds with the
// same digest render identically.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestI64(h, &tmp, int64(w.turn))
	digestI64(h, &tmp, int64(w.winner))

	digestTable(h, &tmp, w.bodies, true)
	digestTable(h, &tmp, w.died, true)
	digestTable(h, &tmp, w.dots, false)
	digestTable(h, &tmp, w.lines, false)

	for _, id := range sortedKeys(w.strings) {
		digestI64(h, &tmp, int64(id))
		digestString(h, &tmp, w.strings[id])
	}
	for _, id := range sortedKeys(w.paths) {
		p := w.paths[id]
		digestI64(h, &tmp, int64(id))
		digestI64(h, &tmp, int64(len(p)))
		for _, pt := range p {
			digestI64(h, &tmp, int64(pt.X))
			digestI64(h, &tmp, int64(pt.Y))
		}
	}
	for _, id := range sortedKeys(w.teams) {
		digestI64(h, &tmp, int64(id))
		w.teams[id].digest(h, &tmp)
	}
	w.mapst.digest(h, &tmp)

	tr := slices.Clone(w.transient)
	slices.Sort(tr)
	for _, id := range tr {
		digestI64(h, &tmp, int64(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// digestTable hashes rows by id when sorted is set; tables that are never
// deleted from keep insertion order and are hashed as stored.
func digestTable(h hash.Hash, tmp *[8]byte, t *store.Table, sorted bool) {
	h.Write([]byte(t.Schema().Name))
	digestI64(h, tmp, int64(t.Len()))
	ids := t.IDs()
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	if sorted {
		slices.SortFunc(order, func(a, b int) int { return int(ids[a]) - int(ids[b]) })
	}
	nf := len(t.Schema().Fields)
	for _, row := range order {
		digestI64(h, tmp, int64(ids[row]))
		for f := 0; f < nf; f++ {
			digestI64(h, tmp, int64(t.Col(store.Field(f))[row]))
		}
	}
}

func (t *TeamStats) digest(h hash.Hash, tmp *[8]byte) {
	for i := range t.Robots {
		digestI64(h, tmp, int64(t.Robots[i]))
		digestI64(h, tmp, t.TotalHP[i])
	}
	for k := Resource(0); k < NumResources; k++ {
		digestI64(h, tmp, int64(t.Resources[k]))
		digestI64(h, tmp, int64(t.Change[k]))
		digestI64(h, tmp, int64(t.Mined[k]))
		for _, v := range t.MinedHistory[k].Values() {
			digestI64(h, tmp, int64(v))
		}
		digestI64(h, tmp, int64(len(t.Income[k])))
		for _, s := range t.Income[k] {
			digestI64(h, tmp, int64(s.Round))
			digestI64(h, tmp, int64(math.Float64bits(s.Average)))
		}
	}
}

func (m *MapStats) digest(h hash.Hash, tmp *[8]byte) {
	digestString(h, tmp, m.Name)
	for _, v := range []int32{m.MinX, m.MinY, m.Width, m.Height, m.Symmetry, m.RandomSeed, m.MaxRounds} {
		digestI64(h, tmp, int64(v))
	}
	for _, loc := range sortedKeys(m.Wells) {
		ws := m.Wells[loc]
		digestI64(h, tmp, int64(loc))
		digestI64(h, tmp, int64(ws.Resource))
		digestI64(h, tmp, int64(ws.Adamantium))
		digestI64(h, tmp, int64(ws.Mana))
		digestI64(h, tmp, int64(ws.Elixir))
		h.Write([]byte{boolByte(ws.Upgraded)})
	}
	for _, id := range sortedKeys(m.Islands) {
		is := m.Islands[id]
		digestI64(h, tmp, int64(id))
		digestI64(h, tmp, int64(is.Owner))
		digestI64(h, tmp, int64(is.FlipProgress))
		h.Write([]byte{boolByte(is.Accelerated)})
		digestI64(h, tmp, int64(len(is.Cells)))
		digestI64(h, tmp, int64(len(is.AuraCells)))
	}
	for _, e := range m.Effects {
		digestI64(h, tmp, int64(e.Kind))
		digestI64(h, tmp, int64(e.TurnsRemaining))
		digestI64(h, tmp, int64(e.Team))
		digestI64(h, tmp, int64(e.Loc))
	}
}

func digestI64(h hash.Hash, tmp *[8]byte, v int64) {
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	h.Write(tmp[:])
}

func digestString(h hash.Hash, tmp *[8]byte, s string) {
	digestI64(h, tmp, int64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
