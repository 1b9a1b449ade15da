package gameworld

// Copy returns an independent deep copy of w. Metadata, tuning and the
// logger are shared since they never change after construction.
func (w *World) Copy() *World {
	out := &World{
		bodies:  w.bodies.Clone(),
		died:    w.died.Clone(),
		dots:    w.dots.Clone(),
		lines:   w.lines.Clone(),
		strings: map[int32]string{},
		paths:   map[int32][]Point{},
		teams:   map[int32]*TeamStats{},
	}
	out.copyScalars(w)
	out.copyMaps(w)
	return out
}

// CopyFrom overwrites w with a deep copy of src, reusing w's table and map
// storage.
func (w *World) CopyFrom(src *World) {
	if w == src {
		return
	}
	w.bodies.CopyFrom(src.bodies)
	w.died.CopyFrom(src.died)
	w.dots.CopyFrom(src.dots)
	w.lines.CopyFrom(src.lines)
	w.copyScalars(src)
	w.copyMaps(src)
}

func (w *World) copyScalars(src *World) {
	w.meta = src.meta
	w.tuning = src.tuning
	w.log = src.log
	w.turn = src.turn
	w.winner = src.winner
	w.transient = append(w.transient[:0], src.transient...)
}

func (w *World) copyMaps(src *World) {
	clear(w.strings)
	for id, s := range src.strings {
		w.strings[id] = s
	}

	clear(w.paths)
	for id, p := range src.paths {
		c := make([]Point, len(p), max(cap(p), w.tuning.PathHistoryLength))
		copy(c, p)
		w.paths[id] = c
	}

	clear(w.teams)
	for id, t := range src.teams {
		w.teams[id] = t.clone()
	}

	w.mapst.copyFrom(&src.mapst)
}

