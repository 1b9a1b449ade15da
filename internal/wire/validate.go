package wire

import "fmt"

// Validate checks the structural preconditions the replay core relies on:
// a header with a positive map size, consistent column lengths and round
// ids numbered 1..N without gaps. Map layers may be empty (all zero) or
// exactly one entry per cell.
func (m *Match) Validate() error {
	if m.Header == nil {
		return fmt.Errorf("%w: missing header", ErrMalformed)
	}
	if err := m.Header.Validate(); err != nil {
		return err
	}
	for i, r := range m.Rounds {
		if want := int32(i + 1); r.RoundID != want {
			return fmt.Errorf("%w: round frame %d has id %d, want %d", ErrMalformed, i+1, r.RoundID, want)
		}
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (h *Header) Validate() error {
	if h.Width() <= 0 || h.Height() <= 0 {
		return fmt.Errorf("%w: map %q has size %dx%d", ErrMalformed, h.MapName, h.Width(), h.Height())
	}
	area := h.Area()
	layers := []struct {
		name string
		n    int
	}{
		{"walls", len(h.Walls)},
		{"clouds", len(h.Clouds)},
		{"currents", len(h.Currents)},
		{"resource_wells", len(h.ResourceWells)},
		{"islands", len(h.Islands)},
	}
	for _, l := range layers {
		if l.n != 0 && l.n != area {
			return fmt.Errorf("%w: header %s has %d cells, want %d", ErrMalformed, l.name, l.n, area)
		}
	}
	if err := sameLen("header bodies", len(h.Bodies.IDs), len(h.Bodies.TeamIDs), len(h.Bodies.Types), len(h.Bodies.Xs), len(h.Bodies.Ys)); err != nil {
		return err
	}
	return nil
}

func (r *Round) Validate() error {
	where := func(table string) string { return fmt.Sprintf("round %d %s", r.RoundID, table) }
	checks := []struct {
		name string
		lens []int
	}{
		{"teams", []int{len(r.Teams.TeamIDs), len(r.Teams.Adamantium), len(r.Teams.Mana), len(r.Teams.Elixir)}},
		{"spawned", []int{len(r.Spawned.IDs), len(r.Spawned.TeamIDs), len(r.Spawned.Types), len(r.Spawned.Xs), len(r.Spawned.Ys)}},
		{"moved", []int{len(r.Moved.IDs), len(r.Moved.Xs), len(r.Moved.Ys)}},
		{"actions", []int{len(r.Actions.RobotIDs), len(r.Actions.Actions), len(r.Actions.Targets)}},
		{"wells", []int{len(r.Wells.Locs), len(r.Wells.Resources), len(r.Wells.Adamantium), len(r.Wells.Mana), len(r.Wells.Elixir), len(r.Wells.Upgraded)}},
		{"islands", []int{len(r.Islands.IDs), len(r.Islands.Owners), len(r.Islands.FlipProgress)}},
		{"strings", []int{len(r.Strings.IDs), len(r.Strings.Values)}},
		{"dots", []int{len(r.Dots.IDs), len(r.Dots.Xs), len(r.Dots.Ys), len(r.Dots.Red), len(r.Dots.Green), len(r.Dots.Blue)}},
		{"lines", []int{len(r.Lines.IDs), len(r.Lines.StartXs), len(r.Lines.StartYs), len(r.Lines.EndXs), len(r.Lines.EndYs), len(r.Lines.Red), len(r.Lines.Green), len(r.Lines.Blue)}},
		{"bytecodes", []int{len(r.Bytecodes.IDs), len(r.Bytecodes.Used)}},
	}
	for _, c := range checks {
		if err := sameLen(where(c.name), c.lens...); err != nil {
			return err
		}
	}
	return nil
}

func sameLen(where string, lens ...int) error {
	for i := 1; i < len(lens); i++ {
		if lens[i] != lens[0] {
			return fmt.Errorf("%w: %s column %d has %d entries, want %d", ErrMalformed, where, i, lens[i], lens[0])
		}
	}
	return nil
}
