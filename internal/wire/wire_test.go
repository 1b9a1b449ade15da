package wire

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
)

func testMatch() *Match {
	h := &Header{
		MapName:    "pinwheel",
		MaxX:       4,
		MaxY:       3,
		RandomSeed: 99,
		Walls:      []bool{false, true, false, false, false, false, false, false, true, true, false, false},
		Islands:    []int32{0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 2, 0},
		Symmetry:   2,
		MaxRounds:  2000,
		Teams:      []TeamInfo{{ID: 1, Name: "A", PackageName: "a"}, {ID: 2, Name: "B", PackageName: "b"}},
	}
	h.Bodies.Append(1, 1, 0, 0, 0)
	h.Bodies.Append(2, 2, 0, 3, 2)

	r1 := &Round{RoundID: 1}
	r1.Teams = TeamResourceTable{TeamIDs: []int32{1, 2}, Adamantium: []int32{2, 2}, Mana: []int32{-1, 0}, Elixir: []int32{0, 0}}
	r1.Spawned.Append(10, 1, 1, 1, 0)
	r1.Actions.Append(10, 3, -6)
	r1.Actions.Append(NullRobot, 5, 0)
	r1.Wells = WellTable{Locs: []int32{5}, Resources: []int32{1}, Adamantium: []int32{3}, Mana: []int32{0}, Elixir: []int32{0}, Upgraded: []bool{true}}
	r1.Strings = StringTable{IDs: []int32{10}, Values: []string{"hello"}}
	r1.Dots = DotTable{IDs: []int32{10}, Xs: []int32{1}, Ys: []int32{1}, Red: []int32{255}, Green: []int32{0}, Blue: []int32{7}}

	r2 := &Round{RoundID: 2}
	r2.Moved = MoveTable{IDs: []int32{10}, Xs: []int32{2}, Ys: []int32{0}}
	r2.DiedIDs = []int32{2}
	r2.Bytecodes = BytecodeTable{IDs: []int32{1, 10}, Used: []int32{1200, 800}}

	return &Match{Header: h, Rounds: []*Round{r1, r2}, Footer: &Footer{Winner: 1, TotalRounds: 2}}
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testMatch()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	m, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Header.MapName != "pinwheel" || m.Header.Width() != 4 || m.Header.Height() != 3 {
		t.Fatalf("header: %+v", m.Header)
	}
	if !m.Header.Walls[1] || m.Header.Walls[0] || !m.Header.Walls[9] {
		t.Fatalf("walls: %v", m.Header.Walls)
	}
	if len(m.Header.Clouds) != 0 || len(m.Header.Currents) != 0 {
		t.Fatalf("empty layers decoded as %d/%d cells", len(m.Header.Clouds), len(m.Header.Currents))
	}
	if m.Header.Islands[10] != 2 || m.Header.Teams[1].Name != "B" {
		t.Fatalf("islands/teams: %v %v", m.Header.Islands, m.Header.Teams)
	}
	if got := m.MaxRound(); got != 2 {
		t.Fatalf("MaxRound: got %d want 2", got)
	}
	r1 := m.Round(1)
	if r1.Actions.Targets[0] != -6 || r1.Actions.RobotIDs[1] != NullRobot {
		t.Fatalf("actions: %+v", r1.Actions)
	}
	if !r1.Wells.Upgraded[0] || r1.Strings.Values[0] != "hello" || r1.Dots.Blue[0] != 7 {
		t.Fatalf("round 1 payload: %+v", r1)
	}
	if r2 := m.Round(2); r2.DiedIDs[0] != 2 || r2.Bytecodes.Used[1] != 800 {
		t.Fatalf("round 2 payload: %+v", r2)
	}
	if m.Footer == nil || m.Footer.Winner != 1 {
		t.Fatalf("footer: %+v", m.Footer)
	}
}

func TestReader_ScratchReuse(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testMatch()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	var scratch Round
	var seen []int32
	for {
		kind, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if kind != FrameRound {
			continue
		}
		if err := r.DecodeRound(&scratch); err != nil {
			t.Fatalf("DecodeRound: %v", err)
		}
		seen = append(seen, scratch.RoundID)
		if scratch.RoundID == 2 && (len(scratch.Spawned.IDs) != 0 || len(scratch.Actions.RobotIDs) != 0) {
			t.Fatalf("stale columns from round 1 leaked into round 2: %+v", scratch)
		}
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("rounds: %v", seen)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not zstd at all"))); err == nil {
		t.Fatalf("expected error for garbage input")
	}

	m := testMatch()
	m.Rounds[1].RoundID = 3
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(&buf); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for round gap, got %v", err)
	}

	m = testMatch()
	m.Rounds[0].Moved.Xs = []int32{1}
	if err := m.Validate(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for ragged columns, got %v", err)
	}

	m = testMatch()
	m.Header.Walls = m.Header.Walls[:5]
	if err := m.Validate(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for short layer, got %v", err)
	}
}

func TestDecoder_Truncated(t *testing.T) {
	var e encoder
	e.round(testMatch().Rounds[0])
	var d decoder
	d.reset(e.buf[:len(e.buf)-3])
	var r Round
	d.round(&r)
	if err := d.finish(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestWriteReadMatch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m", "test.match.zst")
	if err := WriteMatch(path, testMatch()); err != nil {
		t.Fatalf("WriteMatch: %v", err)
	}
	m, err := ReadMatch(path)
	if err != nil {
		t.Fatalf("ReadMatch: %v", err)
	}
	if len(m.Rounds) != 2 || m.Header.RandomSeed != 99 {
		t.Fatalf("match: rounds=%d seed=%d", len(m.Rounds), m.Header.RandomSeed)
	}
}
