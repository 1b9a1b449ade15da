package snapshot

import (
	"errors"
	"path/filepath"
	"testing"
)

func testSnapshot() SnapshotV1 {
	return SnapshotV1{
		Header: Header{Match: "m1", Round: 42, Digest: "deadbeef"},
		Winner: 2,
		Bodies: TableV1{IDs: []int32{1, 7}, Columns: [][]int32{{1, 2}, {3, 4}}},
		Strings: map[int32]string{
			7: "mining",
		},
		Paths: []PathV1{{ID: 7, Points: []int32{3, 4, 3, 3}}},
		Teams: []TeamV1{{ID: 1, Resources: []int32{10, 5, 0}, MinedHistory: [][]int32{{1, 2}, nil, nil}}},
		Map:   MapV1{Name: "pinwheel", Width: 4, Height: 3, Walls: []bool{true, false}},
		Wells: []WellV1{{Loc: 5, Resource: 1, Adamantium: 9, Upgraded: true}},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaps", "m1-42.snap.zst")
	if err := WriteSnapshot(path, testSnapshot()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got.Header.Version != Version || got.Header.Round != 42 || got.Header.Digest != "deadbeef" {
		t.Fatalf("header: %+v", got.Header)
	}
	if got.Winner != 2 || got.Bodies.Columns[1][1] != 4 || got.Strings[7] != "mining" {
		t.Fatalf("body: %+v", got)
	}
	if len(got.Paths) != 1 || got.Paths[0].Points[3] != 3 {
		t.Fatalf("paths: %+v", got.Paths)
	}
	if !got.Wells[0].Upgraded || !got.Map.Walls[0] || got.Map.Name != "pinwheel" {
		t.Fatalf("map: %+v wells: %+v", got.Map, got.Wells)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h != got.Header {
		t.Fatalf("ReadHeader: got %+v want %+v", h, got.Header)
	}
}

func TestReadSnapshot_Version(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v2.snap.zst")
	s := testSnapshot()
	s.Header.Version = 2
	if err := WriteSnapshot(path, s); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); !errors.Is(err, ErrVersion) {
		t.Fatalf("expected ErrVersion, got %v", err)
	}
	if _, err := ReadHeader(path); !errors.Is(err, ErrVersion) {
		t.Fatalf("expected ErrVersion from ReadHeader, got %v", err)
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap.zst")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
