package reject

import (
	"testing"

	"github.com/doomtools/nodebuild/blockmap"
	"github.com/doomtools/nodebuild/config"
	"github.com/doomtools/nodebuild/geom"
	"github.com/doomtools/nodebuild/level"
)

// twoRooms builds two square rooms joined by a see-thru linedef.
func twoRooms() *level.Level {
	lvl := &level.Level{}
	lvl.SetVertices([]geom.Point{
		{0, 0}, {1024, 0}, {1024, 1024}, {0, 1024},
		{2048, 0}, {2048, 1024},
	})
	lvl.Sidedefs = []level.Sidedef{
		{Sector: 0}, {Sector: 0}, {Sector: 0},
		{Sector: 1}, {Sector: 1}, {Sector: 1},
		{Sector: 0}, {Sector: 1},
	}
	lvl.Sectors = []level.Sector{
		{FloorHeight: 0, CeilingHeight: 128},
		{FloorHeight: 0, CeilingHeight: 128},
	}
	lvl.SetLinedefs([]level.Linedef{
		{Start: 0, End: 1, SideRight: 0, SideLeft: level.NoSidedef},
		{Start: 2, End: 3, SideRight: 1, SideLeft: level.NoSidedef},
		{Start: 3, End: 0, SideRight: 2, SideLeft: level.NoSidedef},
		{Start: 4, End: 5, SideRight: 3, SideLeft: level.NoSidedef},
		{Start: 5, End: 2, SideRight: 4, SideLeft: level.NoSidedef},
		{Start: 1, End: 4, SideRight: 5, SideLeft: level.NoSidedef},
		{Start: 1, End: 2, SideRight: 6, SideLeft: 7},
	})
	return lvl
}

func buildMatrix(t *testing.T, lvl *level.Level, opts config.RejectOptions) [][]visibility {
	t.Helper()
	bm, err := blockmap.Build(lvl, config.DefaultBlockmapOptions())
	if err != nil {
		t.Fatal(err)
	}
	data, err := Build(lvl, bm, opts)
	if err != nil {
		t.Fatal(err)
	}
	n := len(lvl.Sectors)
	m := make([][]visibility, n)
	for i := range m {
		m[i] = make([]visibility, n)
		for j := 0; j < n; j++ {
			bit := i*n + j
			if data[bit/8]&(1<<uint(bit%8)) == 0 {
				m[i][j] = visible
			} else {
				m[i][j] = hidden
			}
		}
	}
	return m
}

func TestEmptyRejectIsAllVisible(t *testing.T) {
	lvl := twoRooms()
	opts := config.DefaultRejectOptions()
	opts.Empty = true
	m := buildMatrix(t, lvl, opts)
	for i := range m {
		for j := range m[i] {
			if m[i][j] != visible {
				t.Errorf("empty-reject mode: (%d,%d) = %v, want visible", i, j, m[i][j])
			}
		}
	}
}

func TestDiagonalAlwaysVisible(t *testing.T) {
	lvl := twoRooms()
	m := buildMatrix(t, lvl, config.DefaultRejectOptions())
	for i := range m {
		if m[i][i] != visible {
			t.Errorf("diagonal (%d,%d) = %v, want visible", i, i, m[i][i])
		}
	}
}

func TestMatrixSymmetric(t *testing.T) {
	lvl := twoRooms()
	m := buildMatrix(t, lvl, config.DefaultRejectOptions())
	for i := range m {
		for j := range m[i] {
			if m[i][j] != m[j][i] {
				t.Errorf("matrix asymmetric at (%d,%d): %v vs (%d,%d): %v", i, j, m[i][j], j, i, m[j][i])
			}
		}
	}
}

func TestAdjoiningSectorsVisible(t *testing.T) {
	lvl := twoRooms()
	m := buildMatrix(t, lvl, config.DefaultRejectOptions())
	if m[0][1] != visible {
		t.Errorf("directly-joined sectors should see each other, got %v", m[0][1])
	}
}

func TestHasSpecialEffectsDetectsAsymmetry(t *testing.T) {
	data := make([]byte, 1)
	data[0] |= 1 << 1 // bit (0,1) set, (1,0) not -> asymmetric
	if !hasSpecialEffects(data, 2) {
		t.Error("expected asymmetric matrix to be flagged as special effects")
	}
}

func TestHasSpecialEffectsDetectsDiagonal(t *testing.T) {
	data := make([]byte, 1)
	data[0] |= 1 << 0 // bit (0,0) set
	if !hasSpecialEffects(data, 2) {
		t.Error("expected set diagonal bit to be flagged as special effects")
	}
}
