package wfc

import (
	"errors"
	"math"
	"testing"
)

// pipesModel is a small tileset of empty ground, straight pipes and
// crossings.
func pipesModel(t *testing.T) *Model {
	t.Helper()
	tiles := []TileDef{
		{Name: "empty", Symmetry: SymmetryX, Weight: 4},
		{Name: "line", Symmetry: SymmetryI, Weight: 2},
		{Name: "cross", Symmetry: SymmetryX, Weight: 0.5},
	}
	rules := []NeighborRule{
		{Left: TileRef{"empty", 0}, Right: TileRef{"empty", 0}},
		{Left: TileRef{"empty", 0}, Right: TileRef{"line", 1}},
		{Left: TileRef{"line", 1}, Right: TileRef{"line", 1}},
		{Left: TileRef{"line", 0}, Right: TileRef{"line", 0}},
		{Left: TileRef{"line", 0}, Right: TileRef{"cross", 0}},
		{Left: TileRef{"cross", 0}, Right: TileRef{"cross", 0}},
	}
	m, err := NewModel(tiles, rules)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func TestNewModelVariants(t *testing.T) {
	m := pipesModel(t)

	if got := m.VariantCount(); got != 4 {
		t.Fatalf("VariantCount() = %d, want 4", got)
	}
	if got := m.TileCount(); got != 3 {
		t.Errorf("TileCount() = %d, want 3", got)
	}

	want := []string{"empty 0", "line 0", "line 1", "cross 0"}
	for v, name := range m.VariantNames() {
		if name != want[v] {
			t.Errorf("VariantName(%d) = %q, want %q", v, name, want[v])
		}
	}

	v, err := m.Variant(TileRef{"line", 1})
	if err != nil || v != 2 {
		t.Errorf("Variant(line 1) = (%d, %v), want (2, nil)", v, err)
	}
	if w := m.weights[1]; w != 2 {
		t.Errorf("weights[1] = %v, want 2", w)
	}
}

func TestStartingEntropyUniform(t *testing.T) {
	m, err := NewModel([]TileDef{
		{Name: "a", Symmetry: SymmetryX, Weight: 1},
		{Name: "b", Symmetry: SymmetryX, Weight: 1},
		{Name: "c", Symmetry: SymmetryX, Weight: 1},
	}, nil)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	if got, want := m.startingEntropy, math.Log(3); math.Abs(got-want) > 1e-12 {
		t.Errorf("startingEntropy = %v, want %v", got, want)
	}
}

func TestNewModelErrors(t *testing.T) {
	one := []TileDef{{Name: "a", Symmetry: SymmetryI, Weight: 1}}

	tests := []struct {
		name  string
		tiles []TileDef
		rules []NeighborRule
		want  error
	}{
		{"no tiles", nil, nil, ErrNoTiles},
		{"duplicate", []TileDef{{Name: "a", Weight: 1}, {Name: "a", Weight: 1}}, nil, ErrDuplicateTile},
		{"zero weight", []TileDef{{Name: "a", Weight: 0}}, nil, ErrInvalidWeight},
		{"negative weight", []TileDef{{Name: "a", Weight: -1}}, nil, ErrInvalidWeight},
		{"nan weight", []TileDef{{Name: "a", Weight: math.NaN()}}, nil, ErrInvalidWeight},
		{"infinite weight", []TileDef{{Name: "a", Weight: math.Inf(1)}}, nil, ErrInvalidWeight},
		{"unknown tile", one, []NeighborRule{{Left: TileRef{"a", 0}, Right: TileRef{"b", 0}}}, ErrUnknownTile},
		{"bad orientation", one, []NeighborRule{{Left: TileRef{"a", 2}, Right: TileRef{"a", 0}}}, ErrInvalidOrientation},
	}

	for _, tc := range tests {
		_, err := NewModel(tc.tiles, tc.rules)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: error %v does not wrap ErrConfiguration", tc.name, err)
		}
	}
}
