// Package wfc implements the simple tiled wave function collapse solver:
// tile symmetries, adjacency propagation and the observe/propagate loop.
package wfc

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrConfiguration      = errors.New("wfc: invalid tileset configuration")
	ErrNoTiles            = fmt.Errorf("%w: no tiles defined", ErrConfiguration)
	ErrDuplicateTile      = fmt.Errorf("%w: duplicate tile name", ErrConfiguration)
	ErrInvalidWeight      = fmt.Errorf("%w: tile weight must be positive and finite", ErrConfiguration)
	ErrUnknownTile        = fmt.Errorf("%w: unknown tile", ErrConfiguration)
	ErrInvalidOrientation = fmt.Errorf("%w: orientation out of range", ErrConfiguration)
	ErrInvalidSize        = errors.New("wfc: invalid grid size")
	ErrInvariant          = errors.New("wfc: solver invariant violated")
	ErrNotCleared         = errors.New("wfc: solver stepped before Clear")
)

// TileDef describes one tile of a tileset.
type TileDef struct {
	Name     string
	Symmetry Symmetry
	Weight   float64
}

// TileRef names a tile and one of its orientations.
type TileRef struct {
	Name        string
	Orientation int
}

// NeighborRule declares that Right may be placed directly east of Left.
type NeighborRule struct {
	Left  TileRef
	Right TileRef
}

// tileInfo is a tile after variant ids have been assigned.
type tileInfo struct {
	TileDef
	base int
}

// Model is the immutable result of compiling a tileset. It is safe to
// share between solvers running in different goroutines.
type Model struct {
	tiles     []tileInfo
	byName    map[string]int
	variantOf []int // variant -> tile index

	actions    ActionTable
	propagator Propagator

	weights          []float64
	weightLogWeights []float64
	sumOfWeights     float64
	sumOfWeightLogs  float64
	startingEntropy  float64

	// simple tiled variants occupy a single cell
	footprint int
}

// NewModel assigns variant ids to the tiles in order, builds the action
// table and derives the propagator from the neighbor rules.
func NewModel(tiles []TileDef, rules []NeighborRule) (*Model, error) {
	if len(tiles) == 0 {
		return nil, ErrNoTiles
	}

	m := &Model{
		byName:    make(map[string]int, len(tiles)),
		footprint: 1,
	}

	for i, def := range tiles {
		if _, exists := m.byName[def.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTile, def.Name)
		}
		if !(def.Weight > 0) || math.IsInf(def.Weight, 0) {
			return nil, fmt.Errorf("%w: tile %q has weight %v", ErrInvalidWeight, def.Name, def.Weight)
		}

		base := len(m.actions)
		m.byName[def.Name] = i
		m.tiles = append(m.tiles, tileInfo{TileDef: def, base: base})
		m.actions = m.actions.appendTile(def.Symmetry, base)

		wlw := def.Weight * math.Log(def.Weight)
		for k := 0; k < def.Symmetry.Cardinality(); k++ {
			m.variantOf = append(m.variantOf, i)
			m.weights = append(m.weights, def.Weight)
			m.weightLogWeights = append(m.weightLogWeights, wlw)
			m.sumOfWeights += def.Weight
			m.sumOfWeightLogs += wlw
		}
	}

	m.startingEntropy = math.Log(m.sumOfWeights) - m.sumOfWeightLogs/m.sumOfWeights

	p, err := buildPropagator(m, rules)
	if err != nil {
		return nil, err
	}
	m.propagator = p

	return m, nil
}

// VariantCount returns T, the number of variants.
func (m *Model) VariantCount() int {
	return len(m.actions)
}

// TileCount returns the number of declared tiles.
func (m *Model) TileCount() int {
	return len(m.tiles)
}

// Propagator returns the compatibility lists consumed by the solver.
func (m *Model) Propagator() Propagator {
	return m.propagator
}

// Variant resolves a tile reference to a variant id.
func (m *Model) Variant(ref TileRef) (int, error) {
	idx, ok := m.byName[ref.Name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTile, ref.Name)
	}
	tile := m.tiles[idx]
	if ref.Orientation < 0 || ref.Orientation >= tile.Symmetry.Cardinality() {
		return 0, fmt.Errorf("%w: tile %q has %d orientations, got %d",
			ErrInvalidOrientation, ref.Name, tile.Symmetry.Cardinality(), ref.Orientation)
	}
	return m.actions[tile.base][ref.Orientation], nil
}

// VariantTile returns the tile name and local orientation of variant v.
func (m *Model) VariantTile(v int) (string, int) {
	tile := m.tiles[m.variantOf[v]]
	return tile.Name, v - tile.base
}

// VariantName returns "<tile> <orientation>" for variant v.
func (m *Model) VariantName(v int) string {
	name, orientation := m.VariantTile(v)
	return fmt.Sprintf("%s %d", name, orientation)
}

// VariantNames returns the names of all variants indexed by variant id.
func (m *Model) VariantNames() []string {
	names := make([]string, m.VariantCount())
	for v := range names {
		names[v] = m.VariantName(v)
	}
	return names
}

// Tiles returns the tile definitions in declaration order.
func (m *Model) Tiles() []TileDef {
	defs := make([]TileDef, len(m.tiles))
	for i, t := range m.tiles {
		defs[i] = t.TileDef
	}
	return defs
}
