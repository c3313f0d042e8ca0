// Package tileset loads simple tiled tileset descriptions from XML or YAML
// files and compiles them into a wfc.Model.
package tileset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lawnchairsociety/tiledwfc/internal/logger"
	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

var (
	ErrMissingSection   = fmt.Errorf("%w: missing section", wfc.ErrConfiguration)
	ErrInvalidReference = fmt.Errorf("%w: invalid tile reference", wfc.ErrConfiguration)
	ErrUnknownFormat    = errors.New("tileset: unknown file format")
	ErrNotFound         = errors.New("tileset: not found")
)

// Tile is one tile entry of a tileset file.
type Tile struct {
	Name     string   `yaml:"name"`
	Symmetry string   `yaml:"symmetry,omitempty"`
	Weight   *float64 `yaml:"weight,omitempty"` // nil means 1
}

// Neighbor is one adjacency rule: Right may appear east of Left.
// References are "name" or "name orientation".
type Neighbor struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// Tileset is a parsed tileset file.
type Tileset struct {
	Name      string     `yaml:"name,omitempty"`
	TileSize  int        `yaml:"tile_size,omitempty"`
	Unique    bool       `yaml:"unique,omitempty"`
	Tiles     []Tile     `yaml:"tiles"`
	Neighbors []Neighbor `yaml:"neighbors"`
}

// Load reads a tileset, choosing the parser by file extension. The name
// defaults to the file stem.
func Load(path string) (*Tileset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tileset: %w", err)
	}

	var ts *Tileset
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xml":
		ts, err = ParseXML(data)
	case ".yaml", ".yml":
		ts, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if ts.Name == "" {
		ts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ts, nil
}

// Library is a set of tilesets keyed by name.
type Library map[string]*Tileset

// LoadDir loads every .xml, .yaml and .yml file in dir. Files that fail to
// parse are logged and skipped.
func LoadDir(dir string) (Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tileset directory: %w", err)
	}

	lib := make(Library)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".xml", ".yaml", ".yml":
		default:
			continue
		}

		ts, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Warning("Skipping tileset", "file", e.Name(), "error", err)
			continue
		}
		if _, dup := lib[ts.Name]; dup {
			logger.Warning("Duplicate tileset name", "name", ts.Name, "file", e.Name())
			continue
		}
		lib[ts.Name] = ts
	}
	return lib, nil
}

// Get returns the named tileset.
func (l Library) Get(name string) (*Tileset, error) {
	ts, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return ts, nil
}

// Names returns the tileset names in sorted order.
func (l Library) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions converts the tileset into model inputs. Unknown symmetry
// labels fall back to X with a warning.
func (ts *Tileset) Definitions() ([]wfc.TileDef, []wfc.NeighborRule, error) {
	defs := make([]wfc.TileDef, 0, len(ts.Tiles))
	for _, t := range ts.Tiles {
		sym, ok := wfc.LookupSymmetry(t.Symmetry)
		if !ok {
			logger.Warning("Unknown symmetry, using X", "tileset", ts.Name, "tile", t.Name, "symmetry", t.Symmetry)
		}
		weight := 1.0
		if t.Weight != nil {
			weight = *t.Weight
		}
		defs = append(defs, wfc.TileDef{Name: t.Name, Symmetry: sym, Weight: weight})
	}

	rules := make([]wfc.NeighborRule, 0, len(ts.Neighbors))
	for i, n := range ts.Neighbors {
		left, err := ParseRef(n.Left)
		if err != nil {
			return nil, nil, fmt.Errorf("neighbor %d left: %w", i, err)
		}
		right, err := ParseRef(n.Right)
		if err != nil {
			return nil, nil, fmt.Errorf("neighbor %d right: %w", i, err)
		}
		rules = append(rules, wfc.NeighborRule{Left: left, Right: right})
	}
	return defs, rules, nil
}

// Model compiles the tileset.
func (ts *Tileset) Model() (*wfc.Model, error) {
	defs, rules, err := ts.Definitions()
	if err != nil {
		return nil, fmt.Errorf("tileset %s: %w", ts.Name, err)
	}
	m, err := wfc.NewModel(defs, rules)
	if err != nil {
		return nil, fmt.Errorf("tileset %s: %w", ts.Name, err)
	}
	logger.Debug("Compiled tileset", "tileset", ts.Name, "tiles", m.TileCount(), "variants", m.VariantCount())
	return m, nil
}

// ParseRef parses "name" or "name orientation".
func ParseRef(s string) (wfc.TileRef, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		return wfc.TileRef{Name: fields[0]}, nil
	case 2:
		k, err := strconv.Atoi(fields[1])
		if err != nil {
			return wfc.TileRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, s)
		}
		return wfc.TileRef{Name: fields[0], Orientation: k}, nil
	default:
		return wfc.TileRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, s)
	}
}

// FormatRef is the inverse of ParseRef.
func FormatRef(ref wfc.TileRef) string {
	if ref.Orientation == 0 {
		return ref.Name
	}
	return ref.Name + " " + strconv.Itoa(ref.Orientation)
}

func (ts *Tileset) validate() error {
	if ts.Tiles == nil {
		return fmt.Errorf("%w: tiles", ErrMissingSection)
	}
	if ts.Neighbors == nil {
		return fmt.Errorf("%w: neighbors", ErrMissingSection)
	}
	return nil
}
