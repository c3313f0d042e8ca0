package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

var (
	// ErrSnapshotShape is returned when a snapshot's rows do not match its size.
	ErrSnapshotShape  = errors.New("store: snapshot rows do not match width and height")
	ErrSnapshotStatus = errors.New("store: unknown snapshot status")
)

// Snapshot is a portable YAML record of a result. Cells hold variant names
// ("tile orientation"); unresolved cells are empty strings.
type Snapshot struct {
	Tileset  string     `yaml:"tileset"`
	Width    int        `yaml:"width"`
	Height   int        `yaml:"height"`
	Seed     string     `yaml:"seed"`
	Status   string     `yaml:"status"`
	Steps    int        `yaml:"steps"`
	Attempts int        `yaml:"attempts"`
	Rows     [][]string `yaml:"rows"`
}

// NewSnapshot converts res using the model's variant names.
func NewSnapshot(tileset string, res *wfc.Result, names []string, attempts int) *Snapshot {
	snap := &Snapshot{
		Tileset:  tileset,
		Width:    res.Width,
		Height:   res.Height,
		Seed:     res.Seed.String(),
		Status:   res.Status.String(),
		Steps:    res.Steps,
		Attempts: attempts,
		Rows:     make([][]string, res.Height),
	}
	for y := range snap.Rows {
		row := make([]string, res.Width)
		for x := range row {
			if v := res.At(x, y); v != wfc.Unresolved && v < len(names) {
				row[x] = names[v]
			}
		}
		snap.Rows[y] = row
	}
	return snap
}

// Observed maps the named cells back to variant ids.
func (s *Snapshot) Observed(names []string) ([]int, error) {
	if len(s.Rows) != s.Height {
		return nil, fmt.Errorf("%w: %d rows, height %d", ErrSnapshotShape, len(s.Rows), s.Height)
	}
	ids := make(map[string]int, len(names))
	for v, name := range names {
		ids[name] = v
	}

	observed := make([]int, 0, s.Width*s.Height)
	for y, row := range s.Rows {
		if len(row) != s.Width {
			return nil, fmt.Errorf("%w: row %d has %d cells, width %d", ErrSnapshotShape, y, len(row), s.Width)
		}
		for x, name := range row {
			if name == "" {
				observed = append(observed, wfc.Unresolved)
				continue
			}
			v, ok := ids[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q at (%d, %d)", wfc.ErrUnknownTile, name, x, y)
			}
			observed = append(observed, v)
		}
	}
	return observed, nil
}

// Result rebuilds the solver result recorded in the snapshot.
func (s *Snapshot) Result(names []string) (*wfc.Result, error) {
	observed, err := s.Observed(names)
	if err != nil {
		return nil, err
	}
	status := wfc.StatusRunning
	for status.String() != s.Status {
		if status++; status > wfc.StatusIncomplete {
			return nil, fmt.Errorf("%w: %q", ErrSnapshotStatus, s.Status)
		}
	}
	return &wfc.Result{
		Width:    s.Width,
		Height:   s.Height,
		Status:   status,
		Steps:    s.Steps,
		Seed:     wfc.ParseSeed(s.Seed),
		Observed: observed,
	}, nil
}

// SaveSnapshot writes snap as YAML.
func SaveSnapshot(path string, snap *Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a YAML snapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}
