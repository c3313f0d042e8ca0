package tileset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses the YAML tileset format.
func ParseYAML(data []byte) (*Tileset, error) {
	var ts Tileset
	if err := yaml.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("failed to parse tileset YAML: %w", err)
	}
	if err := ts.validate(); err != nil {
		return nil, err
	}
	return &ts, nil
}

// SaveYAML writes the tileset in YAML form. Neighbor references are
// written in their short form, so "line 0" becomes "line".
func (ts *Tileset) SaveYAML(path string) error {
	out := *ts
	out.Neighbors = make([]Neighbor, len(ts.Neighbors))
	for i, n := range ts.Neighbors {
		left, err := ParseRef(n.Left)
		if err != nil {
			return fmt.Errorf("neighbor %d left: %w", i, err)
		}
		right, err := ParseRef(n.Right)
		if err != nil {
			return fmt.Errorf("neighbor %d right: %w", i, err)
		}
		out.Neighbors[i] = Neighbor{Left: FormatRef(left), Right: FormatRef(right)}
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal tileset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tileset: %w", err)
	}
	return nil
}
