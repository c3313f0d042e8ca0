package tileset

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

type xmlSet struct {
	XMLName   xml.Name      `xml:"set"`
	Size      int           `xml:"size,attr"`
	Unique    string        `xml:"unique,attr"`
	Tiles     *xmlTiles     `xml:"tiles"`
	Neighbors *xmlNeighbors `xml:"neighbors"`
}

type xmlTiles struct {
	Tiles []xmlTile `xml:"tile"`
}

type xmlTile struct {
	Name     string `xml:"name,attr"`
	Symmetry string `xml:"symmetry,attr"`
	Weight   string `xml:"weight,attr"`
}

type xmlNeighbors struct {
	Neighbors []xmlNeighbor `xml:"neighbor"`
}

type xmlNeighbor struct {
	Left  string `xml:"left,attr"`
	Right string `xml:"right,attr"`
}

// ParseXML parses the <set> tileset format:
//
//	<set unique="False">
//	  <tiles><tile name="line" symmetry="I" weight="2"/></tiles>
//	  <neighbors><neighbor left="line 1" right="line 1"/></neighbors>
//	</set>
func ParseXML(data []byte) (*Tileset, error) {
	var set xmlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse tileset XML: %w", err)
	}

	ts := &Tileset{TileSize: set.Size}
	if set.Unique != "" {
		ts.Unique, _ = strconv.ParseBool(strings.ToLower(set.Unique))
	}

	if set.Tiles != nil {
		ts.Tiles = make([]Tile, 0, len(set.Tiles.Tiles))
		for _, t := range set.Tiles.Tiles {
			tile := Tile{Name: t.Name, Symmetry: t.Symmetry}
			if t.Weight != "" {
				w, err := strconv.ParseFloat(t.Weight, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: tile %q weight %q", wfc.ErrInvalidWeight, t.Name, t.Weight)
				}
				tile.Weight = &w
			}
			ts.Tiles = append(ts.Tiles, tile)
		}
	}

	if set.Neighbors != nil {
		ts.Neighbors = make([]Neighbor, 0, len(set.Neighbors.Neighbors))
		for _, n := range set.Neighbors.Neighbors {
			ts.Neighbors = append(ts.Neighbors, Neighbor{Left: n.Left, Right: n.Right})
		}
	}

	if err := ts.validate(); err != nil {
		return nil, err
	}
	return ts, nil
}
