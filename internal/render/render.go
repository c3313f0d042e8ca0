// Package render turns solver results into images using per-variant tile
// images derived from a tileset's base images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"path/filepath"
	"strconv"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"

	"github.com/lawnchairsociety/tiledwfc/internal/tileset"
	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

var (
	ErrTileSize     = errors.New("render: tile images must be square and share one size")
	ErrNoImages     = errors.New("render: atlas has no images")
	ErrVariantRange = errors.New("render: variant outside atlas")
)

// Atlas holds one square image per variant.
type Atlas struct {
	Size   int
	Images []image.Image
}

// NewAtlas validates that every image is square and of the same size.
func NewAtlas(images []image.Image) (*Atlas, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	size := images[0].Bounds().Dx()
	for v, img := range images {
		b := img.Bounds()
		if b.Dx() != size || b.Dy() != size {
			return nil, fmt.Errorf("%w: variant %d is %dx%d, want %dx%d", ErrTileSize, v, b.Dx(), b.Dy(), size, size)
		}
	}
	return &Atlas{Size: size, Images: images}, nil
}

// Orientations derives n orientations from a base image. Orientations 1
// to 3 each rotate the previous one a quarter turn counter-clockwise and
// orientation k >= 4 mirrors orientation k-4 horizontally.
func Orientations(base image.Image, n int) []image.Image {
	out := make([]image.Image, 0, n)
	for k := 0; k < n; k++ {
		switch {
		case k == 0:
			out = append(out, base)
		case k < 4:
			out = append(out, quarterTurn(out[k-1]))
		default:
			out = append(out, transform.FlipH(out[k-4]))
		}
	}
	return out
}

// quarterTurn rotates a square image a quarter turn counter-clockwise by
// moving whole pixels, so dst(x, y) = src(n-1-y, x) for every size.
func quarterTurn(img image.Image) *image.RGBA {
	src := clone.AsShallowRGBA(img)
	b := src.Bounds()
	n := b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			si := src.PixOffset(b.Min.X+n-1-y, b.Min.Y+x)
			di := dst.PixOffset(x, y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

// LoadAtlas reads the images of every variant from dir. Unique tilesets
// provide "<tile> <k>.png" for each orientation; otherwise "<tile>.png" is
// loaded and the other orientations are derived from it.
func LoadAtlas(dir string, ts *tileset.Tileset, m *wfc.Model) (*Atlas, error) {
	images := make([]image.Image, 0, m.VariantCount())
	for _, tile := range m.Tiles() {
		n := tile.Symmetry.Cardinality()
		if ts.Unique {
			for k := 0; k < n; k++ {
				img, err := imgio.Open(filepath.Join(dir, tile.Name+" "+strconv.Itoa(k)+".png"))
				if err != nil {
					return nil, fmt.Errorf("tile %s %d: %w", tile.Name, k, err)
				}
				images = append(images, img)
			}
			continue
		}

		base, err := imgio.Open(filepath.Join(dir, tile.Name+".png"))
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", tile.Name, err)
		}
		images = append(images, Orientations(base, n)...)
	}

	atlas, err := NewAtlas(images)
	if err != nil {
		return nil, err
	}
	if ts.TileSize > 0 && ts.TileSize != atlas.Size {
		return nil, fmt.Errorf("%w: tileset declares %d, images are %d", ErrTileSize, ts.TileSize, atlas.Size)
	}
	return atlas, nil
}

// Compose draws every observed cell of res. Unresolved cells stay
// transparent.
func (a *Atlas) Compose(res *wfc.Result) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, res.Width*a.Size, res.Height*a.Size))
	for y := 0; y < res.Height; y++ {
		for x := 0; x < res.Width; x++ {
			v := res.At(x, y)
			if v == wfc.Unresolved {
				continue
			}
			if v < 0 || v >= len(a.Images) {
				return nil, fmt.Errorf("%w: %d at (%d, %d)", ErrVariantRange, v, x, y)
			}
			src := a.Images[v]
			r := image.Rect(x*a.Size, y*a.Size, (x+1)*a.Size, (y+1)*a.Size)
			draw.Draw(dst, r, src, src.Bounds().Min, draw.Src)
		}
	}
	return dst, nil
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
