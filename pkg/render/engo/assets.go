// pkg/render/engo/assets.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-collide/pkg/collision"
)

// Palette holds the colours and drawables used by the viewer. Everything
// is generated from shapes; the viewer ships no image files.
type Palette struct {
	categoryColors map[collision.Category]color.Color

	nodeColor  color.RGBA
	leafColor  color.RGBA
	background color.Color
	unknown    color.Color
}

// NewPalette creates the default palette
func NewPalette() *Palette {
	return &Palette{
		categoryColors: map[collision.Category]color.Color{
			collision.PlayerCharacter:    color.RGBA{255, 220, 0, 255},
			collision.NonPlayerCharacter: color.RGBA{0, 200, 255, 255},
			collision.Scenery:            color.RGBA{160, 160, 160, 255},
			collision.Movable:            color.RGBA{200, 120, 40, 255},
			collision.Effect:             color.RGBA{255, 0, 200, 160},
			collision.Trigger:            color.RGBA{0, 255, 0, 96},
		},
		nodeColor:  color.RGBA{90, 90, 90, 255},
		leafColor:  color.RGBA{0, 140, 140, 255},
		background: color.RGBA{16, 16, 24, 255},
		unknown:    color.White,
	}
}

// CategoryColor returns the fill colour for a collider category
func (p *Palette) CategoryColor(c collision.Category) color.Color {
	if col, ok := p.categoryColors[c]; ok {
		return col
	}
	return p.unknown
}

// NodeColor returns the outline colour for an index node. Deeper nodes
// fade so the coarse structure stays readable.
func (p *Palette) NodeColor(depth int, leaf bool) color.Color {
	c := p.nodeColor
	if leaf {
		c = p.leafColor
	}
	alpha := 255 - depth*32
	if alpha < 64 {
		alpha = 64
	}
	c.A = uint8(alpha)
	return c
}

// Background returns the clear colour
func (p *Palette) Background() color.Color {
	return p.background
}

// NodeDrawable returns an outline for an index node
func (p *Palette) NodeDrawable(depth int, leaf bool) common.Drawable {
	return common.Rectangle{
		BorderWidth: 1,
		BorderColor: p.NodeColor(depth, leaf),
	}
}

// ColliderDrawable returns a filled box for a collider
func (p *Palette) ColliderDrawable(c collision.Category) common.Drawable {
	if c == collision.Trigger {
		return common.Rectangle{
			BorderWidth: 1,
			BorderColor: p.CategoryColor(c),
		}
	}
	return common.Rectangle{}
}
