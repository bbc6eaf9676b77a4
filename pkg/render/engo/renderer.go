// pkg/render/engo/renderer.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/physics"
)

const (
	nodeZIndex     = 0
	colliderZIndex = 10
)

// spriteSystem is the part of common.RenderSystem the overlay drives.
type spriteSystem interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

type sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// Overlay implements render.Overlay on top of an Engo render system.
// Node sprites are pooled by draw order; collider sprites are keyed by
// collider ID and removed once a frame no longer mentions them.
type Overlay struct {
	system  spriteSystem
	palette *Palette

	nodes     []*sprite
	usedNodes int
	showNodes bool

	colliders map[uint64]*sprite
	seen      map[uint64]bool
}

// NewOverlay creates an overlay that adds its sprites to system
func NewOverlay(system spriteSystem, palette *Palette) *Overlay {
	if palette == nil {
		palette = NewPalette()
	}
	return &Overlay{
		system:    system,
		palette:   palette,
		showNodes: true,
		colliders: make(map[uint64]*sprite),
		seen:      make(map[uint64]bool),
	}
}

// Clear implements render.Overlay
func (o *Overlay) Clear() {
	o.usedNodes = 0
	clear(o.seen)
}

// DrawNode implements render.Overlay
func (o *Overlay) DrawNode(bounds physics.Bounds, depth int, leaf bool) {
	if !o.showNodes {
		return
	}
	if o.usedNodes == len(o.nodes) {
		o.nodes = append(o.nodes, o.newSprite(nodeZIndex))
	}
	s := o.nodes[o.usedNodes]
	o.usedNodes++

	s.Drawable = o.palette.NodeDrawable(depth, leaf)
	s.Color = color.Transparent
	s.Hidden = false
	placeSprite(s, bounds)
}

// DrawCollider implements render.Overlay
func (o *Overlay) DrawCollider(id uint64, bounds physics.Bounds, category collision.Category) {
	s, ok := o.colliders[id]
	if !ok {
		s = o.newSprite(colliderZIndex)
		o.colliders[id] = s
	}
	o.seen[id] = true

	s.Drawable = o.palette.ColliderDrawable(category)
	s.Color = o.palette.CategoryColor(category)
	if category == collision.Trigger {
		s.Color = color.Transparent
	}
	s.Hidden = false
	placeSprite(s, bounds)
}

// Present implements render.Overlay. Unused node sprites are hidden and
// sprites of colliders missing from the frame are dropped.
func (o *Overlay) Present() {
	for _, s := range o.nodes[o.usedNodes:] {
		s.Hidden = true
	}
	for id, s := range o.colliders {
		if !o.seen[id] {
			o.system.Remove(s.BasicEntity)
			delete(o.colliders, id)
		}
	}
}

// SetShowNodes toggles drawing of the index structure
func (o *Overlay) SetShowNodes(show bool) {
	o.showNodes = show
}

// ShowNodes reports whether index nodes are drawn
func (o *Overlay) ShowNodes() bool {
	return o.showNodes
}

// VisibleNodes returns the number of node outlines in the last frame
func (o *Overlay) VisibleNodes() int {
	return o.usedNodes
}

// ColliderSprites returns the number of live collider sprites
func (o *Overlay) ColliderSprites() int {
	return len(o.colliders)
}

func (o *Overlay) newSprite(z float32) *sprite {
	s := &sprite{BasicEntity: ecs.NewBasic()}
	s.StartZIndex = z
	o.system.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	return s
}

func placeSprite(s *sprite, b physics.Bounds) {
	s.Position = engo.Point{X: float32(b.X), Y: float32(b.Y)}
	s.Width = float32(b.Width)
	s.Height = float32(b.Height)
}
