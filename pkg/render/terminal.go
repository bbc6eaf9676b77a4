package render

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/physics"
)

type cell struct {
	r     rune
	style tcell.Style
}

var (
	nodeStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	leafStyle = tcell.StyleDefault.Foreground(tcell.ColorDarkCyan)
)

var categoryGlyphs = map[collision.Category]cell{
	collision.PlayerCharacter:    {'@', tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)},
	collision.NonPlayerCharacter: {'n', tcell.StyleDefault.Foreground(tcell.ColorGreen)},
	collision.Scenery:            {'#', tcell.StyleDefault.Foreground(tcell.ColorWhite)},
	collision.Movable:            {'m', tcell.StyleDefault.Foreground(tcell.ColorBlue)},
	collision.Effect:             {'*', tcell.StyleDefault.Foreground(tcell.ColorRed)},
	collision.Trigger:            {'?', tcell.StyleDefault.Foreground(tcell.ColorPurple)},
}

// TerminalOverlay draws the index as text on a tcell screen. One cell
// covers scale world units; the view is centred on a world position.
type TerminalOverlay struct {
	screen    tcell.Screen
	width     int
	height    int
	buffer    [][]cell
	scale     float64
	centerPos physics.Vector2D
}

// NewTerminalOverlay creates an overlay drawing onto screen, which must
// already be initialised.
func NewTerminalOverlay(screen tcell.Screen, scale float64) *TerminalOverlay {
	if scale <= 0 {
		scale = 1
	}
	o := &TerminalOverlay{
		screen: screen,
		scale:  scale,
	}
	o.resize()
	return o
}

// SetCenter sets the world position shown in the middle of the screen
func (o *TerminalOverlay) SetCenter(pos physics.Vector2D) {
	o.centerPos = pos
}

// Size returns the drawing area in cells
func (o *TerminalOverlay) Size() (int, int) {
	return o.width, o.height
}

func (o *TerminalOverlay) resize() {
	width, height := o.screen.Size()
	if width == o.width && height == o.height && o.buffer != nil {
		return
	}
	o.width, o.height = width, height
	o.buffer = make([][]cell, height)
	for i := range o.buffer {
		o.buffer[i] = make([]cell, width)
	}
}

// worldToScreen converts world coordinates to cell coordinates
func (o *TerminalOverlay) worldToScreen(pos physics.Vector2D) (int, int) {
	screenX := int(math.Floor((pos.X-o.centerPos.X)/o.scale + float64(o.width)/2))
	screenY := int(math.Floor((pos.Y-o.centerPos.Y)/o.scale + float64(o.height)/2))
	return screenX, screenY
}

// cellRect returns the inclusive cell range covered by b.
func (o *TerminalOverlay) cellRect(b physics.Bounds) (x0, y0, x1, y1 int) {
	x0, y0 = o.worldToScreen(b.Position())
	right := (b.Right()-o.centerPos.X)/o.scale + float64(o.width)/2
	bottom := (b.Bottom()-o.centerPos.Y)/o.scale + float64(o.height)/2
	x1 = max(x0, int(math.Ceil(right))-1)
	y1 = max(y0, int(math.Ceil(bottom))-1)
	return x0, y0, x1, y1
}

func (o *TerminalOverlay) set(x, y int, c cell) {
	if x >= 0 && x < o.width && y >= 0 && y < o.height {
		o.buffer[y][x] = c
	}
}

// Cell returns the rune drawn at a cell, or 0 outside the screen.
func (o *TerminalOverlay) Cell(x, y int) rune {
	if x < 0 || x >= o.width || y < 0 || y >= o.height {
		return 0
	}
	return o.buffer[y][x].r
}

// Clear implements Overlay
func (o *TerminalOverlay) Clear() {
	o.resize()
	for y := range o.buffer {
		for x := range o.buffer[y] {
			o.buffer[y][x] = cell{' ', tcell.StyleDefault}
		}
	}
}

// DrawNode implements Overlay. Leaves are outlined in a separate colour.
func (o *TerminalOverlay) DrawNode(bounds physics.Bounds, depth int, leaf bool) {
	style := nodeStyle
	if leaf {
		style = leafStyle
	}
	x0, y0, x1, y1 := o.cellRect(bounds)
	for x := x0; x <= x1; x++ {
		o.set(x, y0, cell{'-', style})
		o.set(x, y1, cell{'-', style})
	}
	for y := y0; y <= y1; y++ {
		o.set(x0, y, cell{'|', style})
		o.set(x1, y, cell{'|', style})
	}
	for _, corner := range [][2]int{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		o.set(corner[0], corner[1], cell{'+', style})
	}
}

// DrawCollider implements Overlay
func (o *TerminalOverlay) DrawCollider(id uint64, bounds physics.Bounds, category collision.Category) {
	glyph, ok := categoryGlyphs[category]
	if !ok {
		glyph = cell{'?', tcell.StyleDefault}
	}
	x0, y0, x1, y1 := o.cellRect(bounds)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			o.set(x, y, glyph)
		}
	}
}

// Present implements Overlay
func (o *TerminalOverlay) Present() {
	for y, row := range o.buffer {
		for x, c := range row {
			o.screen.SetContent(x, y, c.r, nil, c.style)
		}
	}
	o.screen.Show()
}
