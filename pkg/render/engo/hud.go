// pkg/render/engo/hud.go
package engo

import (
	"fmt"
	"image/color"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-collide/pkg/debug"
	"github.com/opd-ai/go-collide/pkg/event"
)

// HUDSystem shows detector statistics and a short log of collision events
type HUDSystem struct {
	system spriteSystem
	text   []*sprite

	status   string
	snapshot *debug.Snapshot

	messages    []Message
	maxMessages int

	// Font for text rendering; nothing is drawn until one is set.
	font     *common.Font
	hudColor color.Color
}

// Message is one line of the event log
type Message struct {
	Text      string
	Timestamp time.Time
}

// NewHUDSystem creates a new HUD that draws through system
func NewHUDSystem(system spriteSystem) *HUDSystem {
	return &HUDSystem{
		system:      system,
		status:      "waiting for snapshot",
		maxMessages: 8,
		hudColor:    color.RGBA{255, 255, 255, 255},
	}
}

// Add satisfies the ecs.System interface
func (hud *HUDSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	// Not used for HUD system
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {
	// Not used for HUD system
}

// Update redraws the HUD text
func (hud *HUDSystem) Update(dt float32) {
	if hud.font == nil || hud.system == nil {
		return
	}

	lines := hud.Lines()
	for len(hud.text) < len(lines) {
		s := &sprite{BasicEntity: ecs.NewBasic()}
		s.StartZIndex = 100
		s.Color = hud.hudColor
		s.SetShader(common.HUDShader)
		hud.system.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
		hud.text = append(hud.text, s)
	}

	for i, s := range hud.text {
		if i >= len(lines) {
			s.Hidden = true
			continue
		}
		s.Hidden = false
		s.Drawable = common.Text{Font: hud.font, Text: lines[i]}
		s.Position = engo.Point{X: 10, Y: 10 + float32(i)*18}
	}
}

// Lines returns the HUD text, one entry per row
func (hud *HUDSystem) Lines() []string {
	lines := []string{hud.status}
	if s := hud.snapshot; s != nil {
		st := s.Stats
		lines = append(lines,
			fmt.Sprintf("tick %d  colliders %d  nodes %d", s.Tick, len(s.Colliders), len(s.Nodes)),
			fmt.Sprintf("moves %d  applied %d  clamped %d  blocked %d", st.Attempted, st.Applied, st.Clamped, st.Blocked),
			fmt.Sprintf("triggers %d  policy errors %d", st.Triggers, st.PolicyErrors),
		)
	}
	for _, m := range hud.messages {
		lines = append(lines, m.Text)
	}
	return lines
}

// UpdateSnapshot shows the statistics of s
func (hud *HUDSystem) UpdateSnapshot(s *debug.Snapshot) {
	hud.snapshot = s
}

// SetStatus sets the first HUD line, e.g. the stream connection state
func (hud *HUDSystem) SetStatus(status string) {
	hud.status = status
}

// AddMessage appends a line to the event log
func (hud *HUDSystem) AddMessage(text string) {
	hud.messages = append(hud.messages, Message{Text: text, Timestamp: time.Now()})
	if len(hud.messages) > hud.maxMessages {
		hud.messages = hud.messages[len(hud.messages)-hud.maxMessages:]
	}
}

// Messages returns the event log, oldest first
func (hud *HUDSystem) Messages() []Message {
	return hud.messages
}

// Watch logs trigger entries and blocked moves published on bus
func (hud *HUDSystem) Watch(bus *event.Bus) []*event.Subscription {
	return []*event.Subscription{
		bus.Subscribe(event.TriggerEntered, func(e event.Event) {
			if te, ok := e.(*event.TriggerEvent); ok {
				hud.AddMessage(fmt.Sprintf("collider %d entered trigger %d", te.MoverID, te.TriggerID))
			}
		}),
		bus.Subscribe(event.MoveBlocked, func(e event.Event) {
			if be, ok := e.(*event.MoveBlockedEvent); ok {
				hud.AddMessage(fmt.Sprintf("collider %d blocked by %d", be.MoverID, be.BlockerID))
			}
		}),
	}
}

// SetFont sets the font used for HUD text
func (hud *HUDSystem) SetFont(font *common.Font) {
	hud.font = font
}
