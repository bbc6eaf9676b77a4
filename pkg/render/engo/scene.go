// pkg/render/engo/scene.go
package engo

import (
	"bytes"
	"context"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opd-ai/go-collide/pkg/debug"
	"github.com/opd-ai/go-collide/pkg/engine"
	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/physics"
	"github.com/opd-ai/go-collide/pkg/render"
)

const hudFontURL = "goregular.ttf"

// Source supplies the frames the viewer draws
type Source interface {
	// Frame returns the newest frame, or false when nothing new arrived.
	Frame(dt float32) (*debug.Snapshot, bool)
	Status() string
}

// StreamSource drains a snapshot channel such as StreamClient.Snapshots
type StreamSource struct {
	frames <-chan debug.Snapshot
	closed bool
	last   uint64
}

// NewStreamSource wraps frames
func NewStreamSource(frames <-chan debug.Snapshot) *StreamSource {
	return &StreamSource{frames: frames}
}

// Frame implements Source without blocking
func (s *StreamSource) Frame(dt float32) (*debug.Snapshot, bool) {
	var latest *debug.Snapshot
	for !s.closed {
		select {
		case snap, ok := <-s.frames:
			if !ok {
				s.closed = true
				continue
			}
			latest = &snap
			s.last = snap.Tick
		default:
			return latest, latest != nil
		}
	}
	return latest, latest != nil
}

// Status implements Source
func (s *StreamSource) Status() string {
	switch {
	case s.closed:
		return "stream closed"
	case s.last == 0:
		return "waiting for snapshot"
	default:
		return "stream live"
	}
}

// WorldSource advances a local world by one tick per frame
type WorldSource struct {
	world *engine.World
	ctx   context.Context
}

// NewWorldSource wraps w. Do not run w elsewhere at the same time.
func NewWorldSource(ctx context.Context, w *engine.World) *WorldSource {
	return &WorldSource{world: w, ctx: ctx}
}

// Frame implements Source
func (s *WorldSource) Frame(dt float32) (*debug.Snapshot, bool) {
	if s.ctx.Err() != nil {
		return nil, false
	}
	s.world.Tick(s.ctx)
	snap := s.world.Snapshot()
	return &snap, true
}

// Status implements Source
func (s *WorldSource) Status() string {
	return "local world"
}

// Steer implements Steerer for the world's player
func (s *WorldSource) Steer(intent physics.Vector2D) {
	s.world.Steer(intent)
}

// ViewerScene draws frames from a Source with Engo
type ViewerScene struct {
	source  Source
	steerer Steerer
	speed   float64
	bus     *event.Bus
	follow  uint64
	palette *Palette

	overlay *Overlay
	camera  *CameraSystem
	input   *InputSystem
	hud     *HUDSystem

	subs   []*event.Subscription
	frames uint64
	last   *debug.Snapshot
}

// SceneOption configures a ViewerScene.
type SceneOption func(*ViewerScene)

// WithSteering lets the movement keys steer s at speed units per tick.
func WithSteering(s Steerer, speed float64) SceneOption {
	return func(v *ViewerScene) {
		v.steerer = s
		v.speed = speed
	}
}

// WithEvents logs collision events from bus on the HUD. Only use it when
// the bus is published on from the render loop.
func WithEvents(bus *event.Bus) SceneOption {
	return func(v *ViewerScene) {
		v.bus = bus
	}
}

// WithFollow starts the camera on the given collider.
func WithFollow(id uint64) SceneOption {
	return func(v *ViewerScene) {
		v.follow = id
	}
}

// NewViewerScene creates a scene drawing frames from source
func NewViewerScene(source Source, opts ...SceneOption) *ViewerScene {
	v := &ViewerScene{
		source:  source,
		palette: NewPalette(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Type returns the scene type (required by Engo)
func (v *ViewerScene) Type() string {
	return "ViewerScene"
}

// Preload registers the embedded HUD font (required by Engo)
func (v *ViewerScene) Preload() {
	if err := engo.Files.LoadReaderData(hudFontURL, bytes.NewReader(goregular.TTF)); err != nil {
		panic("Failed to load HUD font: " + err.Error())
	}
}

// Setup is called when the scene starts (required by Engo)
func (v *ViewerScene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)
	common.SetBackground(v.palette.Background())

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)
	v.build(renderSystem)

	font := &common.Font{URL: hudFontURL, FG: color.White, Size: 14}
	if err := font.CreatePreloaded(); err != nil {
		panic("Failed to create HUD font: " + err.Error())
	}
	v.hud.SetFont(font)

	SetupInputBindings()
	SetupCameraControls()

	world.AddSystem(v.camera)
	world.AddSystem(v.input)
	world.AddSystem(&frameSystem{scene: v})
	world.AddSystem(v.hud)
}

// build wires the overlay and the systems onto a sprite system
func (v *ViewerScene) build(system spriteSystem) {
	v.overlay = NewOverlay(system, v.palette)
	v.camera = NewCameraSystem()
	v.camera.FollowID(v.follow)
	v.input = NewInputSystem(v.camera, v.overlay, v.steerer, v.speed)
	v.hud = NewHUDSystem(system)
	if v.bus != nil {
		v.subs = v.hud.Watch(v.bus)
	}
}

// advance pulls the next frame unless the view is paused
func (v *ViewerScene) advance(dt float32) {
	if v.input.Paused() {
		return
	}
	snap, ok := v.source.Frame(dt)
	v.hud.SetStatus(v.source.Status())
	if !ok {
		return
	}
	v.apply(snap)
}

// apply draws snap and points the camera and HUD at it
func (v *ViewerScene) apply(snap *debug.Snapshot) {
	render.DrawSnapshot(v.overlay, snap)
	v.camera.UpdateFromSnapshot(snap)
	v.hud.UpdateSnapshot(snap)

	var movers []uint64
	for _, c := range snap.Colliders {
		if c.Category.CanMove() {
			movers = append(movers, c.ID)
		}
	}
	v.input.SetFollowCandidates(movers)

	v.last = snap
	v.frames++
}

// Exit drops the HUD's event subscriptions
func (v *ViewerScene) Exit() {
	for _, sub := range v.subs {
		sub.Cancel()
	}
	v.subs = nil
}

// frameSystem feeds the scene from the ECS update loop
type frameSystem struct {
	scene *ViewerScene
}

func (f *frameSystem) Update(dt float32) {
	f.scene.advance(dt)
}

func (f *frameSystem) Remove(ecs.BasicEntity) {}
