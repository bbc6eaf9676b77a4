// pkg/render/engo/input.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-collide/pkg/physics"
)

// Steerer receives the displacement the keyboard requests per tick
type Steerer interface {
	Steer(intent physics.Vector2D)
}

// InputSystem maps keys to viewer actions. With a Steerer attached the
// movement keys drive it; otherwise they pan the camera.
type InputSystem struct {
	camera  *CameraSystem
	overlay *Overlay
	steerer Steerer

	speed    float64
	panSpeed float64

	paused     bool
	candidates []uint64
	lastIntent physics.Vector2D

	// Button queries, swapped out in tests.
	down        func(name string) bool
	justPressed func(name string) bool
}

// NewInputSystem creates a new input system. steerer may be nil; speed is
// the per-tick displacement requested while a movement key is held.
func NewInputSystem(camera *CameraSystem, overlay *Overlay, steerer Steerer, speed float64) *InputSystem {
	return &InputSystem{
		camera:      camera,
		overlay:     overlay,
		steerer:     steerer,
		speed:       speed,
		panSpeed:    300,
		down:        func(name string) bool { return engo.Input.Button(name).Down() },
		justPressed: func(name string) bool { return engo.Input.Button(name).JustPressed() },
	}
}

// Add satisfies the ecs.System interface
func (is *InputSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	// Not used for input system
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {
	// Not used for input system
}

// Update processes toggles, then movement
func (is *InputSystem) Update(dt float32) {
	if is.justPressed("toggleNodes") && is.overlay != nil {
		is.overlay.SetShowNodes(!is.overlay.ShowNodes())
	}
	if is.justPressed("pause") {
		is.paused = !is.paused
	}
	if is.justPressed("follow") {
		is.cycleFollow()
	}

	dir := is.direction()
	if is.steerer != nil {
		intent := dir.Scale(is.speed)
		if intent != is.lastIntent {
			is.steerer.Steer(intent)
			is.lastIntent = intent
		}
		return
	}

	if !dir.IsZero() && is.camera != nil {
		is.camera.FollowID(0)
		step := is.panSpeed * float64(dt) / float64(is.camera.GetZoom())
		is.camera.SetTarget(is.camera.GetCurrentPosition().Add(dir.Scale(step)))
	}
}

// direction returns the unit-per-axis direction of the held movement keys
func (is *InputSystem) direction() physics.Vector2D {
	var dir physics.Vector2D
	if is.down("left") {
		dir.X--
	}
	if is.down("right") {
		dir.X++
	}
	if is.down("up") {
		dir.Y--
	}
	if is.down("down") {
		dir.Y++
	}
	return dir
}

// SetFollowCandidates lists the collider IDs the follow key cycles through
func (is *InputSystem) SetFollowCandidates(ids []uint64) {
	is.candidates = ids
}

// cycleFollow moves the camera to the next candidate after the current one
func (is *InputSystem) cycleFollow() {
	if is.camera == nil || len(is.candidates) == 0 {
		return
	}
	next := is.candidates[0]
	for i, id := range is.candidates {
		if id == is.camera.Following() && i+1 < len(is.candidates) {
			next = is.candidates[i+1]
			break
		}
	}
	is.camera.FollowID(next)
}

// Paused reports whether the view is frozen
func (is *InputSystem) Paused() bool {
	return is.paused
}

// SetupInputBindings sets up the viewer key bindings
func SetupInputBindings() {
	engo.Input.RegisterButton("up", engo.KeyW, engo.KeyArrowUp)
	engo.Input.RegisterButton("down", engo.KeyS, engo.KeyArrowDown)
	engo.Input.RegisterButton("left", engo.KeyA, engo.KeyArrowLeft)
	engo.Input.RegisterButton("right", engo.KeyD, engo.KeyArrowRight)

	engo.Input.RegisterButton("toggleNodes", engo.KeyN)
	engo.Input.RegisterButton("pause", engo.KeySpace)
	engo.Input.RegisterButton("follow", engo.KeyF)
}
