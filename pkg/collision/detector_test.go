package collision

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/logging"
	"github.com/opd-ai/go-collide/pkg/physics"
)

func newTestDetector(t *testing.T, opts ...Option) *Detector {
	t.Helper()
	cfg := config.DefaultCollisionConfig()
	cfg.Epsilon = testEpsilon
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	d, err := NewDetector(&cfg, opts...)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	return d
}

func mustRegister(t *testing.T, d *Detector, c *Collider) {
	t.Helper()
	if err := d.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func mustMove(t *testing.T, c *Collider, dp physics.Vector2D) physics.Vector2D {
	t.Helper()
	applied, err := c.Move(dp)
	if err != nil {
		t.Fatalf("Move(%+v) error = %v", dp, err)
	}
	return applied
}

func containsCollider(list []*Collider, c *Collider) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}
	return false
}

func TestNewDetector(t *testing.T) {
	t.Run("nil_config_uses_defaults", func(t *testing.T) {
		d, err := NewDetector(nil, WithLogger(logging.Discard()))
		if err != nil {
			t.Fatalf("NewDetector(nil) error = %v", err)
		}
		if d.Events() == nil {
			t.Error("detector should own an event bus")
		}
		if d.Count() != 0 {
			t.Errorf("Count() = %d, want 0", d.Count())
		}
	})

	t.Run("invalid_config", func(t *testing.T) {
		cfg := config.DefaultCollisionConfig()
		cfg.MinCellWidth = 0
		if _, err := NewDetector(&cfg); err == nil {
			t.Error("expected error for zero cell width")
		}
	})

	t.Run("shared_bus", func(t *testing.T) {
		bus := event.NewEventBus()
		d := newTestDetector(t, WithEventBus(bus))
		if d.Events() != bus {
			t.Error("WithEventBus not applied")
		}
	})

	t.Run("world_bounds_seed_root", func(t *testing.T) {
		world := physics.NewBounds(0, 0, 400, 400)
		cfg := config.DefaultCollisionConfig()
		cfg.WorldBounds = &world
		d, err := NewDetector(&cfg, WithLogger(logging.Discard()))
		if err != nil {
			t.Fatalf("NewDetector() error = %v", err)
		}
		mustRegister(t, d, mustCollider(t, physics.NewBounds(10, 10, 5, 5), Scenery))
		nodes := d.Nodes()
		if len(nodes) == 0 || nodes[0].Bounds != world {
			t.Errorf("expected root %v, got %+v", world, nodes)
		}
	})
}

func TestDetectorRegister(t *testing.T) {
	d := newTestDetector(t)
	c := mustCollider(t, physics.NewBounds(0, 0, 10, 10), Scenery)

	var registered, removed []uint64
	d.Events().Subscribe(event.ColliderRegistered, func(e event.Event) {
		registered = append(registered, e.(*event.ColliderEvent).ColliderID)
	})
	d.Events().Subscribe(event.ColliderRemoved, func(e event.Event) {
		removed = append(removed, e.(*event.ColliderEvent).ColliderID)
	})

	mustRegister(t, d, c)
	if !c.Registered() || d.Count() != 1 {
		t.Fatalf("collider not registered: Registered()=%v Count()=%d", c.Registered(), d.Count())
	}

	if err := d.Register(c); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second Register() error = %v, want ErrAlreadyRegistered", err)
	}
	other := newTestDetector(t)
	if err := other.Register(c); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("Register() into a second detector error = %v, want ErrAlreadyRegistered", err)
	}
	if err := other.Remove(c); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Remove() from the wrong detector error = %v, want ErrNotRegistered", err)
	}
	if err := d.Register(nil); err == nil {
		t.Error("Register(nil) should fail")
	}

	if err := d.Remove(c); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if c.Registered() {
		t.Error("collider still linked after Remove()")
	}
	if err := d.Remove(c); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("second Remove() error = %v, want ErrNotRegistered", err)
	}

	if len(registered) != 1 || registered[0] != c.ID() {
		t.Errorf("registered events = %v", registered)
	}
	if len(removed) != 1 || removed[0] != c.ID() {
		t.Errorf("removed events = %v", removed)
	}
}

func TestDetector_RoundTripRegistration(t *testing.T) {
	d := newTestDetector(t)
	region := physics.NewBounds(0, 0, 300, 300)

	var colliders []*Collider
	for i := 0; i < 20; i++ {
		c := mustCollider(t, physics.NewBounds(float64(i*13), float64(i*7), 8, 8), Scenery)
		mustRegister(t, d, c)
		colliders = append(colliders, c)
	}

	victim := colliders[9]
	if err := d.Remove(victim); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if containsCollider(d.Query(region), victim) {
		t.Error("removed collider still returned by Query()")
	}
	if containsCollider(d.Query(victim.Bounds()), victim) {
		t.Error("removed collider still returned for its own bounds")
	}
	if got := len(d.Query(region)); got != 19 {
		t.Errorf("Query() returned %d colliders, want 19", got)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestDetectorAttemptMove_ContactScenario(t *testing.T) {
	d := newTestDetector(t)
	mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
	wall := mustCollider(t, physics.NewBounds(15, 0, 10, 10), Scenery)
	mustRegister(t, d, mover)
	mustRegister(t, d, wall)

	applied := mustMove(t, mover, physics.Vector2D{X: 8})

	if !approxEqual(applied.X, 5-testEpsilon) || applied.Y != 0 {
		t.Fatalf("applied = %+v, want (%g, 0)", applied, 5-testEpsilon)
	}
	if !approxEqual(mover.Bounds().X, 5-testEpsilon) {
		t.Errorf("mover X = %g, want %g", mover.Bounds().X, 5-testEpsilon)
	}
	if mover.Bounds().Overlaps(wall.Bounds()) {
		t.Error("mover penetrates the wall")
	}

	again := mustMove(t, mover, physics.Vector2D{X: 8})
	if !approxEqual(again.X, 0) || again.Y != 0 {
		t.Errorf("pressing against the wall should not move, got %+v", again)
	}
}

func TestDetectorAttemptMove_Sliding(t *testing.T) {
	d := newTestDetector(t)
	mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
	mustRegister(t, d, mover)
	mustRegister(t, d, mustCollider(t, physics.NewBounds(15, -100, 10, 300), Scenery))

	applied := mustMove(t, mover, physics.Vector2D{X: 8, Y: 3})
	if !approxEqual(applied.X, 5-testEpsilon) || applied.Y != 3 {
		t.Fatalf("applied = %+v, want (%g, 3)", applied, 5-testEpsilon)
	}

	// Flush against the wall, pushing into it still slides along it.
	applied = mustMove(t, mover, physics.Vector2D{X: 4, Y: 6})
	if !approxEqual(applied.X, 0) || applied.Y != 6 {
		t.Errorf("applied = %+v, want (0, 6)", applied)
	}
}

func TestDetectorAttemptMove_CornerStop(t *testing.T) {
	d := newTestDetector(t)
	mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
	block := mustCollider(t, physics.NewBounds(12, 12, 10, 10), Scenery)
	mustRegister(t, d, mover)
	mustRegister(t, d, block)

	var blocked []*event.MoveBlockedEvent
	d.Events().Subscribe(event.MoveBlocked, func(e event.Event) {
		blocked = append(blocked, e.(*event.MoveBlockedEvent))
	})
	moved := 0
	SubscribeBoundsChanged(d.Events(), mover, func(*Collider) { moved++ })

	applied := mustMove(t, mover, physics.Vector2D{X: 5, Y: 5})

	if !applied.IsZero() {
		t.Errorf("applied = %+v, want zero", applied)
	}
	if mover.Bounds() != physics.NewBounds(0, 0, 10, 10) {
		t.Errorf("mover moved to %v", mover.Bounds())
	}
	if moved != 0 {
		t.Error("a refused move must not publish bounds-changed")
	}
	if len(blocked) != 1 || blocked[0].MoverID != mover.ID() || blocked[0].BlockerID != block.ID() {
		t.Errorf("unexpected move-blocked events %+v", blocked)
	}
	if s := d.Stats(); s.Blocked != 1 || s.Applied != 0 || s.Attempted != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestDetectorAttemptMove_MostRestrictiveWins(t *testing.T) {
	tests := []struct {
		name      string
		obstacles []physics.Bounds
		dp        physics.Vector2D
		want      physics.Vector2D
	}{
		{
			name: "positive_x",
			obstacles: []physics.Bounds{
				physics.NewBounds(15, 0, 10, 10),
				physics.NewBounds(13, 5, 10, 10),
			},
			dp:   physics.Vector2D{X: 10},
			want: physics.Vector2D{X: 3 - testEpsilon},
		},
		{
			name: "negative_x",
			obstacles: []physics.Bounds{
				physics.NewBounds(-15, 0, 10, 10),
				physics.NewBounds(-13, -5, 10, 10),
			},
			dp:   physics.Vector2D{X: -10},
			want: physics.Vector2D{X: -3 + testEpsilon},
		},
		{
			name: "positive_y",
			obstacles: []physics.Bounds{
				physics.NewBounds(0, 16, 10, 10),
				physics.NewBounds(4, 12, 10, 10),
			},
			dp:   physics.Vector2D{Y: 9},
			want: physics.Vector2D{Y: 2 - testEpsilon},
		},
		{
			name: "order_independent",
			obstacles: []physics.Bounds{
				physics.NewBounds(13, 5, 10, 10),
				physics.NewBounds(15, 0, 10, 10),
			},
			dp:   physics.Vector2D{X: 10},
			want: physics.Vector2D{X: 3 - testEpsilon},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t)
			mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
			mustRegister(t, d, mover)
			for _, b := range tt.obstacles {
				mustRegister(t, d, mustCollider(t, b, Scenery))
			}

			applied := mustMove(t, mover, tt.dp)
			if !approxEqual(applied.X, tt.want.X) || !approxEqual(applied.Y, tt.want.Y) {
				t.Errorf("applied = %+v, want %+v", applied, tt.want)
			}
			if s := d.Stats(); s.Clamped != 1 || s.Applied != 1 {
				t.Errorf("unexpected stats %+v", s)
			}
		})
	}
}

func TestDetectorAttemptMove_SelfExclusion(t *testing.T) {
	d := newTestDetector(t)
	mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
	mustRegister(t, d, mover)

	if !containsCollider(mover.QueryDetector(mover.Bounds().Translate(physics.Vector2D{X: 1})), mover) {
		t.Fatal("the index should report the mover near its own footprint")
	}

	applied := mustMove(t, mover, physics.Vector2D{X: 1, Y: 1})
	if applied != (physics.Vector2D{X: 1, Y: 1}) {
		t.Errorf("mover blocked by itself: applied %+v", applied)
	}
}

func TestDetectorAttemptMove_IgnoresTouchingNeighbours(t *testing.T) {
	d := newTestDetector(t)
	mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
	mustRegister(t, d, mover)
	// Floor the mover rests on, and a block touching the target's corner.
	mustRegister(t, d, mustCollider(t, physics.NewBounds(-50, 10, 200, 10), Scenery))
	mustRegister(t, d, mustCollider(t, physics.NewBounds(16, -12, 5, 6), Scenery))

	applied := mustMove(t, mover, physics.Vector2D{X: 6, Y: -6})
	if applied != (physics.Vector2D{X: 6, Y: -6}) {
		t.Errorf("applied = %+v, want (6,-6)", applied)
	}
}

func TestDetectorAttemptMove_SingleAxisObstacleOutsideTarget(t *testing.T) {
	d := newTestDetector(t)
	mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
	mustRegister(t, d, mover)
	// Ledge to the right whose lower edge sits above the moved footprint,
	// and a floor just below the mover.
	ledge := mustCollider(t, physics.NewBounds(12, -20, 10, 24), Scenery)
	floor := mustCollider(t, physics.NewBounds(-50, 12, 200, 10), Scenery)
	mustRegister(t, d, ledge)
	mustRegister(t, d, floor)

	mustMove(t, mover, physics.Vector2D{X: 5, Y: 5})

	for _, o := range []*Collider{ledge, floor} {
		if mover.Bounds().Overlaps(o.Bounds()) {
			t.Errorf("mover %v penetrates %v", mover.Bounds(), o.Bounds())
		}
	}
}

func TestDetectorAttemptMove_ClampedFootprintIsRechecked(t *testing.T) {
	tests := []struct {
		name    string
		post    physics.Bounds
		wantX   float64
		wantY   float64
		blocked bool
	}{
		// The wall clamps X; the clamped diagonal lands on a post none of
		// the unclamped footprints reached, which is a corner approach.
		{"corner_after_clamp", physics.NewBounds(10, 22, 4, 4), 0, 0, true},
		// The post meets only the clamped X footprint and the landing
		// spot, so X narrows again while Y keeps sliding.
		{"narrowed_again", physics.NewBounds(12, 5, 2, 20), 1.99, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t)
			mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
			wall := mustCollider(t, physics.NewBounds(16, -100, 10, 300), Scenery)
			post := mustCollider(t, tt.post, Scenery)
			for _, c := range []*Collider{mover, wall, post} {
				mustRegister(t, d, c)
			}

			applied := mustMove(t, mover, physics.Vector2D{X: 20, Y: 20})

			if !approxEqual(applied.X, tt.wantX) || !approxEqual(applied.Y, tt.wantY) {
				t.Errorf("applied = %+v, want (%g,%g)", applied, tt.wantX, tt.wantY)
			}
			for _, o := range []*Collider{wall, post} {
				if mover.Bounds().Overlaps(o.Bounds()) {
					t.Errorf("mover %v penetrates %v", mover.Bounds(), o.Bounds())
				}
			}
			if got := d.Stats().Blocked == 1; got != tt.blocked {
				t.Errorf("Stats().Blocked = %d, want blocked=%v", d.Stats().Blocked, tt.blocked)
			}
		})
	}
}

func TestDetectorAttemptMove_DiagonalPastCornerIsClamped(t *testing.T) {
	d := newTestDetector(t)
	mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
	block := mustCollider(t, physics.NewBounds(15, -5, 10, 10), Scenery)
	mustRegister(t, d, mover)
	mustRegister(t, d, block)

	// The target footprint clears the block, but the X-only footprint
	// meets it, so X stops short.
	applied := mustMove(t, mover, physics.Vector2D{X: 8, Y: 8})
	if !approxEqual(applied.X, 5-testEpsilon) || applied.Y != 8 {
		t.Errorf("applied = %+v, want (%g,8)", applied, 5-testEpsilon)
	}
}

func TestDetectorAttemptMove_PolicyGap(t *testing.T) {
	d := newTestDetector(t)
	mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
	crate := mustCollider(t, physics.NewBounds(12, 0, 10, 10), Movable)
	wall := mustCollider(t, physics.NewBounds(0, 12, 10, 10), Scenery)
	mustRegister(t, d, mover)
	mustRegister(t, d, crate)
	mustRegister(t, d, wall)

	_, err := mover.Move(physics.Vector2D{X: 4})
	if !errors.Is(err, ErrUnhandledInteraction) {
		t.Fatalf("Move() error = %v, want ErrUnhandledInteraction", err)
	}
	if mover.Bounds() != physics.NewBounds(0, 0, 10, 10) {
		t.Errorf("a failed move must not be applied, mover at %v", mover.Bounds())
	}

	npc := mustCollider(t, physics.NewBounds(0, 30, 10, 10), NonPlayerCharacter)
	mustRegister(t, d, npc)
	_, err = npc.Move(physics.Vector2D{Y: -10})
	var interaction *InteractionError
	if !errors.As(err, &interaction) || !errors.Is(err, ErrUnexpectedMover) {
		t.Fatalf("Move() error = %v, want *InteractionError wrapping ErrUnexpectedMover", err)
	}
	if interaction.Mover != NonPlayerCharacter {
		t.Errorf("interaction mover = %v", interaction.Mover)
	}

	if s := d.Stats(); s.PolicyErrors != 2 || s.Applied != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestDetectorAttemptMove_Triggers(t *testing.T) {
	t.Run("entering_fires_once", func(t *testing.T) {
		d := newTestDetector(t)
		mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
		door := mustCollider(t, physics.NewBounds(15, 0, 10, 10), Trigger)
		mustRegister(t, d, mover)
		mustRegister(t, d, door)

		var entered []*event.TriggerEvent
		d.Events().Subscribe(event.TriggerEntered, func(e event.Event) {
			entered = append(entered, e.(*event.TriggerEvent))
		})

		if applied := mustMove(t, mover, physics.Vector2D{X: 8}); applied != (physics.Vector2D{X: 8}) {
			t.Errorf("trigger should not block, applied %+v", applied)
		}
		mustMove(t, mover, physics.Vector2D{X: 1})

		if len(entered) != 1 {
			t.Fatalf("expected one trigger event, got %d", len(entered))
		}
		if entered[0].MoverID != mover.ID() || entered[0].TriggerID != door.ID() {
			t.Errorf("unexpected trigger event %+v", entered[0])
		}
		if d.Stats().Triggers != 1 {
			t.Errorf("Triggers = %d, want 1", d.Stats().Triggers)
		}
	})

	t.Run("clamped_short_of_trigger", func(t *testing.T) {
		d := newTestDetector(t)
		mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
		mustRegister(t, d, mover)
		mustRegister(t, d, mustCollider(t, physics.NewBounds(15, 0, 10, 10), Scenery))
		mustRegister(t, d, mustCollider(t, physics.NewBounds(16, 0, 10, 10), Trigger))

		fired := false
		d.Events().Subscribe(event.TriggerEntered, func(event.Event) { fired = true })

		mustMove(t, mover, physics.Vector2D{X: 8})
		if fired {
			t.Error("trigger fired although the wall stopped the mover before it")
		}
	})
}

func TestDetectorAttemptMove_Validation(t *testing.T) {
	d := newTestDetector(t)
	mover := mustCollider(t, physics.NewBounds(0, 0, 10, 10), PlayerCharacter)
	mustRegister(t, d, mover)

	changed := false
	SubscribeBoundsChanged(d.Events(), mover, func(*Collider) { changed = true })

	if applied, err := d.AttemptMove(mover, physics.Vector2D{}); err != nil || !applied.IsZero() {
		t.Errorf("zero move = %+v, %v", applied, err)
	}
	if changed || d.Stats().Attempted != 0 {
		t.Error("zero move should be a no-op")
	}

	if _, err := d.AttemptMove(mover, physics.Vector2D{X: math.NaN()}); !errors.Is(err, ErrInvalidDisplacement) {
		t.Errorf("NaN move error = %v, want ErrInvalidDisplacement", err)
	}
	if _, err := d.AttemptMove(mover, physics.Vector2D{Y: math.Inf(1)}); !errors.Is(err, ErrInvalidDisplacement) {
		t.Errorf("Inf move error = %v, want ErrInvalidDisplacement", err)
	}

	stranger := mustCollider(t, physics.NewBounds(0, 0, 1, 1), PlayerCharacter)
	if _, err := d.AttemptMove(stranger, physics.Vector2D{X: 1}); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("unregistered move error = %v, want ErrNotRegistered", err)
	}
}

func TestDetectorAttemptMove_RehomesAcrossQuadrants(t *testing.T) {
	world := physics.NewBounds(0, 0, 400, 400)
	cfg := config.DefaultCollisionConfig()
	cfg.WorldBounds = &world
	d, err := NewDetector(&cfg, WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}

	mover := mustCollider(t, physics.NewBounds(20, 20, 10, 10), PlayerCharacter)
	mustRegister(t, d, mover)
	mustRegister(t, d, mustCollider(t, physics.NewBounds(350, 350, 10, 10), Scenery))

	for i := 0; i < 60; i++ {
		mustMove(t, mover, physics.Vector2D{X: 5, Y: 4})
		if err := d.Validate(); err != nil {
			t.Fatalf("step %d: Validate() error = %v", i, err)
		}
	}
	if !containsCollider(d.Query(mover.Bounds()), mover) {
		t.Error("mover lost from the index")
	}
	if containsCollider(d.Query(physics.NewBounds(0, 0, 30, 30)), mover) {
		t.Error("mover still indexed at its start")
	}
}

func TestDetector_NoPenetrationRandomWalk(t *testing.T) {
	d := newTestDetector(t)
	solids := []physics.Bounds{
		physics.NewBounds(0, 0, 200, 10),
		physics.NewBounds(0, 190, 200, 10),
		physics.NewBounds(0, 10, 10, 180),
		physics.NewBounds(190, 10, 10, 180),
		physics.NewBounds(60, 60, 20, 20),
		physics.NewBounds(120, 100, 30, 10),
		physics.NewBounds(40, 130, 12, 40),
	}
	var obstacles []*Collider
	for i, b := range solids {
		category := Scenery
		if i%3 == 2 {
			category = NonPlayerCharacter
		}
		c := mustCollider(t, b, category)
		mustRegister(t, d, c)
		obstacles = append(obstacles, c)
	}

	mover := mustCollider(t, physics.NewBounds(20, 20, 16, 16), PlayerCharacter)
	mustRegister(t, d, mover)

	rng := rand.New(rand.NewPCG(3, 5))
	for step := 0; step < 3000; step++ {
		dp := physics.Vector2D{X: rng.Float64()*12 - 6, Y: rng.Float64()*12 - 6}
		before := mover.Bounds()
		applied := mustMove(t, mover, dp)

		if math.Abs(applied.X) > math.Abs(dp.X) || math.Abs(applied.Y) > math.Abs(dp.Y) ||
			applied.X*dp.X < 0 || applied.Y*dp.Y < 0 {
			t.Fatalf("step %d: applied %+v is not a clamp of %+v", step, applied, dp)
		}
		if mover.Bounds() != before.Translate(applied) {
			t.Fatalf("step %d: bounds %v disagree with applied %+v", step, mover.Bounds(), applied)
		}
		for _, o := range obstacles {
			if mover.Bounds().Overlaps(o.Bounds()) {
				t.Fatalf("step %d: mover %v penetrates %v after dp %+v", step, mover.Bounds(), o.Bounds(), dp)
			}
		}
	}

	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	s := d.Stats()
	if s.Attempted != 3000 || s.Applied+s.Blocked != s.Attempted {
		t.Errorf("inconsistent stats %+v", s)
	}
}

func TestDetector_NoPenetrationLargeSteps(t *testing.T) {
	d := newTestDetector(t)
	// Walls thicker than any step so the mover stays in the room.
	solids := []physics.Bounds{
		physics.NewBounds(-50, -50, 400, 50),
		physics.NewBounds(-50, 300, 400, 50),
		physics.NewBounds(-50, 0, 50, 300),
		physics.NewBounds(300, 0, 50, 300),
		physics.NewBounds(60, 60, 8, 8),
		physics.NewBounds(100, 40, 4, 120),
		physics.NewBounds(150, 150, 40, 6),
		physics.NewBounds(200, 80, 6, 6),
		physics.NewBounds(230, 200, 20, 20),
		physics.NewBounds(40, 220, 10, 10),
	}
	var obstacles []*Collider
	for _, b := range solids {
		c := mustCollider(t, b, Scenery)
		mustRegister(t, d, c)
		obstacles = append(obstacles, c)
	}

	mover := mustCollider(t, physics.NewBounds(20, 20, 10, 10), PlayerCharacter)
	mustRegister(t, d, mover)

	rng := rand.New(rand.NewPCG(11, 17))
	for step := 0; step < 3000; step++ {
		dp := physics.Vector2D{X: rng.Float64()*80 - 40, Y: rng.Float64()*80 - 40}
		before := mover.Bounds()
		applied := mustMove(t, mover, dp)

		if math.Abs(applied.X) > math.Abs(dp.X) || math.Abs(applied.Y) > math.Abs(dp.Y) ||
			applied.X*dp.X < 0 || applied.Y*dp.Y < 0 {
			t.Fatalf("step %d: applied %+v is not a clamp of %+v", step, applied, dp)
		}
		if mover.Bounds() != before.Translate(applied) {
			t.Fatalf("step %d: bounds %v disagree with applied %+v", step, mover.Bounds(), applied)
		}
		for _, o := range obstacles {
			if mover.Bounds().Overlaps(o.Bounds()) {
				t.Fatalf("step %d: mover %v penetrates %v after dp %+v", step, mover.Bounds(), o.Bounds(), dp)
			}
		}
	}

	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestDetector_Diagnostics(t *testing.T) {
	d := newTestDetector(t)
	for i := 0; i < 12; i++ {
		mustRegister(t, d, mustCollider(t, physics.NewBounds(float64(i*30), float64((i%4)*30), 10, 10), Scenery))
	}

	if d.Count() != 12 || len(d.Colliders()) != 12 {
		t.Errorf("Count() = %d, Colliders() = %d, want 12", d.Count(), len(d.Colliders()))
	}

	nodes := d.Nodes()
	if len(nodes) < 5 {
		t.Fatalf("expected a subdivided index, got %d nodes", len(nodes))
	}
	if nodes[0].Depth != 0 {
		t.Errorf("first node should be the root, got depth %d", nodes[0].Depth)
	}
	total := 0
	for _, n := range nodes {
		total += len(n.Items)
	}
	if total != 12 {
		t.Errorf("nodes hold %d items, want 12", total)
	}
	if d.Depth() < 1 {
		t.Errorf("Depth() = %d, want at least 1", d.Depth())
	}
	if s := d.Stats(); s.Registered != 12 {
		t.Errorf("Stats().Registered = %d, want 12", s.Registered)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
