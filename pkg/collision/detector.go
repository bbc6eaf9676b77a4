// pkg/collision/detector.go
package collision

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/logging"
	"github.com/opd-ai/go-collide/pkg/physics"
)

// Stats counts detector activity since creation.
type Stats struct {
	Registered   int    `json:"registered" msgpack:"registered"`
	Attempted    uint64 `json:"attempted" msgpack:"attempted"`
	Applied      uint64 `json:"applied" msgpack:"applied"`
	Clamped      uint64 `json:"clamped" msgpack:"clamped"`
	Blocked      uint64 `json:"blocked" msgpack:"blocked"`
	PolicyErrors uint64 `json:"policyErrors" msgpack:"policy_errors"`
	Triggers     uint64 `json:"triggers" msgpack:"triggers"`
}

// Detector owns the spatial index and negotiates every collision-gated
// move. It is not safe for concurrent use: all registration and movement
// happens on the simulation goroutine.
type Detector struct {
	index   *physics.QuadTree[*Collider]
	handler Resolver
	bus     *event.Bus
	logger  *logging.Logger
	stats   Stats
	nextID  uint64
}

// Option configures a Detector.
type Option func(*Detector)

// WithEventBus publishes detector events on bus instead of a private one.
func WithEventBus(bus *event.Bus) Option {
	return func(d *Detector) {
		d.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithHandler replaces the category rule table.
func WithHandler(r Resolver) Option {
	return func(d *Detector) {
		d.handler = r
	}
}

// NewDetector creates a detector. A nil cfg uses config.DefaultCollisionConfig.
func NewDetector(cfg *config.CollisionConfig, opts ...Option) (*Detector, error) {
	if cfg == nil {
		defaults := config.DefaultCollisionConfig()
		cfg = &defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid collision config: %w", err)
	}

	treeOpts := physics.QuadTreeOptions{
		MinCellSize: physics.Vector2D{X: cfg.MinCellWidth, Y: cfg.MinCellHeight},
		MaxObjects:  cfg.MaxObjectsPerNode,
	}
	if cfg.WorldBounds != nil {
		treeOpts.Bounds = *cfg.WorldBounds
	}

	d := &Detector{
		index:   physics.NewQuadTree[*Collider](treeOpts),
		handler: NewHandler(cfg.Epsilon),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.bus == nil {
		d.bus = event.NewEventBus()
	}
	if d.logger == nil {
		d.logger = logging.NewLogger()
	}
	return d, nil
}

// Events returns the bus detector events are published on
func (d *Detector) Events() *event.Bus {
	return d.bus
}

// Register adds c to the index and links it to this detector.
func (d *Detector) Register(c *Collider) error {
	if c == nil {
		return errors.New("cannot register nil collider")
	}
	if c.detector != nil {
		return fmt.Errorf("collider %d: %w", c.id, ErrAlreadyRegistered)
	}
	if err := d.index.Insert(c); err != nil {
		return fmt.Errorf("failed to index collider: %w", err)
	}
	d.nextID++
	c.id = d.nextID
	c.detector = d

	d.logger.Debug(context.Background(), "Collider registered",
		"collider_id", c.id,
		"category", c.category.String(),
		"bounds", c.bounds.String())
	d.bus.Publish(event.NewColliderEvent(event.ColliderRegistered, c, c.id))
	return nil
}

// Remove unlinks c and drops it from the index.
func (d *Detector) Remove(c *Collider) error {
	if c == nil || c.detector != d {
		return ErrNotRegistered
	}
	if err := d.index.Remove(c); err != nil {
		return fmt.Errorf("failed to unindex collider %d: %w", c.id, err)
	}
	c.detector = nil

	d.logger.Debug(context.Background(), "Collider removed", "collider_id", c.id)
	d.bus.Publish(event.NewColliderEvent(event.ColliderRemoved, c, c.id))
	return nil
}

// Query returns every registered collider whose bounds intersect region.
// Touching edges count, so callers wanting strict overlap filter further.
func (d *Detector) Query(region physics.Bounds) []*Collider {
	return d.index.Query(region)
}

// AttemptMove negotiates dp for mover against every collider its moved
// footprint, or either single-axis part of it, would overlap, and applies
// the most restrictive displacement per axis. The clamped footprint is then
// checked against the rest of the swept region and narrowed again until it
// overlaps nothing it did not already overlap. A pair that refuses movement
// cancels the whole move. Policy gaps cancel the move and return an
// *InteractionError.
func (d *Detector) AttemptMove(mover *Collider, dp physics.Vector2D) (physics.Vector2D, error) {
	if mover == nil || mover.detector != d {
		return physics.Vector2D{}, ErrNotRegistered
	}
	if !dp.IsFinite() {
		return physics.Vector2D{}, fmt.Errorf("%w: %v", ErrInvalidDisplacement, dp)
	}
	if dp.IsZero() {
		return physics.Vector2D{}, nil
	}
	d.stats.Attempted++

	start := mover.bounds
	target := start.Translate(dp)
	alongX := start.Translate(dp.XOnly())
	alongY := start.Translate(dp.YOnly())
	allowed := dp
	var blocker *Collider
	var triggers []*Collider
	// solids may still constrain a clamped move; colliders the mover
	// already overlaps are left out since no clamp toward zero clears them.
	var solids []*Collider

	for _, other := range d.index.Query(start.Union(target)) {
		if other == mover {
			continue
		}
		// Broad-phase hits that only touch, or that lie in the swept box
		// without meeting any of the three candidate footprints, cannot
		// constrain the unclamped move.
		b := other.bounds
		if !target.Overlaps(b) && !alongX.Overlaps(b) && !alongY.Overlaps(b) {
			if !start.Overlaps(b) {
				solids = append(solids, other)
			}
			continue
		}

		res, err := d.resolve(mover, other, dp)
		if err != nil {
			return physics.Vector2D{}, err
		}
		if !res.Allowed {
			d.stats.Blocked++
			d.blocked(mover, other, dp)
			return physics.Vector2D{}, nil
		}
		if res.Triggered {
			triggers = append(triggers, other)
			continue
		}
		if !start.Overlaps(b) {
			solids = append(solids, other)
		}

		before := allowed
		allowed = restrict(allowed, res.Displacement)
		if blocker == nil && allowed != before {
			blocker = other
		}
	}

	// Each narrowing moves allowed toward zero, and the zero move overlaps
	// none of solids, so the loop ends within len(solids) rounds.
	for round := 0; round <= len(solids) && !allowed.IsZero(); round++ {
		i := overlapping(start.Translate(allowed), solids)
		if i < 0 {
			break
		}
		other := solids[i]

		res, err := d.resolve(mover, other, allowed)
		if err != nil {
			return physics.Vector2D{}, err
		}
		if !res.Allowed {
			d.stats.Blocked++
			d.blocked(mover, other, dp)
			return physics.Vector2D{}, nil
		}
		if res.Triggered {
			triggers = append(triggers, other)
			solids = append(solids[:i], solids[i+1:]...)
			continue
		}

		narrowed := restrict(allowed, res.Displacement)
		if narrowed == allowed {
			// The rule leaves the mover inside other; refuse the move.
			narrowed = physics.Vector2D{}
		}
		allowed = narrowed
		if blocker == nil {
			blocker = other
		}
	}
	if !allowed.IsZero() && overlapping(start.Translate(allowed), solids) >= 0 {
		allowed = physics.Vector2D{}
	}

	if allowed.IsZero() {
		d.stats.Blocked++
		d.blocked(mover, blocker, dp)
		return physics.Vector2D{}, nil
	}

	if err := d.place(mover, start.Translate(allowed)); err != nil {
		return physics.Vector2D{}, err
	}
	d.stats.Applied++
	if allowed != dp {
		d.stats.Clamped++
	}

	for _, t := range triggers {
		if mover.bounds.Overlaps(t.bounds) && !start.Overlaps(t.bounds) {
			d.stats.Triggers++
			d.bus.Publish(event.NewTriggerEvent(t, mover.id, t.id))
		}
	}
	return allowed, nil
}

// resolve asks the handler about one pair and accounts for policy gaps.
func (d *Detector) resolve(mover, other *Collider, dp physics.Vector2D) (Resolution, error) {
	res, err := d.handler.Resolve(mover, other, dp)
	if err != nil {
		d.stats.PolicyErrors++
		d.logger.Warn(context.Background(), "Move cancelled by missing interaction rule",
			"mover_id", mover.id,
			"other_id", other.id,
			"error", err.Error())
		return Resolution{}, err
	}
	return res, nil
}

// overlapping returns the index of the first collider b overlaps, or -1.
func overlapping(b physics.Bounds, colliders []*Collider) int {
	for i, c := range colliders {
		if b.Overlaps(c.bounds) {
			return i
		}
	}
	return -1
}

// restrict narrows allowed toward zero by limit, independently per axis.
func restrict(allowed, limit physics.Vector2D) physics.Vector2D {
	if allowed.X > 0 {
		allowed.X = math.Min(allowed.X, limit.X)
	} else if allowed.X < 0 {
		allowed.X = math.Max(allowed.X, limit.X)
	}
	if allowed.Y > 0 {
		allowed.Y = math.Min(allowed.Y, limit.Y)
	} else if allowed.Y < 0 {
		allowed.Y = math.Max(allowed.Y, limit.Y)
	}
	return allowed
}

func (d *Detector) blocked(mover, blocker *Collider, dp physics.Vector2D) {
	var blockerID uint64
	if blocker != nil {
		blockerID = blocker.id
	}
	d.logger.Debug(context.Background(), "Move blocked",
		"mover_id", mover.id,
		"blocker_id", blockerID,
		"dx", dp.X,
		"dy", dp.Y)
	d.bus.Publish(event.NewMoveBlockedEvent(mover, mover.id, blockerID))
}

// place moves c to bounds, re-homes it and announces the change.
func (d *Detector) place(c *Collider, bounds physics.Bounds) error {
	previous := c.bounds
	c.place(bounds)
	if err := d.index.Update(c); err != nil {
		c.place(previous)
		return fmt.Errorf("failed to re-home collider %d: %w", c.id, err)
	}
	d.bus.Publish(event.NewBoundsChangedEvent(c))
	return nil
}

func (d *Detector) teleport(c *Collider, bounds physics.Bounds) error {
	if err := d.place(c, bounds); err != nil {
		return logging.WrapError(err, "teleport of collider %d", c.id)
	}
	return nil
}

// Nodes enumerates the index for debug overlays, parents before children.
func (d *Detector) Nodes() []physics.NodeInfo[*Collider] {
	return d.index.Nodes()
}

// Colliders returns every registered collider
func (d *Detector) Colliders() []*Collider {
	return d.index.Items()
}

// Count returns the number of registered colliders
func (d *Detector) Count() int {
	return d.index.Count()
}

// Depth returns the index depth
func (d *Detector) Depth() int {
	return d.index.Depth()
}

// Validate checks that the index agrees with every collider it holds.
func (d *Detector) Validate() error {
	if err := d.index.Validate(); err != nil {
		return err
	}
	for _, c := range d.index.Items() {
		if c.detector != d {
			return fmt.Errorf("collider %d is indexed but linked elsewhere", c.id)
		}
	}
	return nil
}

// Stats returns a copy of the activity counters
func (d *Detector) Stats() Stats {
	s := d.stats
	s.Registered = d.index.Count()
	return s
}
