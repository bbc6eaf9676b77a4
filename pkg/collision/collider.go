// pkg/collision/collider.go
package collision

import (
	"fmt"

	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/physics"
)

// Owner is the game object a collider belongs to. Its draw position is
// shifted by every displacement the collider applies.
type Owner interface {
	DrawPosition() physics.Vector2D
	SetDrawPosition(pos physics.Vector2D)
}

// Collider is one entity's participation in collision detection.
// Bounds only change through Move or Teleport, so the detector's index
// never disagrees with the collider.
type Collider struct {
	id       uint64
	bounds   physics.Bounds
	category Category
	owner    Owner

	// detector is a non-owning link, set only while registered.
	detector *Detector
}

// NewCollider creates an unregistered collider. Owner may be nil.
func NewCollider(owner Owner, bounds physics.Bounds, category Category) (*Collider, error) {
	if !bounds.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBounds, bounds)
	}
	if !category.Valid() {
		return nil, fmt.Errorf("unknown collider category %d", int(category))
	}
	return &Collider{
		bounds:   bounds,
		category: category,
		owner:    owner,
	}, nil
}

// ID returns the identifier the detector assigned at registration. It is
// zero until the first Register, unique within that detector, and kept
// after Remove so removal events and logs can still name the collider.
func (c *Collider) ID() uint64 {
	return c.id
}

// Bounds returns the current footprint
func (c *Collider) Bounds() physics.Bounds {
	return c.bounds
}

// GetBounds implements physics.Bounded
func (c *Collider) GetBounds() physics.Bounds {
	return c.bounds
}

// Category returns the collision role
func (c *Collider) Category() Category {
	return c.category
}

// Owner returns the owning game object, possibly nil
func (c *Collider) Owner() Owner {
	return c.owner
}

// Registered reports whether the collider belongs to a detector
func (c *Collider) Registered() bool {
	return c.detector != nil
}

// Move asks the detector to move the collider by dp and returns the
// displacement actually applied. A blocked move returns a zero vector
// and no error.
func (c *Collider) Move(dp physics.Vector2D) (physics.Vector2D, error) {
	if c.detector == nil {
		return physics.Vector2D{}, ErrNotRegistered
	}
	return c.detector.AttemptMove(c, dp)
}

// QueryDetector returns the registered colliders intersecting region,
// without moving anything. It returns nil for an unregistered collider.
func (c *Collider) QueryDetector(region physics.Bounds) []*Collider {
	if c.detector == nil {
		return nil
	}
	return c.detector.Query(region)
}

// Teleport places the collider without any collision checks. Reserve it
// for spawning and scripted relocation.
func (c *Collider) Teleport(bounds physics.Bounds) error {
	if !bounds.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidBounds, bounds)
	}
	if c.detector != nil {
		return c.detector.teleport(c, bounds)
	}
	c.place(bounds)
	return nil
}

// place sets bounds and drags the owner's draw position along.
func (c *Collider) place(bounds physics.Bounds) {
	delta := bounds.Position().Sub(c.bounds.Position())
	c.bounds = bounds
	if c.owner != nil && !delta.IsZero() {
		c.owner.SetDrawPosition(c.owner.DrawPosition().Add(delta))
	}
}

// SubscribeBoundsChanged calls fn each time c publishes a bounds-changed
// event on bus.
func SubscribeBoundsChanged(bus *event.Bus, c *Collider, fn func(*Collider)) *event.Subscription {
	return bus.Subscribe(event.BoundsChanged, func(e event.Event) {
		if source, ok := e.GetSource().(*Collider); ok && source == c {
			fn(c)
		}
	})
}
