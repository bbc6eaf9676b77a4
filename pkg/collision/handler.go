// pkg/collision/handler.go
package collision

import (
	"math"

	"github.com/opd-ai/go-collide/pkg/physics"
)

// Resolution is the outcome of one mover/obstacle pair.
type Resolution struct {
	// Allowed is false when the pair forbids any movement this tick.
	Allowed bool
	// Displacement is the largest part of the request this pair permits.
	Displacement physics.Vector2D
	// Triggered is set when the obstacle is a non-solid trigger volume.
	Triggered bool
}

// Resolver decides how a mover may proceed against one obstacle.
type Resolver interface {
	Resolve(mover, other *Collider, dp physics.Vector2D) (Resolution, error)
}

// Handler is the category rule table.
type Handler struct {
	epsilon float64
}

// NewHandler creates a handler that leaves epsilon of clearance between a
// clamped mover and its obstacle.
func NewHandler(epsilon float64) *Handler {
	return &Handler{epsilon: epsilon}
}

// Epsilon returns the clearance used by Slide
func (h *Handler) Epsilon() float64 {
	return h.epsilon
}

// Resolve dispatches on the mover's category, then on the obstacle's.
func (h *Handler) Resolve(mover, other *Collider, dp physics.Vector2D) (Resolution, error) {
	switch mover.category {
	case PlayerCharacter:
		return h.resolvePlayer(mover, other, dp)
	case NonPlayerCharacter, Scenery, Movable, Effect, Trigger:
		return Resolution{}, newInteractionError(mover, other, ErrUnexpectedMover)
	default:
		return Resolution{}, newInteractionError(mover, other, ErrUnexpectedMover)
	}
}

func (h *Handler) resolvePlayer(mover, other *Collider, dp physics.Vector2D) (Resolution, error) {
	switch other.category {
	case Scenery, NonPlayerCharacter:
		return Resolution{
			Allowed:      true,
			Displacement: Slide(mover.bounds, other.bounds, dp, h.epsilon),
		}, nil
	case Trigger:
		return Resolution{Allowed: true, Displacement: dp, Triggered: true}, nil
	case PlayerCharacter, Movable, Effect:
		return Resolution{}, newInteractionError(mover, other, ErrUnhandledInteraction)
	default:
		return Resolution{}, newInteractionError(mover, other, ErrUnhandledInteraction)
	}
}

// Slide clamps dp so that mover stops short of obstacle, one axis at a
// time. Each axis is tested with only its own component applied, so a move
// into a wall keeps the component parallel to the wall. When neither axis
// alone reaches the obstacle the approach is diagonal into a corner and the
// whole displacement is refused.
func Slide(mover, obstacle physics.Bounds, dp physics.Vector2D, epsilon float64) physics.Vector2D {
	reduced := dp

	moved := mover.Translate(dp.XOnly())
	if moved.Overlaps(obstacle) {
		if dp.X > 0 && moved.Right() >= obstacle.X {
			overlap := moved.Right() - obstacle.X + epsilon
			reduced.X = math.Max(0, dp.X-overlap)
		} else if dp.X < 0 && moved.X <= obstacle.Right() {
			overlap := obstacle.Right() - moved.X + epsilon
			reduced.X = math.Min(0, dp.X+overlap)
		}
	}

	moved = mover.Translate(dp.YOnly())
	if moved.Overlaps(obstacle) {
		if dp.Y > 0 && moved.Bottom() >= obstacle.Y {
			overlap := moved.Bottom() - obstacle.Y + epsilon
			reduced.Y = math.Max(0, dp.Y-overlap)
		} else if dp.Y < 0 && moved.Y <= obstacle.Bottom() {
			overlap := obstacle.Bottom() - moved.Y + epsilon
			reduced.Y = math.Min(0, dp.Y+overlap)
		}
	}

	if reduced == dp {
		return physics.Vector2D{}
	}
	return reduced
}
