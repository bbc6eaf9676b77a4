// pkg/entity/entity.go
package entity

import (
	"fmt"
	"math"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/physics"
)

// stallTolerance absorbs the float residue left when a move is clamped
// flush against an obstacle.
const stallTolerance = 1e-9

// Entity is the base interface for all sandbox objects
type Entity interface {
	GetName() string
	GetPosition() physics.Vector2D
	GetCollider() *collision.Collider
	Step() (physics.Vector2D, error)
}

// Actor is an object with a draw position and a collider. Only the
// collider's detector moves it; Position follows the collider's origin.
type Actor struct {
	Name     string
	Position physics.Vector2D
	// Intent is the displacement requested every Step.
	Intent physics.Vector2D
	// Bounce reverses an intent axis that came back fully blocked.
	Bounce bool
	Active bool

	collider *collision.Collider
	lastMove physics.Vector2D
}

// NewActor creates an active actor whose collider starts at bounds. The
// collider is not registered with any detector yet.
func NewActor(name string, bounds physics.Bounds, category collision.Category) (*Actor, error) {
	a := &Actor{
		Name:     name,
		Position: bounds.Position(),
		Active:   true,
	}
	c, err := collision.NewCollider(a, bounds, category)
	if err != nil {
		return nil, fmt.Errorf("actor %q: %w", name, err)
	}
	a.collider = c
	return a, nil
}

// GetName returns the actor's name
func (a *Actor) GetName() string {
	return a.Name
}

// GetPosition returns the actor's draw position
func (a *Actor) GetPosition() physics.Vector2D {
	return a.Position
}

// GetCollider returns the actor's collider
func (a *Actor) GetCollider() *collision.Collider {
	return a.collider
}

// DrawPosition implements collision.Owner
func (a *Actor) DrawPosition() physics.Vector2D {
	return a.Position
}

// SetDrawPosition implements collision.Owner
func (a *Actor) SetDrawPosition(p physics.Vector2D) {
	a.Position = p
}

// Steer replaces the actor's intent
func (a *Actor) Steer(intent physics.Vector2D) {
	a.Intent = intent
}

// CanMove reports whether Step would request a move
func (a *Actor) CanMove() bool {
	return a.Active && a.collider.Category().CanMove() && !a.Intent.IsZero()
}

// Step asks the detector to move the actor by its intent and returns the
// displacement actually applied. Idle, inactive and static actors do not move.
func (a *Actor) Step() (physics.Vector2D, error) {
	a.lastMove = physics.Vector2D{}
	if !a.CanMove() {
		return physics.Vector2D{}, nil
	}

	applied, err := a.collider.Move(a.Intent)
	if err != nil {
		return physics.Vector2D{}, err
	}
	a.lastMove = applied

	if a.Bounce {
		if math.Abs(applied.X) < stallTolerance && a.Intent.X != 0 {
			a.Intent.X = -a.Intent.X
		}
		if math.Abs(applied.Y) < stallTolerance && a.Intent.Y != 0 {
			a.Intent.Y = -a.Intent.Y
		}
	}
	return applied, nil
}

// LastMove returns the displacement applied by the latest Step
func (a *Actor) LastMove() physics.Vector2D {
	return a.lastMove
}
