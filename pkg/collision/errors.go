// pkg/collision/errors.go
package collision

import (
	"errors"
	"fmt"

	"github.com/opd-ai/go-collide/pkg/physics"
)

// Lifecycle and policy errors.
var (
	// ErrInvalidBounds is the index's configuration error for negative or
	// non-finite sizes.
	ErrInvalidBounds = physics.ErrInvalidBounds

	ErrNotRegistered       = errors.New("collider is not registered with this detector")
	ErrAlreadyRegistered   = errors.New("collider is already registered with a detector")
	ErrInvalidDisplacement = errors.New("displacement must be finite")

	// ErrUnexpectedMover means a category without a movement rule asked to move.
	ErrUnexpectedMover = errors.New("category has no movement rule")
	// ErrUnhandledInteraction means no rule exists for a (mover, obstacle) pair.
	ErrUnhandledInteraction = errors.New("no interaction rule for category pair")
)

// InteractionError reports a policy gap: the handler met a category
// combination the game rules never declared.
type InteractionError struct {
	Mover   Category
	Other   Category
	MoverID uint64
	OtherID uint64
	Err     error
}

func (e *InteractionError) Error() string {
	if errors.Is(e.Err, ErrUnexpectedMover) {
		return fmt.Sprintf("collider %d (%s) moved: %v", e.MoverID, e.Mover, e.Err)
	}
	return fmt.Sprintf("collider %d (%s) moved into collider %d (%s): %v",
		e.MoverID, e.Mover, e.OtherID, e.Other, e.Err)
}

func (e *InteractionError) Unwrap() error {
	return e.Err
}

func newInteractionError(mover, other *Collider, err error) *InteractionError {
	return &InteractionError{
		Mover:   mover.category,
		Other:   other.category,
		MoverID: mover.id,
		OtherID: other.id,
		Err:     err,
	}
}
