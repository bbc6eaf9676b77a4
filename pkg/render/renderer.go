// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/logging"
	"github.com/opd-ai/go-collide/pkg/physics"
)

// NullOverlay is an Overlay that only logs what it is asked to draw.
type NullOverlay struct {
	logger *logging.Logger
}

// NewNullOverlay creates a new NullOverlay with structured logging.
func NewNullOverlay(logger *logging.Logger) *NullOverlay {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullOverlay{
		logger: logger,
	}
}

// Clear implements Overlay.
func (d *NullOverlay) Clear() {
	ctx := context.Background()
	d.logger.Debug(ctx, "Clear called")
}

// Present implements Overlay.
func (d *NullOverlay) Present() {
	ctx := context.Background()
	d.logger.Debug(ctx, "Present called")
}

// DrawNode implements Overlay.
func (d *NullOverlay) DrawNode(bounds physics.Bounds, depth int, leaf bool) {
	ctx := context.Background()
	d.logger.Debug(ctx, "DrawNode called",
		"bounds", bounds.String(),
		"depth", depth,
		"leaf", leaf,
	)
}

// DrawCollider implements Overlay.
func (d *NullOverlay) DrawCollider(id uint64, bounds physics.Bounds, category collision.Category) {
	ctx := context.Background()
	d.logger.Debug(ctx, "DrawCollider called",
		"collider_id", id,
		"bounds", bounds.String(),
		"category", category.String(),
	)
}
