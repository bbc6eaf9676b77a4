// Package render draws the collision detector's spatial index for
// debugging: node outlines plus collider footprints.
package render

import (
	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/debug"
	"github.com/opd-ai/go-collide/pkg/physics"
)

// Overlay receives one frame of index geometry.
type Overlay interface {
	Clear()
	DrawNode(bounds physics.Bounds, depth int, leaf bool)
	DrawCollider(id uint64, bounds physics.Bounds, category collision.Category)
	Present()
}

// DrawDetector renders every node of d's index, then every collider on
// top, and presents the frame.
func DrawDetector(o Overlay, d *collision.Detector) {
	o.Clear()
	nodes := d.Nodes()
	for _, n := range nodes {
		o.DrawNode(n.Bounds, n.Depth, n.Leaf)
	}
	for _, n := range nodes {
		for _, c := range n.Items {
			o.DrawCollider(c.ID(), c.Bounds(), c.Category())
		}
	}
	o.Present()
}

// DrawSnapshot renders a snapshot received from a debug stream.
func DrawSnapshot(o Overlay, s *debug.Snapshot) {
	o.Clear()
	for _, n := range s.Nodes {
		o.DrawNode(n.Bounds, n.Depth, n.Leaf)
	}
	for _, c := range s.Colliders {
		o.DrawCollider(c.ID, c.Bounds, c.Category)
	}
	o.Present()
}
