// Package debug exposes the collision detector's spatial index to external
// viewers: point-in-time snapshots encoded with msgpack and a websocket
// stream that fans them out.
package debug

import (
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/physics"
)

// NodeSnapshot is one index node.
type NodeSnapshot struct {
	Bounds    physics.Bounds `msgpack:"b" json:"bounds"`
	Depth     int            `msgpack:"d" json:"depth"`
	Leaf      bool           `msgpack:"l" json:"leaf"`
	Colliders []uint64       `msgpack:"c,omitempty" json:"colliders,omitempty"`
}

// ColliderSnapshot is one registered collider.
type ColliderSnapshot struct {
	ID       uint64             `msgpack:"id" json:"id"`
	Category collision.Category `msgpack:"cat" json:"category"`
	Bounds   physics.Bounds     `msgpack:"b" json:"bounds"`
}

// Snapshot captures the detector at the end of a tick.
type Snapshot struct {
	Tick      uint64             `msgpack:"t" json:"tick"`
	Nodes     []NodeSnapshot     `msgpack:"n" json:"nodes"`
	Colliders []ColliderSnapshot `msgpack:"c" json:"colliders"`
	Stats     collision.Stats    `msgpack:"s" json:"stats"`
}

// TakeSnapshot copies the detector's index. Nodes are listed parents first;
// colliders are ordered by ID. Call it on the simulation goroutine.
func TakeSnapshot(tick uint64, d *collision.Detector) Snapshot {
	nodes := d.Nodes()
	snap := Snapshot{
		Tick:      tick,
		Nodes:     make([]NodeSnapshot, 0, len(nodes)),
		Colliders: make([]ColliderSnapshot, 0, d.Count()),
		Stats:     d.Stats(),
	}

	for _, n := range nodes {
		ns := NodeSnapshot{Bounds: n.Bounds, Depth: n.Depth, Leaf: n.Leaf}
		for _, c := range n.Items {
			ns.Colliders = append(ns.Colliders, c.ID())
			snap.Colliders = append(snap.Colliders, ColliderSnapshot{
				ID:       c.ID(),
				Category: c.Category(),
				Bounds:   c.Bounds(),
			})
		}
		snap.Nodes = append(snap.Nodes, ns)
	}

	slices.SortFunc(snap.Colliders, func(a, b ColliderSnapshot) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return snap
}

// Collider returns the collider with the given id, if present.
func (s *Snapshot) Collider(id uint64) (ColliderSnapshot, bool) {
	i, found := slices.BinarySearchFunc(s.Colliders, id, func(c ColliderSnapshot, id uint64) int {
		switch {
		case c.ID < id:
			return -1
		case c.ID > id:
			return 1
		}
		return 0
	})
	if !found {
		return ColliderSnapshot{}, false
	}
	return s.Colliders[i], true
}

// Encode serializes the snapshot for the wire.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot %d: %w", s.Tick, err)
	}
	return data, nil
}

// Decode parses a snapshot produced by Encode.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}
