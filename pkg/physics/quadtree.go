// pkg/physics/quadtree.go
package physics

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMinCellSize is the smallest quadrant edge used when no minimum is configured.
const DefaultMinCellSize = 25.0

// Errors returned by QuadTree operations.
var (
	ErrInvalidBounds  = errors.New("invalid bounds")
	ErrAlreadyIndexed = errors.New("item already indexed")
	ErrNotIndexed     = errors.New("item not indexed")
)

// Bounded is anything the quad tree can store. Items are compared by
// identity, so pointer types are the usual choice.
type Bounded interface {
	comparable
	GetBounds() Bounds
}

// QuadTreeOptions controls subdivision of a QuadTree.
type QuadTreeOptions struct {
	// MinCellSize is the smallest child a node may split into.
	MinCellSize Vector2D
	// MaxObjects is the item count a leaf may hold before it tries to split.
	MaxObjects int
	// Bounds is the initial root region. When empty the root is sized
	// from the first inserted item. The root grows on demand either way.
	Bounds Bounds
}

// NodeInfo describes one quad tree node for diagnostics.
type NodeInfo[T Bounded] struct {
	Bounds Bounds
	Depth  int
	Leaf   bool
	Items  []T
}

// QuadTree is a loose-root region quad tree keyed by item bounds.
// Items that straddle a quadrant boundary stay at the parent node.
type QuadTree[T Bounded] struct {
	root       *quadNode[T]
	minSize    Vector2D
	maxObjects int
	initial    Bounds
	lookup     map[T]*quadNode[T]
}

type quadNode[T Bounded] struct {
	bounds   Bounds
	parent   *quadNode[T]
	children [4]*quadNode[T]
	divided  bool
	items    []T
}

// NewQuadTree creates an empty quad tree.
func NewQuadTree[T Bounded](opts QuadTreeOptions) *QuadTree[T] {
	minSize := opts.MinCellSize
	if minSize.X <= 0 {
		minSize.X = DefaultMinCellSize
	}
	if minSize.Y <= 0 {
		minSize.Y = DefaultMinCellSize
	}
	maxObjects := opts.MaxObjects
	if maxObjects < 0 {
		maxObjects = 0
	}
	return &QuadTree[T]{
		minSize:    minSize,
		maxObjects: maxObjects,
		initial:    opts.Bounds,
		lookup:     make(map[T]*quadNode[T]),
	}
}

// Insert adds an item using its current bounds.
func (qt *QuadTree[T]) Insert(item T) error {
	b := item.GetBounds()
	if !b.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidBounds, b)
	}
	if _, exists := qt.lookup[item]; exists {
		return ErrAlreadyIndexed
	}

	qt.ensureRoot(b)
	qt.insertInto(qt.root, item, b)
	return nil
}

// Remove deletes an item and collapses any subtree left empty.
func (qt *QuadTree[T]) Remove(item T) error {
	node, exists := qt.lookup[item]
	if !exists {
		return ErrNotIndexed
	}

	node.removeItem(item)
	delete(qt.lookup, item)
	qt.collapse(node)
	return nil
}

// Update re-homes an item after its bounds changed. The item climbs to the
// nearest ancestor that still contains it and sinks from there.
func (qt *QuadTree[T]) Update(item T) error {
	node, exists := qt.lookup[item]
	if !exists {
		return ErrNotIndexed
	}
	b := item.GetBounds()
	if !b.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidBounds, b)
	}

	if node.bounds.Contains(b) && (!node.divided || node.childContaining(b) == nil) {
		return nil
	}

	target := node
	for target != nil && !target.bounds.Contains(b) {
		target = target.parent
	}
	if target == nil {
		qt.ensureRoot(b)
		target = qt.root
	}

	node.removeItem(item)
	qt.insertInto(target, item, b)
	qt.collapse(node)
	return nil
}

// Query returns every item whose bounds intersect region, edges included.
func (qt *QuadTree[T]) Query(region Bounds) []T {
	found := make([]T, 0)
	if qt.root == nil {
		return found
	}
	return qt.root.query(region, found)
}

// Contains reports whether item is stored in the tree.
func (qt *QuadTree[T]) Contains(item T) bool {
	_, exists := qt.lookup[item]
	return exists
}

// Count returns the number of stored items.
func (qt *QuadTree[T]) Count() int {
	return len(qt.lookup)
}

// Clear removes every item and drops the root.
func (qt *QuadTree[T]) Clear() {
	qt.root = nil
	qt.lookup = make(map[T]*quadNode[T])
}

// Bounds returns the current root region, or empty bounds if nothing was inserted yet.
func (qt *QuadTree[T]) Bounds() Bounds {
	if qt.root == nil {
		return Bounds{}
	}
	return qt.root.bounds
}

// Depth returns the number of levels below the root.
func (qt *QuadTree[T]) Depth() int {
	if qt.root == nil {
		return 0
	}
	return qt.root.depth()
}

// Nodes returns every node in pre-order (parent before children,
// north-west to south-east).
func (qt *QuadTree[T]) Nodes() []NodeInfo[T] {
	nodes := make([]NodeInfo[T], 0)
	if qt.root == nil {
		return nodes
	}
	var walk func(n *quadNode[T], depth int)
	walk = func(n *quadNode[T], depth int) {
		items := make([]T, len(n.items))
		copy(items, n.items)
		nodes = append(nodes, NodeInfo[T]{
			Bounds: n.bounds,
			Depth:  depth,
			Leaf:   !n.divided,
			Items:  items,
		})
		if !n.divided {
			return
		}
		for _, child := range n.children {
			walk(child, depth+1)
		}
	}
	walk(qt.root, 0)
	return nodes
}

// Items returns every stored item in tree order.
func (qt *QuadTree[T]) Items() []T {
	items := make([]T, 0, len(qt.lookup))
	for _, node := range qt.Nodes() {
		items = append(items, node.Items...)
	}
	return items
}

// Validate checks the structural invariants of the tree: every item lies
// inside its node, items at a divided node fit no single child, and the
// lookup table agrees with the tree.
func (qt *QuadTree[T]) Validate() error {
	if qt.root == nil {
		if len(qt.lookup) != 0 {
			return fmt.Errorf("quadtree: %d items indexed without a root", len(qt.lookup))
		}
		return nil
	}

	seen := 0
	var check func(n *quadNode[T]) error
	check = func(n *quadNode[T]) error {
		for _, item := range n.items {
			seen++
			b := item.GetBounds()
			if qt.lookup[item] != n {
				return fmt.Errorf("quadtree: lookup mismatch for item at %v", b)
			}
			if !n.bounds.Contains(b) {
				return fmt.Errorf("quadtree: item %v outside node %v", b, n.bounds)
			}
			if n.divided && n.childContaining(b) != nil {
				return fmt.Errorf("quadtree: item %v stored above a child that contains it", b)
			}
		}
		if !n.divided {
			return nil
		}
		for _, child := range n.children {
			if child == nil || child.parent != n {
				return fmt.Errorf("quadtree: broken child link under %v", n.bounds)
			}
			if err := check(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(qt.root); err != nil {
		return err
	}
	if seen != len(qt.lookup) {
		return fmt.Errorf("quadtree: %d items in tree, %d in lookup", seen, len(qt.lookup))
	}
	return nil
}

// ensureRoot creates the root on first use and doubles it toward b until b fits.
func (qt *QuadTree[T]) ensureRoot(b Bounds) {
	if qt.root == nil {
		rb := qt.initial
		if !rb.Valid() || rb.Width <= 0 || rb.Height <= 0 {
			size := math.Max(math.Max(b.Width, b.Height), math.Max(qt.minSize.X, qt.minSize.Y))
			rb = Bounds{X: b.X, Y: b.Y, Width: size, Height: size}
		}
		qt.root = &quadNode[T]{bounds: rb}
	}
	for !qt.root.bounds.Contains(b) {
		qt.expandRoot(b)
	}
}

// expandRoot wraps the current root in a parent twice its size. The old
// root becomes the quadrant facing away from b.
func (qt *QuadTree[T]) expandRoot(b Bounds) {
	old := qt.root
	ob := old.bounds
	growLeft := b.X < ob.X
	growUp := b.Y < ob.Y

	nb := Bounds{X: ob.X, Y: ob.Y, Width: ob.Width * 2, Height: ob.Height * 2}
	idx := 0
	if growLeft {
		nb.X -= ob.Width
		idx++
	}
	if growUp {
		nb.Y -= ob.Height
		idx += 2
	}

	root := &quadNode[T]{bounds: nb}
	root.divide()
	root.children[idx] = old
	old.parent = root
	qt.root = root
}

func (qt *QuadTree[T]) insertInto(node *quadNode[T], item T, b Bounds) {
	for node.divided {
		child := node.childContaining(b)
		if child == nil {
			break
		}
		node = child
	}

	node.items = append(node.items, item)
	qt.lookup[item] = node

	if !node.divided && len(node.items) > qt.maxObjects && qt.canSplit(node) {
		qt.split(node)
	}
}

func (qt *QuadTree[T]) canSplit(node *quadNode[T]) bool {
	return node.bounds.Width/2 >= qt.minSize.X && node.bounds.Height/2 >= qt.minSize.Y
}

// split divides a leaf and pushes down every item that fits a single child.
func (qt *QuadTree[T]) split(node *quadNode[T]) {
	node.divide()

	items := node.items
	node.items = items[:0]
	for _, item := range items {
		b := item.GetBounds()
		if child := node.childContaining(b); child != nil {
			qt.insertInto(child, item, b)
			continue
		}
		node.items = append(node.items, item)
	}
	clear(items[len(node.items):])
}

// collapse walks upward from node, merging away children that hold nothing.
func (qt *QuadTree[T]) collapse(node *quadNode[T]) {
	for n := node; n != nil; n = n.parent {
		if !n.divided {
			continue
		}
		if len(n.items) > qt.maxObjects {
			return
		}
		for _, child := range n.children {
			if child.divided || len(child.items) > 0 {
				return
			}
		}
		n.children = [4]*quadNode[T]{}
		n.divided = false
	}
}

func (n *quadNode[T]) divide() {
	for i, b := range n.bounds.Quadrants() {
		n.children[i] = &quadNode[T]{bounds: b, parent: n}
	}
	n.divided = true
}

func (n *quadNode[T]) childContaining(b Bounds) *quadNode[T] {
	for _, child := range n.children {
		if child != nil && child.bounds.Contains(b) {
			return child
		}
	}
	return nil
}

func (n *quadNode[T]) removeItem(item T) {
	for i, it := range n.items {
		if it == item {
			last := len(n.items) - 1
			n.items[i] = n.items[last]
			var zero T
			n.items[last] = zero
			n.items = n.items[:last]
			return
		}
	}
}

func (n *quadNode[T]) query(region Bounds, found []T) []T {
	if !n.bounds.Intersects(region) {
		return found
	}

	for _, item := range n.items {
		if item.GetBounds().Intersects(region) {
			found = append(found, item)
		}
	}

	if !n.divided {
		return found
	}
	for _, child := range n.children {
		found = child.query(region, found)
	}
	return found
}

func (n *quadNode[T]) depth() int {
	if !n.divided {
		return 0
	}
	deepest := 0
	for _, child := range n.children {
		if d := child.depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
