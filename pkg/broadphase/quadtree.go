package broadphase

import (
	"fmt"
	"math"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// Quadtree defaults.
const (
	DefaultCapacity = 4
	DefaultWindow   = 50.0
	DefaultMaxDepth = 12
)

// noChild marks an absent child index.
const noChild = -1

// Quadrant order of a node's children.
const (
	northWest = iota
	northEast
	southWest
	southEast
)

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies in the half-open rectangle [X, X+W) x [Y, Y+H).
func (r Rect) Contains(p physics.Vector2D) bool {
	return r.X <= p.X && p.X < r.X+r.W &&
		r.Y <= p.Y && p.Y < r.Y+r.H
}

// Encloses reports whether p lies in the closed rectangle.
func (r Rect) Encloses(p physics.Vector2D) bool {
	return r.X <= p.X && p.X <= r.X+r.W &&
		r.Y <= p.Y && p.Y <= r.Y+r.H
}

// Intersects reports whether the closed rectangles share any point.
func (r Rect) Intersects(other Rect) bool {
	return !(other.X > r.X+r.W || other.X+other.W < r.X ||
		other.Y > r.Y+r.H || other.Y+other.H < r.Y)
}

type quadNode struct {
	boundary Rect
	bodies   []int
	children [4]int
	depth    int
}

func (n *quadNode) divided() bool {
	return n.children[0] != noChild
}

// Quadtree is a point quadtree over body indices. Nodes live in a flat pool
// addressed by index; node 0 is the root. Reset empties the pool without
// releasing its memory, so each tick rebuilds the tree cheaply.
type Quadtree struct {
	nodes    []quadNode
	bodies   []physics.Body
	capacity int
	maxDepth int
	// corner files bodies by their top-left bounding corner instead of their center.
	corner bool
	// keepOnSplit leaves a node's bodies in place when it subdivides.
	keepOnSplit  bool
	subdivisions int
}

// NewQuadtree creates an empty tree over boundary. Leaves hold up to
// capacity bodies; nodes at maxDepth never split and keep any overflow.
// A maxDepth of zero or less selects DefaultMaxDepth.
func NewQuadtree(boundary Rect, capacity, maxDepth int) (*Quadtree, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	qt := &Quadtree{
		capacity: capacity,
		maxDepth: maxDepth,
	}
	qt.Reset(boundary, nil)
	return qt, nil
}

// Reset discards every node and starts a new root over boundary for the
// given bodies.
func (qt *Quadtree) Reset(boundary Rect, bodies []physics.Body) {
	qt.nodes = qt.nodes[:0]
	qt.bodies = bodies
	qt.subdivisions = 0
	qt.newNode(boundary, 0)
}

// UseCornerPoint switches between filing bodies by their top-left corner
// (x - r, y - r) and by their center.
func (qt *Quadtree) UseCornerPoint(corner bool) {
	qt.corner = corner
}

// KeepBodiesOnSplit makes a subdividing node keep the bodies it already
// holds; only later inserts go to its children. Otherwise the bodies move
// down and internal nodes stay empty.
func (qt *Quadtree) KeepBodiesOnSplit(keep bool) {
	qt.keepOnSplit = keep
}

// Boundary returns the root rectangle.
func (qt *Quadtree) Boundary() Rect {
	return qt.nodes[0].boundary
}

// Subdivisions returns how many nodes split since the last Reset.
func (qt *Quadtree) Subdivisions() int {
	return qt.subdivisions
}

// NodeCount returns the number of nodes in the tree.
func (qt *Quadtree) NodeCount() int {
	return len(qt.nodes)
}

// Insert files body i. It returns false when the body's reference point
// lies outside the root boundary.
func (qt *Quadtree) Insert(i int) bool {
	p := qt.reference(i)
	if !qt.nodes[0].boundary.Contains(p) {
		return false
	}
	qt.insert(0, i, p)
	return true
}

func (qt *Quadtree) reference(i int) physics.Vector2D {
	b := &qt.bodies[i]
	if qt.corner {
		return physics.Vector2D{X: b.Position.X - b.Radius, Y: b.Position.Y - b.Radius}
	}
	return b.Position
}

// insert assumes p already lies inside node n.
func (qt *Quadtree) insert(n, i int, p physics.Vector2D) {
	node := &qt.nodes[n]
	if !node.divided() {
		if len(node.bodies) < qt.capacity || node.depth >= qt.maxDepth {
			node.bodies = append(node.bodies, i)
			return
		}
		qt.subdivide(n)
	}
	qt.insert(qt.childFor(n, p), i, p)
}

// childFor picks the quadrant of node n holding p. Comparing against the
// midpoint leaves no gaps between children from rounding.
func (qt *Quadtree) childFor(n int, p physics.Vector2D) int {
	node := &qt.nodes[n]
	midX := node.boundary.X + node.boundary.W/2
	midY := node.boundary.Y + node.boundary.H/2
	quadrant := northWest
	if p.X >= midX {
		quadrant++
	}
	if p.Y >= midY {
		quadrant += 2
	}
	return node.children[quadrant]
}

// subdivide splits node n into four equal quadrants and, unless
// keepOnSplit is set, moves its bodies down into them.
func (qt *Quadtree) subdivide(n int) {
	b := qt.nodes[n].boundary
	depth := qt.nodes[n].depth + 1
	midX := b.X + b.W/2
	midY := b.Y + b.H/2

	quadrants := [4]Rect{
		northWest: {X: b.X, Y: b.Y, W: midX - b.X, H: midY - b.Y},
		northEast: {X: midX, Y: b.Y, W: b.X + b.W - midX, H: midY - b.Y},
		southWest: {X: b.X, Y: midY, W: midX - b.X, H: b.Y + b.H - midY},
		southEast: {X: midX, Y: midY, W: b.X + b.W - midX, H: b.Y + b.H - midY},
	}
	// newNode may grow the pool, so index the parent afresh each time.
	for k, r := range quadrants {
		child := qt.newNode(r, depth)
		qt.nodes[n].children[k] = child
	}
	qt.subdivisions++
	if qt.keepOnSplit {
		return
	}

	moved := qt.nodes[n].bodies
	qt.nodes[n].bodies = moved[:0]
	for _, i := range moved {
		p := qt.reference(i)
		qt.insert(qt.childFor(n, p), i, p)
	}
}

func (qt *Quadtree) newNode(boundary Rect, depth int) int {
	idx := len(qt.nodes)
	if idx < cap(qt.nodes) {
		qt.nodes = qt.nodes[:idx+1]
		node := &qt.nodes[idx]
		node.boundary = boundary
		node.bodies = node.bodies[:0]
		node.depth = depth
	} else {
		qt.nodes = append(qt.nodes, quadNode{boundary: boundary, depth: depth})
	}
	qt.nodes[idx].children = [4]int{noChild, noChild, noChild, noChild}
	return idx
}

// Query appends to dst every body whose center lies inside area, skipping
// subtrees whose boundary misses area.
func (qt *Quadtree) Query(area Rect, dst []int) []int {
	return qt.query(0, area, dst)
}

func (qt *Quadtree) query(n int, area Rect, dst []int) []int {
	node := &qt.nodes[n]
	if !node.boundary.Intersects(area) {
		return dst
	}
	for _, i := range node.bodies {
		if area.Encloses(qt.bodies[i].Position) {
			dst = append(dst, i)
		}
	}
	if node.divided() {
		for _, child := range node.children {
			dst = qt.query(child, area, dst)
		}
	}
	return dst
}

// QuadtreeBroadPhase rebuilds a Quadtree every tick and queries a square
// window around each body for its neighbors.
//
// In legacy mode the tree covers exactly the arena, bodies are filed by
// their top-left corner and the window has a fixed half-size. That can miss
// collisions for bodies straddling a quadrant edge, pushed outside the
// arena, or larger than the window. Otherwise bodies are filed by center,
// the root grows to cover every center and the window always reaches the
// largest possible overlap distance.
type QuadtreeBroadPhase struct {
	tree      *Quadtree
	window    float64
	legacy    bool
	bodies    []physics.Body
	maxRadius float64
	rejected  int
	scratch   []int
}

// NewQuadtreeBroadPhase creates the quadtree strategy.
func NewQuadtreeBroadPhase(opts Options) (*QuadtreeBroadPhase, error) {
	tree, err := NewQuadtree(Rect{}, opts.Capacity, opts.MaxDepth)
	if err != nil {
		return nil, err
	}
	window := opts.Window
	if !(window > 0) {
		window = DefaultWindow
	}
	tree.UseCornerPoint(opts.Legacy)
	tree.KeepBodiesOnSplit(opts.Legacy)
	return &QuadtreeBroadPhase{
		tree:   tree,
		window: window,
		legacy: opts.Legacy,
	}, nil
}

// Name implements BroadPhase.
func (q *QuadtreeBroadPhase) Name() string { return StrategyQuadtree }

// Tree exposes the tree built for the current tick.
func (q *QuadtreeBroadPhase) Tree() *Quadtree { return q.tree }

// Rejected returns how many bodies fell outside the root on the last Build.
func (q *QuadtreeBroadPhase) Rejected() int { return q.rejected }

// Build implements BroadPhase.
func (q *QuadtreeBroadPhase) Build(bodies []physics.Body, arena physics.Arena) {
	q.bodies = bodies
	q.rejected = 0
	q.maxRadius = 0
	for i := range bodies {
		q.maxRadius = math.Max(q.maxRadius, bodies[i].Radius)
	}

	root := Rect{X: 0, Y: 0, W: arena.Width, H: arena.Height}
	if !q.legacy {
		root = coverCenters(root, bodies)
	}
	q.tree.Reset(root, bodies)
	for i := range bodies {
		if !q.tree.Insert(i) {
			q.rejected++
		}
	}
}

// Candidates implements BroadPhase. Each pair is usually reported twice,
// once from each side's query.
func (q *QuadtreeBroadPhase) Candidates(dst []Pair) []Pair {
	for i := range q.bodies {
		b := &q.bodies[i]
		half := q.window
		if !q.legacy {
			half = math.Max(half, b.Radius+q.maxRadius)
		}
		area := Rect{
			X: b.Position.X - half,
			Y: b.Position.Y - half,
			W: 2 * half,
			H: 2 * half,
		}
		q.scratch = q.tree.Query(area, q.scratch[:0])
		for _, j := range q.scratch {
			if j != i {
				dst = append(dst, NewPair(i, j))
			}
		}
	}
	return dst
}

// coverCenters grows r so every finite body center lies strictly inside it.
func coverCenters(r Rect, bodies []physics.Body) Rect {
	minX, minY := r.X, r.Y
	maxX, maxY := r.X+r.W, r.Y+r.H
	for i := range bodies {
		p := bodies[i].Position
		if !p.IsFinite() {
			continue
		}
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X+1)
		maxY = math.Max(maxY, p.Y+1)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
