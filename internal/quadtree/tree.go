package quadtree

import (
	"fmt"
	"strings"

	"github.com/onnwee/barnes-hut-sim/internal/physics"
)

// Fallback selects what happens when an occupied leaf at the depth bound
// receives another body.
type Fallback int

const (
	// FallbackBucket parks the incoming body next to the resident. Both keep
	// their identity and are evaluated separately.
	FallbackBucket Fallback = iota
	// FallbackFuse adds the incoming mass to the resident body in place and
	// drops the incoming body from the tree.
	FallbackFuse
)

func (f Fallback) String() string {
	switch f {
	case FallbackBucket:
		return "bucket"
	case FallbackFuse:
		return "fuse"
	default:
		return fmt.Sprintf("Fallback(%d)", int(f))
	}
}

// ParseFallback converts a config string into a Fallback.
func ParseFallback(s string) (Fallback, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bucket":
		return FallbackBucket, nil
	case "fuse":
		return FallbackFuse, nil
	default:
		return FallbackBucket, fmt.Errorf("unknown depth fallback %q", s)
	}
}

// Option configures a Tree.
type Option func(*Tree)

// WithMaxDepth overrides DefaultMaxDepth. Values <= 0 are ignored.
func WithMaxDepth(depth int) Option {
	return func(t *Tree) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

// WithFallback selects the depth fallback policy.
func WithFallback(f Fallback) Option {
	return func(t *Tree) {
		t.fallback = f
	}
}

// Tree owns a root node and the insertion policy. A tree is built for one
// simulation step and released at the end of it.
type Tree struct {
	Root *Node

	maxDepth  int
	fallback  Fallback
	fallbacks int
	inserted  int
}

// New creates an empty tree over the square of side size centered at center.
func New(center physics.Vec2, size float64, opts ...Option) *Tree {
	t := &Tree{
		Root:     newNode(center, size),
		maxDepth: DefaultMaxDepth,
		fallback: FallbackBucket,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MaxDepth returns the subdivision bound.
func (t *Tree) MaxDepth() int { return t.maxDepth }

// Fallbacks returns how many inserts hit the depth bound.
func (t *Tree) Fallbacks() int { return t.fallbacks }

// Inserted returns the number of bodies passed to Insert (nil excluded).
func (t *Tree) Inserted() int { return t.inserted }

// Insert adds a borrowed body reference. Nil bodies are ignored.
func (t *Tree) Insert(b *physics.Body) {
	if t == nil || t.Root == nil || b == nil {
		return
	}
	t.inserted++
	t.insert(t.Root, b, 0)
}

func (t *Tree) insert(node *Node, b *physics.Body, depth int) {
	// Internal node: descend
	if node.Body == nil && node.Children[0] != nil {
		t.insert(node.Children[node.QuadrantOf(b.Position)], b, depth+1)
		return
	}

	// Empty node: becomes a leaf
	if node.Body == nil {
		node.Body = b
		return
	}

	// Occupied leaf at the depth bound
	if depth >= t.maxDepth {
		t.fallbacks++
		switch t.fallback {
		case FallbackFuse:
			node.Body.Mass += b.Mass
		default:
			node.Overflow = append(node.Overflow, b)
		}
		return
	}

	// Occupied leaf: split and push both bodies down
	node.subdivide()
	resident := node.Body
	node.Body = nil
	t.insert(node.Children[node.QuadrantOf(resident.Position)], resident, depth+1)
	t.insert(node.Children[node.QuadrantOf(b.Position)], b, depth+1)
}

// ComputeMassDistribution fills TotalMass and CenterOfMass for every node.
// Call once after all inserts and before any force evaluation.
func (t *Tree) ComputeMassDistribution() {
	if t == nil || t.Root == nil {
		return
	}
	t.Root.computeMass()
}

// Release frees the whole tree. Safe on a nil tree and idempotent.
func (t *Tree) Release() {
	if t == nil {
		return
	}
	t.Root.Release()
	t.Root = nil
}

// Stats summarizes the tree shape.
type Stats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
}

// Stats walks the tree and counts nodes, occupied leaves and depth.
func (t *Tree) Stats() Stats {
	var s Stats
	if t == nil || t.Root == nil {
		return s
	}
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if n == nil {
			return
		}
		s.Nodes++
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		if n.Body != nil {
			s.Leaves++
		}
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	walk(t.Root, 0)
	return s
}
