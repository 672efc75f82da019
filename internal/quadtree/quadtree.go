// Package quadtree implements the spatial index used by the Barnes-Hut force
// evaluator: a square region recursively split into four quadrants, holding
// borrowed references to bodies.
package quadtree

import (
	"fmt"

	"github.com/onnwee/barnes-hut-sim/internal/physics"
)

// DefaultMaxDepth bounds subdivision so near-coincident bodies cannot recurse forever.
const DefaultMaxDepth = 100

// Quadrant indexes a node's children.
type Quadrant int

const (
	NorthWest Quadrant = iota
	NorthEast
	SouthWest
	SouthEast
)

func (q Quadrant) String() string {
	switch q {
	case NorthWest:
		return "NW"
	case NorthEast:
		return "NE"
	case SouthWest:
		return "SW"
	case SouthEast:
		return "SE"
	default:
		return fmt.Sprintf("Quadrant(%d)", int(q))
	}
}

// State is the occupancy of a node.
type State int

const (
	Empty State = iota
	Leaf
	Internal
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Leaf:
		return "leaf"
	case Internal:
		return "internal"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Node is a square region of the tree.
type Node struct {
	// Spatial bounds: Size is the side length of the square.
	Center physics.Vec2
	Size   float64

	// Resident body (leaf only). Overflow holds extra residents parked at
	// the depth bound by FallbackBucket.
	Body     *physics.Body
	Overflow []*physics.Body

	// Quadrants, indexed by Quadrant. All nil or all set.
	Children [4]*Node

	// Valid only after ComputeMassDistribution.
	TotalMass    float64
	CenterOfMass physics.Vec2
}

// newNode creates an empty node over the square centered at center.
func newNode(center physics.Vec2, size float64) *Node {
	return &Node{Center: center, Size: size}
}

// State reports whether the node is empty, a leaf or internal.
func (n *Node) State() State {
	switch {
	case n.Children[0] != nil:
		return Internal
	case n.Body != nil:
		return Leaf
	default:
		return Empty
	}
}

// Residents returns the bodies stored directly in this node.
func (n *Node) Residents() []*physics.Body {
	if n.Body == nil {
		return nil
	}
	out := make([]*physics.Body, 0, 1+len(n.Overflow))
	out = append(out, n.Body)
	return append(out, n.Overflow...)
}

// QuadrantOf returns the child quadrant a position belongs to. y below the
// center line is north, x below the center line is west.
func (n *Node) QuadrantOf(p physics.Vec2) Quadrant {
	if p.Y < n.Center.Y {
		if p.X < n.Center.X {
			return NorthWest
		}
		return NorthEast
	}
	if p.X < n.Center.X {
		return SouthWest
	}
	return SouthEast
}

// Contains reports whether p lies inside the node's square (half-open on the
// south/east edges, matching QuadrantOf).
func (n *Node) Contains(p physics.Vec2) bool {
	half := n.Size / 2
	return p.X >= n.Center.X-half && p.X < n.Center.X+half &&
		p.Y >= n.Center.Y-half && p.Y < n.Center.Y+half
}

// subdivide creates the four children at half the node's size.
func (n *Node) subdivide() {
	childSize := n.Size / 2
	offset := childSize / 2

	n.Children[NorthWest] = newNode(physics.Vec2{X: n.Center.X - offset, Y: n.Center.Y - offset}, childSize)
	n.Children[NorthEast] = newNode(physics.Vec2{X: n.Center.X + offset, Y: n.Center.Y - offset}, childSize)
	n.Children[SouthWest] = newNode(physics.Vec2{X: n.Center.X - offset, Y: n.Center.Y + offset}, childSize)
	n.Children[SouthEast] = newNode(physics.Vec2{X: n.Center.X + offset, Y: n.Center.Y + offset}, childSize)
}

// computeMass is the post-order aggregation pass.
func (n *Node) computeMass() {
	if n.Body != nil {
		if len(n.Overflow) == 0 {
			n.TotalMass = n.Body.Mass
			n.CenterOfMass = n.Body.Position
			return
		}

		total := 0.0
		var weighted physics.Vec2
		for _, b := range n.Residents() {
			total += b.Mass
			weighted = weighted.Add(b.Position.Scale(b.Mass))
		}
		n.TotalMass = total
		if total > 0 {
			n.CenterOfMass = weighted.Scale(1 / total)
		} else {
			n.CenterOfMass = n.Body.Position
		}
		return
	}

	total := 0.0
	var weighted physics.Vec2
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		child.computeMass()
		total += child.TotalMass
		weighted = weighted.Add(child.CenterOfMass.Scale(child.TotalMass))
	}
	n.TotalMass = total
	if total > 0 {
		n.CenterOfMass = weighted.Scale(1 / total)
	} else {
		n.CenterOfMass = physics.Vec2{}
	}
}

// Release detaches every descendant so the subtree can be collected. It is
// safe to call on a nil node and more than once.
func (n *Node) Release() {
	if n == nil {
		return
	}
	for i, child := range n.Children {
		child.Release()
		n.Children[i] = nil
	}
	n.Body = nil
	n.Overflow = nil
}
