// Package barneshut evaluates gravitational forces over a quadtree using the
// Barnes-Hut approximation.
package barneshut

import (
	"github.com/onnwee/barnes-hut-sim/internal/physics"
	"github.com/onnwee/barnes-hut-sim/internal/quadtree"
)

// Stats counts the work done by force evaluation.
type Stats struct {
	NodesVisited   int // non-nil nodes entered
	Approximations int // internal nodes treated as a single mass
	Interactions   int // force contributions applied
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.NodesVisited += o.NodesVisited
	s.Approximations += o.Approximations
	s.Interactions += o.Interactions
}

// CalculateForce accumulates the force exerted by node's subtree on target
// through target.ApplyForce. A subtree whose size/distance ratio is below
// theta is treated as one mass at its center of mass. The tree must have
// been aggregated with ComputeMassDistribution. The tree is not modified.
func CalculateForce(target *physics.Body, node *quadtree.Node, theta float64) Stats {
	var s Stats
	if target == nil {
		return s
	}
	calculateForce(target, node, theta, &s)
	return s
}

func calculateForce(target *physics.Body, node *quadtree.Node, theta float64, s *Stats) {
	if node == nil {
		return
	}
	s.NodesVisited++

	// Leaf: direct interaction with every resident except the target itself
	if node.Body != nil {
		for _, other := range node.Residents() {
			if other == target {
				continue
			}
			if attract(target, other.Position, other.Mass) {
				s.Interactions++
			}
		}
		return
	}

	if node.Children[0] == nil {
		return
	}

	// Internal: s/d < theta means far enough to approximate
	d := node.CenterOfMass.Sub(target.Position).Length()
	if d > 0 && node.Size/d < theta {
		s.Approximations++
		if attract(target, node.CenterOfMass, node.TotalMass) {
			s.Interactions++
		}
		return
	}

	for _, child := range node.Children {
		calculateForce(target, child, theta, s)
	}
}

// attract applies the softened gravitational pull of a point mass at pos on
// target. Coincident positions contribute nothing.
func attract(target *physics.Body, pos physics.Vec2, mass float64) bool {
	f, ok := gravity(target.Position, target.Mass, pos, mass)
	if !ok {
		return false
	}
	target.ApplyForce(f)
	return true
}

// gravity returns the force on a mass m1 at p1 from a mass m2 at p2:
// G*m1*m2/(r²+ε) along the displacement. ok is false when r == 0.
func gravity(p1 physics.Vec2, m1 float64, p2 physics.Vec2, m2 float64) (physics.Vec2, bool) {
	displacement := p2.Sub(p1)
	distance := displacement.Length()
	if distance == 0 {
		return physics.Vec2{}, false
	}
	magnitude := physics.G * m1 * m2 / (distance*distance + physics.Softening)
	return displacement.Scale(magnitude / distance), true
}

// PairForce returns the direct force on target from source. It is zero when
// they are the same body or share a position.
func PairForce(target, source *physics.Body) physics.Vec2 {
	if target == nil || source == nil || target == source {
		return physics.Vec2{}
	}
	f, _ := gravity(target.Position, target.Mass, source.Position, source.Mass)
	return f
}

// DirectForces applies every pairwise force to every body. It is the O(n²)
// reference the tree evaluation is checked against. Accelerations are not
// reset first.
func DirectForces(bodies []physics.Body) {
	for i := range bodies {
		for j := range bodies {
			if i == j {
				continue
			}
			bodies[i].ApplyForce(PairForce(&bodies[i], &bodies[j]))
		}
	}
}
