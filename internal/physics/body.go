package physics

const (
	// G is the gravitational constant in SI units.
	G = 6.67430e-11

	// Softening is added to the squared distance in the force denominator
	// so that very close bodies do not produce unbounded forces.
	Softening = 1e-9
)

// Body is a point mass. Identity is the pointer: two bodies at the same
// position are still distinct.
type Body struct {
	Position     Vec2
	Velocity     Vec2
	Acceleration Vec2
	Mass         float64
}

// ApplyForce accumulates force/mass into the acceleration. It does nothing
// for a nil body or a body with zero mass.
func (b *Body) ApplyForce(force Vec2) {
	if b == nil || b.Mass == 0 {
		return
	}
	b.Acceleration = b.Acceleration.Add(force.Scale(1 / b.Mass))
}

// Integrate advances the body by dt with semi-implicit Euler: the velocity is
// updated first and the new velocity moves the position. dt <= 0 is a no-op.
func (b *Body) Integrate(dt float64) {
	if b == nil || dt <= 0 {
		return
	}
	b.Velocity = b.Velocity.Add(b.Acceleration.Scale(dt))
	b.Position = b.Position.Add(b.Velocity.Scale(dt))
}

// ResetAcceleration zeroes the accumulated acceleration.
func (b *Body) ResetAcceleration() {
	if b == nil {
		return
	}
	b.Acceleration = Vec2{}
}
