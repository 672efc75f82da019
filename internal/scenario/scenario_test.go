package scenario

import (
	"math"
	"math/rand"
	"testing"

	"github.com/onnwee/barnes-hut-sim/internal/physics"
)

func TestGalaxy(t *testing.T) {
	const size = 1e19
	bodies := Galaxy(200, size, rand.New(rand.NewSource(1)))

	if len(bodies) != 200 {
		t.Fatalf("expected 200 bodies, got %d", len(bodies))
	}
	if bodies[0].Mass != SolarMass*1e6 || bodies[0].Position != (physics.Vec2{}) {
		t.Errorf("body 0 should be the central mass at the origin, got %+v", bodies[0])
	}
	for i, b := range bodies[1:] {
		if b.Mass < 0.75*SolarMass || b.Mass > 1.25*SolarMass {
			t.Errorf("star %d mass %g outside [0.75, 1.25] suns", i+1, b.Mass)
		}
		r := b.Position.Length()
		if r > size/4*(1+1e-12) {
			t.Errorf("star %d at radius %g outside the disc", i+1, r)
		}
		if r == 0 {
			continue
		}
		// circular orbit: speed matches the central pull, velocity is tangential
		want := math.Sqrt(physics.G * SolarMass * 1e6 / r)
		if got := b.Velocity.Length(); math.Abs(got-want) > want*1e-9 {
			t.Errorf("star %d speed %g, want %g", i+1, got, want)
		}
		if dot := b.Velocity.Dot(b.Position); math.Abs(dot) > r*want*1e-9 {
			t.Errorf("star %d velocity is not tangential (dot=%g)", i+1, dot)
		}
	}
}

func TestGalaxyEmpty(t *testing.T) {
	if got := Galaxy(0, 1, rand.New(rand.NewSource(1))); got != nil {
		t.Errorf("expected nil for n=0, got %d bodies", len(got))
	}
}

func TestThreeGalaxyCollisionSplit(t *testing.T) {
	tests := []struct {
		n int
	}{{3}, {10}, {2600}}

	for _, tt := range tests {
		bodies := ThreeGalaxyCollision(tt.n, 1e19, rand.New(rand.NewSource(5)))
		if len(bodies) != tt.n {
			t.Errorf("n=%d: got %d bodies", tt.n, len(bodies))
		}
	}

	// central masses sit at the three formation points
	bodies := ThreeGalaxyCollision(10, 1e19, rand.New(rand.NewSource(5)))
	cores := []int{0, 3, 6}
	for _, idx := range cores {
		if bodies[idx].Mass != SolarMass*1e6 {
			t.Errorf("body %d should be a galactic core, mass %g", idx, bodies[idx].Mass)
		}
		if r := bodies[idx].Position.Length(); math.Abs(r-1e19/4) > 1e19*1e-12 {
			t.Errorf("core %d at radius %g, want %g", idx, r, 1e19/4)
		}
		// cores move toward the origin
		if bodies[idx].Velocity.Dot(bodies[idx].Position) >= 0 {
			t.Errorf("core %d is not approaching the centre", idx)
		}
	}
}

func TestBinary(t *testing.T) {
	bodies := Binary(SolarMass, 1e12)
	if len(bodies) != 2 {
		t.Fatalf("expected 2 bodies, got %d", len(bodies))
	}
	com := bodies[0].Position.Scale(bodies[0].Mass).Add(bodies[1].Position.Scale(bodies[1].Mass))
	if com != (physics.Vec2{}) {
		t.Errorf("centre of mass should be the origin, got %+v", com)
	}
	p := bodies[0].Velocity.Scale(bodies[0].Mass).Add(bodies[1].Velocity.Scale(bodies[1].Mass))
	if p != (physics.Vec2{}) {
		t.Errorf("total momentum should be zero, got %+v", p)
	}
	// centripetal balance: v²/(d/2) == G m / d²
	v := bodies[1].Velocity.Length()
	lhs := v * v / 0.5e12
	rhs := physics.G * SolarMass / 1e24
	if math.Abs(lhs-rhs) > rhs*1e-12 {
		t.Errorf("orbit not circular: %g vs %g", lhs, rhs)
	}
}

func TestShift(t *testing.T) {
	bodies := []physics.Body{{Position: physics.Vec2{X: 1, Y: 2}, Velocity: physics.Vec2{X: 3, Y: 4}}}
	Shift(bodies, physics.Vec2{X: 10, Y: 20}, physics.Vec2{X: -3, Y: 1})
	if bodies[0].Position != (physics.Vec2{X: 11, Y: 22}) || bodies[0].Velocity != (physics.Vec2{X: 0, Y: 5}) {
		t.Errorf("unexpected shifted body %+v", bodies[0])
	}
}

func TestBuild(t *testing.T) {
	const domain = 1e19

	t.Run("galaxies centred in the domain", func(t *testing.T) {
		bodies, err := Build("galaxies", 300, domain, 42)
		if err != nil {
			t.Fatal(err)
		}
		if len(bodies) != 300 {
			t.Fatalf("got %d bodies", len(bodies))
		}
		for i, b := range bodies {
			if b.Position.X < 0 || b.Position.X >= domain || b.Position.Y < 0 || b.Position.Y >= domain {
				t.Fatalf("body %d at %+v outside the root square", i, b.Position)
			}
		}
	})

	t.Run("same seed same bodies", func(t *testing.T) {
		a, _ := Build("galaxies", 30, domain, 7)
		b, _ := Build("GALAXIES", 30, domain, 7)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("body %d differs between identical seeds", i)
			}
		}
	})

	t.Run("binary", func(t *testing.T) {
		bodies, err := Build("binary", 0, domain, 1)
		if err != nil {
			t.Fatal(err)
		}
		mid := (bodies[0].Position.X + bodies[1].Position.X) / 2
		if mid != domain/2 {
			t.Errorf("binary centre at %g, want %g", mid, domain/2)
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := Build("plummer", 100, domain, 1); err == nil {
			t.Error("expected error for an unknown scenario")
		}
		if _, err := Build("galaxies", 2, domain, 1); err == nil {
			t.Error("expected error for too few bodies")
		}
	})
}
