// Package scenario builds initial conditions for the simulator.
package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/onnwee/barnes-hut-sim/internal/physics"
)

const (
	// SolarMass in kilograms.
	SolarMass = 1.989e30
	// approachSpeed is the closing speed of each galaxy in the collision, m/s.
	approachSpeed = 1.5e4
)

// Galaxy returns a disc galaxy of n bodies centred on the origin: a central
// mass of a million suns at index 0 and stars of 0.75 to 1.25 solar masses
// on circular orbits inside a disc of radius size/4.
func Galaxy(n int, size float64, rng *rand.Rand) []physics.Body {
	if n <= 0 {
		return nil
	}
	centralMass := SolarMass * 1e6
	discRadius := size / 4

	bodies := make([]physics.Body, n)
	bodies[0] = physics.Body{Mass: centralMass}

	for i := 1; i < n; i++ {
		angle := rng.Float64() * 2 * math.Pi
		// sqrt gives a uniform density over the disc area
		radius := math.Sqrt(rng.Float64()) * discRadius
		sin, cos := math.Sincos(angle)

		b := physics.Body{
			Mass:     SolarMass * (0.75 + 0.5*rng.Float64()),
			Position: physics.Vec2{X: radius * cos, Y: radius * sin},
		}
		if radius > 0 {
			speed := math.Sqrt(physics.G * centralMass / radius)
			b.Velocity = physics.Vec2{X: -speed * sin, Y: speed * cos}
		}
		bodies[i] = b
	}
	return bodies
}

// ThreeGalaxyCollision places three galaxies on a circle of radius domain/4
// around the origin, each moving toward the centre. n is split as evenly as
// possible with the remainder going to the last galaxy.
func ThreeGalaxyCollision(n int, domain float64, rng *rand.Rand) []physics.Body {
	if n <= 0 {
		return nil
	}
	n1 := n / 3
	n2 := n / 3
	n3 := n - n1 - n2

	formationRadius := domain / 4
	templateSize := domain / 2 // disc radius domain/8
	sin30, cos30 := math.Sincos(math.Pi / 6)

	groups := []struct {
		count    int
		center   physics.Vec2
		velocity physics.Vec2
	}{
		{n1, physics.Vec2{X: 0, Y: -formationRadius}, physics.Vec2{X: 0, Y: approachSpeed}},
		{n2, physics.Vec2{X: -formationRadius * cos30, Y: formationRadius * sin30}, physics.Vec2{X: approachSpeed * cos30, Y: -approachSpeed * sin30}},
		{n3, physics.Vec2{X: formationRadius * cos30, Y: formationRadius * sin30}, physics.Vec2{X: -approachSpeed * cos30, Y: -approachSpeed * sin30}},
	}

	bodies := make([]physics.Body, 0, n)
	for _, g := range groups {
		galaxy := Galaxy(g.count, templateSize, rng)
		Shift(galaxy, g.center, g.velocity)
		bodies = append(bodies, galaxy...)
	}
	return bodies
}

// Binary returns two equal masses separated by separation on the x axis,
// on a circular orbit around their common centre at the origin.
func Binary(mass, separation float64) []physics.Body {
	half := separation / 2
	speed := 0.0
	if separation > 0 {
		speed = math.Sqrt(physics.G * mass / (2 * separation))
	}
	return []physics.Body{
		{Mass: mass, Position: physics.Vec2{X: -half}, Velocity: physics.Vec2{Y: -speed}},
		{Mass: mass, Position: physics.Vec2{X: half}, Velocity: physics.Vec2{Y: speed}},
	}
}

// Shift translates every body by offset and adds velocity to it.
func Shift(bodies []physics.Body, offset, velocity physics.Vec2) {
	for i := range bodies {
		bodies[i].Position = bodies[i].Position.Add(offset)
		bodies[i].Velocity = bodies[i].Velocity.Add(velocity)
	}
}

// Names lists the scenarios Build understands.
var Names = []string{"galaxies", "binary"}

// Build returns the named scenario moved to the centre of the root square
// [0, domain]².
func Build(name string, n int, domain float64, seed int64) ([]physics.Body, error) {
	rng := rand.New(rand.NewSource(seed))

	var bodies []physics.Body
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "galaxies", "":
		if n < 3 {
			return nil, fmt.Errorf("galaxies scenario needs at least 3 bodies, got %d", n)
		}
		bodies = ThreeGalaxyCollision(n, domain, rng)
	case "binary":
		bodies = Binary(SolarMass, domain/4)
	default:
		return nil, fmt.Errorf("unknown scenario %q (want one of %s)", name, strings.Join(Names, ", "))
	}

	Shift(bodies, physics.Vec2{X: domain / 2, Y: domain / 2}, physics.Vec2{})
	return bodies, nil
}
