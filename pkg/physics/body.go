// pkg/physics/body.go
package physics

// Body is a circular particle. Radius doubles as the body's mass in
// collision response and must not change after creation.
type Body struct {
	ID       int      `json:"id" msgpack:"id"`
	Position Vector2D `json:"position" msgpack:"pos"`
	Velocity Vector2D `json:"velocity" msgpack:"vel"`
	Radius   float64  `json:"radius" msgpack:"r"`
}

// NewBody creates a body at pos moving with vel.
func NewBody(id int, pos, vel Vector2D, radius float64) Body {
	return Body{
		ID:       id,
		Position: pos,
		Velocity: vel,
		Radius:   radius,
	}
}

// Advance moves the body by one tick of its velocity.
// The timestep is always one tick; wall-clock time never enters here.
func (b *Body) Advance() {
	b.Position = b.Position.Add(b.Velocity)
}

// Circle returns the body's collision shape.
func (b *Body) Circle() Circle {
	return Circle{Center: b.Position, Radius: b.Radius}
}

// Mass is the stand-in mass used by the elastic response.
func (b *Body) Mass() float64 {
	return b.Radius
}

// KineticEnergy returns 1/2 * m * |v|^2 with radius as mass.
func (b *Body) KineticEnergy() float64 {
	return 0.5 * b.Mass() * b.Velocity.LengthSquared()
}

// Momentum returns m * v with radius as mass.
func (b *Body) Momentum() Vector2D {
	return b.Velocity.Scale(b.Mass())
}

// TotalKineticEnergy sums KineticEnergy over bodies.
func TotalKineticEnergy(bodies []Body) float64 {
	total := 0.0
	for i := range bodies {
		total += bodies[i].KineticEnergy()
	}
	return total
}

// TotalMomentum sums Momentum over bodies.
func TotalMomentum(bodies []Body) Vector2D {
	var total Vector2D
	for i := range bodies {
		total = total.Add(bodies[i].Momentum())
	}
	return total
}
