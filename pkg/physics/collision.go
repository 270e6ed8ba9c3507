// pkg/physics/collision.go
package physics

import "math"

// CoincidentEpsilon is the center distance below which two bodies are
// treated as coincident. The line of centers is undefined there, so
// Resolve leaves such pairs untouched.
const CoincidentEpsilon = 1e-9

// Circle represents a circular collision shape
type Circle struct {
	Center Vector2D
	Radius float64
}

// Collides reports whether the circles strictly overlap. Touching is not a collision.
func (c Circle) Collides(other Circle) bool {
	return c.Center.Distance(other.Center) < c.Radius+other.Radius
}

// CollisionResult contains information about a collision
type CollisionResult struct {
	Collided    bool
	Normal      Vector2D // unit vector from a towards b
	Penetration float64
	Distance    float64
}

// CheckCollision performs detailed collision detection between two circles
func CheckCollision(a, b Circle) CollisionResult {
	delta := b.Center.Sub(a.Center)
	distance := delta.Length()

	if distance >= a.Radius+b.Radius {
		return CollisionResult{Collided: false, Distance: distance}
	}

	result := CollisionResult{
		Collided:    true,
		Penetration: a.Radius + b.Radius - distance,
		Distance:    distance,
	}
	if distance >= CoincidentEpsilon {
		result.Normal = delta.Scale(1 / distance)
	}
	return result
}

// Overlaps is the narrow-phase test shared by every broad phase.
func Overlaps(a, b *Body) bool {
	return a.Circle().Collides(b.Circle())
}

// Resolve applies an elastic collision between two overlapping bodies and
// pushes them apart so they just touch. Radius stands in for mass.
// It returns false, changing nothing, when the bodies do not overlap or
// their centers coincide.
func Resolve(a, b *Body) bool {
	contact := CheckCollision(b.Circle(), a.Circle())
	if !contact.Collided || contact.Distance < CoincidentEpsilon {
		return false
	}

	radiusSum := a.Radius + b.Radius
	angle := contact.Normal.Angle()

	// Velocities in the collision frame: normal along the line of centers.
	normal1, tangent1 := toCollisionFrame(a.Velocity, angle)
	normal2, tangent2 := toCollisionFrame(b.Velocity, angle)

	// 1-D elastic exchange of the normal components.
	final1 := ((a.Radius-b.Radius)*normal1 + 2*b.Radius*normal2) / radiusSum
	final2 := (2*a.Radius*normal1 + (b.Radius-a.Radius)*normal2) / radiusSum

	a.Velocity = fromCollisionFrame(final1, tangent1, angle)
	b.Velocity = fromCollisionFrame(final2, tangent2, angle)

	if overlap := contact.Penetration; overlap > 0 {
		push := FromAngle(angle, overlap/2)
		a.Position = a.Position.Add(push)
		b.Position = b.Position.Sub(push)
	}
	return true
}

func toCollisionFrame(v Vector2D, angle float64) (normal, tangent float64) {
	speed := v.Length()
	direction := v.Angle()
	return speed * math.Cos(direction-angle), speed * math.Sin(direction-angle)
}

func fromCollisionFrame(normal, tangent, angle float64) Vector2D {
	return Vector2D{
		X: math.Cos(angle)*normal + math.Cos(angle+math.Pi/2)*tangent,
		Y: math.Sin(angle)*normal + math.Sin(angle+math.Pi/2)*tangent,
	}
}
