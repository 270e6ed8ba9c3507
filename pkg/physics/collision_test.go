// pkg/physics/collision_test.go
package physics

import (
	"math"
	"math/rand/v2"
	"testing"
)

const collisionTolerance = 1e-9

func TestCircle_Collides(t *testing.T) {
	tests := []struct {
		name     string
		circle1  Circle
		circle2  Circle
		expected bool
	}{
		{
			name:     "circles_touching",
			circle1:  Circle{Center: Vector2D{X: 0, Y: 0}, Radius: 5},
			circle2:  Circle{Center: Vector2D{X: 10, Y: 0}, Radius: 5},
			expected: false, // Distance equals sum of radii, collision logic uses <
		},
		{
			name:     "circles_overlapping",
			circle1:  Circle{Center: Vector2D{X: 0, Y: 0}, Radius: 5},
			circle2:  Circle{Center: Vector2D{X: 5, Y: 0}, Radius: 5},
			expected: true,
		},
		{
			name:     "circles_not_touching",
			circle1:  Circle{Center: Vector2D{X: 0, Y: 0}, Radius: 5},
			circle2:  Circle{Center: Vector2D{X: 15, Y: 0}, Radius: 5},
			expected: false,
		},
		{
			name:     "circles_same_position",
			circle1:  Circle{Center: Vector2D{X: 0, Y: 0}, Radius: 3},
			circle2:  Circle{Center: Vector2D{X: 0, Y: 0}, Radius: 2},
			expected: true,
		},
		{
			name:     "circles_diagonal_collision",
			circle1:  Circle{Center: Vector2D{X: 0, Y: 0}, Radius: 5},
			circle2:  Circle{Center: Vector2D{X: 3, Y: 4}, Radius: 3},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.circle1.Collides(tt.circle2)
			if result != tt.expected {
				t.Errorf("Circle.Collides() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestCheckCollision(t *testing.T) {
	t.Run("no_collision", func(t *testing.T) {
		result := CheckCollision(
			Circle{Center: Vector2D{X: 0, Y: 0}, Radius: 5},
			Circle{Center: Vector2D{X: 15, Y: 0}, Radius: 5},
		)
		if result.Collided {
			t.Error("Expected no collision, but got collision")
		}
		if result.Distance != 15 {
			t.Errorf("Expected distance 15, got %v", result.Distance)
		}
	})

	t.Run("collision_with_penetration", func(t *testing.T) {
		result := CheckCollision(
			Circle{Center: Vector2D{X: 0, Y: 0}, Radius: 5},
			Circle{Center: Vector2D{X: 8, Y: 0}, Radius: 5},
		)
		if !result.Collided {
			t.Fatal("Expected collision, but got no collision")
		}
		if result.Penetration != 2 {
			t.Errorf("Expected penetration 2, got %v", result.Penetration)
		}
		if result.Normal != (Vector2D{X: 1, Y: 0}) {
			t.Errorf("Expected normal (1, 0), got %v", result.Normal)
		}
	})

	t.Run("coincident_centers_have_zero_normal", func(t *testing.T) {
		result := CheckCollision(
			Circle{Center: Vector2D{X: 4, Y: 4}, Radius: 1},
			Circle{Center: Vector2D{X: 4, Y: 4}, Radius: 1},
		)
		if !result.Collided {
			t.Fatal("Expected collision for coincident circles")
		}
		if result.Normal != (Vector2D{}) {
			t.Errorf("Expected zero normal, got %v", result.Normal)
		}
	})
}

func TestResolve_SeparatedBodiesUnchanged(t *testing.T) {
	tests := []struct {
		name string
		a, b Body
	}{
		{
			name: "far_apart",
			a:    NewBody(0, Vector2D{X: 0, Y: 0}, Vector2D{X: 1, Y: 1}, 5),
			b:    NewBody(1, Vector2D{X: 100, Y: 0}, Vector2D{X: -1, Y: 0}, 5),
		},
		{
			name: "exactly_touching",
			a:    NewBody(0, Vector2D{X: 0, Y: 0}, Vector2D{X: 3, Y: 0}, 5),
			b:    NewBody(1, Vector2D{X: 10, Y: 0}, Vector2D{X: -3, Y: 0}, 5),
		},
		{
			name: "touching_diagonal",
			a:    NewBody(0, Vector2D{X: 0, Y: 0}, Vector2D{X: 2, Y: 2}, 2),
			b:    NewBody(1, Vector2D{X: 3, Y: 4}, Vector2D{X: 0, Y: 0}, 3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.a, tt.b
			if Resolve(&a, &b) {
				t.Error("Resolve() = true for non-overlapping bodies")
			}
			if a != tt.a || b != tt.b {
				t.Errorf("Resolve() mutated bodies: got %+v %+v", a, b)
			}
		})
	}
}

func TestResolve_HeadOnEqualBodiesSwapVelocities(t *testing.T) {
	a := NewBody(0, Vector2D{X: 100, Y: 100}, Vector2D{X: 2, Y: 0}, 10)
	b := NewBody(1, Vector2D{X: 115, Y: 100}, Vector2D{X: -2, Y: 0}, 10)

	if !Resolve(&a, &b) {
		t.Fatal("Resolve() = false for overlapping bodies")
	}

	if math.Abs(a.Velocity.X+2) > collisionTolerance || math.Abs(a.Velocity.Y) > collisionTolerance {
		t.Errorf("a.Velocity = %v, expected (-2, 0)", a.Velocity)
	}
	if math.Abs(b.Velocity.X-2) > collisionTolerance || math.Abs(b.Velocity.Y) > collisionTolerance {
		t.Errorf("b.Velocity = %v, expected (2, 0)", b.Velocity)
	}
	if d := a.Position.Distance(b.Position); math.Abs(d-20) > collisionTolerance {
		t.Errorf("distance after correction = %v, expected 20", d)
	}
}

func TestResolve_CoincidentCentersSkipped(t *testing.T) {
	a := NewBody(0, Vector2D{X: 50, Y: 50}, Vector2D{X: 1, Y: 0}, 5)
	b := NewBody(1, Vector2D{X: 50, Y: 50}, Vector2D{X: -1, Y: 0}, 5)
	origA, origB := a, b

	if Resolve(&a, &b) {
		t.Error("Resolve() = true for coincident centers")
	}
	if a != origA || b != origB {
		t.Errorf("coincident bodies were modified: %+v %+v", a, b)
	}
	if !a.Position.IsFinite() || !a.Velocity.IsFinite() {
		t.Error("coincident resolution produced non-finite state")
	}
}

func TestResolve_ConservesEnergyAndMomentum(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 500; i++ {
		r1 := 1 + rng.Float64()*30
		r2 := 1 + rng.Float64()*30
		// Place b somewhere strictly inside the overlap distance.
		angle := rng.Float64() * 2 * math.Pi
		distance := 0.01 + rng.Float64()*(r1+r2-0.02)
		a := NewBody(0, Vector2D{X: 500, Y: 500},
			Vector2D{X: rng.Float64()*10 - 5, Y: rng.Float64()*10 - 5}, r1)
		b := NewBody(1, a.Position.Add(FromAngle(angle, distance)),
			Vector2D{X: rng.Float64()*10 - 5, Y: rng.Float64()*10 - 5}, r2)

		bodies := []Body{a, b}
		energyBefore := TotalKineticEnergy(bodies)
		momentumBefore := TotalMomentum(bodies)

		if !Resolve(&bodies[0], &bodies[1]) {
			t.Fatalf("case %d: Resolve() = false for overlapping bodies", i)
		}

		energyAfter := TotalKineticEnergy(bodies)
		momentumAfter := TotalMomentum(bodies)

		scale := 1 + energyBefore
		if math.Abs(energyAfter-energyBefore) > 1e-9*scale {
			t.Errorf("case %d: kinetic energy %v -> %v", i, energyBefore, energyAfter)
		}
		if momentumAfter.Distance(momentumBefore) > 1e-9*(1+momentumBefore.Length()) {
			t.Errorf("case %d: momentum %v -> %v", i, momentumBefore, momentumAfter)
		}
		if d := bodies[0].Position.Distance(bodies[1].Position); math.Abs(d-(r1+r2)) > 1e-9*(r1+r2) {
			t.Errorf("case %d: post-correction distance %v, expected %v", i, d, r1+r2)
		}
	}
}

func TestResolve_TangentialComponentPreserved(t *testing.T) {
	// Line of centers is the x axis, so y velocities are tangential.
	a := NewBody(0, Vector2D{X: 0, Y: 0}, Vector2D{X: 1, Y: 3}, 4)
	b := NewBody(1, Vector2D{X: 6, Y: 0}, Vector2D{X: -1, Y: -2}, 8)

	if !Resolve(&a, &b) {
		t.Fatal("Resolve() = false for overlapping bodies")
	}
	if math.Abs(a.Velocity.Y-3) > collisionTolerance {
		t.Errorf("a tangential velocity = %v, expected 3", a.Velocity.Y)
	}
	if math.Abs(b.Velocity.Y+2) > collisionTolerance {
		t.Errorf("b tangential velocity = %v, expected -2", b.Velocity.Y)
	}
}

func TestOverlaps(t *testing.T) {
	a := NewBody(0, Vector2D{X: 0, Y: 0}, Vector2D{}, 5)
	b := NewBody(1, Vector2D{X: 9, Y: 0}, Vector2D{}, 5)
	c := NewBody(2, Vector2D{X: 10, Y: 0}, Vector2D{}, 5)

	if !Overlaps(&a, &b) {
		t.Error("Overlaps(a, b) = false, expected true")
	}
	if Overlaps(&a, &c) {
		t.Error("Overlaps(a, c) = true for touching bodies, expected false")
	}
}
