package physics

import (
	"errors"
	"testing"
)

func TestNewArena(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
		wantErr       bool
	}{
		{"valid", 1800, 900, false},
		{"zero_width", 0, 900, true},
		{"negative_height", 100, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arena, err := NewArena(tt.width, tt.height)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArena) {
					t.Errorf("NewArena() error = %v, expected ErrInvalidArena", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewArena() unexpected error: %v", err)
			}
			if arena.Width != tt.width || arena.Height != tt.height {
				t.Errorf("NewArena() = %+v", arena)
			}
		})
	}
}

func TestBody_Advance(t *testing.T) {
	b := NewBody(0, Vector2D{X: 10, Y: 20}, Vector2D{X: 1.5, Y: -2}, 3)
	b.Advance()
	b.Advance()
	if b.Position != (Vector2D{X: 13, Y: 16}) {
		t.Errorf("Position after two ticks = %v, expected (13, 16)", b.Position)
	}
}

func TestArena_Contain(t *testing.T) {
	arena := Arena{Width: 100, Height: 50}

	tests := []struct {
		name    string
		body    Body
		wantPos Vector2D
		wantVel Vector2D
	}{
		{
			name:    "inside_untouched",
			body:    NewBody(0, Vector2D{X: 50, Y: 25}, Vector2D{X: -1, Y: 1}, 5),
			wantPos: Vector2D{X: 50, Y: 25},
			wantVel: Vector2D{X: -1, Y: 1},
		},
		{
			name:    "left_wall_penetration",
			body:    NewBody(0, Vector2D{X: 1, Y: 25}, Vector2D{X: -2, Y: 0}, 5),
			wantPos: Vector2D{X: 5, Y: 25},
			wantVel: Vector2D{X: 2, Y: 0},
		},
		{
			name:    "left_wall_already_leaving",
			body:    NewBody(0, Vector2D{X: 1, Y: 25}, Vector2D{X: 3, Y: 0}, 5),
			wantPos: Vector2D{X: 5, Y: 25},
			wantVel: Vector2D{X: 3, Y: 0},
		},
		{
			name:    "right_wall",
			body:    NewBody(0, Vector2D{X: 99, Y: 25}, Vector2D{X: 4, Y: 0}, 5),
			wantPos: Vector2D{X: 95, Y: 25},
			wantVel: Vector2D{X: -4, Y: 0},
		},
		{
			name:    "corner",
			body:    NewBody(0, Vector2D{X: 98, Y: -3}, Vector2D{X: 1, Y: -1}, 4),
			wantPos: Vector2D{X: 96, Y: 4},
			wantVel: Vector2D{X: -1, Y: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.body
			arena.Contain(&b)
			if b.Position != tt.wantPos {
				t.Errorf("Position = %v, expected %v", b.Position, tt.wantPos)
			}
			if b.Velocity != tt.wantVel {
				t.Errorf("Velocity = %v, expected %v", b.Velocity, tt.wantVel)
			}
			if !arena.Holds(&b, 0) {
				t.Errorf("body %+v not held by arena after Contain", b)
			}
		})
	}
}

func TestArena_ContainAfterAdvance_LeftWall(t *testing.T) {
	arena := Arena{Width: 200, Height: 200}
	b := NewBody(0, Vector2D{X: 3, Y: 100}, Vector2D{X: -2, Y: 0}, 5)

	b.Advance()
	arena.Contain(&b)

	if b.Position.X < 5 {
		t.Errorf("x = %v, expected >= 5", b.Position.X)
	}
	if b.Velocity.X < 0 {
		t.Errorf("vx = %v, expected >= 0", b.Velocity.X)
	}
}

func TestBody_EnergyAndMomentum(t *testing.T) {
	bodies := []Body{
		NewBody(0, Vector2D{}, Vector2D{X: 3, Y: 4}, 2),
		NewBody(1, Vector2D{}, Vector2D{X: -1, Y: 0}, 4),
	}
	if got := TotalKineticEnergy(bodies); got != 27 {
		t.Errorf("TotalKineticEnergy() = %v, expected 27", got)
	}
	if got := TotalMomentum(bodies); got != (Vector2D{X: 2, Y: 8}) {
		t.Errorf("TotalMomentum() = %v, expected (2, 8)", got)
	}
}
