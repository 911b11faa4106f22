package recall

import (
	"math"
	"testing"

	"github.com/rushteam/carkit/core"
)

func TestPearsonCorrelation(t *testing.T) {
	tests := []struct {
		name string
		a, b core.RatingProfile
		want float64
	}{
		{
			name: "no common items",
			a:    core.RatingProfile{1: 5},
			b:    core.RatingProfile{2: 4},
			want: 0,
		},
		{
			name: "one common item",
			a:    core.RatingProfile{1: 5},
			b:    core.RatingProfile{1: 5, 2: 4},
			want: 0,
		},
		{
			name: "constant ratings on intersection",
			a:    core.RatingProfile{1: 3, 2: 3, 3: 3},
			b:    core.RatingProfile{1: 1, 2: 4, 3: 5},
			want: 0,
		},
		{
			name: "perfect positive",
			a:    core.RatingProfile{1: 1, 2: 2, 3: 3},
			b:    core.RatingProfile{1: 2, 2: 3, 3: 4},
			want: 1,
		},
		{
			name: "perfect negative",
			a:    core.RatingProfile{1: 1, 2: 2, 3: 3},
			b:    core.RatingProfile{1: 3, 2: 2, 3: 1},
			want: -1,
		},
		{
			name: "means over intersection only",
			a:    core.RatingProfile{1: 1, 2: 5, 9: 1},
			b:    core.RatingProfile{1: 2, 2: 4, 8: 5},
			want: 1,
		},
		{
			// a 居中后 (1, -1, 0)，b 居中后 (1/3, -5/3, 4/3)
			// r = 2 / (sqrt(2) * sqrt(42/9)) = 3 / sqrt(21)
			name: "hand computed",
			a:    core.RatingProfile{1: 5, 2: 3, 3: 4},
			b:    core.RatingProfile{1: 4, 2: 2, 3: 5},
			want: 3 / math.Sqrt(21),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PearsonCorrelation(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got < -1 || got > 1 {
				t.Fatalf("out of range: %v", got)
			}
		})
	}
}

func TestPearsonCorrelationSelf(t *testing.T) {
	a := core.RatingProfile{1: 5, 2: 3, 3: 4, 4: 1}
	if got := PearsonCorrelation(a, a); math.Abs(got-1) > 1e-9 {
		t.Fatalf("self correlation = %v, want 1", got)
	}
}

func TestPearsonCorrelationSymmetric(t *testing.T) {
	a := core.RatingProfile{1: 5, 2: 3, 3: 4}
	b := core.RatingProfile{1: 4, 2: 2, 3: 5}
	if x, y := PearsonCorrelation(a, b), PearsonCorrelation(b, a); math.Abs(x-y) > 1e-12 {
		t.Fatalf("asymmetric: %v vs %v", x, y)
	}
	// 严格在 (-1, 1) 之间
	if r := PearsonCorrelation(a, b); r <= -1 || r >= 1 {
		t.Fatalf("r = %v, want strictly inside (-1, 1)", r)
	}
}
