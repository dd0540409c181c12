package acquisition

import (
	"math"
	"testing"
)

func TestExpectedImprovement(t *testing.T) {
	tests := []struct {
		name          string
		bestObserved  float64
		xi            float64
		mu            float64
		sigma         float64
		expectedValue float64
	}{
		{
			name:          "no improvement",
			bestObserved:  1.0,
			xi:            0.01,
			mu:            1.5, // Current point is worse (1.5 > 1.0)
			sigma:         0.1,
			expectedValue: 0.0,
		},
		{
			name:          "definite improvement",
			bestObserved:  1.0,
			xi:            0.01,
			mu:            0.5, // Current point is better (0.5 < 1.0)
			sigma:         0.2,
			expectedValue: 0.4905, // improvement 0.49 plus a small PDF contribution
		},
		{
			name:          "zero sigma",
			bestObserved:  1.0,
			xi:            0.0,
			mu:            0.5,
			sigma:         0.0,
			expectedValue: 0.5, // bestObserved - mu - xi
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ei := NewExpectedImprovement(tt.bestObserved, tt.xi)
			result := ei.Compute(tt.mu, tt.sigma)

			tolerance := 1e-4
			if math.Abs(result-tt.expectedValue) > tolerance {
				t.Errorf("expected %v, got %v (tolerance %v)", tt.expectedValue, result, tolerance)
			}
		})
	}
}

func TestLowerConfidenceBound(t *testing.T) {
	lcb := NewLowerConfidenceBound(2.0)

	if got := lcb.Compute(1.0, 0.5); math.Abs(got-0.0) > 1e-12 {
		t.Errorf("expected 0.0, got %v", got)
	}

	// More uncertainty makes a point more promising (lower score).
	if lcb.Compute(1.0, 1.0) >= lcb.Compute(1.0, 0.5) {
		t.Error("LCB should decrease with sigma")
	}

	// Default beta kicks in for non-positive values.
	if NewLowerConfidenceBound(0).Beta() != 2.0 {
		t.Error("expected default beta of 2.0")
	}
}
