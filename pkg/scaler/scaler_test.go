package scaler

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestShiftAndScale(t *testing.T) {
	vals := []float64{-600, -300, 0}
	got := ShiftAndScale(vals, 0, 100)
	want := []float64{-6, -3, 0}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-9) {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestApplyShiftDefaultsToMax(t *testing.T) {
	// With no explicit shift, the maximum value must map to 0 so that only
	// relative time separation matters.
	vals := []float64{-900, -450, -100}
	got, err := Apply(vals, Options{Mode: ModeShiftAndScale, Scale: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got[2], 0, 1e-9) {
		t.Errorf("expected max value to scale to 0, got %v", got[2])
	}
	if !almostEqual(got[0], -8, 1e-9) {
		t.Errorf("expected -8, got %v", got[0])
	}
}

func TestMinMaxScale(t *testing.T) {
	tests := []struct {
		name     string
		vals     []float64
		minRange float64
		want     []float64
	}{
		{
			name:     "plain rescale",
			vals:     []float64{1000, 1500, 2000},
			minRange: 0,
			want:     []float64{0, 0.5, 1},
		},
		{
			name:     "range floor kicks in",
			vals:     []float64{1000, 1100},
			minRange: 1000,
			want:     []float64{0.45, 0.55},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.vals, Options{Mode: ModeMinMax, MinRange: tt.minRange})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i := range tt.want {
				if !almostEqual(got[i], tt.want[i], 1e-9) {
					t.Errorf("point %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestMinMaxScaleDegenerate(t *testing.T) {
	// A zero-spread column with a range floor must not divide by zero.
	got, err := Apply([]float64{500, 500, 500}, Options{Mode: ModeMinMax, MinRange: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if !almostEqual(v, 0.5, 1e-9) {
			t.Errorf("point %d: expected 0.5, got %v", i, v)
		}
	}
}

func TestStepScaleContinuity(t *testing.T) {
	steps := []float64{8000, 14000}
	scales := []float64{100, 500, 1000}

	// Values just below and above each edge must land arbitrarily close to
	// each other on the scaled axis.
	for _, edge := range steps {
		pair := []float64{edge - 1e-6, edge + 1e-6}
		got, err := StepScale(pair, steps, scales)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(got[1]-got[0]) > 1e-6 {
			t.Errorf("discontinuity at edge %v: %v vs %v", edge, got[0], got[1])
		}
	}
}

func TestStepScaleRoundTrip(t *testing.T) {
	steps := []float64{8000, 14000}
	scales := []float64{100, 500, 1000}
	vals := []float64{0, 500, 7999, 8000, 10000, 14000, 25000}

	scaled, err := StepScale(vals, steps, scales)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := StepUnscale(scaled, steps, scales)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range vals {
		if !almostEqual(back[i], vals[i], 1e-6) {
			t.Errorf("point %d: round trip %v -> %v -> %v", i, vals[i], scaled[i], back[i])
		}
	}
}

func TestStepScaleBadArgs(t *testing.T) {
	if _, err := StepScale([]float64{1}, []float64{100}, []float64{1}); err == nil {
		t.Error("expected error for mismatched steps/scales lengths")
	}
	if _, err := StepScale([]float64{1}, []float64{200, 100}, []float64{1, 2, 3}); err == nil {
		t.Error("expected error for unordered steps")
	}
}

func TestApplyUnknownMode(t *testing.T) {
	if _, err := Apply([]float64{1, 2}, Options{Mode: "log-scale"}); err == nil {
		t.Error("expected configuration error for unknown mode")
	}
}

func TestApplyAllNaN(t *testing.T) {
	got, err := Apply([]float64{math.NaN(), math.NaN()}, Options{Mode: ModeMinMax})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Errorf("point %d: expected NaN passthrough, got %v", i, v)
		}
	}
}
