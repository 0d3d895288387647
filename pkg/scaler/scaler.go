// Package scaler normalizes time and height columns onto dimensionless
// scales so that a single distance metric can be used for clustering.
package scaler

import (
	"fmt"
	"math"
)

// Recognized scaling modes.
const (
	ModeShiftAndScale = "shift-and-scale"
	ModeMinMax        = "minmax-scale"
	ModeStep          = "step-scale"
)

// Options carries the per-mode scaling parameters.
type Options struct {
	// Mode selects the scaling routine, one of the Mode* constants.
	Mode string

	// Shift is the offset applied before dividing in shift-and-scale mode.
	// When nil, the maximum of the input values is used, so that the scaled
	// data always reflects relative separation rather than absolute position.
	Shift *float64

	// Scale is the divisor for shift-and-scale mode. Zero means 1.
	Scale float64

	// MinRange is the smallest data range mapped onto [0, 1] in minmax mode.
	// Inputs with a tighter spread are scaled against a symmetric interval of
	// this size, which guards against degenerate zero-range columns.
	MinRange float64

	// Steps are the band edges for step mode, ordered smallest to largest.
	Steps []float64

	// Scales are the per-band divisors for step mode. Must hold exactly
	// len(Steps)+1 entries.
	Scales []float64
}

// Apply scales vals according to opts and returns a new slice. The input is
// never modified. An unrecognized mode is a configuration error.
func Apply(vals []float64, opts Options) ([]float64, error) {
	if allNaN(vals) {
		out := make([]float64, len(vals))
		copy(out, vals)
		return out, nil
	}

	switch opts.Mode {
	case ModeShiftAndScale:
		shift := nanMax(vals)
		if opts.Shift != nil {
			shift = *opts.Shift
		}
		scale := opts.Scale
		if scale == 0 {
			scale = 1
		}
		return ShiftAndScale(vals, shift, scale), nil
	case ModeMinMax:
		lo, hi := MinRangeToMinMax(vals, opts.MinRange)
		return MinMaxScale(vals, lo, hi), nil
	case ModeStep:
		return StepScale(vals, opts.Steps, opts.Scales)
	}
	return nil, fmt.Errorf("unknown scaling mode: %q", opts.Mode)
}

// ShiftAndScale maps each value v to (v-shift)/scale.
func ShiftAndScale(vals []float64, shift, scale float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = (v - shift) / scale
	}
	return out
}

// MinMaxScale maps minVal to 0 and maxVal to 1.
func MinMaxScale(vals []float64, minVal, maxVal float64) []float64 {
	out := make([]float64, len(vals))
	span := maxVal - minVal
	for i, v := range vals {
		out[i] = (v - minVal) / span
	}
	return out
}

// MinRangeToMinMax derives minmax edges spanning at least minRange. If the
// observed data range is narrower, a symmetric interval of size minRange is
// built around the data midpoint.
func MinRangeToMinMax(vals []float64, minRange float64) (float64, float64) {
	lo, hi := nanMin(vals), nanMax(vals)
	if hi-lo >= minRange {
		return lo, hi
	}
	mid := (hi + lo) / 2
	return mid - minRange/2, mid + minRange/2
}

// StepScale divides values by a band-dependent divisor: values between
// steps[i-1] and steps[i] are divided by scales[i]. Each band is offset so
// that the scaled axis remains continuous, with no gaps or overlaps between
// adjacent bands.
func StepScale(vals []float64, steps, scales []float64) ([]float64, error) {
	if err := checkSteps(steps, scales); err != nil {
		return nil, err
	}

	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = stepScaleOne(v, steps, scales)
	}
	return out, nil
}

// StepUnscale inverts StepScale.
func StepUnscale(vals []float64, steps, scales []float64) ([]float64, error) {
	if err := checkSteps(steps, scales); err != nil {
		return nil, err
	}

	// Scaled-space band edges, accounting for the continuity offsets.
	edges := make([]float64, len(steps))
	for i, s := range steps {
		edges[i] = stepScaleOne(s, steps, scales)
	}

	out := make([]float64, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			out[i] = v
			continue
		}
		band := 0
		for band < len(edges) && v >= edges[band] {
			band++
		}
		out[i] = (v-bandOffset(band, steps, scales))*scales[band] + bandFloor(band, steps)
	}
	return out, nil
}

func stepScaleOne(v float64, steps, scales []float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	band := 0
	for band < len(steps) && v >= steps[band] {
		band++
	}
	return (v-bandFloor(band, steps))/scales[band] + bandOffset(band, steps, scales)
}

// bandFloor is the raw-space lower edge of a band (0 for the first band, by
// convention, so the first band scales values relative to the origin).
func bandFloor(band int, steps []float64) float64 {
	if band == 0 {
		return 0
	}
	return steps[band-1]
}

// bandOffset is the scaled-space value at the lower edge of a band, i.e. the
// accumulated width of all preceding bands in scaled units.
func bandOffset(band int, steps, scales []float64) float64 {
	off := 0.0
	for i := 0; i < band; i++ {
		off += (steps[i] - bandFloor(i, steps)) / scales[i]
	}
	return off
}

func checkSteps(steps, scales []float64) error {
	if len(scales) != len(steps)+1 {
		return fmt.Errorf("step scaling needs len(scales) == len(steps)+1, got %d and %d",
			len(scales), len(steps))
	}
	for i := 1; i < len(steps); i++ {
		if steps[i] < steps[i-1] {
			return fmt.Errorf("step edges must be ordered smallest to largest")
		}
	}
	for _, s := range scales {
		if s <= 0 {
			return fmt.Errorf("step scales must be positive")
		}
	}
	return nil
}

func nanMin(vals []float64) float64 {
	out := math.Inf(1)
	for _, v := range vals {
		if !math.IsNaN(v) && v < out {
			out = v
		}
	}
	return out
}

func nanMax(vals []float64) float64 {
	out := math.Inf(-1)
	for _, v := range vals {
		if !math.IsNaN(v) && v > out {
			out = v
		}
	}
	return out
}

func allNaN(vals []float64) bool {
	for _, v := range vals {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
