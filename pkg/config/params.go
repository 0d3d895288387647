// Package config defines the algorithm parameters and the providers that
// load them. Parameter values are captured per run as an immutable snapshot:
// concurrent runs never share mutable configuration state.
package config

import (
	"fmt"
	"math"

	"github.com/skewt/ceilo/pkg/cluster"
	"github.com/skewt/ceilo/pkg/gmm"
	"github.com/skewt/ceilo/pkg/scaler"
)

// ScaleOptions mirrors scaler.Options for the parameter file.
type ScaleOptions struct {
	Mode     string    `yaml:"mode"`
	Scale    float64   `yaml:"scale,omitempty"`
	MinRange float64   `yaml:"min-range,omitempty"`
	Steps    []float64 `yaml:"steps,omitempty"`
	Scales   []float64 `yaml:"scales,omitempty"`
}

// ToScaler converts the file representation into scaler options.
func (s ScaleOptions) ToScaler() scaler.Options {
	return scaler.Options{
		Mode:     s.Mode,
		Scale:    s.Scale,
		MinRange: s.MinRange,
		Steps:    append([]float64(nil), s.Steps...),
		Scales:   append([]float64(nil), s.Scales...),
	}
}

// LowessParams tunes the LOWESS smoother used for slice fluffiness and
// diagnostic profiles.
type LowessParams struct {
	Frac       float64 `yaml:"frac"`
	Iterations int     `yaml:"iterations"`
}

// SlicingParams drives the per-instrument agglomerative slicing pass.
type SlicingParams struct {
	DtScaling         ScaleOptions `yaml:"dt-scaling"`
	HeightScaling     ScaleOptions `yaml:"height-scaling"`
	DistanceThreshold float64      `yaml:"distance-threshold"`
	Linkage           string       `yaml:"linkage"`
	Metric            string       `yaml:"metric"`
}

// GroupingParams drives the cross-instrument slice merging pass.
type GroupingParams struct {
	// DtThreshold is the largest gap, in seconds, between two slices' time
	// spans that still counts as temporal overlap.
	DtThreshold float64 `yaml:"dt-threshold"`

	// HeightPadPerc pads each slice's height interval by this percentage of
	// its (boosted, clamped) height scale before the overlap test.
	HeightPadPerc float64 `yaml:"height-pad-perc"`

	// FluffinessBoost multiplies the per-slice fluffiness before it becomes
	// the slice's height scale: vertically scattered slices get a more
	// generous overlap tolerance. Empirically tuned.
	FluffinessBoost float64 `yaml:"fluffiness-boost"`

	// HeightScaleMin/Max clamp the boosted fluffiness, in ft, preventing
	// runaway merges from extremely fluffy slices.
	HeightScaleMin float64 `yaml:"height-scale-min"`
	HeightScaleMax float64 `yaml:"height-scale-max"`
}

// LayeringParams drives the in-group Gaussian mixture splitting pass.
type LayeringParams struct {
	// MinOktaToSplit skips the mixture fit entirely for groups with less
	// coverage: too little data to support a multi-component model.
	MinOktaToSplit int `yaml:"min-okta-to-split"`

	// MaxComponents is the largest candidate component count (K).
	MaxComponents int `yaml:"max-components"`

	// Scores picks the information criterion: "AIC" or "BIC".
	Scores string `yaml:"scores"`

	// SelectMode picks the model selection rule: "delta" or "prob".
	SelectMode   string  `yaml:"select-mode"`
	MinProb      float64 `yaml:"min-prob"`
	DeltaMulGain float64 `yaml:"delta-mul-gain"`

	// Rescale0To minmax-rescales group heights onto [0, this] before the
	// fit, so scores are comparable across groups. Zero disables it.
	Rescale0To float64 `yaml:"rescale-0-to"`

	// Seed for the mixture fit, scoped to each fit call.
	Seed int64 `yaml:"seed"`

	// MinSepVals/MinSepLims define the height-dependent minimum base
	// separation below which split layers get re-merged:
	// MinSepVals[i] applies between MinSepLims[i-1] and MinSepLims[i].
	// Must satisfy len(MinSepVals) == len(MinSepLims)+1.
	MinSepVals []float64 `yaml:"min-sep-vals"`
	MinSepLims []float64 `yaml:"min-sep-lims"`
}

// Params is the full, run-scoped parameter set.
type Params struct {
	// MSA is the Minimum Sector Altitude in ft; layers based above it are
	// never reported. +Inf (".inf" in YAML) means unlimited.
	MSA float64 `yaml:"msa"`

	// MSAHitBuffer extends the MSA for the construction-time hit crop, so
	// that layers straddling the MSA keep their high-side hits.
	MSAHitBuffer float64 `yaml:"msa-hit-buffer"`

	// MaxHitsOkta0: layers with at most this many hits report 0 oktas,
	// whatever their density ratio says.
	MaxHitsOkta0 int `yaml:"max-hits-okta0"`

	// MaxHolesOkta8: layers with at most this many holes (missed reporting
	// slots) report 8 oktas.
	MaxHolesOkta8 int `yaml:"max-holes-okta8"`

	// BaseHeightPerc drops the lowest tail of a layer's hit heights, in %,
	// before taking the minimum as the layer base (outlier rejection).
	BaseHeightPerc float64 `yaml:"base-height-perc"`

	// BaseLookbackPerc restricts the base-height computation to the most
	// recent percentage of the layer's hits. 100 uses them all.
	BaseLookbackPerc float64 `yaml:"base-lookback-perc"`

	// BaseExcludeInstruments lists instrument ids whose hits are ignored for
	// base-height computation (e.g. known height-biased units).
	BaseExcludeInstruments []string `yaml:"base-exclude-instruments"`

	Lowess   LowessParams   `yaml:"lowess"`
	Slicing  SlicingParams  `yaml:"slicing"`
	Grouping GroupingParams `yaml:"grouping"`
	Layering LayeringParams `yaml:"layering"`
}

// DefaultParams returns the tuned default parameter set.
func DefaultParams() Params {
	return Params{
		MSA:              math.Inf(1),
		MSAHitBuffer:     1500,
		MaxHitsOkta0:     3,
		MaxHolesOkta8:    1,
		BaseHeightPerc:   5,
		BaseLookbackPerc: 100,
		Lowess: LowessParams{
			Frac:       0.35,
			Iterations: 3,
		},
		Slicing: SlicingParams{
			DtScaling: ScaleOptions{
				Mode:  scaler.ModeShiftAndScale,
				Scale: 100000,
			},
			HeightScaling: ScaleOptions{
				Mode:     scaler.ModeMinMax,
				MinRange: 1000,
			},
			DistanceThreshold: 0.2,
			Linkage:           cluster.LinkageAverage,
			Metric:            cluster.MetricEuclidean,
		},
		Grouping: GroupingParams{
			DtThreshold:     180,
			HeightPadPerc:   10,
			FluffinessBoost: 2,
			HeightScaleMin:  100,
			HeightScaleMax:  500,
		},
		Layering: LayeringParams{
			MinOktaToSplit: 2,
			MaxComponents:  3,
			Scores:         gmm.ScoreBIC,
			SelectMode:     gmm.SelectDelta,
			MinProb:        1,
			DeltaMulGain:   0.95,
			Rescale0To:     100,
			Seed:           42,
			MinSepVals:     []float64{250, 1000},
			MinSepLims:     []float64{10000},
		},
	}
}

// Clone returns a deep copy, so a chunk's snapshot can never alias the
// caller's parameter value.
func (p Params) Clone() Params {
	out := p
	out.BaseExcludeInstruments = append([]string(nil), p.BaseExcludeInstruments...)
	out.Slicing.DtScaling.Steps = append([]float64(nil), p.Slicing.DtScaling.Steps...)
	out.Slicing.DtScaling.Scales = append([]float64(nil), p.Slicing.DtScaling.Scales...)
	out.Slicing.HeightScaling.Steps = append([]float64(nil), p.Slicing.HeightScaling.Steps...)
	out.Slicing.HeightScaling.Scales = append([]float64(nil), p.Slicing.HeightScaling.Scales...)
	out.Layering.MinSepVals = append([]float64(nil), p.Layering.MinSepVals...)
	out.Layering.MinSepLims = append([]float64(nil), p.Layering.MinSepLims...)
	return out
}

// Validate fails fast on unrecognized modes and inconsistent values, before
// any clustering runs.
func (p Params) Validate() error {
	for _, s := range []struct {
		name string
		opts ScaleOptions
	}{
		{"slicing.dt-scaling", p.Slicing.DtScaling},
		{"slicing.height-scaling", p.Slicing.HeightScaling},
	} {
		switch s.opts.Mode {
		case scaler.ModeShiftAndScale, scaler.ModeMinMax, scaler.ModeStep:
		default:
			return fmt.Errorf("%s: unknown scaling mode: %q", s.name, s.opts.Mode)
		}
		if s.opts.Mode == scaler.ModeStep && len(s.opts.Scales) != len(s.opts.Steps)+1 {
			return fmt.Errorf("%s: step scaling needs len(scales) == len(steps)+1", s.name)
		}
	}

	switch p.Slicing.Linkage {
	case cluster.LinkageSingle, cluster.LinkageAverage:
	default:
		return fmt.Errorf("slicing.linkage: unknown linkage: %q", p.Slicing.Linkage)
	}
	switch p.Slicing.Metric {
	case cluster.MetricEuclidean, cluster.MetricManhattan:
	default:
		return fmt.Errorf("slicing.metric: unknown metric: %q", p.Slicing.Metric)
	}

	switch p.Layering.Scores {
	case gmm.ScoreAIC, gmm.ScoreBIC:
	default:
		return fmt.Errorf("layering.scores: unknown information criterion: %q", p.Layering.Scores)
	}
	switch p.Layering.SelectMode {
	case gmm.SelectDelta, gmm.SelectProb:
	default:
		return fmt.Errorf("layering.select-mode: unknown selection mode: %q", p.Layering.SelectMode)
	}
	if p.Layering.MaxComponents < 1 {
		return fmt.Errorf("layering.max-components must be >= 1, got %d", p.Layering.MaxComponents)
	}
	if len(p.Layering.MinSepVals) != len(p.Layering.MinSepLims)+1 {
		return fmt.Errorf("layering: min-sep-vals needs exactly len(min-sep-lims)+1 entries, got %d and %d",
			len(p.Layering.MinSepVals), len(p.Layering.MinSepLims))
	}

	if p.Lowess.Frac <= 0 || p.Lowess.Frac > 1 {
		return fmt.Errorf("lowess.frac must be in (0, 1], got %v", p.Lowess.Frac)
	}
	if p.BaseHeightPerc < 0 || p.BaseHeightPerc >= 100 {
		return fmt.Errorf("base-height-perc must be in [0, 100), got %v", p.BaseHeightPerc)
	}
	if p.BaseLookbackPerc <= 0 || p.BaseLookbackPerc > 100 {
		return fmt.Errorf("base-lookback-perc must be in (0, 100], got %v", p.BaseLookbackPerc)
	}
	if p.Grouping.HeightScaleMin > p.Grouping.HeightScaleMax {
		return fmt.Errorf("grouping: height-scale-min (%v) above height-scale-max (%v)",
			p.Grouping.HeightScaleMin, p.Grouping.HeightScaleMax)
	}
	if p.MSAHitBuffer < 0 {
		return fmt.Errorf("msa-hit-buffer must be >= 0, got %v", p.MSAHitBuffer)
	}
	return nil
}

// MinSep returns the minimum reportable base separation at a given height.
func (p Params) MinSep(height float64) float64 {
	band := 0
	for band < len(p.Layering.MinSepLims) && height >= p.Layering.MinSepLims[band] {
		band++
	}
	return p.Layering.MinSepVals[band]
}
