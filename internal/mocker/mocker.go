// Package mocker generates synthetic ceilometer hit sets with known layer
// structure, for tests and for exercising the pipeline without real data.
package mocker

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/skewt/ceilo/internal/chunk"
)

// LayerSpec describes one synthetic cloud layer.
type LayerSpec struct {
	// Height is the mean base height in ft.
	Height float64

	// HeightStd is the Gaussian scatter of individual detections, in ft.
	HeightStd float64

	// SkyCovFrac is the probability, per measurement cycle, that an
	// instrument detects this layer. 1 gives an overcast deck, small
	// values give scattered hits.
	SkyCovFrac float64

	// Period and Amplitude add a sinusoidal drift of the base height over
	// time. A zero period keeps the layer flat.
	Period    float64
	Amplitude float64
}

// CeiloSpec describes one synthetic instrument.
type CeiloSpec struct {
	ID string

	// RateSec is the measurement cadence in seconds.
	RateSec float64
}

// Generate produces hits for every instrument over a window of the given
// length ending at dt = 0. Output is deterministic for a given seed. Each
// measurement cycle yields up to three detections (lowest layers first) or
// one clear hit when no layer is seen.
func Generate(ceilos []CeiloSpec, layers []LayerSpec, windowSec float64, seed uint64) ([]chunk.Hit, error) {
	if windowSec <= 0 {
		return nil, fmt.Errorf("window must be positive, got %v", windowSec)
	}
	for i, l := range layers {
		if l.SkyCovFrac < 0 || l.SkyCovFrac > 1 {
			return nil, fmt.Errorf("layer %d: sky coverage fraction %v outside [0, 1]", i, l.SkyCovFrac)
		}
		if l.HeightStd < 0 {
			return nil, fmt.Errorf("layer %d: negative height scatter", i)
		}
	}

	ordered := append([]LayerSpec(nil), layers...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Height < ordered[j].Height })

	src := rand.NewSource(seed)
	rng := rand.New(src)
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	var hits []chunk.Hit
	for _, ceilo := range ceilos {
		if ceilo.RateSec <= 0 {
			return nil, fmt.Errorf("instrument %s: cadence must be positive", ceilo.ID)
		}
		for dt := -windowSec; dt <= 0; dt += ceilo.RateSec {
			nSeen := 0
			for _, l := range ordered {
				if nSeen == 3 {
					break
				}
				if rng.Float64() >= l.SkyCovFrac {
					continue
				}
				h := l.Height + l.HeightStd*noise.Rand()
				if l.Period > 0 {
					h += l.Amplitude * math.Sin(2*math.Pi*dt/l.Period)
				}
				nSeen++
				hits = append(hits, chunk.Hit{
					Ceilo:  ceilo.ID,
					Dt:     dt,
					Height: h,
					Type:   nSeen,
				})
			}
			if nSeen == 0 {
				hits = append(hits, chunk.Hit{
					Ceilo:  ceilo.ID,
					Dt:     dt,
					Height: math.NaN(),
					Type:   chunk.HitTypeClear,
				})
			}
		}
	}
	return hits, nil
}
