package chunk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/skewt/ceilo/internal/log"
	"github.com/skewt/ceilo/pkg/wmo"
)

// maxHits counts the measurement slots in the chunk: one per distinct
// (instrument, timestamp) pair, clear hits included. This is the
// denominator of every okta ratio.
func (c *Chunk) maxHits() int {
	type slot struct {
		ceilo string
		dt    float64
	}
	seen := make(map[slot]bool)
	for _, h := range c.hits {
		seen[slot{h.Ceilo, h.Dt}] = true
	}
	return len(seen)
}

// uniqueHitCount counts distinct (instrument, timestamp) pairs among the
// cluster members, so simultaneous detections from one instrument count
// once toward coverage.
func (c *Chunk) uniqueHitCount(cl *Cluster) int {
	type slot struct {
		ceilo string
		dt    float64
	}
	seen := make(map[slot]bool)
	for _, idx := range cl.HitIdx {
		h := c.hits[idx]
		seen[slot{h.Ceilo, h.Dt}] = true
	}
	return len(seen)
}

// okta converts a cluster's hit density into eighths of sky. Two overrides
// trump the ratio: almost-no-hits clusters report clear, almost-no-holes
// clusters report overcast.
func (c *Chunk) okta(cl *Cluster) int {
	maxHits := c.maxHits()
	if maxHits == 0 {
		return 0
	}
	hits := c.uniqueHitCount(cl)

	if hits <= c.params.MaxHitsOkta0 {
		return 0
	}
	if maxHits-hits <= c.params.MaxHolesOkta8 {
		return 8
	}

	perc := 100 * float64(hits) / float64(maxHits)
	okta, err := wmo.PercToOkta(perc, 0, 100)
	if err != nil {
		log.Warnf("okta conversion for cluster %d: %v", cl.ID, err)
		return 0
	}
	return okta
}

// baseHeight computes a cluster's base as a percentile-trimmed minimum of
// its hit heights: the lowest tail is treated as outliers and dropped.
// Only hits within the look-back window count, and instruments on the
// exclusion list are ignored unless that would leave nothing.
func (c *Chunk) baseHeight(cl *Cluster) float64 {
	if len(cl.HitIdx) == 0 {
		return math.NaN()
	}

	excluded := make(map[string]bool, len(c.params.BaseExcludeInstruments))
	for _, id := range c.params.BaseExcludeInstruments {
		excluded[id] = true
	}

	idx := make([]int, 0, len(cl.HitIdx))
	for _, i := range cl.HitIdx {
		if !excluded[c.hits[i].Ceilo] {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		log.Warnf("cluster %d: every instrument excluded from base height, using all of them", cl.ID)
		idx = cl.HitIdx
	}

	// Look-back window measured over the whole chunk, anchored at the most
	// recent hit.
	if c.params.BaseLookbackPerc < 100 {
		minDt, maxDt := c.dtSpan()
		cutoff := maxDt - c.params.BaseLookbackPerc/100*(maxDt-minDt)
		recent := make([]int, 0, len(idx))
		for _, i := range idx {
			if c.hits[i].Dt >= cutoff {
				recent = append(recent, i)
			}
		}
		if len(recent) > 0 {
			idx = recent
		}
	}

	heights := make([]float64, len(idx))
	for i, hi := range idx {
		heights[i] = c.hits[hi].Height
	}
	sort.Float64s(heights)
	return stat.Quantile(c.params.BaseHeightPerc/100, stat.Empirical, heights, nil)
}

// dtSpan returns the chunk-wide time extent over all hits, clear included.
func (c *Chunk) dtSpan() (minDt, maxDt float64) {
	minDt, maxDt = math.Inf(1), math.Inf(-1)
	for _, h := range c.hits {
		minDt = math.Min(minDt, h.Dt)
		maxDt = math.Max(maxDt, h.Dt)
	}
	return minDt, maxDt
}
