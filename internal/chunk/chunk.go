// Package chunk implements the cloud layer detection pipeline: ceilometer
// hits are sliced per instrument, slices are merged into cross-instrument
// groups, and groups are split into layers with a Gaussian mixture model.
// A Chunk owns everything derived from one evaluation window.
package chunk

import (
	"fmt"
	"math"
	"sort"

	"github.com/skewt/ceilo/internal/log"
	"github.com/skewt/ceilo/pkg/config"
)

// Hit types. A positive type orders simultaneous detections from the same
// instrument (a ceilometer can see up to three bases at once).
const (
	// HitTypeClear marks a measurement cycle that detected no cloud.
	// Its height is NaN. Clear hits count toward the maximum possible hit
	// tally that the okta estimate divides by.
	HitTypeClear = 0

	// HitTypeVV marks a vertical-visibility report.
	HitTypeVV = -1
)

// Hit is one ceilometer measurement. Immutable once ingested.
type Hit struct {
	Ceilo  string  // instrument identifier
	Dt     float64 // seconds relative to the reference time, usually <= 0
	Height float64 // cloud base height in ft above aerodrome level; NaN when Type is HitTypeClear
	Type   int     // HitTypeClear, HitTypeVV, or 1..3 for simultaneous detections
}

// Detection reports whether the hit carries an actual cloud base.
func (h Hit) Detection() bool {
	return h.Type > 0 && !math.IsNaN(h.Height)
}

// Cluster is a set of hits treated as one unit. The same record type backs
// slices, groups and layers; stage-specific fields stay at their zero value
// until the owning stage fills them.
type Cluster struct {
	ID int

	// HitIdx indexes the owning chunk's hit list, detections only,
	// sorted ascending.
	HitIdx []int

	Instruments []string

	MinDt, MaxDt                                float64
	MinHeight, MaxHeight, MeanHeight, StdHeight float64

	// Fluffiness is the vertical scatter of the member hits, in ft.
	Fluffiness float64

	// Filled by the coverage estimator.
	Base float64
	Okta int
	Code string

	// Significant marks layers that make it into the report.
	Significant bool
}

// NHits returns the member detection count.
func (c *Cluster) NHits() int { return len(c.HitIdx) }

// Chunk holds the hits of one evaluation window together with a private
// snapshot of the parameters, so concurrent chunks never share
// configuration state.
type Chunk struct {
	params config.Params
	hits   []Hit

	slices []*Cluster
	groups []*Cluster
	layers []*Cluster

	sliced, grouped, layered bool
}

// New validates hits, crops everything above MSA + the hit buffer, and
// captures a parameter snapshot. Cropping happens exactly once, here:
// cropped hits become clear hits for this chunk no matter how the caller's
// parameter value changes afterwards.
func New(hits []Hit, params config.Params) (*Chunk, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("chunk parameters: %w", err)
	}

	c := &Chunk{
		params: params.Clone(),
		hits:   make([]Hit, len(hits)),
	}
	copy(c.hits, hits)

	ceiling := c.params.MSA + c.params.MSAHitBuffer
	cropped := 0
	for i := range c.hits {
		h := &c.hits[i]
		if h.Ceilo == "" {
			return nil, fmt.Errorf("hit %d: empty instrument id", i)
		}
		if math.IsNaN(h.Dt) || math.IsInf(h.Dt, 0) {
			return nil, fmt.Errorf("hit %d (%s): non-finite dt", i, h.Ceilo)
		}
		if h.Type > 0 && (math.IsNaN(h.Height) || math.IsInf(h.Height, 0)) {
			return nil, fmt.Errorf("hit %d (%s): non-finite height on a detection", i, h.Ceilo)
		}
		if h.Detection() && h.Height > ceiling {
			h.Height = math.NaN()
			h.Type = HitTypeClear
			cropped++
		}
	}
	if cropped > 0 {
		log.Debugf("cropped %d hits above %.0f ft (MSA %.0f + buffer %.0f)",
			cropped, ceiling, c.params.MSA, c.params.MSAHitBuffer)
	}

	sort.SliceStable(c.hits, func(i, j int) bool {
		if c.hits[i].Dt != c.hits[j].Dt {
			return c.hits[i].Dt < c.hits[j].Dt
		}
		if c.hits[i].Ceilo != c.hits[j].Ceilo {
			return c.hits[i].Ceilo < c.hits[j].Ceilo
		}
		return c.hits[i].Type < c.hits[j].Type
	})
	return c, nil
}

// Params returns the chunk's parameter snapshot.
func (c *Chunk) Params() config.Params { return c.params.Clone() }

// Hits returns the chunk's hits, post-crop, in (dt, instrument) order.
func (c *Chunk) Hits() []Hit { return c.hits }

// Slices returns the slices found by FindSlices.
func (c *Chunk) Slices() []*Cluster { return c.slices }

// Groups returns the groups found by FindGroups.
func (c *Chunk) Groups() []*Cluster { return c.groups }

// Layers returns the layers found by FindLayers, ordered by base height.
func (c *Chunk) Layers() []*Cluster { return c.layers }

// detectionIdx lists the indices of all detections, in hit order.
func (c *Chunk) detectionIdx() []int {
	var idx []int
	for i := range c.hits {
		if c.hits[i].Detection() {
			idx = append(idx, i)
		}
	}
	return idx
}

// newCluster builds a cluster over the given hit indices and fills the
// summary statistics every stage needs.
func (c *Chunk) newCluster(id int, hitIdx []int) *Cluster {
	cl := &Cluster{
		ID:     id,
		HitIdx: append([]int(nil), hitIdx...),
	}
	sort.Ints(cl.HitIdx)

	seen := make(map[string]bool)
	var sum, sumSq float64
	cl.MinDt, cl.MaxDt = math.Inf(1), math.Inf(-1)
	cl.MinHeight, cl.MaxHeight = math.Inf(1), math.Inf(-1)
	for _, i := range cl.HitIdx {
		h := c.hits[i]
		if !seen[h.Ceilo] {
			seen[h.Ceilo] = true
			cl.Instruments = append(cl.Instruments, h.Ceilo)
		}
		cl.MinDt = math.Min(cl.MinDt, h.Dt)
		cl.MaxDt = math.Max(cl.MaxDt, h.Dt)
		cl.MinHeight = math.Min(cl.MinHeight, h.Height)
		cl.MaxHeight = math.Max(cl.MaxHeight, h.Height)
		sum += h.Height
		sumSq += h.Height * h.Height
	}
	sort.Strings(cl.Instruments)

	n := float64(len(cl.HitIdx))
	if n > 0 {
		cl.MeanHeight = sum / n
	}
	if n > 1 {
		variance := (sumSq - sum*sum/n) / (n - 1)
		if variance > 0 {
			cl.StdHeight = math.Sqrt(variance)
		}
	}
	// Singletons and zero-spread clusters have no measurable scatter.
	cl.Fluffiness = cl.StdHeight
	return cl
}

// heights collects the member heights of a cluster.
func (c *Chunk) heights(cl *Cluster) []float64 {
	out := make([]float64, len(cl.HitIdx))
	for i, idx := range cl.HitIdx {
		out[i] = c.hits[idx].Height
	}
	return out
}
