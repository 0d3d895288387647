package chunk

import (
	"math"
	"sort"

	"github.com/skewt/ceilo/internal/log"
	"github.com/skewt/ceilo/pkg/gmm"
	"github.com/skewt/ceilo/pkg/icao"
	"github.com/skewt/ceilo/pkg/wmo"
)

// FindLayers splits each group into height-distinct layers, then fills the
// reportable attributes (base, okta, METAR height code, significance).
// Layers come out ordered by base height.
func (c *Chunk) FindLayers() error {
	if !c.grouped {
		if err := c.FindGroups(); err != nil {
			return err
		}
	}
	c.layers = nil
	c.layered = true

	for _, g := range c.groups {
		split := c.splitGroup(g)
		split = c.mergeCloseLayers(split)
		c.layers = append(c.layers, split...)
	}

	for _, l := range c.layers {
		l.Base = c.baseHeight(l)
		l.Okta = c.okta(l)
		l.Code = wmo.HeightToCode(l.Base)
	}
	sort.SliceStable(c.layers, func(i, j int) bool {
		return c.layers[i].Base < c.layers[j].Base
	})
	for i, l := range c.layers {
		l.ID = i
	}
	c.markSignificant()
	return nil
}

// splitGroup fits Gaussian mixtures with 1..K components over the group's
// rescaled heights and keeps the component count the selection rule picks.
// Sparse groups are never split. Fitting trouble falls back to a single
// layer with a warning, never an error.
func (c *Chunk) splitGroup(g *Cluster) []*Cluster {
	lay := c.params.Layering

	single := []*Cluster{c.newCluster(0, g.HitIdx)}
	if lay.MaxComponents == 1 || len(g.HitIdx) < 2 {
		return single
	}
	if okta := c.okta(g); okta < lay.MinOktaToSplit {
		log.Debugf("group %d: okta %d below split threshold %d, keeping one layer",
			g.ID, okta, lay.MinOktaToSplit)
		return single
	}

	heights := c.heights(g)
	scaled, ok := rescale(heights, lay.Rescale0To)
	if !ok {
		// Zero height spread, nothing to split.
		return single
	}

	var models []gmm.Model
	var scores []float64
	for k := 1; k <= lay.MaxComponents; k++ {
		m, err := gmm.Fit(scaled, k, lay.Seed)
		if err != nil {
			log.Warnf("group %d: mixture fit with k=%d failed (%v), stopping at k=%d",
				g.ID, k, err, k-1)
			break
		}
		models = append(models, m)
		switch lay.Scores {
		case gmm.ScoreAIC:
			scores = append(scores, m.AIC())
		default:
			scores = append(scores, m.BIC())
		}
	}
	if len(models) == 0 {
		log.Warnf("group %d: no mixture model could be fitted, keeping one layer", g.ID)
		return single
	}

	best, err := gmm.BestModel(scores, lay.SelectMode, lay.MinProb, lay.DeltaMulGain)
	if err != nil {
		log.Warnf("group %d: model selection failed (%v), keeping one layer", g.ID, err)
		return single
	}
	if models[best].K == 1 {
		return single
	}

	labels := models[best].Predict(scaled)
	members := make(map[int][]int)
	for i, lab := range labels {
		members[lab] = append(members[lab], g.HitIdx[i])
	}
	var out []*Cluster
	for lab := 0; lab < models[best].K; lab++ {
		if len(members[lab]) > 0 {
			out = append(out, c.newCluster(len(out), members[lab]))
		}
	}
	log.Debugf("group %d: split into %d layers", g.ID, len(out))
	return out
}

// mergeCloseLayers re-merges layers whose trimmed base heights sit closer
// than the reporting resolution allows. The threshold depends on altitude.
// Merging repeats until every adjacent pair is legal, so running it again
// on its own output changes nothing.
func (c *Chunk) mergeCloseLayers(layers []*Cluster) []*Cluster {
	for len(layers) > 1 {
		bases := make([]float64, len(layers))
		for i, l := range layers {
			bases[i] = c.baseHeight(l)
		}
		order := make([]int, len(layers))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return bases[order[a]] < bases[order[b]] })

		merged := false
		for i := 0; i+1 < len(order); i++ {
			lo, hi := order[i], order[i+1]
			sep := c.params.MinSep((bases[lo] + bases[hi]) / 2)
			if bases[hi]-bases[lo] >= sep {
				continue
			}
			union := append(append([]int(nil), layers[lo].HitIdx...), layers[hi].HitIdx...)
			next := []*Cluster{c.newCluster(0, union)}
			for j, l := range layers {
				if j != lo && j != hi {
					next = append(next, l)
				}
			}
			layers = next
			merged = true
			break
		}
		if !merged {
			break
		}
	}
	return layers
}

// markSignificant applies the reporting rules over layers in base order:
// bases above the MSA and empty layers never qualify, and each reported
// layer raises the okta bar for the next one.
func (c *Chunk) markSignificant() {
	var eligible []int
	var oktas []int
	for i, l := range c.layers {
		l.Significant = false
		if l.Okta > 0 && l.Base <= c.params.MSA {
			eligible = append(eligible, i)
			oktas = append(oktas, l.Okta)
		}
	}
	flags := icao.SignificantCloud(oktas)
	for j, i := range eligible {
		c.layers[i].Significant = flags[j]
	}
}

// rescale maps vals onto [0, span]. ok is false when the values have no
// spread or span is zero, in which case vals are returned unchanged.
func rescale(vals []float64, span float64) ([]float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if span <= 0 || hi <= lo {
		return vals, false
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = (v - lo) / (hi - lo) * span
	}
	return out, true
}
