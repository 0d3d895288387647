package chunk

import (
	"fmt"
	"math"

	"github.com/skewt/ceilo/internal/log"
	"github.com/skewt/ceilo/pkg/cluster"
)

// FindGroups merges slices whose time spans and padded height ranges
// overlap, across instruments. Groups are the connected components of the
// overlap relation, so two slices that never touch directly still share a
// group when a third slice bridges them.
func (c *Chunk) FindGroups() error {
	if !c.sliced {
		if err := c.FindSlices(); err != nil {
			return err
		}
	}
	c.groups = nil
	c.grouped = true
	c.layered = false
	c.layers = nil

	if len(c.slices) == 0 {
		return nil
	}

	// A fluffier slice tolerates a larger instrument-to-instrument height
	// mismatch, within the clamp band.
	g := c.params.Grouping
	pads := make([]float64, len(c.slices))
	for i, s := range c.slices {
		scale := g.FluffinessBoost * s.Fluffiness
		scale = math.Max(g.HeightScaleMin, math.Min(g.HeightScaleMax, scale))
		pads[i] = g.HeightPadPerc / 100 * scale
	}

	n := len(c.slices)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i == j {
				continue
			}
			if c.slicesOverlap(c.slices[i], c.slices[j], pads[i], pads[j]) {
				dist[i][j] = 0
			} else {
				dist[i][j] = 2
			}
		}
	}

	nGroups, labels, err := cluster.FromDistances(dist, cluster.Options{
		Linkage:           cluster.LinkageSingle,
		Metric:            cluster.MetricEuclidean,
		DistanceThreshold: 1,
	})
	if err != nil {
		return fmt.Errorf("grouping slices: %w", err)
	}

	members := make([][]int, nGroups)
	for i, lab := range labels {
		members[lab] = append(members[lab], c.slices[i].HitIdx...)
	}
	for _, m := range members {
		c.groups = append(c.groups, c.newCluster(len(c.groups), m))
	}
	log.Debugf("%d slices merged into %d groups", len(c.slices), nGroups)
	return nil
}

// slicesOverlap applies the group adjacency test: padded height intervals
// must intersect and the gap between the two time spans must stay within
// the configured threshold.
func (c *Chunk) slicesOverlap(a, b *Cluster, padA, padB float64) bool {
	loA, hiA := a.MinHeight-padA, a.MaxHeight+padA
	loB, hiB := b.MinHeight-padB, b.MaxHeight+padB
	if loA > hiB || loB > hiA {
		return false
	}

	gap := math.Max(a.MinDt, b.MinDt) - math.Min(a.MaxDt, b.MaxDt)
	return gap <= c.params.Grouping.DtThreshold
}
