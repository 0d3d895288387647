package chunk

import (
	"fmt"
	"sort"

	"github.com/skewt/ceilo/internal/log"
	"github.com/skewt/ceilo/pkg/cluster"
	"github.com/skewt/ceilo/pkg/scaler"
)

// FindSlices splits each instrument's detections into slices: runs of hits
// contiguous in scaled (dt, height) space. Scaling happens once over the
// whole chunk so slices from different instruments live on the same scale;
// the clustering itself never mixes instruments.
func (c *Chunk) FindSlices() error {
	c.slices = nil
	c.sliced = true
	c.grouped, c.layered = false, false
	c.groups, c.layers = nil, nil

	det := c.detectionIdx()
	if len(det) == 0 {
		log.Debugf("no detections to slice")
		return nil
	}

	dts := make([]float64, len(det))
	heights := make([]float64, len(det))
	for i, idx := range det {
		dts[i] = c.hits[idx].Dt
		heights[i] = c.hits[idx].Height
	}

	sdt, err := scaler.Apply(dts, c.params.Slicing.DtScaling.ToScaler())
	if err != nil {
		return fmt.Errorf("scaling dt: %w", err)
	}
	sh, err := scaler.Apply(heights, c.params.Slicing.HeightScaling.ToScaler())
	if err != nil {
		return fmt.Errorf("scaling heights: %w", err)
	}

	// Detections per instrument, preserving hit order.
	perCeilo := make(map[string][]int) // positions into det
	var ceilos []string
	for i, idx := range det {
		id := c.hits[idx].Ceilo
		if _, ok := perCeilo[id]; !ok {
			ceilos = append(ceilos, id)
		}
		perCeilo[id] = append(perCeilo[id], i)
	}
	sort.Strings(ceilos)

	opts := cluster.Options{
		Linkage:           c.params.Slicing.Linkage,
		Metric:            c.params.Slicing.Metric,
		DistanceThreshold: c.params.Slicing.DistanceThreshold,
	}
	for _, id := range ceilos {
		pos := perCeilo[id]
		points := make([][2]float64, len(pos))
		for i, p := range pos {
			points[i] = [2]float64{sdt[p], sh[p]}
		}
		n, labels, err := cluster.Agglomerative(points, opts)
		if err != nil {
			return fmt.Errorf("slicing %s: %w", id, err)
		}

		members := make([][]int, n)
		for i, lab := range labels {
			members[lab] = append(members[lab], det[pos[i]])
		}
		for _, m := range members {
			c.slices = append(c.slices, c.newCluster(len(c.slices), m))
		}
		log.Debugf("instrument %s: %d hits in %d slices", id, len(pos), n)
	}
	return nil
}
