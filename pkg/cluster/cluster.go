// Package cluster implements bottom-up agglomerative clustering with a
// distance-threshold stopping rule, which finds the number of clusters from
// the data instead of requiring it up front.
package cluster

import (
	"fmt"
	"math"
)

// Linkage rules for the distance between two clusters.
const (
	LinkageSingle  = "single"
	LinkageAverage = "average"
)

// Point metrics.
const (
	MetricEuclidean = "euclidean"
	MetricManhattan = "manhattan"
)

// Options configures a clustering pass.
type Options struct {
	// Linkage is one of the Linkage* constants. Defaults to average.
	Linkage string

	// Metric is one of the Metric* constants. Defaults to euclidean. Only
	// used by Agglomerative; FromDistances works on a precomputed matrix.
	Metric string

	// DistanceThreshold stops the merging once the closest pair of clusters
	// is further apart than this value.
	DistanceThreshold float64
}

// Agglomerative clusters 2-D points and returns the number of clusters plus
// a label per point. Labels are assigned in first-appearance order, so the
// result is deterministic for a given input ordering.
func Agglomerative(points [][2]float64, opts Options) (int, []int, error) {
	n := len(points)
	if n == 0 {
		return 0, nil, nil
	}

	metric, err := metricFunc(opts.Metric)
	if err != nil {
		return 0, nil, err
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := 0; j < i; j++ {
			d := metric(points[i], points[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return FromDistances(dist, opts)
}

// FromDistances clusters items given their pairwise distance matrix. The
// matrix must be square and symmetric.
func FromDistances(dist [][]float64, opts Options) (int, []int, error) {
	n := len(dist)
	if n == 0 {
		return 0, nil, nil
	}
	for i := range dist {
		if len(dist[i]) != n {
			return 0, nil, fmt.Errorf("distance matrix is not square: row %d has %d entries, want %d",
				i, len(dist[i]), n)
		}
	}

	linkage := opts.Linkage
	if linkage == "" {
		linkage = LinkageAverage
	}
	if linkage != LinkageSingle && linkage != LinkageAverage {
		return 0, nil, fmt.Errorf("unknown linkage: %q", linkage)
	}

	// Working copy: d[i][j] is the current cluster-to-cluster distance,
	// updated in place with the Lance-Williams formula after each merge.
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		copy(d[i], dist[i])
	}
	active := make([]bool, n)
	size := make([]int, n)
	parent := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
		parent[i] = i
	}

	for {
		// Closest active pair.
		bi, bj, best := -1, -1, math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if d[i][j] < best {
					bi, bj, best = i, j, d[i][j]
				}
			}
		}
		if bi < 0 || best > opts.DistanceThreshold {
			break
		}

		// Merge bj into bi.
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			switch linkage {
			case LinkageSingle:
				d[bi][k] = math.Min(d[bi][k], d[bj][k])
			case LinkageAverage:
				ni, nj := float64(size[bi]), float64(size[bj])
				d[bi][k] = (ni*d[bi][k] + nj*d[bj][k]) / (ni + nj)
			}
			d[k][bi] = d[bi][k]
		}
		size[bi] += size[bj]
		active[bj] = false
		parent[bj] = bi
	}

	// Resolve each item to its cluster root, then relabel the roots in
	// first-appearance order.
	labels := make([]int, n)
	next := 0
	seen := make(map[int]int, n)
	for i := 0; i < n; i++ {
		root := i
		for parent[root] != root {
			root = parent[root]
		}
		id, ok := seen[root]
		if !ok {
			id = next
			seen[root] = id
			next++
		}
		labels[i] = id
	}
	return next, labels, nil
}

func metricFunc(name string) (func(a, b [2]float64) float64, error) {
	switch name {
	case MetricEuclidean, "":
		return func(a, b [2]float64) float64 {
			return math.Hypot(a[0]-b[0], a[1]-b[1])
		}, nil
	case MetricManhattan:
		return func(a, b [2]float64) float64 {
			return math.Abs(a[0]-b[0]) + math.Abs(a[1]-b[1])
		}, nil
	}
	return nil, fmt.Errorf("unknown metric: %q", name)
}
