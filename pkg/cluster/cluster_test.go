package cluster

import "testing"

func TestAgglomerativeTwoBlobs(t *testing.T) {
	points := [][2]float64{
		{0.0, 0.0}, {0.1, 0.0}, {0.0, 0.1}, {0.1, 0.1},
		{5.0, 5.0}, {5.1, 5.0}, {5.0, 5.1},
	}
	n, labels, err := Agglomerative(points, Options{
		Linkage:           LinkageAverage,
		Metric:            MetricEuclidean,
		DistanceThreshold: 1.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 clusters, got %d", n)
	}
	for i := 1; i < 4; i++ {
		if labels[i] != labels[0] {
			t.Errorf("point %d: expected label %d, got %d", i, labels[0], labels[i])
		}
	}
	for i := 5; i < 7; i++ {
		if labels[i] != labels[4] {
			t.Errorf("point %d: expected label %d, got %d", i, labels[4], labels[i])
		}
	}
	if labels[0] == labels[4] {
		t.Error("blobs should land in different clusters")
	}
	// First-appearance labelling.
	if labels[0] != 0 || labels[4] != 1 {
		t.Errorf("expected labels in first-appearance order, got %v", labels)
	}
}

func TestAgglomerativeSinglePoint(t *testing.T) {
	n, labels, err := Agglomerative([][2]float64{{1, 2}}, Options{DistanceThreshold: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(labels) != 1 || labels[0] != 0 {
		t.Errorf("expected a singleton cluster, got n=%d labels=%v", n, labels)
	}
}

func TestAgglomerativeEmpty(t *testing.T) {
	n, labels, err := Agglomerative(nil, Options{DistanceThreshold: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 || labels != nil {
		t.Errorf("expected no clusters, got n=%d labels=%v", n, labels)
	}
}

func TestSingleLinkageChains(t *testing.T) {
	// A chain of points each within threshold of its neighbour should end up
	// in one cluster under single linkage, even though the chain ends are far
	// apart.
	points := [][2]float64{{0, 0}, {0.9, 0}, {1.8, 0}, {2.7, 0}, {3.6, 0}}
	n, _, err := Agglomerative(points, Options{
		Linkage:           LinkageSingle,
		DistanceThreshold: 1.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected a single chained cluster, got %d", n)
	}
}

func TestFromDistancesBinaryOverlap(t *testing.T) {
	// Connected components of an overlap relation: A-B overlap, B-C overlap,
	// A-C do not. Single linkage with a binary metric must still bundle all
	// three together (transitivity).
	const far = 2.0
	dist := [][]float64{
		{0, 0, far, far},
		{0, 0, 0, far},
		{far, 0, 0, far},
		{far, far, far, 0},
	}
	n, labels, err := FromDistances(dist, Options{
		Linkage:           LinkageSingle,
		DistanceThreshold: 1.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 clusters, got %d (labels %v)", n, labels)
	}
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("expected transitive bundling of the first three items, got %v", labels)
	}
	if labels[3] == labels[0] {
		t.Errorf("expected the isolated item in its own cluster, got %v", labels)
	}
}

func TestFromDistancesRejectsRagged(t *testing.T) {
	if _, _, err := FromDistances([][]float64{{0, 1}, {1}}, Options{DistanceThreshold: 1}); err == nil {
		t.Error("expected error for a ragged matrix")
	}
}

func TestUnknownMetricAndLinkage(t *testing.T) {
	if _, _, err := Agglomerative([][2]float64{{0, 0}}, Options{Metric: "cosine", DistanceThreshold: 1}); err == nil {
		t.Error("expected error for unknown metric")
	}
	if _, _, err := Agglomerative([][2]float64{{0, 0}, {1, 1}}, Options{Linkage: "ward", DistanceThreshold: 1}); err == nil {
		t.Error("expected error for unknown linkage")
	}
}
