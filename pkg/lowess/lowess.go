// Package lowess implements locally weighted scatterplot smoothing
// (Cleveland 1979): for each point, a tricube-weighted linear fit over its
// nearest neighbours, with optional robustifying iterations that down-weight
// outliers via bisquare residual weights.
package lowess

import (
	"fmt"
	"math"
	"sort"
)

// Smooth returns the fitted value at each (x, y) point, in input order.
// frac is the fraction of points used in each local fit (0 < frac <= 1);
// iters is the number of robustifying iterations (0 = plain LOWESS).
func Smooth(xs, ys []float64, frac float64, iters int) ([]float64, error) {
	n := len(xs)
	if len(ys) != n {
		return nil, fmt.Errorf("x and y lengths differ: %d vs %d", n, len(ys))
	}
	if n == 0 {
		return nil, nil
	}
	if frac <= 0 || frac > 1 {
		return nil, fmt.Errorf("frac must be in (0, 1], got %v", frac)
	}
	if n == 1 {
		return []float64{ys[0]}, nil
	}

	// Work on x-sorted views, remembering the original positions.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })
	sx := make([]float64, n)
	sy := make([]float64, n)
	for i, idx := range order {
		sx[i] = xs[idx]
		sy[i] = ys[idx]
	}

	window := int(math.Ceil(frac * float64(n)))
	if window < 2 {
		window = 2
	}

	fitted := make([]float64, n)
	robust := make([]float64, n)
	for i := range robust {
		robust[i] = 1
	}

	for pass := 0; pass <= iters; pass++ {
		lo := 0
		for i := 0; i < n; i++ {
			// Slide the window so it holds the `window` x-nearest points.
			for lo+window < n && sx[lo+window]-sx[i] < sx[i]-sx[lo] {
				lo++
			}
			hi := lo + window - 1

			h := math.Max(sx[hi]-sx[i], sx[i]-sx[lo])
			fitted[i] = weightedLinearFit(sx[lo:hi+1], sy[lo:hi+1], robust[lo:hi+1], sx[i], h)
		}

		if pass == iters {
			break
		}

		// Bisquare robustness weights from the residuals.
		resid := make([]float64, n)
		for i := range resid {
			resid[i] = math.Abs(sy[i] - fitted[i])
		}
		s := median(resid)
		if s == 0 {
			break
		}
		for i := range robust {
			u := resid[i] / (6 * s)
			if u >= 1 {
				robust[i] = 0
			} else {
				robust[i] = (1 - u*u) * (1 - u*u)
			}
		}
	}

	out := make([]float64, n)
	for i, idx := range order {
		out[idx] = fitted[i]
	}
	return out, nil
}

// weightedLinearFit evaluates a tricube-weighted least-squares line through
// the window points at x0. A degenerate window (all x equal, or all weights
// vanishing) falls back to the weighted or plain mean.
func weightedLinearFit(wx, wy, robust []float64, x0, h float64) float64 {
	var sw, swx, swy, swxx, swxy float64
	for i := range wx {
		w := robust[i]
		if h > 0 {
			d := math.Abs(wx[i]-x0) / h
			if d >= 1 {
				w = 0
			} else {
				t := 1 - d*d*d
				w *= t * t * t
			}
		}
		sw += w
		swx += w * wx[i]
		swy += w * wy[i]
		swxx += w * wx[i] * wx[i]
		swxy += w * wx[i] * wy[i]
	}

	if sw == 0 {
		return mean(wy)
	}

	xbar := swx / sw
	ybar := swy / sw
	varx := swxx/sw - xbar*xbar
	if varx <= 1e-12*(1+xbar*xbar) {
		return ybar
	}
	beta := (swxy/sw - xbar*ybar) / varx
	return ybar + beta*(x0-xbar)
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	tmp := append([]float64(nil), vals...)
	sort.Float64s(tmp)
	n := len(tmp)
	if n%2 == 1 {
		return tmp[n/2]
	}
	return (tmp[n/2-1] + tmp[n/2]) / 2
}
