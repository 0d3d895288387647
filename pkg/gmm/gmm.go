// Package gmm fits 1-D Gaussian mixture models with expectation-maximization
// and selects the number of components via an information criterion (AIC or
// BIC). Model fitting is deterministic for a given seed, and the random state
// never leaks outside a fit call.
package gmm

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Score modes.
const (
	ScoreAIC = "AIC"
	ScoreBIC = "BIC"
)

// Model selection rules.
const (
	SelectDelta = "delta"
	SelectProb  = "prob"
)

const (
	maxIterations = 200
	tolerance     = 1e-4
	varianceFloor = 1e-6
)

// Model is a fitted 1-D Gaussian mixture.
type Model struct {
	K             int
	Weights       []float64
	Means         []float64
	Variances     []float64
	LogLikelihood float64 // total over the training data
	n             int
}

// Fit runs seeded EM on vals with k components. It needs at least k points,
// and at least 2 points overall so that a spread can be estimated.
func Fit(vals []float64, k int, seed int64) (Model, error) {
	n := len(vals)
	if k < 1 {
		return Model{}, fmt.Errorf("component count must be >= 1, got %d", k)
	}
	if n < 2 || n < k {
		return Model{}, fmt.Errorf("need at least max(2, k)=%d points to fit %d components, got %d",
			maxInt(2, k), k, n)
	}

	rng := rand.New(rand.NewSource(seed))

	variance := stat.Variance(vals, nil)
	if variance < varianceFloor {
		variance = varianceFloor
	}

	m := Model{
		K:         k,
		Weights:   make([]float64, k),
		Means:     make([]float64, k),
		Variances: make([]float64, k),
		n:         n,
	}
	for j := 0; j < k; j++ {
		m.Weights[j] = 1 / float64(k)
		m.Variances[j] = variance
	}
	// Seeded k-means++-style initialization: the first mean is a random data
	// point, later means favour points far from those already picked.
	m.Means[0] = vals[rng.Intn(n)]
	d2 := make([]float64, n)
	for j := 1; j < k; j++ {
		total := 0.0
		for i, x := range vals {
			d2[i] = math.Inf(1)
			for jj := 0; jj < j; jj++ {
				d := (x - m.Means[jj]) * (x - m.Means[jj])
				if d < d2[i] {
					d2[i] = d
				}
			}
			total += d2[i]
		}
		if total == 0 {
			m.Means[j] = vals[rng.Intn(n)]
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		pick := n - 1
		for i, d := range d2 {
			acc += d
			if acc >= target {
				pick = i
				break
			}
		}
		m.Means[j] = vals[pick]
	}

	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, k)
	}
	logw := make([]float64, k)

	prevLL := math.Inf(-1)
	for iter := 0; iter < maxIterations; iter++ {
		// E step.
		ll := 0.0
		for j := 0; j < k; j++ {
			logw[j] = math.Log(m.Weights[j])
		}
		for i, x := range vals {
			for j := 0; j < k; j++ {
				norm := distuv.Normal{Mu: m.Means[j], Sigma: math.Sqrt(m.Variances[j])}
				resp[i][j] = logw[j] + norm.LogProb(x)
			}
			tot := floats.LogSumExp(resp[i])
			ll += tot
			for j := 0; j < k; j++ {
				resp[i][j] = math.Exp(resp[i][j] - tot)
			}
		}

		// M step.
		for j := 0; j < k; j++ {
			rsum := 0.0
			msum := 0.0
			for i, x := range vals {
				rsum += resp[i][j]
				msum += resp[i][j] * x
			}
			if rsum < varianceFloor {
				// Empty component: re-seed it on a random point.
				m.Means[j] = vals[rng.Intn(n)]
				m.Variances[j] = variance
				m.Weights[j] = 1 / float64(n)
				continue
			}
			mu := msum / rsum
			vsum := 0.0
			for i, x := range vals {
				vsum += resp[i][j] * (x - mu) * (x - mu)
			}
			m.Weights[j] = rsum / float64(n)
			m.Means[j] = mu
			m.Variances[j] = math.Max(vsum/rsum, varianceFloor)
		}
		normalize(m.Weights)

		m.LogLikelihood = ll
		if iter > 0 && math.Abs(ll-prevLL) < tolerance*(math.Abs(ll)+tolerance) {
			break
		}
		prevLL = ll
	}

	return m, nil
}

// Predict assigns each value to its most likely component.
func (m Model) Predict(vals []float64) []int {
	labels := make([]int, len(vals))
	for i, x := range vals {
		best, bestp := 0, math.Inf(-1)
		for j := 0; j < m.K; j++ {
			norm := distuv.Normal{Mu: m.Means[j], Sigma: math.Sqrt(m.Variances[j])}
			p := math.Log(m.Weights[j]) + norm.LogProb(x)
			if p > bestp {
				best, bestp = j, p
			}
		}
		labels[i] = best
	}
	return labels
}

// nParams is the number of free parameters of a 1-D mixture: k means,
// k variances, and k-1 independent weights.
func (m Model) nParams() float64 {
	return float64(3*m.K - 1)
}

// AIC is the Akaike information criterion of the fit (lower is better).
func (m Model) AIC() float64 {
	return 2*m.nParams() - 2*m.LogLikelihood
}

// BIC is the Bayesian information criterion of the fit (lower is better).
func (m Model) BIC() float64 {
	return m.nParams()*math.Log(float64(m.n)) - 2*m.LogLikelihood
}

// ScoresToProb converts AIC/BIC scores into normalized relative likelihoods.
func ScoresToProb(scores []float64) []float64 {
	low := floats.Min(scores)
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(-0.5 * (s - low))
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// BestModel picks the most appropriate model from scores ordered from the
// simplest to the most complex candidate. Ceilometer hits are not necessarily
// normally distributed, so rather than blindly taking the smallest score, the
// walk starts from the simplest model and only moves on when the improvement
// is decisive:
//
//   - delta: model n+1 wins over the current best when
//     scores[n+1] < deltaMulGain * scores[best];
//   - prob: model n+1 wins when the current best has a normalized relative
//     likelihood below minProb and a larger score than model n+1.
func BestModel(scores []float64, mode string, minProb, deltaMulGain float64) (int, error) {
	if len(scores) == 0 {
		return 0, fmt.Errorf("no scores to compare")
	}

	var probs []float64
	if mode == SelectProb {
		probs = ScoresToProb(scores)
	}

	best := 0
	for m := 0; m < len(scores)-1; m++ {
		better := false
		switch mode {
		case SelectProb:
			better = probs[best] < minProb && scores[m+1] < scores[best]
		case SelectDelta:
			better = scores[m+1] < deltaMulGain*scores[best]
		default:
			return 0, fmt.Errorf("unknown model selection mode: %q", mode)
		}
		if better {
			best = m + 1
		}
	}
	return best, nil
}

func normalize(w []float64) {
	sum := floats.Sum(w)
	if sum <= 0 {
		return
	}
	for i := range w {
		w[i] /= sum
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
