package peak

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// kernelCutoff is the scaled distance beyond which a sample contributes no weight.
const kernelCutoff = 6.0

var kernelScale = 2 * math.Sqrt(2*math.Pi)

// Smoother performs Gaussian-kernel local linear regression.
type Smoother struct {
	Bandwidth float64
}

// kernelWeight returns the weight of a sample at scaled distance d.
func kernelWeight(d float64) float64 {
	if d >= kernelCutoff {
		return 0
	}
	return kernelScale * math.Exp(-2*d*d)
}

// Smooth fits a weighted least-squares line around every sample of p and
// returns the fitted values at the sample positions. The result has the same
// X values as p.
func (s Smoother) Smooth(p *Peak) *Peak {
	if s.Bandwidth <= 0 {
		return FromPoints(append([]Point(nil), p.points...))
	}

	xs, ys := p.Xs(), p.Ys()
	out := make([]Point, len(xs))
	weights := make([]float64, len(xs))

	for i, q := range xs {
		for j, x := range xs {
			weights[j] = kernelWeight(math.Abs(x-q) / s.Bandwidth)
		}
		out[i] = Point{X: q, Y: s.fitAt(q, xs, ys, weights)}
	}

	return &Peak{points: out}
}

// fitAt evaluates the weighted regression line at q. With a single
// effective sample the line is undefined and the weighted mean is used.
func (s Smoother) fitAt(q float64, xs, ys, weights []float64) float64 {
	alpha, beta := stat.LinearRegression(xs, ys, weights, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(beta, 0) {
		mean := stat.Mean(ys, weights)
		if math.IsNaN(mean) {
			return 0
		}
		return mean
	}
	return alpha + beta*q
}
