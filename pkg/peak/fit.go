package peak

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
)

const (
	// TheoreticalSamples is the number of samples of a theoretical Gaussian.
	TheoreticalSamples = 100
	// FitSamples is the number of positions at which a fit is evaluated.
	FitSamples = 1000

	fwhmToSigma = 2.3548200450309493 // 2·sqrt(2·ln 2)
	gaussSpan   = 4.0                // half-width of a theoretical Gaussian in sigmas
)

// Gaussian returns a unit-height Gaussian centered at center sampled at
// TheoreticalSamples positions over ±4σ and padded with guard zero samples.
func Gaussian(center, fwhm float64, guard int) *Peak {
	sigma := fwhm / fwhmToSigma
	if sigma <= 0 {
		return FromPoints([]Point{{X: center, Y: 1}}).Pad(guard, 1)
	}

	xs := make([]float64, TheoreticalSamples)
	floats.Span(xs, center-gaussSpan*sigma, center+gaussSpan*sigma)

	pts := make([]Point, len(xs))
	for i, x := range xs {
		z := (x - center) / sigma
		pts[i] = Point{X: x, Y: math.Exp(-0.5 * z * z)}
	}
	step := xs[1] - xs[0]
	return (&Peak{points: pts}).Pad(guard, step)
}

// FitScore compares observed with theoretical over the positive-intensity
// range of observed. Both curves are normalised by their own value at the
// apex of observed, and the score is 1 minus the mean absolute difference
// at FitSamples equally spaced positions. Degenerate inputs score 0.
func FitScore(observed, theoretical *Peak) float64 {
	if observed.Len() == 0 || theoretical.Len() == 0 {
		return 0
	}

	apex := observed.ApexX()
	obsApex := observed.Interpolate(apex)
	theoApex := theoretical.Interpolate(apex)
	if obsApex == 0 || theoApex == 0 {
		return 0
	}

	xs := make([]float64, FitSamples)
	floats.Span(xs, observed.MinX(), observed.MaxX())

	obs := make([]float64, FitSamples)
	theo := make([]float64, FitSamples)
	for i, x := range xs {
		obs[i] = observed.Interpolate(x)
		theo[i] = theoretical.Interpolate(x)
	}
	vecmath.ScaleBlock(obs, obs, 1/obsApex)
	vecmath.ScaleBlock(theo, theo, 1/theoApex)

	score := 1 - floats.Distance(obs, theo, 1)/FitSamples
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}
