package pipeline

import (
	"github.com/ChrisMcGann/FeatureKey/pkg/core"
	"github.com/ChrisMcGann/FeatureKey/pkg/peak"
)

// ElutionProfile returns the summed abundance of f per LC scan, padded with
// zero guard scans.
func ElutionProfile(f *core.TopFeature) *peak.Peak {
	clusters := f.Clusters()
	xs := make([]float64, len(clusters))
	ys := make([]float64, len(clusters))
	for i, c := range clusters {
		xs[i] = float64(c.Scan)
		for _, d := range c.Members {
			ys[i] += d.Abundance
		}
	}
	return peak.New(xs, ys).Pad(peak.DefaultGuardSamples, 1)
}

// LCScore scores the elution profile of f against a Gaussian of the same
// apex and measured width.
func LCScore(f *core.TopFeature) float64 {
	profile := ElutionProfile(f)
	if profile.Len() == 0 {
		return 0
	}
	theo := peak.Gaussian(profile.ApexX(), profile.FWHM(), peak.DefaultGuardSamples)
	return core.Finite(peak.FitScore(profile, theo))
}
