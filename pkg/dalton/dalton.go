// Package dalton repairs features whose monoisotopic mass was assigned one
// or more Daltons off by the deconvolution step.
package dalton

import (
	"log/slog"
	"math"
	"sort"

	"github.com/ChrisMcGann/FeatureKey/pkg/core"
)

// DefaultThreshold is the minimum difference in flagged fraction between two
// features for them to be merged.
const DefaultThreshold = 0.3

// Corrector merges features that differ by a whole number of Daltons when
// one of them carries clearly more deconvolution error flags.
type Corrector struct {
	MaxDa        int     // Largest mass offset searched, in Daltons
	TolerancePPM float64 // Offset tolerance, relative to the feature mass
	Threshold    float64 // Flagged-fraction difference required to merge
	Log          *slog.Logger
}

// candidate is a feature B considered for merging with the current feature.
type candidate struct {
	index int
	diff  float64 // |flagged(A) - flagged(B)|
}

// Correct runs one correction pass over features and returns the number of
// merges. Losers are emptied in place; callers drop them with the member
// count filter. features must not be shared with a concurrent Correct call.
func (c Corrector) Correct(features []*core.TopFeature) int {
	if c.MaxDa <= 0 || len(features) < 2 {
		return 0
	}

	masses := make([]float64, len(features))
	flagged := make([]float64, len(features))
	for i, f := range features {
		masses[i] = f.Mass()
		flagged[i] = f.FlaggedFraction()
	}

	merges := 0
	for a, fa := range features {
		if fa.IsEmpty() {
			continue
		}

		cands := c.candidates(features, masses, flagged, a)
		if len(cands) == 0 {
			continue
		}

		best := cands[0]
		if best.diff <= c.Threshold {
			continue
		}

		survivor, loser := a, best.index
		if flagged[a] > flagged[best.index] {
			survivor, loser = best.index, a
		}
		shift := Merge(features[survivor], features[loser])
		merges++

		masses[survivor] = features[survivor].Mass()
		flagged[survivor] = features[survivor].FlaggedFraction()
		masses[loser] = 0

		if c.Log != nil {
			c.Log.Debug("merged dalton offset",
				"survivor", features[survivor].OriginalIndex,
				"loser", features[loser].OriginalIndex,
				"shift", shift)
		}
	}
	return merges
}

// candidates returns the non-empty features whose mass differs from
// features[a] by 1..MaxDa Daltons within tolerance, ordered by descending
// flagged-fraction difference.
func (c Corrector) candidates(features []*core.TopFeature, masses, flagged []float64, a int) []candidate {
	ma := masses[a]
	tol := core.PPMTolerance(ma, c.TolerancePPM)

	var out []candidate
	for b, fb := range features {
		if b == a || fb.IsEmpty() {
			continue
		}
		delta := math.Abs(ma - masses[b])
		for d := 1; d <= c.MaxDa; d++ {
			if delta >= float64(d)-tol && delta <= float64(d)+tol {
				out = append(out, candidate{index: b, diff: math.Abs(flagged[a] - flagged[b])})
				break
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].diff > out[j].diff
	})
	return out
}

// Merge folds loser into survivor. The masses of the loser's detections are
// shifted by the whole number of Daltons separating the two features, its
// clusters are inserted into survivor (merging on shared scans) and loser is
// left empty. It returns the applied shift.
func Merge(survivor, loser *core.TopFeature) float64 {
	shift := math.Round(survivor.Mass() - loser.Mass())

	for _, mc := range loser.Clusters() {
		for _, d := range mc.Members {
			d.Mass += shift
		}
	}
	for _, mc := range loser.Clusters() {
		survivor.Insert(mc)
	}
	loser.Clear()

	return shift
}
