// Package filter provides feature filtering, splitting, partitioning and
// ordering functions
package filter

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/FeatureKey/pkg/core"
)

// PartitionSlack is added to the largest Dalton correction when splitting
// features into mass partitions.
const PartitionSlack = 0.25

// Config holds filtering configuration
type Config struct {
	MinMembers     int  // Drop features with at most this many detections
	GapMaxSize     int  // Split features where consecutive scans are further apart
	DropSingleScan bool // Drop features confined to one LC scan
}

// Apply applies the configured filters in order: member count, gap split
// and, if enabled, the single-scan filter.
func (c *Config) Apply(fs []*core.TopFeature) []*core.TopFeature {
	fs = FilterByMemberCount(fs, c.MinMembers)
	fs = SplitByGap(fs, c.GapMaxSize)

	if c.DropSingleScan {
		fs = FilterSingleScan(fs)
	}

	return fs
}

// FilterByMemberCount keeps only features with more than min detections
func FilterByMemberCount(fs []*core.TopFeature, min int) []*core.TopFeature {
	var filtered []*core.TopFeature
	for _, f := range fs {
		if f.MemberCount() > min {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// SplitByGap starts a new feature wherever two consecutive clusters of a
// feature are more than maxGap scans apart. Every resulting feature gets a
// fresh original index, numbered sequentially in output order.
func SplitByGap(fs []*core.TopFeature, maxGap int) []*core.TopFeature {
	var out []*core.TopFeature
	next := 0

	open := func(f *core.TopFeature) *core.TopFeature {
		nf := core.NewTopFeature(f.Charge, next)
		next++
		out = append(out, nf)
		return nf
	}

	for _, f := range fs {
		clusters := f.Clusters()
		if len(clusters) == 0 {
			continue
		}

		cur := open(f)
		prev := clusters[0].Scan
		for _, c := range clusters {
			if c.Scan-prev > maxGap {
				cur = open(f)
			}
			cur.Insert(c)
			prev = c.Scan
		}
		f.Clear()
	}

	return out
}

// FilterSingleScan drops features whose clusters all sit on the same scan
func FilterSingleScan(fs []*core.TopFeature) []*core.TopFeature {
	var filtered []*core.TopFeature
	for _, f := range fs {
		if len(f.Clusters()) > 1 {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// PartitionByMass sorts features by mass and cuts the sequence wherever two
// neighbours are further apart than any Dalton correction can reach: maxDa
// plus PartitionSlack plus twice the ppm tolerance at the largest mass. The
// tolerance is counted twice because a survivor's mass moves by up to one
// tolerance when it absorbs a shifted loser. Features in different
// partitions are never merge candidates of each other.
func PartitionByMass(fs []*core.TopFeature, maxDa int, tolerancePPM float64) [][]*core.TopFeature {
	if len(fs) == 0 {
		return nil
	}

	type massed struct {
		f    *core.TopFeature
		mass float64
	}
	sorted := make([]massed, len(fs))
	for i, f := range fs {
		sorted[i] = massed{f: f, mass: f.Mass()}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].mass < sorted[j].mass
	})

	maxMass := sorted[len(sorted)-1].mass
	limit := PartitionLimit(maxDa, tolerancePPM, maxMass)
	var parts [][]*core.TopFeature
	var cur []*core.TopFeature
	for i, m := range sorted {
		if i > 0 && m.mass-sorted[i-1].mass > limit {
			parts = append(parts, cur)
			cur = nil
		}
		cur = append(cur, m.f)
	}
	return append(parts, cur)
}

// PartitionLimit returns the neighbour distance above which PartitionByMass
// cuts a run whose largest mass is maxMass.
func PartitionLimit(maxDa int, tolerancePPM, maxMass float64) float64 {
	return float64(maxDa) + PartitionSlack + 2*core.PPMTolerance(math.Abs(maxMass), tolerancePPM)
}

// Sort orders features by charge, then mass. Remaining ties are broken by
// original index and drift time so the output is reproducible.
func Sort(fs []*core.TopFeature) {
	masses := make(map[*core.TopFeature]float64, len(fs))
	for _, f := range fs {
		masses[f] = f.Mass()
	}

	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Charge != b.Charge {
			return a.Charge < b.Charge
		}
		if masses[a] != masses[b] {
			return masses[a] < masses[b]
		}
		if a.OriginalIndex != b.OriginalIndex {
			return a.OriginalIndex < b.OriginalIndex
		}
		return a.DriftTime < b.DriftTime
	})
}
