package core

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MidCluster groups detections of one LC scan whose masses chain within the
// clustering tolerance.
type MidCluster struct {
	Scan    int
	Charge  int
	Members []*Detection
}

// NewMidCluster creates a cluster owning members. Scan and charge are taken
// from the first member; members must not be empty.
func NewMidCluster(members []*Detection) *MidCluster {
	return &MidCluster{
		Scan:    members[0].Scan,
		Charge:  members[0].Charge,
		Members: members,
	}
}

// Mass returns the mean monoisotopic mass of the members.
func (c *MidCluster) Mass() float64 {
	if len(c.Members) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range c.Members {
		sum += d.Mass
	}
	return sum / float64(len(c.Members))
}

// Len returns the number of member detections.
func (c *MidCluster) Len() int {
	return len(c.Members)
}

// Absorb moves all members of other into c and empties other.
func (c *MidCluster) Absorb(other *MidCluster) {
	c.Members = append(c.Members, other.Members...)
	other.Members = nil
}

// MergeKind tells which branch TopFeature.Insert took.
type MergeKind int

const (
	Appended MergeKind = iota
	MergedInto
)

func (k MergeKind) String() string {
	if k == MergedInto {
		return "merged"
	}
	return "appended"
}

// MergeOutcome is the result of inserting a MidCluster into a TopFeature.
// Into is the cluster that now holds the inserted members.
type MergeOutcome struct {
	Kind MergeKind
	Into *MidCluster
}

// TopFeature is a set of MidClusters across LC scans that represents one
// species. It holds at most one MidCluster per scan.
type TopFeature struct {
	Charge          int
	OriginalIndex   int
	IMSScore        float64 // Drift profile fit score
	LCScore         float64 // Elution profile fit score
	MaxMemberCount  int     // Largest member count among sibling conformations
	MaxAbundance    float64
	SummedAbundance float64
	DriftTime       float64

	clusters []*MidCluster // sorted by scan
}

// NewTopFeature creates an empty feature.
func NewTopFeature(charge, originalIndex int) *TopFeature {
	return &TopFeature{
		Charge:        charge,
		OriginalIndex: originalIndex,
	}
}

// Insert adds c to the feature. If a cluster already exists at c.Scan the
// members of c are moved into it and c is left empty.
func (f *TopFeature) Insert(c *MidCluster) MergeOutcome {
	if existing, ok := f.ClusterAt(c.Scan); ok {
		existing.Absorb(c)
		return MergeOutcome{Kind: MergedInto, Into: existing}
	}

	i := sort.Search(len(f.clusters), func(i int) bool { return f.clusters[i].Scan >= c.Scan })
	f.clusters = append(f.clusters, nil)
	copy(f.clusters[i+1:], f.clusters[i:])
	f.clusters[i] = c
	return MergeOutcome{Kind: Appended, Into: c}
}

// Clusters returns the clusters in ascending scan order.
// The returned slice must not be modified.
func (f *TopFeature) Clusters() []*MidCluster {
	return f.clusters
}

// ClusterAt returns the cluster at scan, if any.
func (f *TopFeature) ClusterAt(scan int) (*MidCluster, bool) {
	i := sort.Search(len(f.clusters), func(i int) bool { return f.clusters[i].Scan >= scan })
	if i < len(f.clusters) && f.clusters[i].Scan == scan {
		return f.clusters[i], true
	}
	return nil, false
}

// Clear drops all clusters so the feature is removed by the member-count filter.
func (f *TopFeature) Clear() {
	f.clusters = nil
}

// MemberCount returns the total number of detections.
func (f *TopFeature) MemberCount() int {
	n := 0
	for _, c := range f.clusters {
		n += len(c.Members)
	}
	return n
}

// IsEmpty reports whether the feature holds no detections.
func (f *TopFeature) IsEmpty() bool {
	return f.MemberCount() == 0
}

// Detections returns all member detections in scan order.
func (f *TopFeature) Detections() []*Detection {
	out := make([]*Detection, 0, f.MemberCount())
	for _, c := range f.clusters {
		out = append(out, c.Members...)
	}
	return out
}

// Mass returns the mean monoisotopic mass over all detections.
func (f *TopFeature) Mass() float64 {
	ds := f.Detections()
	if len(ds) == 0 {
		return 0
	}
	masses := make([]float64, len(ds))
	for i, d := range ds {
		masses[i] = d.Mass
	}
	return stat.Mean(masses, nil)
}

// FlaggedFraction returns the fraction of detections carrying the error flag.
func (f *TopFeature) FlaggedFraction() float64 {
	total, flagged := 0, 0
	for _, c := range f.clusters {
		for _, d := range c.Members {
			total++
			if d.ErrorFlag {
				flagged++
			}
		}
	}
	return Finite(float64(flagged) / float64(total))
}

// Representative returns the most abundant detection (lowest index on ties).
func (f *TopFeature) Representative() *Detection {
	var best *Detection
	for _, c := range f.clusters {
		for _, d := range c.Members {
			if best == nil || d.Abundance > best.Abundance ||
				(d.Abundance == best.Abundance && d.Index < best.Index) {
				best = d
			}
		}
	}
	return best
}

// ScanRange returns the first and last occupied scan.
func (f *TopFeature) ScanRange() (int, int) {
	if len(f.clusters) == 0 {
		return 0, 0
	}
	return f.clusters[0].Scan, f.clusters[len(f.clusters)-1].Scan
}

// FeatureStats summarises the members of a feature for output.
type FeatureStats struct {
	MassMean          float64
	MassMedian        float64
	MassStdDev        float64
	AbundanceMax      float64
	AbundanceSum      float64
	ApexScan          int // scan of the most abundant detection
	MemberCount       int
	SaturatedCount    int
	FitMean           float64
	InterferenceMean  float64
	PercentMaxMembers float64
}

// Stats computes output statistics. Degenerate values are reported as 0.
func (f *TopFeature) Stats() FeatureStats {
	ds := f.Detections()
	s := FeatureStats{MemberCount: len(ds)}
	if len(ds) == 0 {
		return s
	}

	masses := make([]float64, len(ds))
	abundances := make([]float64, len(ds))
	fits := make([]float64, len(ds))
	interference := make([]float64, len(ds))
	for i, d := range ds {
		masses[i] = d.Mass
		abundances[i] = d.Abundance
		fits[i] = d.Fit
		interference[i] = d.Interference
		if d.Saturated {
			s.SaturatedCount++
		}
	}

	s.MassMean = stat.Mean(masses, nil)
	s.MassStdDev = Finite(stat.StdDev(masses, nil))
	sort.Float64s(masses)
	s.MassMedian = stat.Quantile(0.5, stat.Empirical, masses, nil)
	s.AbundanceMax = floats.Max(abundances)
	s.AbundanceSum = floats.Sum(abundances)
	s.FitMean = stat.Mean(fits, nil)
	s.InterferenceMean = stat.Mean(interference, nil)
	s.ApexScan = f.Representative().Scan
	s.PercentMaxMembers = Finite(100 * float64(len(ds)) / float64(f.MaxMemberCount))

	return s
}

// Finite maps NaN and infinities to 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
