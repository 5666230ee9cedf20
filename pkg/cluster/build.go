package cluster

import (
	"cmp"
	"sort"

	"github.com/ChrisMcGann/FeatureKey/pkg/core"
)

type scanCharge struct {
	scan   int
	charge int
}

// GroupByScan partitions detections by LC scan and, when useCharge is set,
// by charge. Groups are returned in ascending (scan, charge) order.
func GroupByScan(ds []*core.Detection, useCharge bool) [][]*core.Detection {
	groups := make(map[scanCharge][]*core.Detection)
	for _, d := range ds {
		k := scanCharge{scan: d.Scan}
		if useCharge {
			k.charge = d.Charge
		}
		groups[k] = append(groups[k], d)
	}

	keys := make([]scanCharge, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].scan != keys[j].scan {
			return keys[i].scan < keys[j].scan
		}
		return keys[i].charge < keys[j].charge
	})

	out := make([][]*core.Detection, len(keys))
	for i, k := range keys {
		out[i] = groups[k]
	}
	return out
}

// GroupByCharge partitions clusters by charge when useCharge is set;
// otherwise all clusters form a single group.
func GroupByCharge(cs []*core.MidCluster, useCharge bool) [][]*core.MidCluster {
	if len(cs) == 0 {
		return nil
	}
	if !useCharge {
		return [][]*core.MidCluster{cs}
	}

	groups := make(map[int][]*core.MidCluster)
	for _, c := range cs {
		groups[c.Charge] = append(groups[c.Charge], c)
	}
	charges := make([]int, 0, len(groups))
	for z := range groups {
		charges = append(charges, z)
	}
	sort.Ints(charges)

	out := make([][]*core.MidCluster, len(charges))
	for i, z := range charges {
		out[i] = groups[z]
	}
	return out
}

// MidClusters clusters the detections of one (scan[, charge]) group.
func MidClusters(group []*core.Detection, tolerancePPM float64) []*core.MidCluster {
	chains := Chain(group, tolerancePPM,
		func(d *core.Detection) float64 { return d.Mass },
		func(a, b *core.Detection) int { return cmp.Compare(a.Index, b.Index) })

	out := make([]*core.MidCluster, len(chains))
	for i, members := range chains {
		out[i] = core.NewMidCluster(members)
	}
	return out
}

// TopFeatures clusters the MidClusters of one charge group by mean mass.
// Clusters of the same scan that end up in one feature are merged on insert.
func TopFeatures(group []*core.MidCluster, tolerancePPM float64) []*core.TopFeature {
	chains := Chain(group, tolerancePPM,
		(*core.MidCluster).Mass,
		func(a, b *core.MidCluster) int {
			if c := cmp.Compare(a.Scan, b.Scan); c != 0 {
				return c
			}
			return cmp.Compare(a.Members[0].Index, b.Members[0].Index)
		})

	out := make([]*core.TopFeature, len(chains))
	for i, members := range chains {
		f := core.NewTopFeature(members[0].Charge, 0)
		for _, c := range members {
			f.Insert(c)
		}
		f.Charge = f.Representative().Charge
		out[i] = f
	}
	return out
}
