// Package cluster implements the mass-tolerance chain clustering used to build
// MidClusters from detections and TopFeatures from MidClusters.
package cluster

import (
	"math"
	"slices"
)

// Chain partitions items into clusters of consecutive masses. Items are
// sorted ascending by mass (ties broken by tiebreak) and an item joins the
// current cluster when its mass lies within reference ± reference·ppm/1e6,
// where reference is the mass of the item before it. The window therefore
// walks with each new member.
//
// items is not modified. An empty input yields no clusters.
func Chain[T any](items []T, tolerancePPM float64, mass func(T) float64, tiebreak func(a, b T) int) [][]T {
	if len(items) == 0 {
		return nil
	}

	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b T) int {
		ma, mb := mass(a), mass(b)
		switch {
		case ma < mb:
			return -1
		case ma > mb:
			return 1
		}
		if tiebreak == nil {
			return 0
		}
		return tiebreak(a, b)
	})

	var clusters [][]T
	var current []T
	// The window around -Inf is NaN, so the first item always opens a cluster.
	reference := math.Inf(-1)
	for _, item := range sorted {
		m := mass(item)
		tol := reference * tolerancePPM / 1e6
		if m >= reference-tol && m <= reference+tol {
			current = append(current, item)
		} else {
			if len(current) > 0 {
				clusters = append(clusters, current)
			}
			current = []T{item}
		}
		reference = m
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}

	return clusters
}
