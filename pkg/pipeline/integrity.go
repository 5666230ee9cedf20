package pipeline

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ChrisMcGann/FeatureKey/pkg/core"
)

// checkMembership verifies that every input detection is held by exactly
// one feature.
func checkMembership(ds []*core.Detection, fs []*core.TopFeature) error {
	want := roaring.New()
	for _, d := range ds {
		want.Add(uint32(d.Index))
	}

	seen := roaring.New()
	for _, f := range fs {
		for _, c := range f.Clusters() {
			if len(c.Members) == 0 {
				return fmt.Errorf("%w: feature %d has an empty cluster at scan %d", ErrMembership, f.OriginalIndex, c.Scan)
			}
			for _, d := range c.Members {
				if !seen.CheckedAdd(uint32(d.Index)) {
					return fmt.Errorf("%w: detection %s held twice", ErrMembership, d.Name())
				}
			}
		}
	}

	if !seen.Equals(want) {
		missing := roaring.AndNot(want, seen)
		extra := roaring.AndNot(seen, want)
		return fmt.Errorf("%w: %d detections lost, %d unknown", ErrMembership, missing.GetCardinality(), extra.GetCardinality())
	}
	return nil
}
