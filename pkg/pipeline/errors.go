package pipeline

import (
	"errors"
	"fmt"
)

// ErrMembership is returned when clustering lost or duplicated detections.
var ErrMembership = errors.New("feature membership check failed")

// ErrNoRawSource is returned when conformation detection is enabled without
// a raw-data source.
var ErrNoRawSource = errors.New("conformation detection needs a raw data source")

// PartitionError reports a failed unit of parallel work. The remaining
// partitions of the stage are unaffected.
type PartitionError struct {
	Stage     string
	Partition int // Original index of the feature, or partition number
	Err       error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("%s partition %d: %v", e.Stage, e.Partition, e.Err)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}
