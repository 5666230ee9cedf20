package core

import (
	"fmt"
	"sort"
)

// ScanIndex translates between LC scan numbers as written by the acquisition
// software and the sequential indices the clustering engine works on.
// It is built once during ingestion and is read-only afterwards.
type ScanIndex struct {
	raw   []int       // sequential index -> raw scan
	index map[int]int // raw scan -> sequential index
}

// NewScanIndex builds an index over the given raw scan numbers.
// Duplicates are ignored; indices follow ascending raw scan order.
func NewScanIndex(rawScans []int) *ScanIndex {
	raw := make([]int, len(rawScans))
	copy(raw, rawScans)
	sort.Ints(raw)

	idx := &ScanIndex{index: make(map[int]int, len(raw))}
	for _, s := range raw {
		if _, ok := idx.index[s]; ok {
			continue
		}
		idx.index[s] = len(idx.raw)
		idx.raw = append(idx.raw, s)
	}
	return idx
}

// Len returns the number of distinct scans.
func (s *ScanIndex) Len() int {
	return len(s.raw)
}

// Index returns the sequential index of a raw scan number.
func (s *ScanIndex) Index(raw int) (int, bool) {
	i, ok := s.index[raw]
	return i, ok
}

// Raw returns the raw scan number of a sequential index.
func (s *ScanIndex) Raw(index int) (int, error) {
	if index < 0 || index >= len(s.raw) {
		return 0, fmt.Errorf("scan index %d out of range [0,%d)", index, len(s.raw))
	}
	return s.raw[index], nil
}

// Assign sets the sequential Scan of each detection from its RawScan.
// Detections whose raw scan is unknown are returned separately.
func (s *ScanIndex) Assign(ds []*Detection) (kept, dropped []*Detection) {
	kept = ds[:0:0]
	for _, d := range ds {
		i, ok := s.index[d.RawScan]
		if !ok {
			dropped = append(dropped, d)
			continue
		}
		d.Scan = i
		kept = append(kept, d)
	}
	return kept, dropped
}
