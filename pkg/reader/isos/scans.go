package isos

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	scanColumns = []string{"frame_num", "scan_num"}
	typeColumns = []string{"type", "frame_type", "scan_type"}
)

// ReadScanTypes reads a DeconTools scans file and returns the frame type of
// every scan, keyed by raw scan number.
func ReadScanTypes(r io.Reader) (map[int]int, error) {
	cr := csv.NewReader(newBOMReader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty scans file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	scanCol, typeCol := -1, -1
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if scanCol < 0 && contains(scanColumns, name) {
			scanCol = i
		}
		if typeCol < 0 && contains(typeColumns, name) {
			typeCol = i
		}
	}
	if scanCol < 0 || typeCol < 0 {
		return nil, fmt.Errorf("scans file needs a scan and a type column")
	}

	types := make(map[int]int)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return types, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error reading scans file: %w", err)
		}
		if scanCol >= len(rec) || typeCol >= len(rec) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected at least %d fields", line, max(scanCol, typeCol)+1)
		}

		scan, err := strconv.Atoi(strings.TrimSpace(rec[scanCol]))
		if err != nil {
			line, _ := cr.FieldPos(scanCol)
			return nil, fmt.Errorf("line %d: invalid scan number: %w", line, err)
		}
		typ, err := strconv.Atoi(strings.TrimSpace(rec[typeCol]))
		if err != nil {
			line, _ := cr.FieldPos(typeCol)
			return nil, fmt.Errorf("line %d: invalid scan type: %w", line, err)
		}
		types[scan] = typ
	}
}

// ScansOfType returns the raw scan numbers whose type equals frameType.
func ScansOfType(types map[int]int, frameType int) []int {
	var out []int
	for scan, t := range types {
		if t == frameType {
			out = append(out, scan)
		}
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
