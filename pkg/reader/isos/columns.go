package isos

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Field identifies a detection attribute read from an isos file.
type Field string

const (
	FieldScan         Field = "scan"
	FieldDriftScan    Field = "drift_scan"
	FieldCharge       Field = "charge"
	FieldAbundance    Field = "abundance"
	FieldMZ           Field = "mz"
	FieldFit          Field = "fit"
	FieldMass         Field = "mass"
	FieldFWHM         Field = "fwhm"
	FieldDriftTime    Field = "drift_time"
	FieldFlag         Field = "flag"
	FieldInterference Field = "interference"
	FieldSaturation   Field = "saturation"
)

// requiredFields must be present in every isos header.
var requiredFields = []Field{FieldScan, FieldCharge, FieldAbundance, FieldMZ, FieldMass}

// ColumnMap stores the accepted header names for each field
type ColumnMap struct {
	aliases map[Field][]string // field -> lower-case header names, in priority order
}

// NewColumnMap creates an empty column map
func NewColumnMap() *ColumnMap {
	return &ColumnMap{aliases: make(map[Field][]string)}
}

// DefaultColumnMap returns the column names written by DeconTools for LC
// and LC-IMS data.
func DefaultColumnMap() *ColumnMap {
	m := NewColumnMap()
	m.Add(FieldScan, "frame_num", "scan_num")
	m.Add(FieldDriftScan, "ims_scan_num")
	m.Add(FieldCharge, "charge")
	m.Add(FieldAbundance, "abundance")
	m.Add(FieldMZ, "mz")
	m.Add(FieldFit, "fit")
	m.Add(FieldMass, "monoisotopic_mw")
	m.Add(FieldFWHM, "fwhm")
	m.Add(FieldDriftTime, "drift_time")
	m.Add(FieldFlag, "flag")
	m.Add(FieldInterference, "interference_score")
	m.Add(FieldSaturation, "saturation_flag")
	return m
}

// Add appends header names accepted for field
func (m *ColumnMap) Add(field Field, names ...string) {
	for _, n := range names {
		m.aliases[field] = append(m.aliases[field], strings.ToLower(strings.TrimSpace(n)))
	}
}

// Aliases returns the header names accepted for field
func (m *ColumnMap) Aliases(field Field) []string {
	return m.aliases[field]
}

// LoadFromCSV loads additional aliases from a CSV file (format: field,column).
// The first line is a header and is skipped.
func (m *ColumnMap) LoadFromCSV(r io.Reader) error {
	cr := csv.NewReader(newBOMReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	// Skip header line
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("error reading CSV: %w", err)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading CSV: %w", err)
		}

		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return fmt.Errorf("line %d: invalid format, expected 2 comma-separated fields", line)
		}

		field := Field(strings.ToLower(strings.TrimSpace(rec[0])))
		if !field.known() {
			return fmt.Errorf("line %d: unknown field '%s'", line, rec[0])
		}
		m.Add(field, rec[1])
	}
}

func (f Field) known() bool {
	switch f {
	case FieldScan, FieldDriftScan, FieldCharge, FieldAbundance, FieldMZ, FieldFit,
		FieldMass, FieldFWHM, FieldDriftTime, FieldFlag, FieldInterference, FieldSaturation:
		return true
	}
	return false
}

// resolve maps each field to its column position in header. Fields without
// a matching column are absent from the result.
func (m *ColumnMap) resolve(header []string) (map[Field]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	cols := make(map[Field]int)
	for field, names := range m.aliases {
		for _, n := range names {
			if i, ok := pos[n]; ok {
				cols[field] = i
				break
			}
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := cols[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return cols, nil
}
