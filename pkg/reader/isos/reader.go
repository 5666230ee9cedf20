// Package isos provides streaming readers for DeconTools isos and scans CSV
// files
package isos

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ChrisMcGann/FeatureKey/pkg/core"
)

// newBOMReader strips a leading UTF-8 or UTF-16 byte order mark and
// decodes UTF-16 input to UTF-8.
func newBOMReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// Reader provides streaming access to isos CSV files
type Reader struct {
	csv     *csv.Reader
	cols    map[Field]int
	log     *slog.Logger
	index   int
	skipped int
	current *core.Detection
	err     error
}

// NewReader creates a new isos reader and reads the header line. A nil
// columns uses DefaultColumnMap; a nil log discards skip warnings.
func NewReader(r io.Reader, columns *ColumnMap, log *slog.Logger) (*Reader, error) {
	if columns == nil {
		columns = DefaultColumnMap()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	cr := csv.NewReader(newBOMReader(r))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty isos file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := columns.resolve(header)
	if err != nil {
		return nil, err
	}

	return &Reader{
		csv:  cr,
		cols: cols,
		log:  log,
	}, nil
}

// Next advances to the next valid detection. Malformed records are skipped
// and counted. Returns false when no more detections or error.
func (r *Reader) Next() bool {
	r.current = nil

	for {
		rec, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return false
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			r.index++
			r.skip(parseErr.StartLine, err)
			continue
		}
		if err != nil {
			r.err = err
			return false
		}

		line, _ := r.csv.FieldPos(0)
		d, err := r.parseRecord(rec, r.index)
		r.index++
		if err == nil {
			err = d.Validate()
		}
		if err != nil {
			r.skip(line, err)
			continue
		}

		r.current = d
		return true
	}
}

func (r *Reader) skip(line int, err error) {
	r.skipped++
	r.log.Warn("skipping malformed record", "line", line, "error", err)
}

// Detection returns the current detection
func (r *Reader) Detection() *core.Detection {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// Skipped returns the number of malformed records skipped so far
func (r *Reader) Skipped() int {
	return r.skipped
}

// parseRecord converts one CSV record into a detection
func (r *Reader) parseRecord(rec []string, index int) (*core.Detection, error) {
	d := &core.Detection{Index: index}

	var err error
	if d.RawScan, err = r.intField(rec, FieldScan); err != nil {
		return nil, err
	}
	if d.Charge, err = r.intField(rec, FieldCharge); err != nil {
		return nil, err
	}
	if d.Abundance, err = r.floatField(rec, FieldAbundance); err != nil {
		return nil, err
	}
	if d.MZ, err = r.floatField(rec, FieldMZ); err != nil {
		return nil, err
	}
	if d.Mass, err = r.floatField(rec, FieldMass); err != nil {
		return nil, err
	}

	// Optional metadata
	if d.DriftScan, err = r.intField(rec, FieldDriftScan); err != nil {
		return nil, err
	}
	if d.DriftTime, err = r.floatField(rec, FieldDriftTime); err != nil {
		return nil, err
	}
	if d.Fit, err = r.floatField(rec, FieldFit); err != nil {
		return nil, err
	}
	if d.FWHM, err = r.floatField(rec, FieldFWHM); err != nil {
		return nil, err
	}
	if d.Interference, err = r.floatField(rec, FieldInterference); err != nil {
		return nil, err
	}
	if d.ErrorFlag, err = r.flagField(rec, FieldFlag); err != nil {
		return nil, err
	}
	if d.Saturated, err = r.flagField(rec, FieldSaturation); err != nil {
		return nil, err
	}

	return d, nil
}

// value returns the trimmed value of field, or "" when the column is
// absent or the record is short.
func (r *Reader) value(rec []string, field Field) (string, bool) {
	i, ok := r.cols[field]
	if !ok {
		return "", false
	}
	if i >= len(rec) {
		return "", true
	}
	return strings.TrimSpace(rec[i]), true
}

func (r *Reader) intField(rec []string, field Field) (int, error) {
	s, present := r.value(rec, field)
	if !present {
		return 0, nil
	}
	if s == "" {
		return 0, missing(field)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Some tools write integral columns as floats
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("invalid %s value '%s': %w", field, s, err)
		}
		v = int(f)
	}
	return v, nil
}

func (r *Reader) floatField(rec []string, field Field) (float64, error) {
	s, present := r.value(rec, field)
	if !present {
		return 0, nil
	}
	if s == "" {
		return 0, missing(field)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value '%s': %w", field, s, err)
	}
	return v, nil
}

func (r *Reader) flagField(rec []string, field Field) (bool, error) {
	s, _ := r.value(rec, field)
	switch strings.ToLower(s) {
	case "", "0", "false":
		return false, nil
	case "1", "true":
		return true, nil
	}
	return false, fmt.Errorf("invalid %s value '%s'", field, s)
}

// missing reports an empty value; it is an error only for required fields.
func missing(field Field) error {
	for _, f := range requiredFields {
		if f == field {
			return fmt.Errorf("missing %s value", field)
		}
	}
	return nil
}
