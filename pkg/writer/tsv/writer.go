// Package tsv provides tab-delimited output of LC-IMS features
package tsv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ChrisMcGann/FeatureKey/pkg/core"
)

// Header is the column header row written before the first feature.
var Header = []string{
	"Feature_Index",
	"Original_Index",
	"Monoisotopic_Mass",
	"Mass_Median",
	"Mass_StdDev",
	"Charge",
	"Scan_Start",
	"Scan_End",
	"Scan_Apex",
	"Drift_Time",
	"Abundance_Max",
	"Abundance_Sum",
	"Member_Count",
	"Saturated_Member_Count",
	"Percent_Max_Members",
	"IMS_Score",
	"LC_Score",
	"Fit_Mean",
	"Interference_Mean",
}

// Writer handles writing features to tab-delimited files
type Writer struct {
	csv     *csv.Writer
	buf     *bufio.Writer
	gz      *gzip.Writer
	file    *os.File
	scans   *core.ScanIndex
	index   int
	written bool
}

// Create creates a writer on a new file at path. Output is gzip-compressed
// when path ends in ".gz".
func Create(path string, scans *core.ScanIndex) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	var dst io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		dst = gz
	}

	w := NewWriter(dst, scans)
	w.gz = gz
	w.file = f
	return w, nil
}

// NewWriter creates a writer on dst. scans translates sequential LC indices
// back to raw scan numbers.
func NewWriter(dst io.Writer, scans *core.ScanIndex) *Writer {
	buf := bufio.NewWriter(dst)
	cw := csv.NewWriter(buf)
	cw.Comma = '\t'

	return &Writer{
		csv:   cw,
		buf:   buf,
		scans: scans,
	}
}

// WriteFeature writes a single feature. Empty features are rejected.
func (w *Writer) WriteFeature(f *core.TopFeature) error {
	if !w.written {
		if err := w.csv.Write(Header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		w.written = true
	}

	if f.IsEmpty() {
		return fmt.Errorf("feature %d has no members", f.OriginalIndex)
	}

	stats := f.Stats()
	lo, hi := f.ScanRange()
	first, err := w.rawScan(lo)
	if err != nil {
		return err
	}
	last, err := w.rawScan(hi)
	if err != nil {
		return err
	}
	apex, err := w.rawScan(stats.ApexScan)
	if err != nil {
		return err
	}

	// Conformations carry abundances from the drift profile; LC-only
	// features fall back to member abundances.
	maxAbundance, sumAbundance := f.MaxAbundance, f.SummedAbundance
	if maxAbundance == 0 && sumAbundance == 0 {
		maxAbundance, sumAbundance = stats.AbundanceMax, stats.AbundanceSum
	}

	record := []string{
		strconv.Itoa(w.index),
		strconv.Itoa(f.OriginalIndex),
		formatFloat(stats.MassMean, 4),
		formatFloat(stats.MassMedian, 4),
		formatFloat(stats.MassStdDev, 4),
		strconv.Itoa(f.Charge),
		strconv.Itoa(first),
		strconv.Itoa(last),
		strconv.Itoa(apex),
		formatFloat(f.DriftTime, 4),
		formatFloat(maxAbundance, 0),
		formatFloat(sumAbundance, 0),
		strconv.Itoa(stats.MemberCount),
		strconv.Itoa(stats.SaturatedCount),
		formatFloat(stats.PercentMaxMembers, 2),
		formatFloat(f.IMSScore, 4),
		formatFloat(f.LCScore, 4),
		formatFloat(stats.FitMean, 4),
		formatFloat(stats.InterferenceMean, 4),
	}

	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("failed to write feature %d: %w", f.OriginalIndex, err)
	}
	w.index++
	return nil
}

func (w *Writer) rawScan(index int) (int, error) {
	if w.scans == nil {
		return index, nil
	}
	return w.scans.Raw(index)
}

// formatFloat formats v with prec decimals; NaN and infinities are written as 0.
func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(core.RoundFloat(core.Finite(v), prec), 'f', prec, 64)
}

// Count returns the number of features written
func (w *Writer) Count() int {
	return w.index
}

// Finalize flushes all buffered output and closes the file, if the writer owns one
func (w *Writer) Finalize() error {
	if !w.written {
		if err := w.csv.Write(Header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		w.written = true
	}

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
		w.gz = nil
	}

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		if err != nil {
			return fmt.Errorf("failed to close output file: %w", err)
		}
	}

	return nil
}

// Close closes the writer (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
