// Package core provides the intermediate representation (IR) models and validation logic
// for LC-IMS feature finding: detections, mid-level clusters and top-level features.
package core

import (
	"fmt"
	"math"
	"strings"
)

// Detection represents a single isotopic-signal observation reported by the
// deconvolution tool for one LC scan (and optionally one drift scan).
type Detection struct {
	// Required fields
	Index     int     // Stable source index (record order in the input file)
	Scan      int     // Sequential LC scan index, see ScanIndex
	RawScan   int     // LC scan/frame number as written in the input
	Charge    int     // Charge state
	Mass      float64 // Monoisotopic mass
	MZ        float64 // m/z of the monoisotopic peak
	Abundance float64

	// Optional metadata
	DriftScan    int     // IMS scan; 0 for LC-only data
	DriftTime    float64 // Drift time reported by the deconvolution tool
	Fit          float64 // Isotopic fit score (lower is better)
	Interference float64
	FWHM         float64
	ErrorFlag    bool // Deconvolution flagged a possible isotope misassignment
	Saturated    bool
}

// ValidationError represents an error found during detection validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a detection meets all requirements for clustering.
func (d *Detection) Validate() error {
	var errs []string

	if d.Charge <= 0 {
		errs = append(errs, "charge must be positive")
	}
	if math.IsNaN(d.Mass) || math.IsInf(d.Mass, 0) || d.Mass <= 0 {
		errs = append(errs, "monoisotopic mass must be a positive number")
	}
	if math.IsNaN(d.MZ) || math.IsInf(d.MZ, 0) || d.MZ <= 0 {
		errs = append(errs, "m/z must be a positive number")
	}
	if math.IsNaN(d.Abundance) || math.IsInf(d.Abundance, 0) || d.Abundance < 0 {
		errs = append(errs, "abundance must be non-negative")
	}
	if d.Scan < 0 {
		errs = append(errs, "scan must be non-negative")
	}
	if d.DriftScan < 0 {
		errs = append(errs, "drift scan must be non-negative")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Detection",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// Name returns the detection name in format "scan/drift/mass"
func (d *Detection) Name() string {
	return fmt.Sprintf("%d/%d/%.4f", d.RawScan, d.DriftScan, d.Mass)
}
