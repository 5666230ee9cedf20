// Package uimf provides read access to raw LC-IMS acquisitions stored in a
// single-file SQLite container laid out like a UIMF file: global parameters,
// per-frame calibration and per-(frame, drift scan) compressed spectra.
package uimf

import (
	"errors"
	"math"
)

// ErrSourceNotFound is returned when the raw-data file does not exist.
// Callers treat it as fatal for the whole run.
var ErrSourceNotFound = errors.New("raw data source not found")

// ErrFrameNotFound is returned when a frame has no parameter record.
var ErrFrameNotFound = errors.New("frame not found")

// FrameParams holds the acquisition parameters of one LC frame.
type FrameParams struct {
	Frame                int
	FrameType            int
	Scans                int     // Number of drift scans in the frame
	CalibrationSlope     float64 // TOF calibration slope
	CalibrationIntercept float64 // TOF calibration intercept (microseconds)
	BinWidth             float64 // TOF bin width (nanoseconds)
	AverageTOFLength     float64 // Average TOF length (nanoseconds)
	PressureBack         float64 // Drift tube back pressure (Torr)
}

// MZToBin converts an m/z value to a fractional TOF bin.
func (p FrameParams) MZToBin(mz float64) float64 {
	if p.CalibrationSlope == 0 || p.BinWidth == 0 || mz <= 0 {
		return 0
	}
	tof := math.Sqrt(mz)/p.CalibrationSlope + p.CalibrationIntercept
	return tof * 1000 / p.BinWidth
}

// BinToMZ converts a TOF bin to m/z. It is the inverse of MZToBin.
func (p FrameParams) BinToMZ(bin float64) float64 {
	tof := bin*p.BinWidth/1000 - p.CalibrationIntercept
	v := tof * p.CalibrationSlope
	return v * v
}

// ProfileQuery selects the intensity summed over an m/z window for every
// drift scan of a frame range.
type ProfileQuery struct {
	FrameStart  int
	FrameEnd    int
	FrameType   int
	ScanStart   int
	ScanEnd     int
	MZ          float64
	MZTolerance float64
}

func (q ProfileQuery) binRange(p FrameParams) (int, int) {
	lo := p.MZToBin(q.MZ - q.MZTolerance)
	hi := p.MZToBin(q.MZ + q.MZTolerance)
	return int(math.Ceil(lo)), int(math.Floor(hi))
}

// MZWindow returns the m/z of the first and last TOF bin summed for q in a
// frame calibrated with p. The window is narrower than q.MZ ± q.MZTolerance
// by up to one bin on each side, and empty (lo > hi) when no bin falls
// inside the tolerance.
func (q ProfileQuery) MZWindow(p FrameParams) (float64, float64) {
	lo, hi := q.binRange(p)
	return p.BinToMZ(float64(lo)), p.BinToMZ(float64(hi))
}
