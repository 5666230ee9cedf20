package core

import "math"

const (
	// ProtonMass for charge calculations
	ProtonMass = 1.00727646688

	// IsotopeSpacing is the mass difference between 13C and 12C, the spacing
	// of consecutive isotope peaks of an isotopic envelope.
	IsotopeSpacing = 1.0033548378
)

// MassToMZ converts a neutral monoisotopic mass to m/z for a charge state.
func MassToMZ(mass float64, charge int) float64 {
	return (mass + float64(charge)*ProtonMass) / float64(charge)
}

// IsotopeMZ returns the m/z of the n-th isotope peak (0 = monoisotopic).
func IsotopeMZ(monoMZ float64, charge, n int) float64 {
	return monoMZ + float64(n)*IsotopeSpacing/float64(charge)
}

// PPMTolerance returns the absolute tolerance of ppm parts-per-million at mass.
func PPMTolerance(mass, ppm float64) float64 {
	return mass * ppm / 1e6
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
