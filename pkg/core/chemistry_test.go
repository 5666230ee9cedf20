package core

import (
	"math"
	"testing"
)

func TestMassToMZ(t *testing.T) {
	tests := []struct {
		name      string
		mass      float64
		charge    int
		wantMZ    float64
		tolerance float64
	}{
		{"charge 1", 1000.0, 1, 1001.00728, 1e-5},
		{"charge 2", 1000.0, 2, 501.00728, 1e-5},
		{"charge 3", 1500.0, 3, 501.00728, 1e-5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MassToMZ(tt.mass, tt.charge)
			if math.Abs(got-tt.wantMZ) > tt.tolerance {
				t.Errorf("MassToMZ() = %.5f, want %.5f (within %g)", got, tt.wantMZ, tt.tolerance)
			}
		})
	}
}

func TestIsotopeMZ(t *testing.T) {
	got := IsotopeMZ(500.0, 2, 2)
	want := 500.0 + IsotopeSpacing
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("IsotopeMZ() = %v, want %v", got, want)
	}
}

func TestPPMTolerance(t *testing.T) {
	got := PPMTolerance(1000, 20)
	if math.Abs(got-0.02) > 1e-12 {
		t.Errorf("PPMTolerance() = %v, want 0.02", got)
	}
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		name      string
		val       float64
		precision int
		want      float64
	}{
		{"round to 2 decimals", 3.14159, 2, 3.14},
		{"round to 4 decimals", 3.14159, 4, 3.1416},
		{"round to 0 decimals", 3.6, 0, 4.0},
		{"round negative", -3.14159, 2, -3.14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundFloat(tt.val, tt.precision)
			if got != tt.want {
				t.Errorf("RoundFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}
