package core

import (
	"math"
	"testing"
)

func TestDetectionValidation(t *testing.T) {
	valid := func() *Detection {
		return &Detection{Scan: 3, RawScan: 10, Charge: 2, Mass: 1000.5, MZ: 501.26, Abundance: 1e4}
	}

	tests := []struct {
		name    string
		mutate  func(d *Detection)
		wantErr bool
	}{
		{"valid detection", func(d *Detection) {}, false},
		{"zero charge", func(d *Detection) { d.Charge = 0 }, true},
		{"NaN mass", func(d *Detection) { d.Mass = math.NaN() }, true},
		{"negative mass", func(d *Detection) { d.Mass = -1 }, true},
		{"infinite m/z", func(d *Detection) { d.MZ = math.Inf(1) }, true},
		{"negative abundance", func(d *Detection) { d.Abundance = -5 }, true},
		{"negative drift scan", func(d *Detection) { d.DriftScan = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(*ValidationError); !ok {
					t.Errorf("Validate() error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

func TestDetectionName(t *testing.T) {
	d := &Detection{RawScan: 12, DriftScan: 140, Mass: 1234.56789}
	if got, want := d.Name(), "12/140/1234.5679"; got != want {
		t.Errorf("Expected name %s, got %s", want, got)
	}
}
