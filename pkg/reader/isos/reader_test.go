package isos

import (
	"sort"
	"strings"
	"testing"
)

const lcImsIsos = `frame_num,ims_scan_num,charge,abundance,mz,fit,average_mw,monoisotopic_mw,mostabundant_mw,fwhm,signal_noise,mono_abundance,mono_plus2_abundance,orig_intensity,TIA_orig_intensity,drift_time,cumulative_drift_time,flag,interference_score,saturation_flag
1,120,2,15000,500.2637,0.012,999.2,998.5128,999.5,0.021,35.2,12000,3000,15000,15000,22.5,22.5,0,0.01,0
1,121,2,9000,500.2640,0.020,999.2,998.5134,999.5,0.022,20.1,8000,2000,9000,9000,22.7,45.2,1,0.05,1
2,120,3,4000,667.0100,0.050,1998.0,1998.0082,1999.0,0.018,10.0,3500,900,4000,4000,22.5,22.5,0,0.00,0
`

func TestReaderLCIMS(t *testing.T) {
	r, err := NewReader(strings.NewReader(lcImsIsos), nil, nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	var count int
	for r.Next() {
		d := r.Detection()
		if d.Index != count {
			t.Errorf("detection %d: expected index %d, got %d", count, count, d.Index)
		}
		count++

		if count == 2 {
			if d.RawScan != 1 || d.DriftScan != 121 || d.Charge != 2 {
				t.Errorf("unexpected scan/drift/charge: %d/%d/%d", d.RawScan, d.DriftScan, d.Charge)
			}
			if d.Mass != 998.5134 || d.MZ != 500.2640 || d.Abundance != 9000 {
				t.Errorf("unexpected mass/mz/abundance: %v/%v/%v", d.Mass, d.MZ, d.Abundance)
			}
			if d.FWHM != 0.022 || d.DriftTime != 22.7 || d.Fit != 0.020 || d.Interference != 0.05 {
				t.Errorf("unexpected optional fields: %+v", d)
			}
			if !d.ErrorFlag || !d.Saturated {
				t.Error("expected flag and saturation to be set")
			}
		}
	}

	if err := r.Err(); err != nil {
		t.Fatalf("reader error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 detections, got %d", count)
	}
	if r.Skipped() != 0 {
		t.Errorf("expected no skipped records, got %d", r.Skipped())
	}
}

func TestReaderLCOnlyWithBOM(t *testing.T) {
	input := "\ufeffscan_num,charge,abundance,mz,fit,average_mw,monoisotopic_mw,mostabundant_mw,fwhm,signal_noise,mono_abundance,mono_plus2_abundance,flag\n" +
		"1053,1,3476,457.2,0.02,456.2,456.1927,456.2,0.01,4.5,3476,0,\n"

	r, err := NewReader(strings.NewReader(input), nil, nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if !r.Next() {
		t.Fatalf("expected a detection, err=%v", r.Err())
	}
	d := r.Detection()
	if d.RawScan != 1053 || d.DriftScan != 0 || d.ErrorFlag {
		t.Errorf("unexpected detection: %+v", d)
	}
	if r.Next() {
		t.Error("expected end of input")
	}
}

func TestReaderSkipsMalformed(t *testing.T) {
	input := `frame_num,charge,abundance,mz,monoisotopic_mw
1,2,100,500.1,998.2
1,x,100,500.1,998.2
2,2,100,,998.2
3,0,100,500.1,998.2
4,2,100,500.1,998.2,extra
5,2,"1"00,500.1,998.2
6,2,100,500.1,998.2
`
	r, err := NewReader(strings.NewReader(input), nil, nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	var scans, indices []int
	for r.Next() {
		scans = append(scans, r.Detection().RawScan)
		indices = append(indices, r.Detection().Index)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("reader error: %v", err)
	}

	wantScans := []int{1, 4, 6}
	wantIndices := []int{0, 4, 6}
	for i := range wantScans {
		if i >= len(scans) || scans[i] != wantScans[i] || indices[i] != wantIndices[i] {
			t.Fatalf("expected scans %v with indices %v, got %v with %v", wantScans, wantIndices, scans, indices)
		}
	}
	if r.Skipped() != 4 {
		t.Errorf("expected 4 skipped records, got %d", r.Skipped())
	}
}

func TestReaderMissingColumns(t *testing.T) {
	_, err := NewReader(strings.NewReader("frame_num,charge,mz\n1,2,500\n"), nil, nil)
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	if !strings.Contains(err.Error(), "abundance") || !strings.Contains(err.Error(), "mass") {
		t.Errorf("error should name the missing columns: %v", err)
	}

	if _, err := NewReader(strings.NewReader(""), nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestColumnMapLoadFromCSV(t *testing.T) {
	m := DefaultColumnMap()
	err := m.LoadFromCSV(strings.NewReader("field,column\nmass,MonoMass\nscan, Frame\n"))
	if err != nil {
		t.Fatalf("LoadFromCSV failed: %v", err)
	}

	input := "Frame,charge,abundance,mz,MonoMass\n7,1,10,300.5,299.49\n"
	r, err := NewReader(strings.NewReader(input), m, nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if !r.Next() {
		t.Fatalf("expected a detection, err=%v", r.Err())
	}
	if d := r.Detection(); d.RawScan != 7 || d.Mass != 299.49 {
		t.Errorf("unexpected detection: %+v", d)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"unknown field", "field,column\nweight,w\n"},
		{"missing column", "field,column\nmass\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewColumnMap().LoadFromCSV(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadScanTypes(t *testing.T) {
	input := `frame_num,frame_time,type,bpi,bpi_mz,tic,num_peaks,num_deisotoped
1,0.5,1,1000,500.2,5000,10,2
2,1.0,2,900,500.2,4000,8,1
3,1.5,1,800,500.2,3000,6,1
`
	types, err := ReadScanTypes(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadScanTypes failed: %v", err)
	}
	if len(types) != 3 || types[2] != 2 {
		t.Errorf("unexpected types: %v", types)
	}

	ms1 := ScansOfType(types, 1)
	sort.Ints(ms1)
	if len(ms1) != 2 || ms1[0] != 1 || ms1[1] != 3 {
		t.Errorf("expected scans [1 3], got %v", ms1)
	}

	if _, err := ReadScanTypes(strings.NewReader("frame_num,tic\n1,5\n")); err == nil {
		t.Error("expected error for missing type column")
	}
	if _, err := ReadScanTypes(strings.NewReader("scan_num,type\n1,a\n")); err == nil {
		t.Error("expected error for invalid type")
	}
}
