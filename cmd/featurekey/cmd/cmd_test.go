package cmd

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/FeatureKey/pkg/core"
	"github.com/ChrisMcGann/FeatureKey/pkg/reader/uimf"
	"github.com/ChrisMcGann/FeatureKey/pkg/writer/tsv"
)

// run executes the root command with args after resetting every flag.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, fs := range []*pflag.FlagSet{findCmd.Flags(), validateCmd.Flags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		})
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err)
	return out
}

// writeIsos writes an LC-IMS isos file with one row per (mass, charge) and
// frame in frames, all at drift scan 20.
func writeIsos(t *testing.T, frames []int, species ...[2]float64) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("frame_num,ims_scan_num,charge,abundance,mz,fit,monoisotopic_mw,fwhm,flag\n")
	for _, sp := range species {
		mass, charge := sp[0], int(sp[1])
		for _, frame := range frames {
			abundance := 1000 * math.Exp(-0.5*math.Pow(float64(frame-4)/2, 2))
			fmt.Fprintf(&b, "%d,20,%d,%.1f,%.5f,0.05,%.5f,0.1,\n",
				frame, charge, abundance, core.MassToMZ(mass, charge), mass)
		}
	}

	path := filepath.Join(t.TempDir(), "run_isos.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func readFeatures(t *testing.T, path string) []map[string]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer gz.Close()
		r = gz
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	records, err := cr.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	require.Equal(t, tsv.Header, records[0])

	var rows []map[string]string
	for _, rec := range records[1:] {
		row := make(map[string]string, len(rec))
		for i, v := range rec {
			row[records[0][i]] = v
		}
		rows = append(rows, row)
	}
	return rows
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isos.csv")
	data := "scan_num,charge,abundance,mz,monoisotopic_mw\n" +
		"1,1,100,501.007,500.0\n" +
		"2,1,120,501.007,500.0\n" +
		"2,2,90,401.007,800.0\n" +
		"3,1,oops,501.007,500.0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	out := execute(t, "validate", path)
	assert.Contains(t, out, "Detections: 3\n")
	assert.Contains(t, out, "Scans: 2\n")
	assert.Contains(t, out, "Skipped: 1\n")
	assert.Contains(t, out, "Charge 1: 2\n")
	assert.Contains(t, out, "Charge 2: 1\n")
}

func TestFindLCOnly(t *testing.T) {
	dir := t.TempDir()
	in := writeIsos(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, [2]float64{1000, 1}, [2]float64{1500, 2})
	out := filepath.Join(dir, "features.tsv.gz")
	prom := filepath.Join(dir, "featurekey.prom")

	execute(t, "find", "--in", in, "--out", out, "--conformations=false", "--metrics", prom)

	rows := readFeatures(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0]["Charge"])
	assert.Equal(t, "2", rows[1]["Charge"])
	for _, row := range rows {
		assert.Equal(t, "8", row["Member_Count"])
		assert.Equal(t, "1", row["Scan_Start"])
		assert.Equal(t, "8", row["Scan_End"])
		assert.Equal(t, "4", row["Scan_Apex"])
	}

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "featurekey_stage_items_total")
}

func TestFindConformations(t *testing.T) {
	dir := t.TempDir()
	mass := 1000.0
	mz := core.MassToMZ(mass, 1)

	raw := filepath.Join(dir, "run.uimf")
	w, err := uimf.NewWriter(raw, 1, 200000)
	require.NoError(t, err)
	for frame := 1; frame <= 8; frame++ {
		p := uimf.FrameParams{
			Frame:                frame,
			FrameType:            1,
			Scans:                40,
			CalibrationSlope:     0.35,
			CalibrationIntercept: 0.02,
			BinWidth:             1,
			AverageTOFLength:     160000,
			PressureBack:         4,
		}
		require.NoError(t, w.WriteFrame(p))

		bin := int(math.Round(p.MZToBin(mz)))
		for scan := 8; scan <= 32; scan++ {
			z := float64(scan-20) / 3
			v := int(1000 * math.Exp(-0.5*z*z))
			if v == 0 {
				continue
			}
			require.NoError(t, w.WriteScan(frame, scan, []int{bin - 1, bin, bin + 1}, []int{v, v, v}))
		}
	}
	require.NoError(t, w.Close())

	in := writeIsos(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, [2]float64{mass, 1})
	out := filepath.Join(dir, "features.tsv")

	execute(t, "find", "--in", in, "--out", out, "--raw", raw)

	rows := readFeatures(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "8", rows[0]["Member_Count"])
	dt, err := strconv.ParseFloat(rows[0]["Drift_Time"], 64)
	require.NoError(t, err)
	assert.InDelta(t, 3.2, dt, 0.05)
}

func TestFindMissingRaw(t *testing.T) {
	in := writeIsos(t, []int{1, 2, 3}, [2]float64{1000, 1})
	out := filepath.Join(t.TempDir(), "features.tsv")

	_, err := run(t, "find", "--in", in, "--out", out, "--raw", filepath.Join(t.TempDir(), "missing.uimf"))
	assert.ErrorIs(t, err, uimf.ErrSourceNotFound)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}
