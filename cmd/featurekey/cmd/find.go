package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/FeatureKey/pkg/config"
	"github.com/ChrisMcGann/FeatureKey/pkg/conformation"
	"github.com/ChrisMcGann/FeatureKey/pkg/core"
	"github.com/ChrisMcGann/FeatureKey/pkg/metrics"
	"github.com/ChrisMcGann/FeatureKey/pkg/pipeline"
	"github.com/ChrisMcGann/FeatureKey/pkg/reader/isos"
	"github.com/ChrisMcGann/FeatureKey/pkg/reader/uimf"
	"github.com/ChrisMcGann/FeatureKey/pkg/writer/tsv"
)

func runFind(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: settings.Level()})).
		With("run", uuid.NewString())

	m, err := metrics.NewRunMetrics(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open the raw data first so a missing file fails before any clustering.
	var raw *uimf.Reader
	if rawFile != "" || settings.UseConformationDetection {
		if rawFile == "" {
			return fmt.Errorf("conformation detection needs --raw (or --conformations=false)")
		}
		raw, err = uimf.Open(rawFile)
		if err != nil {
			return err
		}
		defer raw.Close()
		log.Info("opened raw data", "path", raw.Path())
	}

	fmt.Printf("Finding features in %s...\n", inputFile)

	start := time.Now()
	ds, err := readDetections(log, m)
	if err != nil {
		return err
	}

	scans, err := buildScanIndex(ctx, settings, raw, ds)
	if err != nil {
		return err
	}
	ds, dropped := scans.Assign(ds)
	if len(dropped) > 0 {
		log.Info("dropped detections outside the selected frames", "count", len(dropped), "frameType", settings.FrameType)
	}
	m.ObserveStage(metrics.StageIngest, start, len(ds))
	fmt.Printf("Loaded %d detections over %d scans\n", len(ds), scans.Len())

	var source conformation.RawSource
	if settings.UseConformationDetection {
		source = raw
	}
	p, err := pipeline.New(settings, scans, source, m, log)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, ds)
	if err != nil {
		return fmt.Errorf("feature finding failed: %w", err)
	}
	for _, pe := range res.Failed {
		log.Warn("partition failed", "stage", pe.Stage, "partition", pe.Partition, "error", pe.Err)
	}

	start = time.Now()
	if err := writeFeatures(res.Features, scans); err != nil {
		return err
	}
	m.ObserveStage(metrics.StageOutput, start, len(res.Features))

	if metricsFile != "" {
		if err := m.WriteTextfile(metricsFile); err != nil {
			return err
		}
	}

	fmt.Printf("\nFeature finding complete!\n")
	fmt.Printf("Features: %d\n", len(res.Features))
	if res.DaltonMerges > 0 {
		fmt.Printf("Dalton corrections: %d\n", res.DaltonMerges)
	}
	if len(res.Failed) > 0 {
		fmt.Printf("Failed: %d features (see log)\n", len(res.Failed))
	}
	fmt.Printf("Output: %s\n", outputFile)

	return nil
}

// readDetections reads every valid detection of the isos file.
func readDetections(log *slog.Logger, m *metrics.RunMetrics) ([]*core.Detection, error) {
	columns, err := loadColumns()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	reader, err := isos.NewReader(f, columns, log)
	if err != nil {
		return nil, err
	}

	var ds []*core.Detection
	for reader.Next() {
		ds = append(ds, reader.Detection())
		if len(ds)%100000 == 0 {
			fmt.Printf("Processed %d detections...\n", len(ds))
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("error reading input file: %w", err)
	}

	m.AddSkipped(reader.Skipped())
	if reader.Skipped() > 0 {
		fmt.Fprintf(os.Stderr, "Warning: skipped %d malformed records\n", reader.Skipped())
	}
	return ds, nil
}

// buildScanIndex selects the LC scans to work on: frames of the configured
// type from the scans file or the raw data, else every scan seen in ds.
func buildScanIndex(ctx context.Context, settings *config.Settings, raw *uimf.Reader, ds []*core.Detection) (*core.ScanIndex, error) {
	switch {
	case scansFile != "":
		f, err := os.Open(scansFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open scans file: %w", err)
		}
		defer f.Close()

		types, err := isos.ReadScanTypes(f)
		if err != nil {
			return nil, err
		}
		return core.NewScanIndex(isos.ScansOfType(types, settings.FrameType)), nil

	case raw != nil:
		frames, err := raw.Frames(ctx, settings.FrameType)
		if err != nil {
			return nil, err
		}
		return core.NewScanIndex(frames), nil

	default:
		rawScans := make([]int, len(ds))
		for i, d := range ds {
			rawScans[i] = d.RawScan
		}
		return core.NewScanIndex(rawScans), nil
	}
}

func writeFeatures(features []*core.TopFeature, scans *core.ScanIndex) error {
	writer, err := tsv.Create(outputFile, scans)
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, f := range features {
		if err := writer.WriteFeature(f); err != nil {
			return fmt.Errorf("failed to write feature %d: %w", f.OriginalIndex, err)
		}
		if writer.Count()%10000 == 0 {
			fmt.Printf("Processed %d features...\n", writer.Count())
		}
	}

	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize output: %w", err)
	}
	return nil
}
