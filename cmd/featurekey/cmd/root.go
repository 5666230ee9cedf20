// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/FeatureKey/pkg/reader/isos"
)

var (
	// Flags for find command
	inputFile   string
	outputFile  string
	rawFile     string
	scansFile   string
	columnsCSV  string
	configFile  string
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "featurekey",
	Short: "FeatureKey - LC-IMS feature finder",
	Long: `FeatureKey groups the isotopic-signal detections of a deconvolution tool
into LC-IMS features and writes one row per feature.

Processing steps:
- Mass clustering per LC scan, then across LC scans
- Dalton correction of isotope misassignments
- LC gap splitting and length filters
- Conformation detection on drift-time profiles from the raw data`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(validateCmd)

	// Find command flags
	findCmd.Flags().StringVarP(&inputFile, "in", "i", "", "DeconTools isos file (required)")
	findCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output features file, gzip-compressed if it ends in .gz (required)")
	findCmd.Flags().StringVar(&rawFile, "raw", "", "Raw data file (required for conformation detection)")
	findCmd.Flags().StringVar(&scansFile, "scans", "", "DeconTools scans file used to select frames of --frame-type")
	findCmd.Flags().StringVar(&columnsCSV, "columns", "", "CSV file with extra isos column names (field,column)")
	findCmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML, TOML or JSON)")
	findCmd.Flags().StringVar(&metricsFile, "metrics", "", "Write Prometheus metrics to this textfile")

	// Settings flags; names must match config.FlagNames
	findCmd.Flags().Float64("ppm", 20, "Mass tolerance in ppm")
	findCmd.Flags().Bool("use-charge", false, "Only cluster detections of equal charge")
	findCmd.Flags().Int("min-points", 3, "Minimum number of detections per feature")
	findCmd.Flags().Int("lc-gap", 4, "Largest LC scan gap inside a feature")
	findCmd.Flags().Int("max-da", 1, "Largest Dalton error to correct (0 = off)")
	findCmd.Flags().Bool("conformations", true, "Split features into drift-time conformations")
	findCmd.Flags().Float64("bandwidth", 1.0, "Drift profile smoothing bandwidth")
	findCmd.Flags().Int("frame-type", 1, "Frame type holding MS1 data")
	findCmd.Flags().Float64("theoretical-fwhm", 4.0, "Expected conformation FWHM in drift scans")
	findCmd.Flags().Float64("dalton-threshold", 0.3, "Minimum flagged fraction difference for Dalton correction")
	findCmd.Flags().Int("workers", 0, "Number of worker goroutines (0 = number of CPUs)")
	findCmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")

	findCmd.MarkFlagRequired("in")
	findCmd.MarkFlagRequired("out")

	validateCmd.Flags().StringVar(&columnsCSV, "columns", "", "CSV file with extra isos column names (field,column)")
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find LC-IMS features in a DeconTools isos file",
	Long: `Find LC-IMS features in a DeconTools isos file and write them as
tab-separated rows.

Examples:
  # LC-IMS run with conformation detection
  featurekey find --in run_isos.csv --raw run.uimf --out run_features.tsv

  # LC-only data, charge-aware clustering
  featurekey find --in run_isos.csv --out run_features.tsv.gz --conformations=false --use-charge

  # Settings from a file, metrics for node_exporter
  featurekey find --in run_isos.csv --raw run.uimf --out run.tsv --config featurekey.yaml --metrics featurekey.prom`,
	RunE: runFind,
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate an isos file",
	Long:  `Parse a DeconTools isos file and report record counts and skipped lines.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

// loadColumns returns the default isos column names, extended from
// columnsCSV when set.
func loadColumns() (*isos.ColumnMap, error) {
	columns := isos.DefaultColumnMap()
	if columnsCSV == "" {
		return columns, nil
	}

	f, err := os.Open(columnsCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to open column file: %w", err)
	}
	defer f.Close()

	if err := columns.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("failed to load column file: %w", err)
	}
	return columns, nil
}
