package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/FeatureKey/pkg/reader/isos"
)

func runValidate(cmd *cobra.Command, args []string) error {
	columns, err := loadColumns()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	reader, err := isos.NewReader(f, columns, log)
	if err != nil {
		return err
	}

	count := 0
	charges := make(map[int]int)
	scans := make(map[int]struct{})
	for reader.Next() {
		d := reader.Detection()
		count++
		charges[d.Charge]++
		scans[d.RawScan] = struct{}{}
	}
	if err := reader.Err(); err != nil {
		return fmt.Errorf("error reading input file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File: %s\n", args[0])
	fmt.Fprintf(out, "Detections: %d\n", count)
	fmt.Fprintf(out, "Scans: %d\n", len(scans))
	fmt.Fprintf(out, "Skipped: %d\n", reader.Skipped())

	zs := make([]int, 0, len(charges))
	for z := range charges {
		zs = append(zs, z)
	}
	sort.Ints(zs)
	for _, z := range zs {
		fmt.Fprintf(out, "Charge %d: %d\n", z, charges[z])
	}

	return nil
}
