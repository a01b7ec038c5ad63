package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/map-harvest/harvest/internal/export"
	"github.com/map-harvest/harvest/internal/ui"
	"github.com/map-harvest/harvest/pkg/models"
)

var (
	exportFormat string
	exportOutput string
)

// exportCmd dumps harvested businesses to JSON or CSV.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export harvested businesses to JSON or CSV",
	Example: `  # Dump everything as JSON to stdout
  harvest export --config plan.yaml

  # Write a CSV file
  harvest export --config plan.yaml --format csv --output businesses.csv`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format: json or csv")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	a := GetApp()

	// Page through the store so a large harvest doesn't load at once.
	const page = 500
	var all []models.Business
	for offset := 0; ; offset += page {
		batch, err := a.Store.ListBusinesses(cmd.Context(), page, offset)
		if err != nil {
			return err
		}
		all = append(all, batch...)
		if len(batch) < page {
			break
		}
	}

	out := os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := export.Write(out, format, all); err != nil {
		return err
	}

	if exportOutput != "" {
		fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("exported %d businesses to %s", len(all), exportOutput)))
	}
	return nil
}
