package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/store"
)

func init() {
	rootCmd.AddCommand(newExportCmd())
}

func newExportCmd() *cobra.Command {
	var exportFormat string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export raw assignment and conversion data",
		Long: `Export an experiment's raw assignments and conversions in CSV or JSON.

Examples:
  splitkit export checkout-cta --format csv > checkout-data.csv
  splitkit export checkout-cta --format json > checkout-data.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			if exportFormat != "csv" && exportFormat != "json" {
				return fmt.Errorf("invalid format: must be 'csv' or 'json'")
			}

			return withEngine(func(_ *engine.Engine, s *store.SQLiteStore) error {
				ctx := context.Background()

				if _, err := s.GetExperiment(ctx, id); err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("experiment '%s' not found", id)
					}
					return fmt.Errorf("failed to get experiment: %w", err)
				}

				assignments, err := s.ListAssignments(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to list assignments: %w", err)
				}

				conversions, err := s.ListConversions(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to list conversions: %w", err)
				}

				if exportFormat == "json" {
					return exportJSON(assignments, conversions)
				}
				return exportCSV(assignments, conversions)
			})
		},
	}

	cmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")

	return cmd
}

func exportJSON(assignments []*store.Assignment, conversions []*store.ConversionEvent) error {
	payload := struct {
		Assignments []*store.Assignment      `json:"assignments"`
		Conversions []*store.ConversionEvent `json:"conversions"`
	}{assignments, conversions}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func exportCSV(assignments []*store.Assignment, conversions []*store.ConversionEvent) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	// One flat table; conversion-only columns stay empty on assignment rows.
	if err := w.Write([]string{"record", "experiment_id", "user_id", "variant_id", "event_name", "value", "timestamp"}); err != nil {
		return err
	}

	for _, a := range assignments {
		row := []string{"assignment", a.ExperimentID, a.UserID, a.VariantID, "", "", a.AssignedAt.Format("2006-01-02T15:04:05Z07:00")}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	for _, ev := range conversions {
		value := ""
		if ev.Value != nil {
			value = strconv.FormatFloat(*ev.Value, 'f', -1, 64)
		}
		row := []string{"conversion", ev.ExperimentID, ev.UserID, ev.VariantID, ev.EventName, value, ev.CreatedAt.Format("2006-01-02T15:04:05Z07:00")}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}
