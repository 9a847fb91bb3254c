package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/stats"
	"github.com/splitkit/splitkit/internal/store"
)

func init() {
	rootCmd.AddCommand(newResultsCmd())
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results <id>",
		Short: "Show aggregated results for an experiment",
		Long: `Show per-variant metrics (users, conversions, rate, average value,
95% CI) and the winner nomination.

The reported confidence is a relative-difference heuristic capped at 95,
not a statistical significance test.`,
		Args: cobra.ExactArgs(1),
		RunE: runResults,
	}

	return cmd
}

func runResults(cmd *cobra.Command, args []string) error {
	id := args[0]

	return withEngine(func(e *engine.Engine, s *store.SQLiteStore) error {
		ctx := context.Background()

		exp, err := s.GetExperiment(ctx, id)
		if err == store.ErrNotFound {
			return fmt.Errorf("experiment '%s' not found", id)
		}
		if err != nil {
			return fmt.Errorf("failed to get experiment: %w", err)
		}

		results, err := e.Results(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("EXPERIMENT: %s (%s)\n", exp.Name, exp.ID)
		fmt.Printf("STATUS: %s\n", exp.Status)
		fmt.Printf("CREATED: %s\n", exp.CreatedAt.Format("2006-01-02"))
		fmt.Println()

		fmt.Println("VARIANT           USERS    CONVERSIONS  RATE      AVG VALUE  95% CI")
		fmt.Println(strings.Repeat("─", 78))

		for _, m := range results.Variants {
			indicator := ""
			if results.Winner != "" && m.VariantID == results.Winner {
				indicator = " ← WINNER"
			}

			ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", m.CILower*100, m.CIUpper*100)
			if m.TotalUsers == 0 {
				ciStr = "N/A"
			}

			avgStr := "-"
			if m.AverageValue != 0 {
				avgStr = fmt.Sprintf("%.2f", m.AverageValue)
			}

			name := m.VariantName
			if len(name) > 16 {
				name = name[:13] + "..."
			}

			fmt.Printf("%-16s  %-7d  %-11d  %-8s  %-9s  %s%s\n",
				name,
				m.TotalUsers,
				m.Conversions,
				formatRate(m.ConversionRate),
				avgStr,
				ciStr,
				indicator,
			)
		}

		fmt.Println()

		if results.Winner != "" {
			fmt.Printf("Winner: '%s' at %.0f heuristic confidence (relative rate difference, not a significance test)\n",
				results.Winner, results.Confidence)
		} else {
			fmt.Printf("No winner yet: fewer than 2 variants have reached %d assigned users.\n", stats.MinSampleSize)
		}

		return nil
	})
}

func formatRate(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate)
}
