package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/store"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments",
		Long: `List all experiments with their status and sample counts.

With --user, list the active experiments the user is assigned to instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine, s *store.SQLiteStore) error {
				ctx := context.Background()

				if userID != "" {
					return listUserExperiments(ctx, cmd, e, userID)
				}

				exps, err := s.ListExperiments(ctx)
				if err != nil {
					return fmt.Errorf("failed to list experiments: %w", err)
				}

				if len(exps) == 0 {
					fmt.Println("No experiments yet. Create one with 'splitkit create'.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSTATUS\tVARIANTS\tUSERS\tCONVERSIONS\tCREATED")

				for _, exp := range exps {
					assignments, err := s.ListAssignments(ctx, exp.ID)
					if err != nil {
						return fmt.Errorf("failed to list assignments for %s: %w", exp.ID, err)
					}
					conversions, err := s.ListConversions(ctx, exp.ID)
					if err != nil {
						return fmt.Errorf("failed to list conversions for %s: %w", exp.ID, err)
					}

					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						exp.ID,
						exp.Name,
						strings.ToUpper(string(exp.Status)),
						len(exp.Variants),
						len(assignments),
						len(conversions),
						exp.CreatedAt.Format("2006-01-02"),
					)
				}

				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "list a user's active experiment assignments")

	return cmd
}

func listUserExperiments(ctx context.Context, cmd *cobra.Command, e *engine.Engine, userID string) error {
	entries, err := e.ActiveExperiments(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list user experiments: %w", err)
	}

	if len(entries) == 0 {
		fmt.Printf("User '%s' has no active experiment assignments.\n", userID)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EXPERIMENT\tNAME\tVARIANT\tASSIGNED")

	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entry.Experiment.ID,
			entry.Experiment.Name,
			entry.Assignment.VariantID,
			entry.Assignment.AssignedAt.Format("2006-01-02"),
		)
	}

	return w.Flush()
}
