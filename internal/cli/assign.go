package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/store"
)

func init() {
	rootCmd.AddCommand(newAssignCmd())
}

func newAssignCmd() *cobra.Command {
	var ctxPairs []string

	cmd := &cobra.Command{
		Use:   "assign <experiment> <user>",
		Short: "Assign a user to an experiment variant",
		Long: `Assign a user to a variant of an active experiment. The call is
idempotent: repeating it returns the existing assignment unchanged.

User context attributes for targeting are given as key=value pairs.

Examples:
  splitkit assign checkout-cta user-42
  splitkit assign onboarding user-42 --ctx country=US --ctx subscription=free`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			experimentID, userID := args[0], args[1]

			userCtx, err := parseContext(ctxPairs)
			if err != nil {
				return err
			}

			return withEngine(func(e *engine.Engine, _ *store.SQLiteStore) error {
				assignment, err := e.Assign(context.Background(), userID, experimentID, userCtx)
				if err != nil {
					return err
				}

				fmt.Printf("User '%s' is in variant '%s' of experiment '%s' (assigned %s)\n",
					assignment.UserID,
					assignment.VariantID,
					assignment.ExperimentID,
					assignment.AssignedAt.Format("2006-01-02 15:04:05"),
				)

				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&ctxPairs, "ctx", nil, "user context attribute key=value (repeatable)")

	return cmd
}

func parseContext(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	userCtx := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid context attribute %q: want key=value", pair)
		}
		userCtx[key] = value
	}

	return userCtx, nil
}
