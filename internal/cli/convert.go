package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/store"
)

func init() {
	rootCmd.AddCommand(newConvertCmd())
}

func newConvertCmd() *cobra.Command {
	var value float64

	cmd := &cobra.Command{
		Use:   "convert <experiment> <user> <event>",
		Short: "Record a conversion event",
		Long: `Record a conversion event against a user's existing assignment. Fails
if the user was never assigned to the experiment.

Examples:
  splitkit convert checkout-cta user-42 purchase
  splitkit convert checkout-cta user-42 purchase --value 29.99`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			experimentID, userID, eventName := args[0], args[1], args[2]

			var valuePtr *float64
			if cmd.Flags().Changed("value") {
				valuePtr = &value
			}

			return withEngine(func(e *engine.Engine, _ *store.SQLiteStore) error {
				if err := e.RecordConversion(context.Background(), userID, experimentID, eventName, valuePtr); err != nil {
					return err
				}

				if valuePtr != nil {
					fmt.Printf("Recorded '%s' (%.2f) for user '%s' in experiment '%s'\n", eventName, *valuePtr, userID, experimentID)
				} else {
					fmt.Printf("Recorded '%s' for user '%s' in experiment '%s'\n", eventName, userID, experimentID)
				}

				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&value, "value", 0, "numeric value carried by the event (optional)")

	return cmd
}
