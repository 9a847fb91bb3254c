package cli

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/store"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Update an experiment's status",
		Long: `Update an experiment's status. Valid statuses: draft, active, paused,
completed. Prompts interactively when --set is omitted.

Examples:
  splitkit status checkout-cta --set active
  splitkit status checkout-cta`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			if target == "" {
				selected, err := selectStatus()
				if err != nil {
					return err
				}
				target = selected
			}

			status := store.ExperimentStatus(target)
			switch status {
			case store.StatusDraft, store.StatusActive, store.StatusPaused, store.StatusCompleted:
			default:
				return fmt.Errorf("invalid status %q: want draft, active, paused or completed", target)
			}

			return withEngine(func(e *engine.Engine, _ *store.SQLiteStore) error {
				if err := e.UpdateStatus(context.Background(), id, status); err != nil {
					return err
				}

				fmt.Printf("Experiment '%s' is now %s.\n", id, status)
				if status == store.StatusActive {
					fmt.Println("Variant order is frozen while the experiment is live; reordering variants moves users at bucket boundaries.")
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&target, "set", "s", "", "new status (prompts when omitted)")

	return cmd
}

func selectStatus() (string, error) {
	prompt := promptui.Select{
		Label: "New status",
		Items: []string{
			string(store.StatusDraft),
			string(store.StatusActive),
			string(store.StatusPaused),
			string(store.StatusCompleted),
		},
	}

	_, choice, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			return "", fmt.Errorf("cancelled")
		}
		return "", err
	}

	return choice, nil
}
