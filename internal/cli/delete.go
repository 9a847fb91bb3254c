package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/store"
)

func init() {
	rootCmd.AddCommand(newDeleteCmd())
}

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an experiment and all its data",
		Long: `Delete an experiment along with its assignments and conversion events.
This cannot be undone. Prompts for confirmation unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			if !yes {
				confirmed, err := confirmDelete(id)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Println("Aborted.")
					return nil
				}
			}

			return withEngine(func(e *engine.Engine, _ *store.SQLiteStore) error {
				if err := e.DeleteExperiment(context.Background(), id); err != nil {
					return err
				}

				fmt.Printf("Deleted experiment '%s' and all its data.\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")

	return cmd
}

func confirmDelete(id string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Delete experiment '%s' and all its data? (y/N)", id),
		AllowEdit: true,
	}

	answer, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			return false, nil
		}
		return false, err
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
