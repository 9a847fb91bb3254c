package cli

import (
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "splitkit",
	Short: "splitkit - deterministic A/B experiment assignment and analysis",
	Long: `splitkit is a deterministic A/B experiment engine: hash-based user
bucketing, targeting rules, idempotent assignment, conversion tracking and
winner analysis. Single Go binary, embedded SQLite.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}
