package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "mcap",
	Short:        "Historical market cap tracker",
	Long:         "Fills gaps in a historical market capitalization dataset from market data APIs, SEC filings and manual research, keeping the best-sourced value for every company and year.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return cfg.Validate(commandMode(cmd))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// commandMode names the top-level subcommand, so "runs list" validates as
// "runs".
func commandMode(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
