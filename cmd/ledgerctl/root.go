package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"milkledger/internal/backend"
	"milkledger/internal/cli"
	"milkledger/internal/config"
	"milkledger/internal/log"
)

var (
	cfgFile string
	verbose bool

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Manage the milk collection ledger from the command line",
	Long: `ledgerctl adds, lists, edits and deletes milk purchase records and
prints reports, using the same storage and notification settings as the
milkledger server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		cfg, err := config.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		cli.SetupLogger(level, log.ComponentCLI)
		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "milkledger.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log ledger operations")
}

// openLedger builds the configured backend. Callers must Close the result.
func openLedger(ctx context.Context) (*backend.Result, error) {
	bcfg, err := backend.FromAppConfig(appConfig)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(log.FromContext(ctx).WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	return res, nil
}
