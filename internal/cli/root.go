package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/web3-frozen/yield-engine/internal/config"
	"github.com/web3-frozen/yield-engine/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	svc      *services
)

var rootCmd = &cobra.Command{
	Use:           "yield-engine",
	Short:         "Aggregate DeFi yields and answer best-yield queries",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if svc != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		svc = newServices(cfg, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if svc != nil {
			svc.Close()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(yieldsCmd)
	rootCmd.AddCommand(versionCmd)
}

func getServices() *services {
	if svc == nil {
		panic("services not initialized; PersistentPreRunE not executed")
	}
	return svc
}
