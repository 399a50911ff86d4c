package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qcviz/internal/config"
	"qcviz/internal/logging"
	"qcviz/internal/session"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "qcviz",
		Short: "Quality-control visualization for oceanographic time series",
		Long: `qcviz runs QARTOD quality-control tests against a time series loaded from a
CSV or NetCDF file and shows which observations pass, are suspect, fail or
could not be evaluated.

Run "qcviz serve" for the browser UI or "qcviz run" for a headless run.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err = logging.New(cfg.Logging, verbose)
			if err != nil {
				return err
			}
			logger.Debug("Configuration loaded", zap.String("path", configPath))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "qcviz.yaml", "Config file (defaults apply when absent)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newSniffCmd())
	root.AddCommand(newConfigCmd())
	return root
}

// defaultVariables returns the configured fallback columns.
func defaultVariables() session.Variables {
	return session.Variables{
		Variable:  cfg.Defaults.Variable,
		Time:      cfg.Defaults.Time,
		Secondary: cfg.Defaults.Secondary,
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
