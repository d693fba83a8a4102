package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-reporting/internal/config"
	"github.com/telhawk-systems/telhawk-reporting/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "thawk-report",
	Short: "TelHawk interval activity reporting",
	Long: `thawk-report turns raw activity records into periodic interval reports.

For a reporting period (YYYY-MM) it aggregates records into fixed-width
interval buckets, renders the report artifact from a template, stores it
under a per-period folder, and mails it to the configured recipient list.
Preview mode writes the composed mail next to the artifact instead of
sending it.`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./reporting.yaml or $HOME/.thawk/reporting.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}

	logger = logging.New(logging.ParseLevel(level), format)
	logging.SetDefault(logger)
}
