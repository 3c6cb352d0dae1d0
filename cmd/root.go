// Package cmd defines the tallybridge CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/autotally/tallybridge/internal/config"
)

// cfgFile is the path to the configuration file, overridable with --config.
var cfgFile string

// verbose switches logging to debug level.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tallybridge",
	Short: "Convert invoice spreadsheets into Tally Prime import vouchers",
	Long: `tallybridge ingests invoice rows from spreadsheet exports, groups them
into GST vouchers, creates any missing ledger masters, and produces the
Tally Prime import envelope — optionally pushing it straight to a running
Tally instance.

Example usage:
  tallybridge convert invoices.xlsx            # write the import XML to disk
  tallybridge push invoices.xlsx               # push straight to Tally
  tallybridge push --sales invoices.xlsx       # treat rows as sales vouchers
  tallybridge ledgers                          # list ledgers Tally knows about
  tallybridge serve                            # expose the pipeline over HTTP`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultPath,
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// loadConfig reads the configuration selected by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildLogger constructs the CLI logger honoring --verbose and the
// configured log level.
func buildLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Sugar(), nil
}
