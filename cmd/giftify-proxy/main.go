// Command giftify-proxy serves the storefront API proxy with optional demo
// fallback and inspects the built-in mock table.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AnandSundar/go-demoproxy/internal/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	dev     bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "giftify-proxy",
	Short: "Giftify storefront API proxy with demo-mode fallback",
	Long: `giftify-proxy forwards storefront API calls to the Giftify backend.

With demo mode on, a backend outage or 5xx answer is replaced by a canned
response from the built-in mock table so a demo keeps working. Client errors
from a live backend are always passed through.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger, err = buildLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func buildLogger(lc config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if dev || lc.Dev {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&dev, "dev", false, "Human-readable development logs")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mockCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
