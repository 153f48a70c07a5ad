package main

import (
	"fmt"
	"os"

	"github.com/ghantakiran/axion-stock-sub001/internal/config"
	"github.com/ghantakiran/axion-stock-sub001/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	debug    bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "regime",
	Short: "regime - market regime classification engine",
	Long: `regime classifies return series into market regimes (crisis, bear,
sideways, bull) with a Gaussian HMM, clustering and a rule detector,
blends the methods into a consensus and forecasts regime transitions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// setup loads and validates configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	opts := logger.Options{Development: cfg.Log.Development || debug, Level: cfg.Log.Level}
	if logLevel != "" {
		opts.Level = logLevel
	}
	if debug && logLevel == "" {
		opts.Level = "debug"
	}
	log, err := logger.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
