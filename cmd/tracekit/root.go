package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sanonone/tracekit/internal/logging"
	"github.com/sanonone/tracekit/internal/server"
	"github.com/sanonone/tracekit/pkg/engine"
)

var (
	configPath string
	dataDir    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tracekit",
	Short: "tracekit - persistent graph documents with streaming trace updates",
	Long: `tracekit keeps chart documents (ordered lists of traces) on disk and
applies add, delete, move, extend and prepend operations to them, with
windowed streaming, undo and redo. Documents are served over a REST API or as
Model Context Protocol tools.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("tracekit version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides the configuration file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig resolves the configuration file and applies the global flags.
func loadConfig() (server.Config, error) {
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return server.Config{}, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// openEngine opens the engine described by cfg, logging to w.
func openEngine(cfg server.Config, w io.Writer) (*engine.Engine, *slog.Logger, error) {
	logger := logging.New(cfg.Log, w)
	slog.SetDefault(logger)
	opts := cfg.EngineOptions()
	opts.Logger = logger
	eng, err := engine.Open(opts)
	if err != nil {
		return nil, nil, err
	}
	return eng, logger, nil
}
