// Package server implements the tracekit HTTP API on top of the engine.
//
// This file defines the YAML configuration shared by the server and the CLI.
package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanonone/tracekit/internal/logging"
	"github.com/sanonone/tracekit/pkg/engine"
)

// Config is the top-level configuration file.
type Config struct {
	HTTPAddr  string `yaml:"http_addr"`
	AuthToken string `yaml:"auth_token"`

	DataDir              string        `yaml:"data_dir"`
	AofFilename          string        `yaml:"aof_filename"`
	AutoSaveInterval     time.Duration `yaml:"autosave_interval"`
	AutoSaveThreshold    int64         `yaml:"autosave_threshold"`
	AofRewritePercentage int           `yaml:"aof_rewrite_percentage"`
	HistoryDepth         int           `yaml:"history_depth"`
	SyncWrites           bool          `yaml:"sync_writes"`

	Log logging.Config `yaml:"log"`
}

// DefaultConfig mirrors engine.DefaultOptions and listens on :9091.
func DefaultConfig() Config {
	opts := engine.DefaultOptions("./data")
	return Config{
		HTTPAddr:             ":9091",
		DataDir:              opts.DataDir,
		AofFilename:          opts.AofFilename,
		AutoSaveInterval:     opts.AutoSaveInterval,
		AutoSaveThreshold:    opts.AutoSaveThreshold,
		AofRewritePercentage: opts.AofRewritePercentage,
		HistoryDepth:         opts.HistoryDepth,
		Log:                  logging.Config{Level: "info", Format: "text"},
	}
}

// LoadConfig reads path on top of DefaultConfig. Environment variables in the
// file are expanded and unknown keys are rejected. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read configuration file '%s': %w", path, err)
	}

	decoder := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("YAML syntax error in '%s': %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration in '%s': %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.AutoSaveThreshold < 0 {
		errs = append(errs, errors.New("autosave_threshold must not be negative"))
	}
	if c.AofRewritePercentage < 0 {
		errs = append(errs, errors.New("aof_rewrite_percentage must not be negative"))
	}
	if c.HistoryDepth < 0 {
		errs = append(errs, errors.New("history_depth must not be negative"))
	}
	return errors.Join(errs...)
}

// EngineOptions converts the persistence settings.
func (c Config) EngineOptions() engine.Options {
	opts := engine.DefaultOptions(c.DataDir)
	if c.AofFilename != "" {
		opts.AofFilename = c.AofFilename
	}
	opts.AutoSaveInterval = c.AutoSaveInterval
	opts.AutoSaveThreshold = c.AutoSaveThreshold
	opts.AofRewritePercentage = c.AofRewritePercentage
	if c.HistoryDepth > 0 {
		opts.HistoryDepth = c.HistoryDepth
	}
	opts.SyncWrites = c.SyncWrites
	return opts
}
