// Package config loads environment-driven settings for both binaries.
// Variables are prefixed ACCIDENTS, e.g. ACCIDENTS_BASE_URL.
package config

import (
	"github.com/kelseyhightower/envconfig"

	"accident-pipeline/internal/model"
)

// Config holds the runtime configuration shared by the batch runner and the
// API server.
type Config struct {
	BaseURL            string `envconfig:"BASE_URL" default:"https://data.transportation.gov/resource/85tf-25kj.json"`
	PageSize           int    `envconfig:"PAGE_SIZE" default:"1000"`
	StartOffset        int    `envconfig:"START_OFFSET" default:"0"`
	OutputFile         string `envconfig:"OUTPUT_FILE" default:"data/accidents_last10y.csv"`
	CausesFile         string `envconfig:"CAUSES_FILE"`
	LookbackDays       int    `envconfig:"LOOKBACK_DAYS" default:"3650"`
	AllowPartialExport bool   `envconfig:"ALLOW_PARTIAL_EXPORT" default:"false"`
	DatabasePath       string `envconfig:"DATABASE_PATH" default:"runs.db"`
	ListenAddr         string `envconfig:"LISTEN_ADDR" default:":8080"`
	OutputDir          string `envconfig:"OUTPUT_DIR" default:"exports"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("accidents", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// JobSpec derives the default export job from the configuration.
func (c *Config) JobSpec() model.ExportJobSpec {
	return model.ExportJobSpec{
		BaseURL:            c.BaseURL,
		PageSize:           c.PageSize,
		StartOffset:        c.StartOffset,
		OutputFile:         c.OutputFile,
		LookbackDays:       c.LookbackDays,
		CausesFile:         c.CausesFile,
		AllowPartialExport: c.AllowPartialExport,
	}
}
