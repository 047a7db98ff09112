package migration

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds migration pipeline settings.
type Config struct {
	BatchSize       int    `yaml:"batch_size"        env:"MIGRATION_BATCH_SIZE"        env-default:"200"`
	Concurrency     int    `yaml:"concurrency"       env:"MIGRATION_CONCURRENCY"       env-default:"4"`
	ErrorSampleSize int    `yaml:"error_sample_size" env:"MIGRATION_ERROR_SAMPLE_SIZE" env-default:"25"`
	DefaultRegion   string `yaml:"default_region"    env:"MIGRATION_DEFAULT_REGION"    env-default:"Greater Cairo"`
	CodePrefix      string `yaml:"code_prefix"       env:"MIGRATION_CODE_PREFIX"       env-default:"PROP"`
	SampleJoinLimit int    `yaml:"sample_join_limit" env:"MIGRATION_SAMPLE_JOIN_LIMIT" env-default:"50"`
	DryRun          bool   `yaml:"dry_run"           env:"MIGRATION_DRY_RUN"`
}

// LoadConfig reads migration configuration from a YAML file and environment
// variables. Priority: ENV > YAML > defaults (via env-default tags).
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("migration config: read %s: %w", path, err)
			}
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("migration config: file %s not found", path)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("migration config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings that would wedge the run. A zero concurrency
// deadlocks the batch scheduler and a zero batch size makes the window
// loop never advance, so both must be at least 1.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("migration config: batch_size must be >= 1, got %d", c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("migration config: concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.ErrorSampleSize < 0 {
		return fmt.Errorf("migration config: error_sample_size must be >= 0, got %d", c.ErrorSampleSize)
	}
	if c.SampleJoinLimit < 1 {
		return fmt.Errorf("migration config: sample_join_limit must be >= 1, got %d", c.SampleJoinLimit)
	}
	return nil
}
