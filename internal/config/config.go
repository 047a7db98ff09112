package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Source   SourceConfig   `yaml:"source"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// SourceConfig holds settings for the document-store read API.
type SourceConfig struct {
	BaseURL        string        `yaml:"base_url"        env:"SOURCE_BASE_URL"        env-required:"true"`
	APIKey         string        `yaml:"api_key"         env:"SOURCE_API_KEY"`
	Collection     string        `yaml:"collection"      env:"SOURCE_COLLECTION"      env-default:"properties"`
	PageSize       int           `yaml:"page_size"       env:"SOURCE_PAGE_SIZE"       env-default:"100"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SOURCE_REQUEST_TIMEOUT" env-default:"15s"`
	MaxRetries     int           `yaml:"max_retries"     env:"SOURCE_MAX_RETRIES"     env-default:"3"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
