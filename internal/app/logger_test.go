package app

import (
	"log/slog"
	"testing"

	"github.com/propflow/migrator/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: " warn ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "info", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "bogus", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerSetsDefault(t *testing.T) {
	logger := NewLogger(config.LogConfig{Level: "debug", Format: "text"})
	if logger == nil {
		t.Fatal("logger should not be nil")
	}
	if slog.Default() != logger {
		t.Error("NewLogger should set the default logger")
	}
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
}
