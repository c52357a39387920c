package config

import (
	"log/slog"
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"MARKERSET_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("MARKERSET_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MARKERSET_DB", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != "text" || cfg.Output != "text" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DB != "" {
		t.Fatalf("expected empty DB, got %q", cfg.DB)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MARKERSET_DB", "/tmp/sessions.db")
	t.Setenv("MARKERSET_LOG_LEVEL", "debug")
	t.Setenv("MARKERSET_LOG_FORMAT", "json")
	t.Setenv("MARKERSET_OUTPUT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Config{DB: "/tmp/sessions.db", LogLevel: "debug", LogFormat: "json", Output: "json"}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"MARKERSET_LOG_LEVEL":  "loud",
		"MARKERSET_LOG_FORMAT": "xml",
		"MARKERSET_OUTPUT":     "yaml",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
