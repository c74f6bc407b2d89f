package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neomorfeo/dealflow/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Path != "dealflow.db" {
		t.Errorf("Database.Path = %q, want dealflow.db", cfg.Database.Path)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
	if cfg.Telemetry.ServiceName != "dealflow" || cfg.Telemetry.Exporter != "none" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
	if cfg.Pipeline.StagesFile != "" {
		t.Errorf("Pipeline.StagesFile = %q, want empty", cfg.Pipeline.StagesFile)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEALFLOW_SERVER_PORT", "9090")
	t.Setenv("DEALFLOW_DATABASE_PATH", "/tmp/pipeline.db")
	t.Setenv("DEALFLOW_LOG_LEVEL", "debug")
	t.Setenv("DEALFLOW_TELEMETRY_EXPORTER", "stdout")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Addr() != ":9090" {
		t.Errorf("Addr() = %q, want :9090", cfg.Server.Addr())
	}
	if cfg.Database.Path != "/tmp/pipeline.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Telemetry.Exporter != "stdout" {
		t.Errorf("Telemetry.Exporter = %q, want stdout", cfg.Telemetry.Exporter)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealflow.yaml")
	content := `
server:
  port: 7070
log:
  format: console
pipeline:
  stages_file: stages.yaml
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Log.Format = %q, want console", cfg.Log.Format)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want default info", cfg.Log.Level)
	}
	if cfg.Pipeline.StagesFile != "stages.yaml" {
		t.Errorf("Pipeline.StagesFile = %q", cfg.Pipeline.StagesFile)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad exporter", "DEALFLOW_TELEMETRY_EXPORTER", "zipkin"},
		{"bad port", "DEALFLOW_SERVER_PORT", "70000"},
		{"sample ratio above one", "DEALFLOW_TELEMETRY_SAMPLE_RATIO", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(""); err == nil {
				t.Errorf("expected validation error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestParseStages(t *testing.T) {
	data := []byte(`
stages:
  - name: Discovery
    color: "#111111"
    win_probability: 20
    rotting_days: 10
  - name: Closing
    win_probability: 80
  - name: Won
    is_won: true
  - name: Lost
    is_lost: true
`)

	stages, err := ParseStages(data)
	if err != nil {
		t.Fatalf("ParseStages() error = %v", err)
	}
	if len(stages) != 4 {
		t.Fatalf("got %d stages, want 4", len(stages))
	}
	if stages[0].Name != "Discovery" || stages[0].RottingDays != 10 || stages[0].Color != "#111111" {
		t.Errorf("stages[0] = %+v", stages[0])
	}
	if !stages[2].IsWon || !stages[3].IsLost {
		t.Error("terminal flags not decoded")
	}
}

func TestParseStages_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", `stages: []`},
		{"blank name", "stages:\n  - name: \"\"\n"},
		{"probability", "stages:\n  - name: A\n    win_probability: 101\n"},
		{"syntax", "stages: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseStages([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadStages_EmptyIsConfigurationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	if err := os.WriteFile(path, []byte("stages: []\n"), 0o600); err != nil {
		t.Fatalf("writing stages: %v", err)
	}

	_, err := LoadStages(path)
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}
