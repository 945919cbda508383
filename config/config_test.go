package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/semsum/pattern"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mining.K != 100 {
		t.Errorf("expected default k 100, got %d", cfg.Mining.K)
	}
	if cfg.Mining.EpsilonRow != 0.6 || cfg.Mining.EpsilonCol != 0.6 {
		t.Errorf("expected default epsilons 0.6, got %f/%f", cfg.Mining.EpsilonRow, cfg.Mining.EpsilonCol)
	}
	if cfg.Summary.BaseIRI != "http://example.org/" {
		t.Errorf("expected default base IRI http://example.org/, got %s", cfg.Summary.BaseIRI)
	}
	if cfg.Output.Format != "turtle" {
		t.Errorf("expected default format turtle, got %s", cfg.Output.Format)
	}
	if cfg.NATS.URL != "" {
		t.Error("expected NATS disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero k",
			modify:  func(c *Config) { c.Mining.K = 0 },
			wantErr: true,
		},
		{
			name:    "row epsilon too high",
			modify:  func(c *Config) { c.Mining.EpsilonRow = 1.1 },
			wantErr: true,
		},
		{
			name:    "col epsilon too low",
			modify:  func(c *Config) { c.Mining.EpsilonCol = -0.1 },
			wantErr: true,
		},
		{
			name:    "no workers",
			modify:  func(c *Config) { c.Mining.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "unknown format",
			modify:  func(c *Config) { c.Output.Format = "rdfxml" },
			wantErr: true,
		},
		{
			name:    "format alias",
			modify:  func(c *Config) { c.Output.Format = "nt" },
			wantErr: false,
		},
		{
			name:    "publish without url",
			modify:  func(c *Config) { c.NATS.Publish = true },
			wantErr: true,
		},
		{
			name: "archive with url",
			modify: func(c *Config) {
				c.NATS.Archive = true
				c.NATS.URL = "nats://localhost:4222"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWrapsParamsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mining.K = -1

	if err := cfg.Validate(); !errors.Is(err, pattern.ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
mining:
  k: 20
  epsilon_row: 0.3
  miner: ["panda", "-k", "{k}"]
  timeout: 2m
summary:
  base_iri: "https://data.example.com/"
output:
  format: jsonld
  dump_dir: dumps
nats:
  url: "nats://test:4222"
  publish: true
watch:
  debounce: 1s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Mining.K != 20 {
		t.Errorf("expected k 20, got %d", cfg.Mining.K)
	}
	if cfg.Mining.EpsilonRow != 0.3 {
		t.Errorf("expected epsilon_row 0.3, got %f", cfg.Mining.EpsilonRow)
	}
	if cfg.Mining.EpsilonCol != 0.6 {
		t.Errorf("expected epsilon_col to keep default 0.6, got %f", cfg.Mining.EpsilonCol)
	}
	if len(cfg.Mining.Miner) != 3 {
		t.Errorf("expected 3 miner args, got %d", len(cfg.Mining.Miner))
	}
	if cfg.Mining.Timeout != 2*time.Minute {
		t.Errorf("expected timeout 2m, got %v", cfg.Mining.Timeout)
	}
	if cfg.Summary.BaseIRI != "https://data.example.com/" {
		t.Errorf("expected base IRI https://data.example.com/, got %s", cfg.Summary.BaseIRI)
	}
	if cfg.Output.Format != "jsonld" || cfg.Output.DumpDir != "dumps" {
		t.Errorf("unexpected output config %+v", cfg.Output)
	}
	if cfg.NATS.URL != "nats://test:4222" || !cfg.NATS.Publish {
		t.Errorf("unexpected NATS config %+v", cfg.NATS)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}

	params := cfg.Params()
	if params.K != 20 || params.EpsilonRow != 0.3 {
		t.Errorf("unexpected params %+v", params)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Mining: MiningConfig{
			K: 7,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}

	base.Merge(override)

	if base.Mining.K != 7 {
		t.Errorf("expected k 7, got %d", base.Mining.K)
	}
	// Epsilon should remain from base since override didn't set it
	if base.Mining.EpsilonRow != 0.6 {
		t.Errorf("expected epsilon_row to remain default, got %f", base.Mining.EpsilonRow)
	}
	if base.Metrics.Addr != ":9090" {
		t.Errorf("expected metrics addr :9090, got %s", base.Metrics.Addr)
	}

	base.Merge(nil)
	if base.Mining.K != 7 {
		t.Error("merging nil should not change config")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Mining.K = 42

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Mining.K != 42 {
		t.Errorf("expected k 42, got %d", loaded.Mining.K)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoaderLayering(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	nested := filepath.Join(project, "data", "graphs")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), "mining:\n  k: 10\n  workers: 2\n")
	writeFile(t, filepath.Join(project, ProjectConfigFile), "mining:\n  k: 30\noutput:\n  format: nt\n")

	explicit := filepath.Join(t.TempDir(), "run.yaml")
	writeFile(t, explicit, "summary:\n  base_iri: https://run.example/\n")

	l := NewLoader(slog.Default())
	l.homeDir = home
	l.workDir = nested

	cfg, err := l.Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mining.K != 30 {
		t.Errorf("project config should override user config, got k=%d", cfg.Mining.K)
	}
	if cfg.Mining.Workers != 2 {
		t.Errorf("user config should apply, got workers=%d", cfg.Mining.Workers)
	}
	if cfg.Output.Format != "nt" {
		t.Errorf("expected format nt, got %s", cfg.Output.Format)
	}
	if cfg.Summary.BaseIRI != "https://run.example/" {
		t.Errorf("explicit config should apply, got %s", cfg.Summary.BaseIRI)
	}
	if cfg.Mining.EpsilonRow != 0.6 {
		t.Errorf("defaults should survive layering, got %f", cfg.Mining.EpsilonRow)
	}
}

func TestLoaderMissingExplicitFile(t *testing.T) {
	l := NewLoader(nil)
	l.homeDir = t.TempDir()
	l.workDir = t.TempDir()

	if _, err := l.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoaderInvalidResult(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ProjectConfigFile), "output:\n  format: rdfxml\n")

	l := NewLoader(nil)
	l.homeDir = t.TempDir()
	l.workDir = project

	if _, err := l.Load(""); err == nil {
		t.Error("expected validation error")
	}
}

func TestEnsureUserConfig(t *testing.T) {
	l := NewLoader(nil)
	l.homeDir = t.TempDir()

	if err := l.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	path := filepath.Join(l.homeDir, UserConfigDir, UserConfigFile)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("user config not created: %v", err)
	}
	// Second call is a no-op
	if err := l.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() second call error = %v", err)
	}
}
