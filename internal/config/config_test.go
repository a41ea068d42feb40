package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Pipeline.MaxItemsPerRun != 50 || cfg.Pipeline.MinBloomScore != 3 {
		t.Fatalf("pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Dedup.SimilarityThreshold != 0.6 || cfg.Dedup.Window() != 48*time.Hour {
		t.Fatalf("dedup defaults: %+v", cfg.Dedup)
	}
	if cfg.Oracle.ChunkSize != 10 || cfg.Oracle.ChunkDelay() != 1500*time.Millisecond {
		t.Fatalf("oracle defaults: %+v", cfg.Oracle)
	}
	if len(cfg.Sources) == 0 {
		t.Fatal("at least one default source expected")
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw := `
pipeline:
  minBloomScore: 4
dedup:
  windowHours: 72
oracle:
  model: gemini-test
sources:
  - name: wire
    adapter: newsapi
    feeds:
      - name: top
        url: https://api.example.com/top
    options:
      api_key: from-file
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env-dsn")
	t.Setenv(geminiAPIKeyEnv, "env-key")
	t.Setenv(geminiModelEnv, "")

	cfg := Load()

	if cfg.Pipeline.MinBloomScore != 4 {
		t.Fatalf("file override lost: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.MaxItemsPerRun != 50 {
		t.Fatalf("unset file values must keep defaults: %+v", cfg.Pipeline)
	}
	if cfg.Dedup.WindowHours != 72 {
		t.Fatalf("dedup override lost: %+v", cfg.Dedup)
	}
	if cfg.Oracle.Model != "gemini-test" {
		t.Fatalf("oracle model = %q", cfg.Oracle.Model)
	}
	if cfg.Database.DSN != "postgres://env-dsn" {
		t.Fatalf("env DSN override lost: %q", cfg.Database.DSN)
	}
	if cfg.Oracle.APIKey != "env-key" {
		t.Fatalf("env API key override lost")
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Options["api_key"] != "from-file" {
		t.Fatalf("file sources lost: %+v", cfg.Sources)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "/nonexistent/config.yaml")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(geminiAPIKeyEnv, "")
	t.Setenv(geminiModelEnv, "")

	cfg := Load()
	if cfg.Pipeline.MinBloomScore != 3 {
		t.Fatalf("defaults expected, got %+v", cfg.Pipeline)
	}
}
