// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AutoIntelAI/AutoIntel/pkg/logging"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
artifact:
  path: app.py
  backup_dir: /var/lib/autointel/backups
oracle:
  backend: ollama
  model: gpt-oss
  base_url: http://localhost:11434
  timeout_seconds: 300
logging:
  dir: ~/.autointel/logs
  level: debug
  json: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Artifact.Path != "app.py" {
		t.Errorf("Artifact.Path = %q", cfg.Artifact.Path)
	}
	if cfg.Artifact.BackupDir != "/var/lib/autointel/backups" {
		t.Errorf("Artifact.BackupDir = %q", cfg.Artifact.BackupDir)
	}
	if cfg.Oracle.Backend != "ollama" {
		t.Errorf("Oracle.Backend = %q", cfg.Oracle.Backend)
	}
	if cfg.oracleTimeout() != 300*time.Second {
		t.Errorf("oracleTimeout() = %v, want 300s", cfg.oracleTimeout())
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("loadConfig() error = %v, want defaults for a missing file", err)
	}

	if cfg.Artifact.BackupDir != "backups" {
		t.Errorf("BackupDir = %q, want default backups", cfg.Artifact.BackupDir)
	}
	if cfg.Oracle.Backend != "openai" {
		t.Errorf("Backend = %q, want default openai", cfg.Oracle.Backend)
	}
	if cfg.oracleTimeout() != 120*time.Second {
		t.Errorf("oracleTimeout() = %v, want default 120s", cfg.oracleTimeout())
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("artifact:\n  path: service.py\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Artifact.Path != "service.py" {
		t.Errorf("Artifact.Path = %q", cfg.Artifact.Path)
	}
	if cfg.Oracle.Backend != "openai" || cfg.Oracle.TimeoutSeconds != 120 {
		t.Errorf("defaults not applied: %+v", cfg.Oracle)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("artifact: [unclosed"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected parse error for invalid YAML")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logging.Level
	}{
		{"debug", logging.LevelDebug},
		{"info", logging.LevelInfo},
		{"warn", logging.LevelWarn},
		{"error", logging.LevelError},
		{"", logging.LevelInfo},
		{"bogus", logging.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildOracle_UnknownBackend(t *testing.T) {
	saved := config
	defer func() { config = saved }()

	config.Oracle.Backend = "carrier-pigeon"
	if _, err := buildOracle(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestBuildOracle_OpenAIMissingCredential(t *testing.T) {
	t.Setenv(EnvOracleAPIKey, "")
	saved := config
	defer func() { config = saved }()

	config.Oracle.Backend = "openai"
	config.Oracle.APIKeyFile = ""
	if _, err := buildOracle(); err == nil {
		t.Fatal("expected error when no credential is available")
	}
}

func TestBuildOracle_Ollama(t *testing.T) {
	saved := config
	defer func() { config = saved }()

	config.Oracle.Backend = "ollama"
	config.Oracle.BaseURL = "http://localhost:11434"
	config.Oracle.Model = "gpt-oss"

	oracle, err := buildOracle()
	if err != nil {
		t.Fatalf("buildOracle() error = %v", err)
	}
	if oracle == nil {
		t.Fatal("buildOracle() returned nil oracle")
	}
}
