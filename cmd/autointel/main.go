// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// The autointel CLI manages the self-modifying update pipeline: it backs up
// a source artifact, asks an oracle for an enhanced rewrite, and replaces
// the artifact, rolling back on failure.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Exit codes convey the terminal state of an update run to the invoking
// scheduler (cron, systemd timer). Anything the scheduler should retry
// blindly exits 2; exit 3 means the artifact needs operator attention.
const (
	exitSuccess       = 0
	exitUsage         = 1
	exitRolledBack    = 2
	exitUnrecoverable = 3
)

// Config is the CLI configuration loaded from config.yaml.
type Config struct {
	Artifact struct {
		// Path is the source file the pipeline manages.
		Path string `yaml:"path"`
		// BackupDir receives timestamped snapshots. Default: "backups"
		BackupDir string `yaml:"backup_dir"`
	} `yaml:"artifact"`

	Oracle struct {
		// Backend selects the oracle implementation: "openai" or "ollama".
		Backend string `yaml:"backend"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
		// APIKeyFile is a fallback credential source when the environment
		// variable is unset. The file holds the bare key.
		APIKeyFile string `yaml:"api_key_file"`
		// TimeoutSeconds bounds one oracle round trip. Default: 120
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"oracle"`

	Logging struct {
		Dir   string `yaml:"dir"`
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`
}

// oracleTimeout returns the configured oracle timeout as a duration.
func (c *Config) oracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

// loadConfig reads and parses a YAML config file, applying defaults. A
// missing file is not an error: the CLI runs on defaults plus flags.
func loadConfig(path string) (Config, error) {
	var config Config
	applyConfigDefaults(&config)

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return config, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&config)
	return config, nil
}

func applyConfigDefaults(config *Config) {
	if config.Artifact.BackupDir == "" {
		config.Artifact.BackupDir = "backups"
	}
	if config.Oracle.Backend == "" {
		config.Oracle.Backend = "openai"
	}
	if config.Oracle.TimeoutSeconds <= 0 {
		config.Oracle.TimeoutSeconds = 120
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

var (
	config     Config
	configPath string

	rootCmd = &cobra.Command{
		Use:   "autointel",
		Short: "A CLI to manage AutoIntel self-modifying updates",
		Long: `AutoIntel rewrites its own source artifacts through an LLM oracle.
Every update is snapshotted first and rolled back automatically if the
rewrite or the write fails.`,
	}
)

func main() {
	// Credential material lives in locked memory; purge it on every exit
	// path, including signals.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		memguard.Purge()
		os.Exit(exitUsage)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the CLI configuration file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		config = loaded
		return nil
	}
}
