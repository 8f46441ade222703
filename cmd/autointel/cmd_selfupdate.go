// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/AutoIntelAI/AutoIntel/pkg/logging"
	"github.com/AutoIntelAI/AutoIntel/services/llm"
	"github.com/AutoIntelAI/AutoIntel/services/selfupdate"
)

var (
	updateInstruction string
	updateTimeout     time.Duration

	selfUpdateCmd = &cobra.Command{
		Use:   "self-update [artifact]",
		Short: "Runs one self-update attempt against the configured artifact",
		Long: `Backs up the artifact, sends it to the oracle for an enhanced rewrite,
and atomically replaces it with the result. On any failure after the
backup the artifact is restored from the snapshot.

Exit codes: 0 the artifact was updated, 2 the run failed and the
artifact was rolled back, 3 the run failed and the artifact may be in
an unknown state (inspect the backup directory).`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			code := runSelfUpdate(args)
			memguard.Purge()
			os.Exit(code)
		},
	}
)

func init() {
	selfUpdateCmd.Flags().StringVarP(&updateInstruction, "instruction", "i", "", "Rewrite instruction sent to the oracle (default: built-in enhancement prompt)")
	selfUpdateCmd.Flags().DurationVarP(&updateTimeout, "timeout", "t", 0, "Oracle round-trip timeout (default: oracle.timeout_seconds from config)")
	rootCmd.AddCommand(selfUpdateCmd)
}

// runSelfUpdate executes one update attempt and returns the process exit
// code. All side effects happen after the credential check and under the
// artifact lock.
func runSelfUpdate(args []string) int {
	artifactPath := config.Artifact.Path
	if len(args) > 0 {
		artifactPath = args[0]
	}
	if artifactPath == "" {
		fmt.Fprintln(os.Stderr, "Error: no artifact configured; pass one as an argument or set artifact.path in config.yaml")
		return exitUsage
	}

	logger := logging.New(logging.Config{
		Level:   parseLogLevel(config.Logging.Level),
		LogDir:  config.Logging.Dir,
		Service: "autointel",
		JSON:    config.Logging.JSON,
	})
	defer logger.Close()
	log := logger.Slog()

	// Resolve the credential before any side effect: a missing key is a
	// precondition failure with the artifact and backup directory untouched.
	oracle, err := buildOracle()
	if err != nil {
		log.Error("oracle setup failed", "backend", config.Oracle.Backend, "error", err)
		fmt.Fprintf(os.Stderr, "Update failed before any side effect: %v\n", err)
		return exitUnrecoverable
	}

	lock, err := acquireUpdateLock(artifactPath, 5*time.Second)
	if err != nil {
		log.Error("another update is already running", "error", err)
		return exitUsage
	}
	defer lock.Release()

	store := selfupdate.NewFileSnapshotStore(selfupdate.SnapshotConfig{
		BackupDir: config.Artifact.BackupDir,
	})

	pipeline, err := selfupdate.NewPipeline(selfupdate.Config{
		ArtifactPath: artifactPath,
		Instruction:  updateInstruction,
		Store:        store,
		Oracle:       oracle,
		Logger:       log,
	})
	if err != nil {
		log.Error("pipeline setup failed", "error", err)
		return exitUsage
	}

	timeout := updateTimeout
	if timeout <= 0 {
		timeout = config.oracleTimeout()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := pipeline.Run(ctx, updateInstruction)

	switch result.State {
	case selfupdate.StateWritten:
		fmt.Printf("Updated %s (attempt %s, %s)\n", artifactPath, result.AttemptID, result.Duration.Round(time.Millisecond))
		fmt.Printf("Snapshot kept at %s\n", result.Snapshot.Path)
		return exitSuccess

	case selfupdate.StateRolledBack:
		fmt.Fprintf(os.Stderr, "Update failed, artifact restored from %s\n", result.Snapshot.Path)
		fmt.Fprintf(os.Stderr, "Cause: %v\n", result.Err)
		return exitRolledBack

	default:
		fmt.Fprintf(os.Stderr, "Update failed and the artifact was NOT restored: %v\n", result.Err)
		if result.Snapshot.Path != "" {
			fmt.Fprintf(os.Stderr, "Recover manually from %s\n", result.Snapshot.Path)
		} else {
			fmt.Fprintf(os.Stderr, "Inspect %s for earlier snapshots\n", config.Artifact.BackupDir)
		}
		return exitUnrecoverable
	}
}

// buildOracle constructs the configured oracle backend. For the OpenAI
// backend the API key is resolved first and only exposed long enough to
// initialize the client.
func buildOracle() (llm.OracleClient, error) {
	switch config.Oracle.Backend {
	case "openai":
		cred, err := resolveOracleCredential(config.Oracle.APIKeyFile)
		if err != nil {
			return nil, err
		}
		var oracle llm.OracleClient
		err = cred.Expose(func(key string) error {
			// The key string aliases the locked buffer and is wiped when
			// Expose returns; the client needs its own copy.
			client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
				APIKey:  strings.Clone(key),
				Model:   config.Oracle.Model,
				BaseURL: config.Oracle.BaseURL,
			})
			if err != nil {
				return err
			}
			oracle = client
			return nil
		})
		if err != nil {
			return nil, err
		}
		return oracle, nil

	case "ollama":
		return llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: config.Oracle.BaseURL,
			Model:   config.Oracle.Model,
		})

	default:
		return nil, fmt.Errorf("unknown oracle backend %q (want openai or ollama)", config.Oracle.Backend)
	}
}

// parseLogLevel maps a config string to a logging level, defaulting to
// Info on unknown values.
func parseLogLevel(level string) logging.Level {
	switch level {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
