// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AutoIntelAI/AutoIntel/services/selfupdate"
)

var backupsCmd = &cobra.Command{
	Use:   "backups [artifact]",
	Short: "Lists the snapshots kept for an artifact, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		artifactPath := config.Artifact.Path
		if len(args) > 0 {
			artifactPath = args[0]
		}
		if artifactPath == "" {
			return fmt.Errorf("no artifact configured; pass one as an argument or set artifact.path in config.yaml")
		}

		store := selfupdate.NewFileSnapshotStore(selfupdate.SnapshotConfig{
			BackupDir: config.Artifact.BackupDir,
		})

		snapshots, err := store.List(artifactPath)
		if err != nil {
			return fmt.Errorf("listing snapshots for %s: %w", artifactPath, err)
		}
		if len(snapshots) == 0 {
			fmt.Printf("No snapshots for %s in %s\n", artifactPath, config.Artifact.BackupDir)
			return nil
		}

		fmt.Printf("Snapshots for %s (newest first):\n", artifactPath)
		for _, snap := range snapshots {
			fmt.Printf("  %s  %8d bytes  %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05"), snap.Size, snap.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupsCmd)
}
