// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package selfupdate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SnapshotStore defines the interface for artifact backup operations.
//
// # Description
//
// SnapshotStore creates timestamped copies of the artifact before an update
// attempt mutates it, and restores them if the attempt fails. Snapshots are
// retained indefinitely; there is no pruning policy.
//
// # Thread Safety
//
// Implementations are used from a single update run at a time. Concurrent
// snapshot creation for the same artifact requires external exclusion.
type SnapshotStore interface {
	// Create copies the artifact at path into the backup directory and
	// returns the snapshot's path.
	Create(path string) (Snapshot, error)

	// Restore copies the snapshot's content back onto path, fully
	// overwriting existing content. Restoring the same snapshot twice
	// is safe and yields identical content both times.
	Restore(snap Snapshot, path string) error

	// List returns all snapshots for an artifact path, newest first.
	List(path string) ([]Snapshot, error)
}

// Snapshot identifies one immutable backup copy of the artifact.
type Snapshot struct {
	// Path is the full path to the backup file.
	Path string

	// CreatedAt is the creation time parsed from the backup name.
	CreatedAt time.Time

	// Size is the backup size in bytes.
	Size int64
}

// SnapshotConfig configures backup naming and location.
type SnapshotConfig struct {
	// BackupDir is the directory holding backup files.
	// Created with 0750 permissions if absent.
	// Default: "backups"
	BackupDir string

	// TimeFormat encodes the snapshot timestamp. The default encodes
	// calendar date plus time of day to second precision, so names sort
	// consistently with creation order for the same artifact.
	// Default: "20060102_150405"
	TimeFormat string

	// Now supplies the current time. Overridable for tests.
	Now func() time.Time
}

// backupExt is the suffix shared by every snapshot file.
const backupExt = ".bak"

// FileSnapshotStore implements SnapshotStore on the local filesystem.
//
// # Description
//
// Backups are named "{artifact_basename}.{timestamp}.bak" inside the backup
// directory. Two snapshots of the same artifact within the same second
// collide on the same name; the later one wins. This is an accepted edge
// case of the second-resolution encoding, not corrected here.
//
// # Limitations
//
//   - Files only; the artifact is a single source file, not a tree.
//   - Backup directory should be on the same filesystem as the artifact
//     so restore latency stays predictable.
type FileSnapshotStore struct {
	config SnapshotConfig
}

// NewFileSnapshotStore creates a snapshot store with the given configuration.
//
// # Inputs
//
//   - config: Naming and location options. Zero values get defaults.
//
// # Outputs
//
//   - *FileSnapshotStore: Ready-to-use store.
func NewFileSnapshotStore(config SnapshotConfig) *FileSnapshotStore {
	if config.BackupDir == "" {
		config.BackupDir = "backups"
	}
	if config.TimeFormat == "" {
		config.TimeFormat = "20060102_150405"
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &FileSnapshotStore{config: config}
}

// Create copies the artifact at path into the backup directory.
//
// # Description
//
// Reads the artifact and writes a byte-identical copy under the backup
// directory, preserving the source file mode. The backup directory is
// created if absent. Any filesystem error is returned to the caller.
//
// # Inputs
//
//   - path: Artifact to back up. Must exist and be readable.
//
// # Outputs
//
//   - Snapshot: Reference to the created backup.
//   - error: Non-nil if the source is unreadable or the copy failed.
func (s *FileSnapshotStore) Create(path string) (Snapshot, error) {
	src, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("opening artifact %s: %w", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return Snapshot{}, fmt.Errorf("stat artifact %s: %w", path, err)
	}

	if err := os.MkdirAll(s.config.BackupDir, 0750); err != nil {
		return Snapshot{}, fmt.Errorf("creating backup dir %s: %w", s.config.BackupDir, err)
	}

	now := s.config.Now()
	backupPath := filepath.Join(s.config.BackupDir,
		filepath.Base(path)+"."+now.Format(s.config.TimeFormat)+backupExt)

	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return Snapshot{}, fmt.Errorf("creating backup %s: %w", backupPath, err)
	}

	written, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return Snapshot{}, fmt.Errorf("writing backup %s: %w", backupPath, err)
	}
	if err := dst.Close(); err != nil {
		return Snapshot{}, fmt.Errorf("closing backup %s: %w", backupPath, err)
	}

	return Snapshot{Path: backupPath, CreatedAt: now, Size: written}, nil
}

// Restore copies the snapshot's content back onto path.
//
// # Description
//
// Fully overwrites the artifact with the snapshot's bytes using an atomic
// replace, so a crash mid-restore never leaves a truncated artifact. The
// snapshot file itself is left in place, which makes restore idempotent.
//
// # Inputs
//
//   - snap: Snapshot to restore. Its file must still exist.
//   - path: Artifact path to overwrite.
//
// # Outputs
//
//   - error: Non-nil if the copy could not complete. The caller treats
//     this as unrecoverable.
func (s *FileSnapshotStore) Restore(snap Snapshot, path string) error {
	content, err := os.ReadFile(snap.Path)
	if err != nil {
		return fmt.Errorf("reading snapshot %s: %w", snap.Path, err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(snap.Path); err == nil {
		mode = info.Mode()
	}

	if err := atomicWrite(path, content, mode); err != nil {
		return fmt.Errorf("restoring %s from %s: %w", path, snap.Path, err)
	}
	return nil
}

// List returns all snapshots for an artifact path, newest first.
//
// # Description
//
// Scans the backup directory for names matching the artifact's basename and
// parses the embedded timestamp. Entries whose timestamp cannot be parsed
// are skipped. A missing backup directory yields an empty list, not an
// error.
func (s *FileSnapshotStore) List(path string) ([]Snapshot, error) {
	prefix := filepath.Base(path) + "."

	entries, err := os.ReadDir(s.config.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup dir %s: %w", s.config.BackupDir, err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, backupExt) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), backupExt)
		createdAt, err := time.Parse(s.config.TimeFormat, stamp)
		if err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		snaps = append(snaps, Snapshot{
			Path:      filepath.Join(s.config.BackupDir, name),
			CreatedAt: createdAt,
			Size:      info.Size(),
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})

	return snaps, nil
}

// Compile-time interface check
var _ SnapshotStore = (*FileSnapshotStore)(nil)
