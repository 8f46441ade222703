// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLockHeld is returned when another update run holds the artifact lock.
var ErrLockHeld = errors.New("update lock held by another process")

// staleLockAge is how old a lock file must be before it is considered
// abandoned by a dead process and removed.
const staleLockAge = 10 * time.Minute

// updateLock is an exclusive advisory lock scoped to one artifact. The
// pipeline is not safe for concurrent runs against the same artifact, so
// the CLI takes this lock before any side effect.
type updateLock struct {
	path string
	file *os.File
}

// lockPath returns the lock file location for an artifact.
func lockPath(artifactPath string) string {
	return artifactPath + ".lock"
}

// acquireUpdateLock takes the exclusive lock for an artifact, retrying
// until timeout. Stale locks left by dead processes are broken.
func acquireUpdateLock(artifactPath string, timeout time.Duration) (*updateLock, error) {
	path := lockPath(artifactPath)
	deadline := time.Now().Add(timeout)

	for {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			// Write PID for debugging
			fmt.Fprintf(file, "%d\n", os.Getpid())
			return &updateLock{path: path, file: file}, nil
		}

		// Check if the existing lock is stale (process died)
		if info, statErr := os.Stat(path); statErr == nil {
			if time.Since(info.ModTime()) > staleLockAge {
				os.Remove(path)
				continue
			}
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: could not acquire %s within %v", ErrLockHeld, path, timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Release releases the lock and removes the lock file.
func (l *updateLock) Release() {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	os.Remove(l.path)
}
