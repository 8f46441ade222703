// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package selfupdate

import (
	"errors"
	"fmt"
)

// Sentinel errors for update pipeline failures.
//
// Callers classify a Result's error with errors.Is against these values.
var (
	// ErrPrecondition indicates the run could not start: the artifact is
	// missing or unreadable, or a required dependency was not supplied.
	// Detected before any snapshot is taken; nothing was mutated.
	ErrPrecondition = errors.New("precondition failed")

	// ErrSnapshot indicates backup creation failed. The run is unrecoverable
	// because proceeding without a verified backup is unsafe.
	ErrSnapshot = errors.New("snapshot creation failed")

	// ErrOracle indicates the rewrite oracle did not produce replacement
	// content. Network failures, auth rejection, rate limits, timeouts, and
	// malformed responses all surface as this one kind.
	ErrOracle = errors.New("oracle request failed")

	// ErrValidation indicates the optional validation hook rejected the
	// oracle's replacement content before it was written.
	ErrValidation = errors.New("replacement content rejected")

	// ErrWrite indicates the new content could not be written to the live
	// artifact path.
	ErrWrite = errors.New("artifact write failed")

	// ErrRestore indicates the rollback's own restore failed. The artifact
	// may be in an unknown state; the backup directory must be inspected.
	ErrRestore = errors.New("snapshot restore failed")
)

// UnrecoverableError reports a run that failed and could not be rolled back.
//
// # Description
//
// Carries both the original failure and the error from the failed restore,
// so operators see the full picture instead of only the last error.
type UnrecoverableError struct {
	// Cause is the failure that triggered the rollback.
	Cause error

	// RestoreErr is the error from the restore attempt.
	RestoreErr error
}

// Error returns a human-readable message covering both failures.
func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("update failed (%v) and rollback failed (%v); inspect the backup directory manually", e.Cause, e.RestoreErr)
}

// Unwrap exposes both underlying errors to errors.Is and errors.As.
func (e *UnrecoverableError) Unwrap() []error {
	return []error{e.Cause, e.RestoreErr}
}
