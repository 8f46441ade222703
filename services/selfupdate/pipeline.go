// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package selfupdate implements the self-modifying update pipeline: back up
// the running source artifact, obtain a rewritten version from the oracle,
// and replace the artifact, rolling back from the backup on any failure.
package selfupdate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// RunState is the pipeline's position in an update attempt.
//
// Happy path: IDLE -> BACKED_UP -> REWRITTEN -> WRITTEN.
// Escapes: ROLLED_BACK (recovered failure) and FAILED_UNRECOVERABLE.
type RunState string

const (
	// StateIdle is the initial state; no side effects have occurred.
	StateIdle RunState = "IDLE"

	// StateBackedUp means a snapshot of the artifact exists.
	StateBackedUp RunState = "BACKED_UP"

	// StateRewritten means the oracle returned replacement content.
	StateRewritten RunState = "REWRITTEN"

	// StateWritten is terminal success: the artifact holds the new content.
	StateWritten RunState = "WRITTEN"

	// StateRolledBack is terminal recovered failure: the artifact was
	// restored from the snapshot taken at the start of the run.
	StateRolledBack RunState = "ROLLED_BACK"

	// StateFailedUnrecoverable is terminal unrecovered failure. Either no
	// snapshot existed yet, or the restore itself failed.
	StateFailedUnrecoverable RunState = "FAILED_UNRECOVERABLE"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	switch s {
	case StateWritten, StateRolledBack, StateFailedUnrecoverable:
		return true
	}
	return false
}

// Oracle produces replacement content for the artifact.
//
// Implementations issue a single request and return the completion text
// unmodified. All failure modes surface as one error kind; the pipeline
// does not distinguish between them. No retries.
type Oracle interface {
	Enhance(ctx context.Context, instruction, content string) (string, error)
}

// Validator is an optional hook applied to oracle output before the write.
//
// The default pipeline performs no validation: a run that writes garbage
// content is still WRITTEN. Setting a Validator makes a rejection behave
// like any other pre-write failure, triggering rollback.
type Validator interface {
	Validate(content string) error
}

// Config configures a Pipeline.
//
// # Description
//
// All ambient state (artifact path, instruction, collaborators) is passed
// in here explicitly; the pipeline reads no process-wide globals.
type Config struct {
	// ArtifactPath is the mutable source file the pipeline manages.
	ArtifactPath string

	// Instruction is the default rewrite instruction, used when Run is
	// called with an empty override.
	// Default: DefaultInstruction
	Instruction string

	// Store creates and restores snapshots. Must not be nil.
	Store SnapshotStore

	// Oracle produces replacement content. Must not be nil.
	Oracle Oracle

	// Validator optionally checks oracle output before the write.
	// Default: nil (write-then-trust)
	Validator Validator

	// Logger receives run progress. Default: slog.Default()
	Logger *slog.Logger

	// OnTransition is called after every state change, including the
	// transition into a terminal state. Useful for instrumentation.
	OnTransition func(from, to RunState)
}

// DefaultInstruction is the rewrite instruction used when none is supplied.
const DefaultInstruction = "Enhance this program and implement smart self-learning features."

// Result is the structured outcome of one update attempt.
//
// Not persisted beyond the run except via logs.
type Result struct {
	// AttemptID uniquely identifies this run.
	AttemptID string

	// State is the terminal state the run reached.
	State RunState

	// Snapshot references the backup taken for this attempt.
	// Zero-valued if the run failed before BACKED_UP.
	Snapshot Snapshot

	// Err is the failure that ended the run, nil on success. Classify it
	// with errors.Is against the package sentinels.
	Err error

	// RestoreErr is set only when the rollback's own restore failed.
	RestoreErr error

	// Duration is the total run time.
	Duration time.Duration
}

// Pipeline sequences backup, rewrite, and write for one artifact.
//
// # Description
//
// Pipeline is the update orchestrator. Each Run takes exactly one snapshot
// strictly before mutating the artifact, and attempts at most one rollback.
// At the end of any run the artifact holds either the full new content or
// the full pre-attempt content, never a partial write.
//
// # Thread Safety
//
// Pipeline is NOT safe for concurrent runs against the same artifact.
// The invoking scheduler must guarantee non-overlapping invocations; the
// CLI does this with a lock file scoped to the artifact path.
//
// # Limitations
//
//   - No internal retries; retry policy belongs to the invoker.
//   - No mid-call cancellation: once a run begins it proceeds to a
//     terminal state before returning. The context bounds the oracle
//     round trip only.
//   - Oracle output is trusted by default; see Validator.
type Pipeline struct {
	config Config
	logger *slog.Logger
}

// NewPipeline creates a pipeline with the given configuration.
//
// # Inputs
//
//   - config: Pipeline configuration. Store and Oracle must not be nil.
//
// # Outputs
//
//   - *Pipeline: Ready-to-use pipeline.
//   - error: Non-nil if the configuration is incomplete.
func NewPipeline(config Config) (*Pipeline, error) {
	if config.ArtifactPath == "" {
		return nil, fmt.Errorf("%w: artifact path not configured", ErrPrecondition)
	}
	if config.Store == nil {
		return nil, fmt.Errorf("%w: snapshot store not configured", ErrPrecondition)
	}
	if config.Oracle == nil {
		return nil, fmt.Errorf("%w: oracle client not configured", ErrPrecondition)
	}
	if config.Instruction == "" {
		config.Instruction = DefaultInstruction
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Pipeline{
		config: config,
		logger: config.Logger.With("component", "selfupdate"),
	}, nil
}

// Run executes one update attempt to a terminal state.
//
// # Description
//
// Sequences the pipeline: precondition check, snapshot, oracle rewrite,
// atomic write. On oracle or write failure the snapshot is restored and
// the run ends ROLLED_BACK; if the restore itself fails the run ends
// FAILED_UNRECOVERABLE reporting both errors. Run never returns before
// reaching a terminal state.
//
// # Inputs
//
//   - ctx: Bounds the oracle round trip. Callers should apply an explicit
//     timeout; a timeout is treated like any other oracle failure.
//   - instruction: Override for the configured rewrite instruction.
//     Empty uses the default.
//
// # Outputs
//
//   - *Result: Terminal state plus error detail. Never nil.
func (p *Pipeline) Run(ctx context.Context, instruction string) *Result {
	if instruction == "" {
		instruction = p.config.Instruction
	}

	result := &Result{
		AttemptID: uuid.NewString(),
		State:     StateIdle,
	}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	log := p.logger.With("attempt_id", result.AttemptID, "artifact", p.config.ArtifactPath)
	log.Info("starting self-update run")

	// Precondition: the artifact must exist and be readable before any
	// side effect. Failing here leaves the backup directory untouched.
	content, err := os.ReadFile(p.config.ArtifactPath)
	if err != nil {
		result.Err = fmt.Errorf("%w: reading artifact %s: %v", ErrPrecondition, p.config.ArtifactPath, err)
		p.fail(result, log)
		return result
	}

	snap, err := p.config.Store.Create(p.config.ArtifactPath)
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrSnapshot, err)
		p.fail(result, log)
		return result
	}
	result.Snapshot = snap
	p.transition(result, StateBackedUp)
	log.Info("snapshot created", "snapshot", snap.Path, "bytes", snap.Size)

	newContent, err := p.config.Oracle.Enhance(ctx, instruction, string(content))
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrOracle, err)
		p.rollback(result, log)
		return result
	}
	p.transition(result, StateRewritten)
	log.Info("oracle returned replacement content", "bytes", len(newContent))

	if p.config.Validator != nil {
		if err := p.config.Validator.Validate(newContent); err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrValidation, err)
			p.rollback(result, log)
			return result
		}
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(p.config.ArtifactPath); err == nil {
		mode = info.Mode()
	}
	if err := atomicWrite(p.config.ArtifactPath, []byte(newContent), mode); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrWrite, err)
		p.rollback(result, log)
		return result
	}
	p.transition(result, StateWritten)
	log.Info("artifact updated", "bytes", len(newContent), "duration", time.Since(start))

	return result
}

// rollback restores the snapshot taken for this run. Attempted at most once.
func (p *Pipeline) rollback(result *Result, log *slog.Logger) {
	log.Warn("run failed, rolling back", "error", result.Err, "snapshot", result.Snapshot.Path)

	if err := p.config.Store.Restore(result.Snapshot, p.config.ArtifactPath); err != nil {
		result.RestoreErr = fmt.Errorf("%w: %v", ErrRestore, err)
		result.Err = &UnrecoverableError{Cause: result.Err, RestoreErr: result.RestoreErr}
		p.fail(result, log)
		return
	}

	p.transition(result, StateRolledBack)
	log.Info("rolled back to snapshot", "snapshot", result.Snapshot.Path)
}

// fail moves the run to FAILED_UNRECOVERABLE.
func (p *Pipeline) fail(result *Result, log *slog.Logger) {
	p.transition(result, StateFailedUnrecoverable)
	log.Error("run ended unrecoverable", "error", result.Err)
}

// transition records a state change and fires the instrumentation hook.
func (p *Pipeline) transition(result *Result, to RunState) {
	from := result.State
	result.State = to
	if p.config.OnTransition != nil {
		p.config.OnTransition(from, to)
	}
}
