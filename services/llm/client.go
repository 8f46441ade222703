// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides rewrite oracle clients. Each backend sends the
// current artifact content plus an instruction to a text-generation service
// and returns the completion unmodified.
package llm

import (
	"context"
	"errors"
)

// ErrOracle is the single error kind for every oracle failure: network,
// timeout, authentication, rate limiting, or a response missing the
// expected completion. Callers classify with errors.Is; they never see
// partially parsed responses.
var ErrOracle = errors.New("oracle request failed")

// SystemPersona is the fixed system directive sent with every rewrite
// request.
const SystemPersona = "You are AutoIntel AI, the smartest software engineer assistant. " +
	"Improve this program: fix defects, add resilience, and add self-improvement hooks."

// GenerationParams tunes a completion request. Nil fields use backend
// defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// OracleClient defines the standard interface for any oracle backend.
//
// Enhance issues exactly one request and returns the service's textual
// completion unmodified. No retries; retry policy belongs to the caller.
// Implementations have no filesystem side effects.
type OracleClient interface {
	Enhance(ctx context.Context, instruction, content string) (string, error)
}

// defaultTemperature matches the original updater's sampling setting.
var defaultTemperature = float32(0.7)
