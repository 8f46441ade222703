// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig configures the local Ollama oracle backend.
type OllamaConfig struct {
	// BaseURL is the Ollama server address, e.g. "http://localhost:11434".
	// Required.
	BaseURL string

	// Model selects the local model. Default: "gpt-oss"
	Model string

	// Params tunes generation. Nil Temperature defaults to 0.7.
	Params GenerationParams
}

// OllamaClient is the OracleClient backend for a local Ollama server.
// Useful for rewriting without sending source off-machine.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	params     GenerationParams
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// NewOllamaClient creates an Ollama-backed oracle client.
func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: Ollama base URL not set", ErrOracle)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-oss"
		slog.Warn("Ollama model not set, defaulting to gpt-oss")
	}

	slog.Info("initializing Ollama oracle client", "base_url", cfg.BaseURL, "model", cfg.Model)
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		params:     cfg.Params,
	}, nil
}

// Enhance implements the OracleClient interface.
func (o *OllamaClient) Enhance(ctx context.Context, instruction, content string) (string, error) {
	slog.Debug("sending content to local oracle", "model", o.model, "content_bytes", len(content))

	options := map[string]any{"temperature": defaultTemperature}
	if o.params.Temperature != nil {
		options["temperature"] = *o.params.Temperature
	}
	if o.params.TopP != nil {
		options["top_p"] = *o.params.TopP
	}
	if o.params.MaxTokens != nil {
		options["num_predict"] = *o.params.MaxTokens
	}
	if len(o.params.Stop) > 0 {
		options["stop"] = o.params.Stop
	}

	payload := ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: SystemPersona},
			{Role: "user", Content: instruction + "\n\n" + content},
		},
		Stream:  false,
		Options: options,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrOracle, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrOracle, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		slog.Error("Ollama API call failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrOracle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrOracle, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrOracle, err)
	}
	if parsed.Message.Content == "" {
		return "", fmt.Errorf("%w: response missing completion text", ErrOracle)
	}

	return parsed.Message.Content, nil
}

// Compile-time interface check
var _ OracleClient = (*OllamaClient)(nil)
