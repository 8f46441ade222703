// Copyright (C) 2025 AutoIntel AI (dev@autointel.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI oracle backend.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string

	// Model selects the completion model. Default: "gpt-4o-mini"
	Model string

	// BaseURL overrides the API endpoint. Used by tests and proxies.
	BaseURL string

	// Params tunes generation. Nil Temperature defaults to 0.7.
	Params GenerationParams
}

// OpenAIClient is the OracleClient backend for the OpenAI chat API.
type OpenAIClient struct {
	client *openai.Client
	model  string
	params GenerationParams
}

// NewOpenAIClient creates an OpenAI-backed oracle client.
//
// The API key is passed in explicitly; resolving it from the environment
// or a secret store is the caller's job, done before any pipeline side
// effect.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key not set", ErrOracle)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
		slog.Warn("oracle model not set, defaulting to gpt-4o-mini")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	slog.Info("initializing OpenAI oracle client", "model", cfg.Model)
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		params: cfg.Params,
	}, nil
}

// Enhance implements the OracleClient interface.
func (o *OpenAIClient) Enhance(ctx context.Context, instruction, content string) (string, error) {
	slog.Debug("sending content to oracle", "model", o.model, "content_bytes", len(content))

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPersona},
			{Role: openai.ChatMessageRoleUser, Content: instruction + "\n\n" + content},
		},
		Temperature: defaultTemperature,
	}
	if o.params.Temperature != nil {
		req.Temperature = *o.params.Temperature
	}
	if o.params.TopP != nil {
		req.TopP = *o.params.TopP
	}
	if o.params.MaxTokens != nil {
		req.MaxCompletionTokens = *o.params.MaxTokens
	}
	if len(o.params.Stop) > 0 {
		req.Stop = o.params.Stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrOracle, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("OpenAI returned no completion")
		return "", fmt.Errorf("%w: response missing completion text", ErrOracle)
	}

	slog.Debug("received oracle completion", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// Compile-time interface check
var _ OracleClient = (*OpenAIClient)(nil)
