// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/secrets"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
)

// OpenAIClient talks to the OpenAI chat completions API (or any endpoint
// speaking the same protocol via OPENAI_BASE_URL). The API key lives in a
// sealed enclave; a client is constructed per call and discarded.
type OpenAIClient struct {
	apiKey  *secrets.Secret
	baseURL string
	model   string
	limiter *rate.Limiter
}

// NewOpenAIClient reads OPENAI_API_KEY (env or container secret mount) and
// OPENAI_MODEL.
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey, err := secrets.FromEnv("OPENAI_API_KEY", "file:/run/secrets/openai_api_key")
	if err != nil {
		slog.Error("OPENAI_API_KEY environment variable not set and secret not found")
		return nil, fmt.Errorf("OPENAI_API_KEY not available: %w", err)
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: os.Getenv("OPENAI_BASE_URL"),
		model:   model,
		limiter: limiterFromEnv(),
	}, nil
}

func (o *OpenAIClient) buildRequest(messages []datatypes.Message, params GenerationParams, stream bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:  o.model,
		Stream: stream,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}
	return req
}

func (o *OpenAIClient) withClient(fn func(client *openai.Client) error) error {
	return o.apiKey.Use(func(key string) error {
		cfg := openai.DefaultConfig(key)
		if o.baseURL != "" {
			cfg.BaseURL = o.baseURL
		}
		return fn(openai.NewClientWithConfig(cfg))
	})
}

// Chat implements LLMClient.
func (o *OpenAIClient) Chat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams) (string, error) {

	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}
	slog.Debug("Chat via OpenAI", "model", o.model, "messages", len(messages))

	var answer string
	err := o.withClient(func(client *openai.Client) error {
		resp, err := client.CreateChatCompletion(ctx, o.buildRequest(messages, params, false))
		if err != nil {
			return fmt.Errorf("OpenAI API call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("OpenAI returned no choices")
		}
		answer = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		slog.Error("OpenAI chat failed", "error", err)
		return "", err
	}
	return answer, nil
}

// ChatStream implements LLMClient.
func (o *OpenAIClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	params GenerationParams, onToken TokenCallback) error {

	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}
	slog.Debug("ChatStream via OpenAI", "model", o.model, "messages", len(messages))

	return o.withClient(func(client *openai.Client) error {
		stream, err := client.CreateChatCompletionStream(ctx, o.buildRequest(messages, params, true))
		if err != nil {
			return fmt.Errorf("OpenAI stream open failed: %w", err)
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("OpenAI stream receive failed: %w", err)
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if token := resp.Choices[0].Delta.Content; token != "" {
				if err := onToken(token); err != nil {
					return err
				}
			}
		}
	})
}
