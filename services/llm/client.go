// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm abstracts the language-model backend behind the tutor. The
// service talks to whichever backend LLM_BACKEND_TYPE selects; handlers
// only ever see the LLMClient interface.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
)

// GenerationParams carries optional sampling knobs. Nil means backend
// default.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// TokenCallback receives each streamed token in display order. Returning an
// error aborts the stream.
type TokenCallback func(token string) error

// LLMClient is the standard interface for any LLM backend.
type LLMClient interface {
	// Chat runs one full conversation turn and returns the assistant reply.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)

	// ChatStream is Chat with token-by-token delivery via onToken.
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams, onToken TokenCallback) error
}

// NewFromEnv builds the backend selected by LLM_BACKEND_TYPE ("openai" or
// "ollama"). Unset or unknown values fall back to ollama, which needs no
// API key and suits local development.
func NewFromEnv() (LLMClient, error) {
	switch backend := os.Getenv("LLM_BACKEND_TYPE"); backend {
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return NewOpenAIClient()
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return NewOllamaClient()
	case "":
		slog.Warn("LLM_BACKEND_TYPE not set, defaulting to ollama")
		return NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND_TYPE %q", backend)
	}
}

// limiterFromEnv builds the outbound rate limiter shared by a backend
// instance. LLM_MAX_RPS bounds sustained requests per second; burst is
// twice that. Zero or negative disables limiting.
func limiterFromEnv() *rate.Limiter {
	maxRPS := 2.0
	if v := os.Getenv("LLM_MAX_RPS"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("Invalid LLM_MAX_RPS, using default", "value", v, "default", maxRPS)
		} else {
			maxRPS = parsed
		}
	}
	if maxRPS <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(maxRPS * 2)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(maxRPS), burst)
}
