// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/secrets"
)

// providerTimeout bounds one recognition round trip. OCR providers are
// slow on dense handwriting but anything past this is a hang.
const providerTimeout = 30 * time.Second

// HTTPProvider forwards recognition requests to an external OCR service
// speaking a simple JSON contract:
//
//	POST <OCR_SERVICE_URL>
//	{"src": "data:image/png;base64,...", "formats": ["text","latex"]}
//	-> {"text": "...", "latex": "...", "confidence": 0.97}
//
// The app key is sent in the "app_key" header and held in a sealed
// enclave between calls.
type HTTPProvider struct {
	HTTPClient HTTPClient
	url        string
	appKey     *secrets.Secret
}

type providerRequest struct {
	Src     string   `json:"src"`
	Formats []string `json:"formats"`
}

type providerResponse struct {
	Text       string  `json:"text"`
	LaTeX      string  `json:"latex"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// NewHTTPProvider reads OCR_SERVICE_URL and OCR_APP_KEY.
func NewHTTPProvider() (*HTTPProvider, error) {
	url := strings.Trim(os.Getenv("OCR_SERVICE_URL"), "\"' ")
	if url == "" {
		return nil, fmt.Errorf("OCR_SERVICE_URL environment variable not set")
	}
	appKey, err := secrets.FromEnv("OCR_APP_KEY", "file:/run/secrets/ocr_app_key")
	if err != nil {
		return nil, fmt.Errorf("OCR_APP_KEY not available: %w", err)
	}
	slog.Info("Initializing OCR HTTP provider", "url", url)
	return &HTTPProvider{
		HTTPClient: &http.Client{Timeout: providerTimeout},
		url:        url,
		appKey:     appKey,
	}, nil
}

// Recognize implements Client.
func (p *HTTPProvider) Recognize(ctx context.Context, imageBase64 string, formats []string) (Result, error) {
	if len(formats) == 0 {
		formats = []string{"text", "latex"}
	}
	body, err := json.Marshal(providerRequest{
		Src:     "data:image/png;base64," + imageBase64,
		Formats: formats,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := p.appKey.Use(func(key string) error {
		req.Header.Set("app_key", key)
		return nil
	}); err != nil {
		return Result{}, err
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		slog.Error("OCR provider call failed", "error", err)
		return Result{}, fmt.Errorf("OCR provider call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("OCR provider returned status %d: %s",
			resp.StatusCode, string(snippet))
	}

	var parsed providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("failed to decode OCR response: %w", err)
	}
	if parsed.Error != "" {
		return Result{}, fmt.Errorf("OCR provider error: %s", parsed.Error)
	}
	return Result{
		Text:       parsed.Text,
		LaTeX:      parsed.LaTeX,
		Confidence: parsed.Confidence,
	}, nil
}
