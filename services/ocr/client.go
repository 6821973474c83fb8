// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ocr abstracts the math-OCR provider the tutor uses to read
// photographed homework. The service shapes a JSON request, forwards it to
// the configured provider, and maps the response; no recognition happens
// in-process.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

// Result is one recognition outcome.
type Result struct {
	// Text is the plain-text reading of the image.
	Text string `json:"text"`

	// LaTeX is the math markup reading, when the provider produced one.
	LaTeX string `json:"latex,omitempty"`

	// Confidence is the provider's overall confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Client recognizes math in a single base64-encoded image. formats lists
// the requested outputs ("text", "latex"); empty means both.
type Client interface {
	Recognize(ctx context.Context, imageBase64 string, formats []string) (Result, error)
}

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewFromEnv builds the provider selected by OCR_PROVIDER ("http" or
// "stub"). The stub needs no external service and suits local development
// and CI.
func NewFromEnv() (Client, error) {
	switch provider := os.Getenv("OCR_PROVIDER"); provider {
	case "http":
		return NewHTTPProvider()
	case "stub", "":
		if provider == "" {
			slog.Warn("OCR_PROVIDER not set, defaulting to stub")
		}
		return NewStub(), nil
	default:
		return nil, fmt.Errorf("unknown OCR_PROVIDER %q", provider)
	}
}
