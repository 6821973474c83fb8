// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Stub is a development backend that recognizes nothing. It validates the
// image decodes and returns a fixed marker so the UI flow can be exercised
// end to end without provider credentials.
type Stub struct{}

// NewStub returns the stub backend.
func NewStub() *Stub { return &Stub{} }

// Recognize implements Client.
func (s *Stub) Recognize(_ context.Context, imageBase64 string, _ []string) (Result, error) {
	raw, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return Result{}, fmt.Errorf("invalid base64 image: %w", err)
	}
	return Result{
		Text:       fmt.Sprintf("[stub ocr: %d bytes]", len(raw)),
		LaTeX:      "",
		Confidence: 0,
	}, nil
}
