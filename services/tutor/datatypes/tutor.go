// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response types for the tutor
// service. This file covers the AI tutor chat endpoints; session storage
// types live in session.go and OCR types in ocr.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/latex"
)

const (
	// MaxMessageContentBytes caps a single message. Checked in bytes, not
	// runes, so oversized payloads are rejected before allocation-heavy
	// work.
	MaxMessageContentBytes = 16 * 1024 // 16KB

	// MaxMessagesPerRequest caps conversation history per request. The UI
	// truncates older turns client-side; this is the server-side backstop.
	MaxMessagesPerRequest = 50
)

// tutorValidate is the shared validator for tutor datatypes.
var tutorValidate *validator.Validate

func init() {
	tutorValidate = validator.New()
	_ = tutorValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces MaxMessageContentBytes on string fields.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// Message is one turn of a tutoring conversation.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required,maxbytes"`
}

// TutorRequest is the body of POST /api/ai/tutor and its streaming variant.
//
// RequestID and Timestamp are optional; EnsureDefaults fills them so every
// request carries identifiers for tracing and session storage. SessionID,
// when present, must name an existing session and causes the exchange to be
// appended to its history.
type TutorRequest struct {
	RequestID string    `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp int64     `json:"timestamp" validate:"gte=0"`
	SessionID string    `json:"session_id" validate:"omitempty,uuid4"`
	Topic     string    `json:"topic" validate:"max=120"`
	Messages  []Message `json:"messages" validate:"required,min=1,max=50,dive"`
}

// Validate checks the request after JSON binding.
func (r *TutorRequest) Validate() error {
	return tutorValidate.Struct(r)
}

// EnsureDefaults fills RequestID and Timestamp when the client omits them.
func (r *TutorRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// LastUserContent returns the content of the final user message, or "".
func (r *TutorRequest) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// TutorResponse is the reply of POST /api/ai/tutor. Answer has already been
// through the LaTeX cleaner; LatexIssues reports what the cleaner did so
// the UI can surface unfixable spots to the student.
type TutorResponse struct {
	RequestID    string        `json:"request_id"`
	SessionID    string        `json:"session_id,omitempty"`
	Answer       string        `json:"answer"`
	LatexIssues  []latex.Issue `json:"latex_issues"`
	LatexChanged bool          `json:"latex_changed"`
}

// LatexCleanRequest is the body of POST /api/latex/clean.
type LatexCleanRequest struct {
	Text string `json:"text" validate:"required,max=65536"`
}

// Validate checks the request after JSON binding.
func (r *LatexCleanRequest) Validate() error {
	return tutorValidate.Struct(r)
}
