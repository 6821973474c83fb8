// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/analytics"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/errtrack"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/latex"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/llm"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/observability"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/storage"
)

var tutorTracer = otel.Tracer("precalc.tutor.handlers.tutor")

// tutorSystemPrompt frames every model call. The formatting rules matter
// as much as the pedagogy: the UI renders with KaTeX, and dyslexic
// readers need short lines and consistent delimiters.
const tutorSystemPrompt = `You are a patient AP Precalculus tutor for students with dyslexia and ADHD.

Teaching style:
- Break every explanation into short steps, one idea per sentence.
- Use plain language first, then the formal term in parentheses.
- Ask one guiding question at a time instead of lecturing.
- Celebrate partial progress; never say "obviously" or "simply".

Formatting rules (strict):
- Write ALL math in LaTeX delimited by $...$ for inline and $$...$$ for display.
- Never use Unicode math symbols like · × ≤ π; use \cdot, \times, \le, \pi.
- Put display equations on their own line with a blank line before and after.
- Keep paragraphs to three sentences or fewer.`

// buildPrompt prepends the system prompt and stored history to the
// request messages. History is included only when the request names a
// session; the request's own messages always come last.
func buildPrompt(history []datatypes.StoredMessage, reqMessages []datatypes.Message) []datatypes.Message {
	messages := make([]datatypes.Message, 0, 1+len(history)+len(reqMessages))
	messages = append(messages, datatypes.Message{
		Role:    "system",
		Content: tutorSystemPrompt,
	})
	for _, m := range history {
		messages = append(messages, datatypes.Message{Role: m.Role, Content: m.Content})
	}
	return append(messages, reqMessages...)
}

// loadSessionHistory fetches a session's history for prompt assembly.
// Returns nil history with ok=true when no session is named.
func loadSessionHistory(store *storage.SessionStore, sessionID string) ([]datatypes.StoredMessage, error) {
	if sessionID == "" || store == nil {
		return nil, nil
	}
	return store.History(sessionID)
}

// persistExchange appends the user question and cleaned answer to the
// session. Failures are logged, not surfaced: the student already has
// their answer.
func persistExchange(store *storage.SessionStore, sessionID, question, answer string) {
	if sessionID == "" || store == nil {
		return
	}
	if _, err := store.AppendMessage(sessionID, "user", question); err != nil {
		slog.Error("Failed to persist user message", "error", err, "session_id", sessionID)
		errtrack.Capture(err, "handlers.persistExchange")
		return
	}
	if _, err := store.AppendMessage(sessionID, "assistant", answer); err != nil {
		slog.Error("Failed to persist assistant message", "error", err, "session_id", sessionID)
		errtrack.Capture(err, "handlers.persistExchange")
	}
}

// recordLatexIssues feeds the cleaner's findings into metrics and flags
// residual Unicode math, which means the cleaner's symbol table needs a
// new entry.
func recordLatexIssues(requestID string, result latex.Result) {
	if m := observability.DefaultMetrics; m != nil {
		for _, issue := range result.Issues {
			m.RecordLatexIssue(string(issue.Severity), issue.Code)
		}
	}
	if latex.ContainsUnicodeMath(result.Text) {
		slog.Warn("Cleaned answer still contains unicode math",
			"request_id", requestID,
		)
	}
}

// HandleTutor answers a tutoring question synchronously.
//
// The model's answer always goes through the LaTeX cleaner before it is
// returned or persisted; the response carries the cleaner's issue list so
// the UI can mark spots that need human review.
func HandleTutor(llmClient llm.LLMClient, store *storage.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tutorTracer.Start(c.Request.Context(), "HandleTutor")
		defer span.End()

		endpoint := observability.EndpointTutor
		success := false
		defer func() {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(endpoint, success)
			}
		}()

		var req datatypes.TutorRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			slog.Error("Failed to parse the tutor request", "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeValidation)
			}
			apiError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation failed")
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeValidation)
			}
			apiError(c, http.StatusBadRequest, "invalid request: validation failed")
			return
		}
		span.SetAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.Int("request.message_count", len(req.Messages)),
		)

		history, err := loadSessionHistory(store, req.SessionID)
		if err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				apiError(c, http.StatusNotFound, "session not found")
				return
			}
			span.RecordError(err)
			slog.Error("Failed to load session history", "error", err, "session_id", req.SessionID)
			apiError(c, http.StatusInternalServerError, "failed to load session history")
			return
		}

		answer, err := llmClient.Chat(ctx, buildPrompt(history, req.Messages), llm.GenerationParams{})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "LLM chat failed")
			slog.Error("LLMClient.Chat failed", "error", err, "request_id", req.RequestID)
			errtrack.Capture(err, "handlers.HandleTutor")
			if m := observability.DefaultMetrics; m != nil {
				if errors.Is(err, context.Canceled) {
					m.RecordError(endpoint, observability.ErrorCodeClientDisconnect)
				} else {
					m.RecordError(endpoint, observability.ErrorCodeLLMError)
				}
			}
			apiError(c, http.StatusInternalServerError, sanitizeErrorForClient(err))
			return
		}

		result := latex.Clean(answer)
		recordLatexIssues(req.RequestID, result)

		persistExchange(store, req.SessionID, req.LastUserContent(), result.Text)
		analytics.Track("tutor_request", map[string]any{
			"streamed":      false,
			"has_session":   req.SessionID != "",
			"latex_changed": result.Changed,
			"latex_issues":  len(result.Issues),
		})

		issues := result.Issues
		if issues == nil {
			issues = []latex.Issue{}
		}
		success = true
		span.SetStatus(codes.Ok, "tutor request completed")
		c.JSON(http.StatusOK, datatypes.TutorResponse{
			RequestID:    req.RequestID,
			SessionID:    req.SessionID,
			Answer:       result.Text,
			LatexIssues:  issues,
			LatexChanged: result.Changed,
		})
	}
}
