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
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
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

// heartbeatInterval keeps the SSE connection alive through proxies with
// 60s idle timeouts.
const heartbeatInterval = 15 * time.Second

// HandleTutorStream answers a tutoring question over SSE.
//
// # Description
//
// Tokens are forwarded to the client as they arrive and accumulated
// server-side. After the stream ends, the full answer goes through the
// LaTeX cleaner and the done event carries the cleaned text with the
// cleaner's issue list, so the UI can replace its token-by-token render
// with the corrected version.
func HandleTutorStream(llmClient llm.LLMClient, store *storage.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		endpoint := observability.EndpointTutorStream

		ctx, span := tutorTracer.Start(c.Request.Context(), "HandleTutorStream")
		defer span.End()

		if m := observability.DefaultMetrics; m != nil {
			m.StreamStarted(endpoint)
			defer m.StreamEnded(endpoint)
		}

		success := false
		defer func() {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(endpoint, success)
				m.RecordStreamDuration(endpoint, success, time.Since(startTime).Seconds())
			}
		}()

		var req datatypes.TutorRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			slog.Error("Failed to parse streaming tutor request", "error", err)
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
			slog.Error("Streaming request validation failed",
				"error", err,
				"request_id", req.RequestID,
			)
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

		SetSSEHeaders(c.Writer)
		sseWriter, err := NewSSEWriter(c.Writer)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "SSE setup failed")
			slog.Error("Failed to create SSE writer",
				"error", err,
				"request_id", req.RequestID,
			)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeInternal)
			}
			apiError(c, http.StatusInternalServerError, "streaming not supported")
			return
		}

		if err := sseWriter.WriteStatus("Thinking through the problem..."); err != nil {
			span.RecordError(err)
			slog.Error("Failed to write status event",
				"error", err,
				"request_id", req.RequestID,
			)
			return
		}

		heartbeatDone := make(chan struct{})
		go runHeartbeat(ctx, sseWriter, heartbeatDone)

		accumulator, accErr := NewSecureTokenAccumulator()
		if accErr != nil {
			slog.Error("Failed to create token accumulator", "error", accErr)
			errtrack.Capture(accErr, "handlers.HandleTutorStream")
			close(heartbeatDone)
			_ = sseWriter.WriteError("the tutor is temporarily unavailable")
			return
		}
		defer accumulator.Destroy()

		var tokenCount int32
		firstTokenTime := time.Time{}

		streamErr := llmClient.ChatStream(ctx, buildPrompt(history, req.Messages), llm.GenerationParams{},
			func(token string) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				if firstTokenTime.IsZero() {
					firstTokenTime = time.Now()
				}
				atomic.AddInt32(&tokenCount, 1)

				if err := accumulator.Write(token); err != nil {
					return err
				}
				return sseWriter.WriteToken(token)
			})

		close(heartbeatDone)

		if streamErr != nil {
			span.RecordError(streamErr)
			span.SetStatus(codes.Error, "LLM streaming failed")
			span.SetAttributes(attribute.Int("stream.token_count", int(tokenCount)))
			slog.Error("LLM streaming failed",
				"error", streamErr,
				"request_id", req.RequestID,
				"token_count", tokenCount,
			)
			errtrack.Capture(streamErr, "handlers.HandleTutorStream")
			if m := observability.DefaultMetrics; m != nil {
				if errors.Is(streamErr, context.Canceled) {
					m.RecordError(endpoint, observability.ErrorCodeClientDisconnect)
				} else {
					m.RecordError(endpoint, observability.ErrorCodeLLMError)
				}
			}
			_ = sseWriter.WriteError(sanitizeErrorForClient(streamErr))
			return
		}

		if !firstTokenTime.IsZero() {
			ttft := firstTokenTime.Sub(startTime).Seconds()
			span.SetAttributes(attribute.Float64("stream.time_to_first_token_seconds", ttft))
			if m := observability.DefaultMetrics; m != nil {
				m.RecordTimeToFirstToken(endpoint, ttft)
			}
		}
		span.SetAttributes(attribute.Int("stream.token_count", int(tokenCount)))
		if m := observability.DefaultMetrics; m != nil {
			m.RecordTokens(int(tokenCount), "default")
		}

		answer, _, finErr := accumulator.Finalize()
		if finErr != nil {
			span.RecordError(finErr)
			slog.Error("Failed to finalize accumulated answer",
				"error", finErr,
				"request_id", req.RequestID,
			)
			_ = sseWriter.WriteError("something went wrong, please try again")
			return
		}

		result := latex.Clean(answer)
		recordLatexIssues(req.RequestID, result)

		issues := result.Issues
		if issues == nil {
			issues = []latex.Issue{}
		}
		if err := sseWriter.WriteDone(req.SessionID, result.Text, issues, result.Changed); err != nil {
			span.RecordError(err)
			slog.Error("Failed to write done event",
				"error", err,
				"request_id", req.RequestID,
			)
			return
		}

		persistExchange(store, req.SessionID, req.LastUserContent(), result.Text)
		analytics.Track("tutor_request", map[string]any{
			"streamed":      true,
			"has_session":   req.SessionID != "",
			"latex_changed": result.Changed,
			"latex_issues":  len(result.Issues),
			"tokens":        int(tokenCount),
		})

		success = true
		span.SetStatus(codes.Ok, "stream completed successfully")
	}
}

// runHeartbeat sends periodic keepalive pings until done closes or the
// request context ends.
func runHeartbeat(ctx context.Context, writer SSEWriter, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writer.WriteKeepAlive(); err != nil {
				slog.Debug("Failed to write keepalive", "error", err)
				return
			}
		}
	}
}
