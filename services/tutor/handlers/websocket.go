// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/latex"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/llm"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/observability"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/storage"
)

// WSTutorRequest is one turn sent by the client over the websocket.
// History is optional; when the socket's session has stored history the
// server-side history wins.
type WSTutorRequest struct {
	Query   string              `json:"query"`
	History []datatypes.Message `json:"history,omitempty"`
	Topic   string              `json:"topic,omitempty"`
}

var upgrader = websocket.Upgrader{
	// The UI is served from the same box; cross-origin tutoring sessions
	// are not a supported deployment.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleTutorWebSocket runs a multi-turn tutoring conversation over one
// websocket connection.
//
// # Description
//
// On connect the handler creates a session, announces it with a
// session_created frame, then loops: read a WSTutorRequest, stream token
// frames, and finish each turn with a done frame carrying the cleaned
// answer. Both sides of each exchange are persisted to the session.
func HandleTutorWebSocket(llmClient llm.LLMClient, store *storage.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := observability.EndpointTutorWS

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("Websocket client connected")

		if m := observability.DefaultMetrics; m != nil {
			m.StreamStarted(endpoint)
			defer m.StreamEnded(endpoint)
		}

		sessionID := uuid.New().String()
		now := time.Now().UnixMilli()
		sessionCreated := true
		if store != nil {
			err := store.Create(datatypes.SessionMetadata{
				SessionID:     sessionID,
				Title:         "Live tutoring session",
				CreatedAt:     now,
				UpdatedAt:     now,
				TTLDurationMs: datatypes.DefaultSessionTTL.Milliseconds(),
				TTLExpiresAt:  now + datatypes.DefaultSessionTTL.Milliseconds(),
			})
			if err != nil {
				slog.Error("Failed to create websocket session", "error", err)
				sessionCreated = false
			}
		} else {
			sessionCreated = false
		}
		slog.Info("New websocket session started", "session_id", sessionID)

		if err := sendJSON(ws, map[string]interface{}{
			"action":     "session_created",
			"session_id": sessionID,
		}); err != nil {
			return
		}

		for {
			var req WSTutorRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Websocket client disconnected", "error", err.Error())
				break
			}
			if req.Query == "" {
				_ = sendJSON(ws, datatypes.StreamEvent{
					Type:  datatypes.StreamEventError,
					Error: "query must not be empty",
				})
				continue
			}
			if len(req.Query) > datatypes.MaxMessageContentBytes {
				_ = sendJSON(ws, datatypes.StreamEvent{
					Type:  datatypes.StreamEventError,
					Error: "query is too long",
				})
				continue
			}

			ctx := c.Request.Context()

			var history []datatypes.StoredMessage
			if sessionCreated {
				history, err = store.History(sessionID)
				if err != nil {
					slog.Error("Failed to load websocket session history", "error", err)
					history = nil
				}
			}

			turn := req.History
			turn = append(turn, datatypes.Message{Role: "user", Content: req.Query})

			accumulator, accErr := NewSecureTokenAccumulator()
			if accErr != nil {
				slog.Error("Failed to create token accumulator", "error", accErr)
				_ = sendJSON(ws, datatypes.StreamEvent{
					Type:  datatypes.StreamEventError,
					Error: "the tutor is temporarily unavailable",
				})
				continue
			}

			streamErr := llmClient.ChatStream(ctx, buildPrompt(history, turn), llm.GenerationParams{},
				func(token string) error {
					if err := accumulator.Write(token); err != nil {
						return err
					}
					return sendJSON(ws, datatypes.StreamEvent{
						Type:    datatypes.StreamEventToken,
						Content: token,
					})
				})
			if streamErr != nil {
				slog.Error("Websocket streaming failed", "error", streamErr, "session_id", sessionID)
				if m := observability.DefaultMetrics; m != nil {
					m.RecordError(endpoint, observability.ErrorCodeLLMError)
					m.RecordRequest(endpoint, false)
				}
				accumulator.Destroy()
				_ = sendJSON(ws, datatypes.StreamEvent{
					Type:  datatypes.StreamEventError,
					Error: sanitizeErrorForClient(streamErr),
				})
				continue
			}

			answer, _, finErr := accumulator.Finalize()
			if finErr != nil {
				slog.Error("Failed to finalize websocket answer", "error", finErr)
				_ = sendJSON(ws, datatypes.StreamEvent{
					Type:  datatypes.StreamEventError,
					Error: "something went wrong, please try again",
				})
				continue
			}

			result := latex.Clean(answer)
			recordLatexIssues(sessionID, result)
			if sessionCreated {
				persistExchange(store, sessionID, req.Query, result.Text)
			}
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(endpoint, true)
			}

			issues := result.Issues
			if issues == nil {
				issues = []latex.Issue{}
			}
			if err := sendJSON(ws, datatypes.StreamEvent{
				Type:         datatypes.StreamEventDone,
				SessionId:    sessionID,
				Answer:       result.Text,
				LatexIssues:  issues,
				LatexChanged: result.Changed,
			}); err != nil {
				return
			}
		}
	}
}
