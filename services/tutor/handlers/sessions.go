// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/storage"
)

// CreateSession starts a new tutoring session.
//
// The TTL defaults to datatypes.DefaultSessionTTL when the client does
// not send one; a zero TTLDurationMs in the request means "use default",
// not "never expire".
func CreateSession(store *storage.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateSessionRequest
		if err := c.BindJSON(&req); err != nil {
			slog.Error("Failed to parse create session request", "error", err)
			apiError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			apiError(c, http.StatusBadRequest, "invalid session parameters")
			return
		}

		ttlMs := req.TTLDurationMs
		if ttlMs == 0 {
			ttlMs = datatypes.DefaultSessionTTL.Milliseconds()
		}
		if ttlMs > datatypes.MaxSessionTTLMs {
			apiError(c, http.StatusBadRequest, "session TTL exceeds the one year maximum")
			return
		}

		now := time.Now().UnixMilli()
		meta := datatypes.SessionMetadata{
			SessionID:     uuid.New().String(),
			Title:         req.Title,
			Topic:         req.Topic,
			CreatedAt:     now,
			UpdatedAt:     now,
			TTLDurationMs: ttlMs,
			TTLExpiresAt:  now + ttlMs,
		}
		if err := store.Create(meta); err != nil {
			slog.Error("Failed to create session", "error", err)
			apiError(c, http.StatusInternalServerError, "failed to create session")
			return
		}

		slog.Info("Session created", "session_id", meta.SessionID, "topic", meta.Topic)
		c.JSON(http.StatusCreated, meta)
	}
}

// ListSessions returns all sessions, most recently updated first.
func ListSessions(store *storage.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := store.List()
		if err != nil {
			slog.Error("Failed to list sessions", "error", err)
			apiError(c, http.StatusInternalServerError, "failed to list sessions")
			return
		}
		if sessions == nil {
			sessions = []datatypes.SessionMetadata{}
		}
		c.JSON(http.StatusOK, gin.H{
			"sessions": sessions,
			"count":    len(sessions),
		})
	}
}

// GetSession returns one session's metadata.
func GetSession(store *storage.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta, err := store.Get(c.Param("sessionId"))
		if err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				apiError(c, http.StatusNotFound, "session not found")
				return
			}
			slog.Error("Failed to load session", "error", err)
			apiError(c, http.StatusInternalServerError, "failed to load session")
			return
		}
		c.JSON(http.StatusOK, meta)
	}
}

// GetSessionHistory returns a session's messages oldest first.
func GetSessionHistory(store *storage.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		history, err := store.History(sessionID)
		if err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				apiError(c, http.StatusNotFound, "session not found")
				return
			}
			slog.Error("Failed to load session history", "error", err, "session_id", sessionID)
			apiError(c, http.StatusInternalServerError, "failed to load session history")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"messages":   history,
			"count":      len(history),
		})
	}
}

// DeleteSession removes a session and its message history.
func DeleteSession(store *storage.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		slog.Info("Received a request to delete a session", "session_id", sessionID)

		if err := store.Delete(sessionID); err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				apiError(c, http.StatusNotFound, "session not found")
				return
			}
			slog.Error("Failed to delete session", "error", err, "session_id", sessionID)
			apiError(c, http.StatusInternalServerError, "failed to fully delete session")
			return
		}

		slog.Info("Successfully deleted all data for session", "session_id", sessionID)
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_session_id": sessionID})
	}
}
