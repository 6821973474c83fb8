// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
)

// newSessionsServer stands in for a running tutord with one session.
func newSessionsServer(t *testing.T) *httptest.Server {
	t.Helper()

	meta := datatypes.SessionMetadata{
		SessionID:    "abc-123",
		Title:        "Rational functions",
		Topic:        "asymptotes",
		CreatedAt:    1700000000000,
		UpdatedAt:    1700000060000,
		MessageCount: 2,
	}
	messages := []datatypes.StoredMessage{
		{Seq: 1, Role: "user", Content: "What is a vertical asymptote?", CreatedAt: 1700000000000},
		{Seq: 2, Role: "assistant", Content: "A line $x = a$ the graph approaches.", CreatedAt: 1700000060000},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sessions": []datatypes.SessionMetadata{meta},
			"count":    1,
		})
	})
	mux.HandleFunc("GET /api/sessions/abc-123", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(meta)
	})
	mux.HandleFunc("GET /api/sessions/abc-123/history", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"session_id": "abc-123",
			"messages":   messages,
			"count":      len(messages),
		})
	})
	mux.HandleFunc("DELETE /api/sessions/abc-123", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"session not found"}}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchSessions(t *testing.T) {
	server := newSessionsServer(t)

	list, err := fetchSessions(server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, "abc-123", list.Sessions[0].SessionID)
	assert.Equal(t, "Rational functions", list.Sessions[0].Title)
}

func TestFetchSessionBackup(t *testing.T) {
	server := newSessionsServer(t)

	backup, err := fetchSessionBackup(server.URL, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", backup.Metadata.SessionID)
	require.Len(t, backup.Messages, 2)
	assert.Equal(t, "assistant", backup.Messages[1].Role)
	assert.False(t, backup.BackedUpAt.IsZero())
}

func TestFetchSessionBackup_NotFound(t *testing.T) {
	server := newSessionsServer(t)

	_, err := fetchSessionBackup(server.URL, "missing-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestDeleteSession(t *testing.T) {
	server := newSessionsServer(t)

	require.NoError(t, deleteSession(server.URL, "abc-123"))

	err := deleteSession(server.URL, "missing-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestWriteBackupFile(t *testing.T) {
	server := newSessionsServer(t)
	backup, err := fetchSessionBackup(server.URL, "abc-123")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "backups")
	path, err := writeBackupFile(dir, backup)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc-123.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var restored sessionBackup
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, backup.Metadata, restored.Metadata)
	assert.Equal(t, backup.Messages, restored.Messages)
}

func TestGetServerBaseURL_EnvOverride(t *testing.T) {
	t.Setenv("PRECALC_SERVER_URL", "http://example.test:9999")
	assert.Equal(t, "http://example.test:9999", getServerBaseURL())
}
