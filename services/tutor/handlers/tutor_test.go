// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
)

func tutorBody(messages ...datatypes.Message) datatypes.TutorRequest {
	return datatypes.TutorRequest{Messages: messages}
}

// TestHandleTutor_Success verifies a valid question returns the model's
// answer after LaTeX cleanup.
func TestHandleTutor_Success(t *testing.T) {
	mockLLM := &MockLLMClient{ChatResponse: "The product is $a \\cdot b$."}
	router := createTestRouter(http.MethodPost, "/api/ai/tutor", HandleTutor(mockLLM, nil))

	w := performRequest(router, http.MethodPost, "/api/ai/tutor",
		tutorBody(datatypes.Message{Role: "user", Content: "What is a times b?"}))

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.TutorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "The product is $a \\cdot b$.", resp.Answer)
	assert.False(t, resp.LatexChanged)
	assert.NotEmpty(t, resp.RequestID, "request id is filled server-side")
	assert.NotNil(t, resp.LatexIssues)
}

// TestHandleTutor_CleansUnicodeMath verifies model output with Unicode
// math is repaired before it reaches the client.
func TestHandleTutor_CleansUnicodeMath(t *testing.T) {
	mockLLM := &MockLLMClient{ChatResponse: "Multiply: $x · y$"}
	router := createTestRouter(http.MethodPost, "/api/ai/tutor", HandleTutor(mockLLM, nil))

	w := performRequest(router, http.MethodPost, "/api/ai/tutor",
		tutorBody(datatypes.Message{Role: "user", Content: "multiply x and y"}))

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.TutorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Multiply: $x \\cdot y$", resp.Answer)
	assert.True(t, resp.LatexChanged)
	require.Len(t, resp.LatexIssues, 1)
	assert.Equal(t, "unicode_symbol", resp.LatexIssues[0].Code)
}

// TestHandleTutor_InvalidBody verifies the error envelope on bad JSON.
func TestHandleTutor_InvalidBody(t *testing.T) {
	router := createTestRouter(http.MethodPost, "/api/ai/tutor", HandleTutor(&MockLLMClient{}, nil))

	w := performRequest(router, http.MethodPost, "/api/ai/tutor", "not an object")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":{"message":"invalid request body"}}`, w.Body.String())
}

// TestHandleTutor_NoMessages verifies validation rejects empty requests.
func TestHandleTutor_NoMessages(t *testing.T) {
	router := createTestRouter(http.MethodPost, "/api/ai/tutor", HandleTutor(&MockLLMClient{}, nil))

	w := performRequest(router, http.MethodPost, "/api/ai/tutor", datatypes.TutorRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")
}

// TestHandleTutor_BadRole verifies message role validation.
func TestHandleTutor_BadRole(t *testing.T) {
	router := createTestRouter(http.MethodPost, "/api/ai/tutor", HandleTutor(&MockLLMClient{}, nil))

	w := performRequest(router, http.MethodPost, "/api/ai/tutor",
		tutorBody(datatypes.Message{Role: "wizard", Content: "hi"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleTutor_LLMError verifies LLM failures map to a sanitized 500.
func TestHandleTutor_LLMError(t *testing.T) {
	mockLLM := &MockLLMClient{ChatError: errors.New("dial tcp: connection refused")}
	router := createTestRouter(http.MethodPost, "/api/ai/tutor", HandleTutor(mockLLM, nil))

	w := performRequest(router, http.MethodPost, "/api/ai/tutor",
		tutorBody(datatypes.Message{Role: "user", Content: "hello"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "temporarily unavailable")
	assert.NotContains(t, w.Body.String(), "dial tcp", "internal details must not leak")
}

// TestHandleTutor_UnknownSession verifies a 404 for a session id with no
// stored metadata.
func TestHandleTutor_UnknownSession(t *testing.T) {
	store := newTestSessionStore(t)
	router := createTestRouter(http.MethodPost, "/api/ai/tutor", HandleTutor(&MockLLMClient{ChatResponse: "hi"}, store))

	body := tutorBody(datatypes.Message{Role: "user", Content: "hello"})
	body.SessionID = "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
	w := performRequest(router, http.MethodPost, "/api/ai/tutor", body)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleTutor_PersistsExchange verifies the question and cleaned
// answer are appended to the session history.
func TestHandleTutor_PersistsExchange(t *testing.T) {
	store := newTestSessionStore(t)
	now := time.Now().UnixMilli()
	sessionID := "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
	require.NoError(t, store.Create(datatypes.SessionMetadata{
		SessionID:    sessionID,
		CreatedAt:    now,
		UpdatedAt:    now,
		TTLExpiresAt: now + time.Hour.Milliseconds(),
	}))

	mockLLM := &MockLLMClient{ChatResponse: "Area: $\\pi r^2$"}
	router := createTestRouter(http.MethodPost, "/api/ai/tutor", HandleTutor(mockLLM, store))

	body := tutorBody(datatypes.Message{Role: "user", Content: "circle area?"})
	body.SessionID = sessionID
	w := performRequest(router, http.MethodPost, "/api/ai/tutor", body)
	require.Equal(t, http.StatusOK, w.Code)

	history, err := store.History(sessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "circle area?", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "Area: $\\pi r^2$", history[1].Content)
}

// TestBuildPrompt verifies system prompt and history ordering.
func TestBuildPrompt(t *testing.T) {
	history := []datatypes.StoredMessage{
		{Seq: 0, Role: "user", Content: "earlier question"},
		{Seq: 1, Role: "assistant", Content: "earlier answer"},
	}
	reqMessages := []datatypes.Message{{Role: "user", Content: "new question"}}

	messages := buildPrompt(history, reqMessages)

	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[0].Content, "AP Precalculus")
	assert.Equal(t, "earlier question", messages[1].Content)
	assert.Equal(t, "earlier answer", messages[2].Content)
	assert.Equal(t, "new question", messages[3].Content)
}
