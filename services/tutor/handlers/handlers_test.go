// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/llm"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/ocr"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/storage"
)

func init() {
	// Reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// MockLLMClient implements llm.LLMClient for handler testing.
type MockLLMClient struct {
	ChatResponse string
	ChatError    error
	StreamTokens []string
	StreamError  error
}

func (m *MockLLMClient) Chat(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams) (string, error) {
	return m.ChatResponse, m.ChatError
}

func (m *MockLLMClient) ChatStream(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams, onToken llm.TokenCallback) error {
	for _, token := range m.StreamTokens {
		if err := onToken(token); err != nil {
			return err
		}
	}
	return m.StreamError
}

// MockOCRClient implements ocr.Client for handler testing.
type MockOCRClient struct {
	Result    ocr.Result
	Err       error
	FailImage string // image payload that should fail, others succeed
}

func (m *MockOCRClient) Recognize(_ context.Context, imageBase64 string, _ []string) (ocr.Result, error) {
	if m.Err != nil {
		return ocr.Result{}, m.Err
	}
	if m.FailImage != "" && imageBase64 == m.FailImage {
		return ocr.Result{}, context.DeadlineExceeded
	}
	return m.Result, nil
}

// newTestSessionStore opens an in-memory store scoped to the test.
func newTestSessionStore(t *testing.T) *storage.SessionStore {
	t.Helper()

	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewSessionStore(db)
	require.NoError(t, err)
	return store
}

// createTestRouter creates a Gin router with the specified handler.
func createTestRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	switch method {
	case http.MethodPost:
		router.POST(path, handler)
	case http.MethodGet:
		router.GET(path, handler)
	case http.MethodDelete:
		router.DELETE(path, handler)
	}
	return router
}

// performRequest executes an HTTP request against the test router.
func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
