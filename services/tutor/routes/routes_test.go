// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/reference"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/llm"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/ocr"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/middleware"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticLLM struct{ answer string }

func (s *staticLLM) Chat(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams) (string, error) {
	return s.answer, nil
}

func (s *staticLLM) ChatStream(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams, onToken llm.TokenCallback) error {
	return onToken(s.answer)
}

type denyAllAuth struct{}

func (denyAllAuth) Validate(context.Context, string) (*middleware.AuthInfo, error) {
	return nil, middleware.ErrUnauthorized
}

func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()

	if deps.LLM == nil {
		deps.LLM = &staticLLM{answer: "ok"}
	}
	if deps.OCR == nil {
		deps.OCR = ocr.NewStub()
	}
	if deps.Store == nil {
		db, err := storage.OpenInMemory()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		deps.Store, err = storage.NewSessionStore(db)
		require.NoError(t, err)
	}
	if deps.Library == nil {
		lib, err := reference.Load()
		require.NoError(t, err)
		deps.Library = lib
	}

	router := gin.New()
	SetupRoutes(router, deps)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_Health(t *testing.T) {
	router := newTestRouter(t, Deps{})

	w := get(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSetupRoutes_MetricsAreScrapable(t *testing.T) {
	router := newTestRouter(t, Deps{})

	w := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_APIWorksWithoutTokenByDefault(t *testing.T) {
	router := newTestRouter(t, Deps{})

	w := get(router, "/api/reference/categories")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_AuthProviderGates(t *testing.T) {
	router := newTestRouter(t, Deps{Auth: denyAllAuth{}})

	w := get(router, "/api/reference/categories")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":{"message":"unauthorized"}}`, w.Body.String())

	// Health and metrics stay open.
	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
	assert.Equal(t, http.StatusOK, get(router, "/metrics").Code)
}

func TestSetupRoutes_TutorEndToEnd(t *testing.T) {
	router := newTestRouter(t, Deps{LLM: &staticLLM{answer: "The domain is $x > 0$."}})

	body, _ := json.Marshal(datatypes.TutorRequest{
		Messages: []datatypes.Message{{Role: "user", Content: "domain of ln x?"}},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/tutor", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.TutorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "The domain is $x > 0$.", resp.Answer)
}

func TestSetupRoutes_SessionLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t, Deps{})

	// Create
	body, _ := json.Marshal(datatypes.CreateSessionRequest{Topic: "polynomials"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var meta datatypes.SessionMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	require.NotEmpty(t, meta.SessionID)

	// Get
	assert.Equal(t, http.StatusOK, get(router, "/api/sessions/"+meta.SessionID).Code)

	// Delete
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/sessions/"+meta.SessionID, nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, get(router, "/api/sessions/"+meta.SessionID).Code)
}
