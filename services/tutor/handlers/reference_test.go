// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/reference"
)

func newTestLibrary(t *testing.T) *reference.Library {
	t.Helper()
	lib, err := reference.Load()
	require.NoError(t, err)
	return lib
}

func referenceRouter(t *testing.T) *gin.Engine {
	t.Helper()
	lib := newTestLibrary(t)
	router := gin.New()
	router.GET("/api/reference/notation", HandleNotationSearch(lib))
	router.GET("/api/reference/notation/:id", HandleNotationByID(lib))
	router.GET("/api/reference/vocabulary", HandleVocabularySearch(lib))
	router.GET("/api/reference/categories", HandleReferenceCategories(lib))
	return router
}

func getJSON(t *testing.T, router *gin.Engine, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func TestHandleNotationSearch_NoParamsReturnsAll(t *testing.T) {
	router := referenceRouter(t)

	var resp struct {
		Entries []reference.NotationEntry `json:"entries"`
		Count   int                       `json:"count"`
	}
	w := getJSON(t, router, "/api/reference/notation", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, resp.Entries)
	assert.Equal(t, len(resp.Entries), resp.Count)
}

func TestHandleNotationSearch_QueryFilters(t *testing.T) {
	router := referenceRouter(t)

	var resp struct {
		Entries []reference.NotationEntry `json:"entries"`
	}
	w := getJSON(t, router, "/api/reference/notation?q=composed", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, resp.Entries)
	for _, e := range resp.Entries {
		assert.NotEqual(t, "function-notation", e.ID)
	}
}

func TestHandleNotationByID(t *testing.T) {
	router := referenceRouter(t)

	var entry reference.NotationEntry
	w := getJSON(t, router, "/api/reference/notation/function-notation", &entry)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "f(x)", entry.Symbol)
	assert.Equal(t, "f of x", entry.Spoken)
}

func TestHandleNotationByID_NotFound(t *testing.T) {
	router := referenceRouter(t)

	w := getJSON(t, router, "/api/reference/notation/no-such-entry", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":{"message":"notation entry not found"}}`, w.Body.String())
}

func TestHandleVocabularySearch(t *testing.T) {
	router := referenceRouter(t)

	var resp struct {
		Terms []reference.VocabTerm `json:"terms"`
		Count int                   `json:"count"`
	}
	w := getJSON(t, router, "/api/reference/vocabulary", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, resp.Terms)
	assert.Equal(t, len(resp.Terms), resp.Count)
}

func TestHandleReferenceCategories(t *testing.T) {
	router := referenceRouter(t)

	var resp struct {
		Categories []string `json:"categories"`
	}
	w := getJSON(t, router, "/api/reference/categories", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Categories, "functions")
}
