// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/errtrack"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/reference"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/llm"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/ocr"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/handlers"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/middleware"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/observability"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/storage"
)

// Deps carries everything the API routes close over.
type Deps struct {
	LLM     llm.LLMClient
	OCR     ocr.Client
	Store   *storage.SessionStore
	Library *reference.Library

	// Auth defaults to the accept-everything local provider when nil.
	Auth middleware.AuthProvider
}

// SetupRoutes registers every endpoint on router.
//
// /health and /metrics stay outside the auth middleware so probes and the
// Prometheus scraper need no token.
func SetupRoutes(router *gin.Engine, deps Deps) {
	auth := deps.Auth
	if auth == nil {
		auth = &middleware.NopAuthProvider{}
	}

	router.Use(errtrack.Recovery())

	router.GET("/health", handlers.HealthCheck())
	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(auth))
	{
		ai := api.Group("/ai")
		{
			ai.POST("/tutor", handlers.HandleTutor(deps.LLM, deps.Store))
			ai.POST("/tutor/stream", handlers.HandleTutorStream(deps.LLM, deps.Store))
			ai.GET("/tutor/ws", handlers.HandleTutorWebSocket(deps.LLM, deps.Store))
		}

		api.POST("/ocr", handlers.HandleOCR(deps.OCR))
		api.POST("/ocr/batch", handlers.HandleOCRBatch(deps.OCR))

		sessions := api.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(deps.Store))
			sessions.GET("", handlers.ListSessions(deps.Store))
			sessions.GET("/:sessionId", handlers.GetSession(deps.Store))
			sessions.GET("/:sessionId/history", handlers.GetSessionHistory(deps.Store))
			sessions.DELETE("/:sessionId", handlers.DeleteSession(deps.Store))
		}

		ref := api.Group("/reference")
		{
			ref.GET("/notation", handlers.HandleNotationSearch(deps.Library))
			ref.GET("/notation/:id", handlers.HandleNotationByID(deps.Library))
			ref.GET("/vocabulary", handlers.HandleVocabularySearch(deps.Library))
			ref.GET("/categories", handlers.HandleReferenceCategories(deps.Library))
		}

		api.POST("/latex/clean", handlers.HandleLatexClean())
	}
}
