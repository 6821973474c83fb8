// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/reference"
)

// HandleNotationSearch searches the notation reference.
//
// Query parameters: q (substring, optional), category (exact, optional).
// With no parameters the full table is returned so the UI can render the
// reference panel in one request.
func HandleNotationSearch(library *reference.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		category := c.Query("category")

		entries := library.SearchNotation(query, category)
		c.JSON(http.StatusOK, gin.H{
			"entries": entries,
			"count":   len(entries),
		})
	}
}

// HandleNotationByID looks up a single notation entry.
func HandleNotationByID(library *reference.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		entry, ok := library.NotationByID(id)
		if !ok {
			apiError(c, http.StatusNotFound, "notation entry not found")
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// HandleVocabularySearch searches the vocabulary reference.
func HandleVocabularySearch(library *reference.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		category := c.Query("category")

		terms := library.SearchVocabulary(query, category)
		c.JSON(http.StatusOK, gin.H{
			"terms": terms,
			"count": len(terms),
		})
	}
}

// HandleReferenceCategories lists the distinct categories across both
// reference tables.
func HandleReferenceCategories(library *reference.Library) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"categories": library.Categories(),
		})
	}
}
