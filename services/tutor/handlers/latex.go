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

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/latex"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/observability"
)

var latexTracer = otel.Tracer("precalc.tutor.handlers.latex")

// HandleLatexClean runs the LaTeX cleaner on caller-supplied text.
//
// The UI uses this to repair model output it received through other
// channels (cached replies, pasted worksheets) without a tutor roundtrip.
func HandleLatexClean() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := latexTracer.Start(c.Request.Context(), "HandleLatexClean")
		defer span.End()

		var req datatypes.LatexCleanRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			slog.Error("Failed to parse latex clean request", "error", err)
			apiError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			apiError(c, http.StatusBadRequest, "text is required and may not exceed 64KB")
			return
		}

		result := latex.Clean(req.Text)
		if m := observability.DefaultMetrics; m != nil {
			for _, issue := range result.Issues {
				m.RecordLatexIssue(string(issue.Severity), issue.Code)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"text":    result.Text,
			"issues":  result.Issues,
			"changed": result.Changed,
		})
	}
}
