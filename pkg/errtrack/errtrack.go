// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package errtrack is the error-tracking seam for the tutor service.
//
// Capture is deliberately a local stub: it logs and counts, and never
// ships data to an external tracking service. The call sites stay in
// place so a hosted backend can be swapped in behind this API without
// touching handlers.
package errtrack

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var capturedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "precalc",
		Subsystem: "errtrack",
		Name:      "captured_total",
		Help:      "Total errors captured by source",
	},
	[]string{"source"},
)

// Capture records an error with its source. Nil errors are ignored.
//
// Inputs:
//
//	err - The error to record.
//	source - Where the error occurred, e.g. "handlers.Tutor".
func Capture(err error, source string) {
	if err == nil {
		return
	}
	capturedTotal.WithLabelValues(source).Inc()
	slog.Error("error captured",
		"source", source,
		"error", err.Error(),
	)
}

// Recovery returns gin middleware that converts panics into a 500
// response with the standard error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				Capture(fmt.Errorf("panic: %v", r), "errtrack.Recovery")
				slog.Error("handler panic",
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{"message": "internal server error"},
				})
			}
		}()
		c.Next()
	}
}
