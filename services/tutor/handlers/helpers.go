// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers provides the gin HTTP handlers for the tutor API.
//
// Every handler is a closure over its injected dependencies so routes can
// be assembled in one place and tests can swap in mocks. Error responses
// always use the envelope {"error":{"message": "..."}}; the UI relies on
// that shape for its toast notifications.
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// apiError writes the standard error envelope and aborts the request.
func apiError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": message},
	})
}

// sanitizeErrorForClient maps internal errors to stable client-facing
// messages. Full errors stay in the logs; connection strings, file paths,
// and provider details must not reach the browser.
func sanitizeErrorForClient(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context canceled"):
		return "request cancelled"
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "timeout"):
		return "the tutor took too long to respond, please try again"
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return "the tutor is temporarily unavailable"
	default:
		return "something went wrong, please try again"
	}
}
