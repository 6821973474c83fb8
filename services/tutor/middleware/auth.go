// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the tutor service.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization
// header, validates it using the configured AuthProvider, and stores the
// resulting AuthInfo in the Gin context for downstream handlers.
//
// # Default Behavior
//
// With NopAuthProvider (the default), all requests are authenticated as
// "local-user". A single-classroom deployment runs on one box with no
// identity provider; schools that need real auth swap in their own
// AuthProvider implementation.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrUnauthorized indicates the token was missing, malformed, or invalid.
var ErrUnauthorized = errors.New("unauthorized")

// authInfoKey is the context key for storing AuthInfo.
const authInfoKey = "precalc_auth_info"

// AuthInfo contains identity information for an authenticated request.
type AuthInfo struct {
	// UserID uniquely identifies the learner or teacher.
	UserID string

	// DisplayName is a human-readable name for logs and session titles.
	DisplayName string
}

// AuthProvider validates authentication tokens and returns user identity.
//
// # Description
//
// The default NopAuthProvider accepts every request. Deployments with an
// identity provider implement this interface against it.
type AuthProvider interface {
	// Validate checks a bearer token and returns the caller's identity.
	// Returns ErrUnauthorized (possibly wrapped) for invalid tokens.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider is the default provider: every request is accepted as
// a local user.
type NopAuthProvider struct{}

// Validate always succeeds with a fixed local identity.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID:      "local-user",
		DisplayName: "Local User",
	}, nil
}

// SetAuthInfo stores the authenticated user info in the Gin context.
func SetAuthInfo(c *gin.Context, info *AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the authenticated user info from the Gin context.
// Returns nil if the request was not authenticated.
func GetAuthInfo(c *gin.Context) *AuthInfo {
	v, ok := c.Get(authInfoKey)
	if !ok {
		return nil
	}
	info, ok := v.(*AuthInfo)
	if !ok {
		return nil
	}
	return info
}

// AuthMiddleware returns gin middleware that authenticates requests with
// the given provider.
//
// # Description
//
// Extracts the bearer token, validates it, and stores the AuthInfo for
// handlers. Failed validation aborts the request with a 401 and the
// standard error envelope.
func AuthMiddleware(provider AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)

		authInfo, err := provider.Validate(c.Request.Context(), token)
		if err != nil {
			message := "authentication failed"
			if errors.Is(err, ErrUnauthorized) {
				message = "unauthorized"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": message},
			})
			return
		}

		SetAuthInfo(c, authInfo)
		c.Next()
	}
}

// extractBearerToken parses the Authorization header expecting
// "Bearer <token>". Returns empty string if the header is missing or
// malformed. The scheme is case-insensitive per RFC 7235.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
