// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// DefaultSessionTTL applies when a create request does not set one.
// Study sessions are personal data; they should age out on their own.
const DefaultSessionTTL = 30 * 24 * time.Hour

// MaxSessionTTLMs caps client-requested TTLs at one year.
const MaxSessionTTLMs = int64(365 * 24 * time.Hour / time.Millisecond)

// SessionMetadata describes one tutoring session. Timestamps are Unix
// milliseconds UTC.
type SessionMetadata struct {
	SessionID     string `json:"session_id"`
	Title         string `json:"title,omitempty"`
	Topic         string `json:"topic,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
	TTLDurationMs int64  `json:"ttl_duration_ms,omitempty"`
	TTLExpiresAt  int64  `json:"ttl_expires_at,omitempty"`
	MessageCount  int    `json:"message_count"`
}

// Expired reports whether the session's TTL has passed at nowMs.
func (m *SessionMetadata) Expired(nowMs int64) bool {
	return m.TTLExpiresAt > 0 && nowMs >= m.TTLExpiresAt
}

// StoredMessage is one persisted conversation turn. Seq is the position in
// the session history, assigned by the store.
type StoredMessage struct {
	Seq       uint64 `json:"seq"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	Title         string `json:"title" validate:"max=200"`
	Topic         string `json:"topic" validate:"max=120"`
	TTLDurationMs int64  `json:"ttl_duration_ms" validate:"gte=0"`
}

// Validate checks the request after JSON binding.
func (r *CreateSessionRequest) Validate() error {
	return tutorValidate.Struct(r)
}
