// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTutorRequest() TutorRequest {
	return TutorRequest{
		Messages: []Message{{Role: "user", Content: "What is a function?"}},
	}
}

func TestTutorRequest_ValidMinimal(t *testing.T) {
	req := validTutorRequest()
	assert.NoError(t, req.Validate())
}

func TestTutorRequest_RequiresMessages(t *testing.T) {
	req := TutorRequest{}
	assert.Error(t, req.Validate())
}

func TestTutorRequest_RejectsUnknownRole(t *testing.T) {
	req := validTutorRequest()
	req.Messages[0].Role = "moderator"
	assert.Error(t, req.Validate())
}

func TestTutorRequest_RejectsOversizedContent(t *testing.T) {
	req := validTutorRequest()
	req.Messages[0].Content = strings.Repeat("a", MaxMessageContentBytes+1)
	assert.Error(t, req.Validate())
}

func TestTutorRequest_ContentAtLimitPasses(t *testing.T) {
	req := validTutorRequest()
	req.Messages[0].Content = strings.Repeat("a", MaxMessageContentBytes)
	assert.NoError(t, req.Validate())
}

func TestTutorRequest_MaxBytesCountsBytesNotRunes(t *testing.T) {
	req := validTutorRequest()
	// Each rune is multi-byte; rune count alone would pass.
	req.Messages[0].Content = strings.Repeat("π", MaxMessageContentBytes/2+1)
	assert.Error(t, req.Validate())
}

func TestTutorRequest_RejectsTooManyMessages(t *testing.T) {
	req := validTutorRequest()
	for i := 0; i < MaxMessagesPerRequest; i++ {
		req.Messages = append(req.Messages, Message{Role: "user", Content: "hi"})
	}
	assert.Error(t, req.Validate())
}

func TestTutorRequest_RejectsMalformedSessionID(t *testing.T) {
	req := validTutorRequest()
	req.SessionID = "not-a-uuid"
	assert.Error(t, req.Validate())
}

func TestTutorRequest_EnsureDefaults(t *testing.T) {
	req := validTutorRequest()
	require.Empty(t, req.RequestID)

	req.EnsureDefaults()

	assert.NotEmpty(t, req.RequestID)
	assert.Positive(t, req.Timestamp)
	assert.NoError(t, req.Validate())

	// Caller-provided values survive.
	id, ts := req.RequestID, req.Timestamp
	req.EnsureDefaults()
	assert.Equal(t, id, req.RequestID)
	assert.Equal(t, ts, req.Timestamp)
}

func TestTutorRequest_LastUserContent(t *testing.T) {
	req := TutorRequest{Messages: []Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}}
	assert.Equal(t, "second", req.LastUserContent())

	empty := TutorRequest{Messages: []Message{{Role: "assistant", Content: "x"}}}
	assert.Empty(t, empty.LastUserContent())
}

func TestCreateSessionRequest_TitleTooLong(t *testing.T) {
	req := CreateSessionRequest{Title: strings.Repeat("t", 201)}
	assert.Error(t, req.Validate())
}

func TestOCRRequest_RequiresBase64(t *testing.T) {
	req := OCRRequest{Image: "not base64!!"}
	assert.Error(t, req.Validate())

	req = OCRRequest{Image: "aGVsbG8="}
	assert.NoError(t, req.Validate())
}

func TestOCRRequest_RejectsUnknownFormat(t *testing.T) {
	req := OCRRequest{Image: "aGVsbG8=", Formats: []string{"mathml"}}
	assert.Error(t, req.Validate())
}

func TestSessionMetadata_Expired(t *testing.T) {
	m := SessionMetadata{TTLExpiresAt: 1000}
	assert.False(t, m.Expired(999))
	assert.True(t, m.Expired(1000))

	forever := SessionMetadata{}
	assert.False(t, forever.Expired(1<<60))
}
