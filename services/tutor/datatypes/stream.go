// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/latex"

// Stream event types emitted on the SSE and websocket tutor channels.
const (
	StreamEventStatus = "status"
	StreamEventToken  = "token"
	StreamEventDone   = "done"
	StreamEventError  = "error"
)

// StreamEvent is one SSE frame of a streaming tutor reply. Id and
// CreatedAt are assigned by the writer.
type StreamEvent struct {
	Id        string `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionId string `json:"session_id,omitempty"`
	CreatedAt int64  `json:"created_at"`

	// Done-event fields: the full answer after LaTeX cleanup.
	Answer       string        `json:"answer,omitempty"`
	LatexIssues  []latex.Issue `json:"latex_issues,omitempty"`
	LatexChanged bool          `json:"latex_changed,omitempty"`
}
