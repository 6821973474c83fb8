// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ttl

import (
	"context"
	"fmt"
	"log/slog"
)

// ExpiredSessionsFunc returns the IDs of sessions whose TTL has elapsed
// as of nowMs.
//
// # Description
//
// Decouples the cleaner from the concrete storage layer, allowing unit
// tests to inject mock implementations.
type ExpiredSessionsFunc func(nowMs int64) ([]string, error)

// DeleteSessionFunc deletes one session and all of its messages.
type DeleteSessionFunc func(sessionID string) error

// CleanupStats contains the outcome of one cleanup cycle.
//
// # Fields
//
//   - Examined: Number of expired sessions found.
//   - Deleted: Number of sessions successfully deleted.
//   - Failed: Number of sessions that failed to delete.
type CleanupStats struct {
	Examined int
	Deleted  int
	Failed   int
}

// SessionCleaner deletes expired tutoring sessions.
//
// # Description
//
// One cleanup cycle asks storage for expired session IDs and deletes
// each one, cascading to its message history. Individual delete failures
// are logged and counted but do not abort the cycle; the next cycle
// retries them.
//
// # Thread Safety
//
// Safe for concurrent use (no shared mutable state).
type SessionCleaner struct {
	expiredSessions ExpiredSessionsFunc
	deleteSession   DeleteSessionFunc
	clock           ClockChecker
	batchSize       int
}

// NewSessionCleaner creates a cleaner with injectable storage functions.
//
// # Inputs
//
//   - expiredSessions: Lists expired session IDs. Must not be nil.
//   - deleteSession: Deletes one session with its history. Must not be nil.
//   - clock: Clock sanity checker. Must not be nil.
//   - batchSize: Maximum sessions deleted per cycle. Must be positive.
func NewSessionCleaner(expiredSessions ExpiredSessionsFunc, deleteSession DeleteSessionFunc, clock ClockChecker, batchSize int) (*SessionCleaner, error) {
	if expiredSessions == nil {
		return nil, fmt.Errorf("expiredSessions must not be nil")
	}
	if deleteSession == nil {
		return nil, fmt.Errorf("deleteSession must not be nil")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock must not be nil")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batchSize must be positive, got %d", batchSize)
	}
	return &SessionCleaner{
		expiredSessions: expiredSessions,
		deleteSession:   deleteSession,
		clock:           clock,
		batchSize:       batchSize,
	}, nil
}

// CleanupCycle runs one pass over expired sessions.
//
// # Description
//
// Refuses to run if the clock sanity check fails, so a manipulated or
// drifted clock can never trigger premature deletion.
//
// # Outputs
//
//   - CleanupStats: Counts for the cycle, valid even on partial failure.
//   - error: Non-nil if the clock check or the expiry query fails.
func (c *SessionCleaner) CleanupCycle(ctx context.Context) (CleanupStats, error) {
	var stats CleanupStats

	nowMs, err := c.clock.CurrentTimeMs()
	if err != nil {
		return stats, fmt.Errorf("clock sanity check failed, skipping cleanup: %w", err)
	}

	expired, err := c.expiredSessions(nowMs)
	if err != nil {
		return stats, fmt.Errorf("query expired sessions: %w", err)
	}
	stats.Examined = len(expired)

	if len(expired) > c.batchSize {
		expired = expired[:c.batchSize]
	}

	for _, id := range expired {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if err := c.deleteSession(id); err != nil {
			stats.Failed++
			slog.Warn("expired session delete failed",
				"session_id", id,
				"error", err.Error(),
			)
			continue
		}
		stats.Deleted++
		slog.Info("expired session deleted", "session_id", id)
	}

	return stats, nil
}
