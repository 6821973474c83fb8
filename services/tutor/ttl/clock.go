// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ttl provides time-to-live management for tutoring sessions.
// Expired sessions and their message history are deleted by a background
// scheduler so that learner data does not accumulate indefinitely.
package ttl

import (
	"fmt"
	"sync"
	"time"
)

// ClockChecker provides sanity checking for system time.
//
// # Description
//
// Validates that the system clock is within acceptable bounds before
// TTL expiration checks run. If the clock is set to the future, sessions
// are deleted prematurely; set to the past, they never expire. The
// checker guards both failure modes.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type ClockChecker interface {
	// CheckClockSanity verifies the system clock is reasonable.
	CheckClockSanity() error

	// CurrentTimeMs returns current Unix milliseconds if the clock is sane.
	CurrentTimeMs() (int64, error)
}

// ClockConfig contains configuration for the clock checker.
//
// # Fields
//
//   - MinValidTime: Earliest acceptable time.
//   - MaxValidTime: Latest acceptable time.
//   - MaxBackwardJump: Maximum allowed backward time jump between checks.
type ClockConfig struct {
	MinValidTime    time.Time
	MaxValidTime    time.Time
	MaxBackwardJump time.Duration
}

// DefaultClockConfig returns bounds suitable for production use.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		MinValidTime:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime:    time.Date(2040, 12, 31, 23, 59, 59, 0, time.UTC),
		MaxBackwardJump: 1 * time.Hour,
	}
}

// systemClockChecker implements ClockChecker against the real system clock.
type systemClockChecker struct {
	config ClockConfig

	mu        sync.Mutex
	lastSeen  time.Time
	nowFn     func() time.Time // injectable for tests
}

// NewClockChecker creates a checker with the given configuration.
func NewClockChecker(config ClockConfig) ClockChecker {
	return &systemClockChecker{
		config: config,
		nowFn:  time.Now,
	}
}

func (c *systemClockChecker) CheckClockSanity() error {
	_, err := c.CurrentTimeMs()
	return err
}

func (c *systemClockChecker) CurrentTimeMs() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFn()
	if now.Before(c.config.MinValidTime) {
		return 0, fmt.Errorf("system clock %s is before minimum valid time %s",
			now.Format(time.RFC3339), c.config.MinValidTime.Format(time.RFC3339))
	}
	if now.After(c.config.MaxValidTime) {
		return 0, fmt.Errorf("system clock %s is after maximum valid time %s",
			now.Format(time.RFC3339), c.config.MaxValidTime.Format(time.RFC3339))
	}
	if !c.lastSeen.IsZero() && c.lastSeen.Sub(now) > c.config.MaxBackwardJump {
		return 0, fmt.Errorf("system clock jumped backward from %s to %s",
			c.lastSeen.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	c.lastSeen = now
	return now.UnixMilli(), nil
}
