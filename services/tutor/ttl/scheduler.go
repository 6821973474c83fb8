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
	"sync"
	"time"
)

// SchedulerConfig holds configuration for the cleanup scheduler.
//
// # Fields
//
//   - Interval: How often to run cleanup cycles.
//   - SessionBatchSize: Maximum sessions deleted per cycle.
type SchedulerConfig struct {
	Interval         time.Duration
	SessionBatchSize int
}

// DefaultSchedulerConfig returns production defaults: hourly cycles,
// at most 100 sessions per cycle.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:         1 * time.Hour,
		SessionBatchSize: 100,
	}
}

// Scheduler runs session cleanup cycles on a fixed interval.
//
// # Description
//
// Manages the lifecycle of a background goroutine that periodically runs
// the SessionCleaner. Uses the ticker + done channel pattern for
// graceful shutdown.
//
// # Thread Safety
//
// All public methods are thread-safe.
type Scheduler struct {
	cleaner *SessionCleaner
	config  SchedulerConfig

	mu      sync.Mutex
	done    chan struct{}
	running bool
}

// NewScheduler creates a scheduler that is ready to Start().
func NewScheduler(cleaner *SessionCleaner, config SchedulerConfig) (*Scheduler, error) {
	if cleaner == nil {
		return nil, fmt.Errorf("cleaner must not be nil")
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", config.Interval)
	}
	return &Scheduler{
		cleaner: cleaner,
		config:  config,
	}, nil
}

// Start begins the background cleanup loop.
//
// # Description
//
// Starts a goroutine that runs cleanup at the configured interval until
// Stop() is called or the context is cancelled.
//
// # Outputs
//
//   - error: Non-nil if the scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	slog.Info("session TTL scheduler starting",
		"interval", s.config.Interval.String(),
		"session_batch_size", s.config.SessionBatchSize,
	)

	go s.runLoop(ctx)
	return nil
}

// Stop signals the loop to exit. Safe to call multiple times. Does not
// interrupt an in-progress cycle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	slog.Info("session TTL scheduler stopping")
	close(s.done)
	s.running = false
}

// RunNow triggers an immediate cleanup cycle outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (CleanupStats, error) {
	return s.cleaner.CleanupCycle(ctx)
}

func (s *Scheduler) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session TTL scheduler context cancelled")
			return
		case <-s.done:
			return
		case <-ticker.C:
			stats, err := s.cleaner.CleanupCycle(ctx)
			if err != nil {
				slog.Error("session TTL cleanup cycle failed", "error", err.Error())
				continue
			}
			if stats.Examined > 0 {
				slog.Info("session TTL cleanup cycle complete",
					"examined", stats.Examined,
					"deleted", stats.Deleted,
					"failed", stats.Failed,
				)
			}
		}
	}
}
