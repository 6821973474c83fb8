// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tutor assembles the tutoring HTTP service.
//
// # Description
//
// The tutor service coordinates every component behind the API: the LLM
// client, the OCR provider, BadgerDB session storage with TTL cleanup,
// the bundled notation/vocabulary reference, and the OpenTelemetry and
// Prometheus observability stack. Construction wires everything; Run
// starts the Gin server and blocks.
//
// # Usage
//
//	cfg := tutor.Config{Port: 8080}
//	svc, err := tutor.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/reference"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/llm"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/ocr"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/observability"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/routes"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/storage"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/ttl"
)

// Service is the tutor server lifecycle.
//
// Run blocks until the server stops. Router exposes the configured Gin
// engine for integration tests.
type Service interface {
	Run() error
	Router() *gin.Engine
}

// Config holds tutor service configuration. Zero values use defaults.
type Config struct {
	// Port is the HTTP server port. Default: 8080.
	Port int

	// DataDir is the BadgerDB directory. Default: "./data". Ignored
	// when Ephemeral is set.
	DataDir string

	// Ephemeral keeps all session data in memory. Nothing survives a
	// restart; useful for demos and tests.
	Ephemeral bool

	// ReferenceDir optionally overrides the bundled notation and
	// vocabulary data, with live reload on file changes.
	ReferenceDir string

	// GinMode sets the Gin framework mode. Default: GIN_MODE env or
	// "debug".
	GinMode string

	// TTLCleanupInterval is how often expired sessions are purged.
	// Default: 1 hour.
	TTLCleanupInterval time.Duration

	// Telemetry configures tracing and metrics export. Zero value uses
	// observability.DefaultConfig.
	Telemetry observability.Config
}

type service struct {
	config       Config
	router       *gin.Engine
	db           *storage.DB
	store        *storage.SessionStore
	library      *reference.Library
	llmClient    llm.LLMClient
	ocrClient    ocr.Client
	ttlScheduler *ttl.Scheduler
	otelShutdown func(context.Context) error

	// cancel stops the TTL scheduler loop and the reference watcher.
	cancel context.CancelFunc
}

// New wires a tutor Service from cfg.
//
// # Description
//
// Initialization order matters: telemetry first so later components can
// record metrics, then storage, reference data, the AI clients, and the
// TTL scheduler. A failure after storage has opened closes the database
// before returning.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	shutdown, err := observability.Init(context.Background(), s.config.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	s.otelShutdown = shutdown
	observability.InitMetrics()

	if err := s.initStorage(); err != nil {
		s.cleanup()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if err := s.initReference(ctx); err != nil {
		s.cleanup()
		return nil, err
	}
	if err := s.initClients(); err != nil {
		s.cleanup()
		return nil, err
	}
	if err := s.initTTLScheduler(ctx); err != nil {
		s.cleanup()
		return nil, err
	}

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting tutor server",
		"port", s.config.Port,
		"ephemeral", s.config.Ephemeral,
	)
	return s.router.Run(addr)
}

func (s *service) Router() *gin.Engine {
	return s.router
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.TTLCleanupInterval == 0 {
		cfg.TTLCleanupInterval = time.Hour
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry = observability.DefaultConfig()
	}
	return cfg
}

func (s *service) initStorage() error {
	storageCfg := storage.DefaultConfig()
	storageCfg.Path = s.config.DataDir
	if s.config.Ephemeral {
		storageCfg = storage.InMemoryConfig()
	}
	storageCfg.Logger = slog.Default()

	db, err := storage.Open(storageCfg)
	if err != nil {
		return fmt.Errorf("open session database: %w", err)
	}
	s.db = db

	s.store, err = storage.NewSessionStore(db)
	if err != nil {
		return fmt.Errorf("create session store: %w", err)
	}
	return nil
}

func (s *service) initReference(ctx context.Context) error {
	library, err := reference.Load()
	if err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}

	if dir := s.config.ReferenceDir; dir != "" {
		if err := library.LoadOverrides(dir); err != nil {
			slog.Warn("Reference overrides failed to load, using bundled data",
				"dir", dir, "error", err)
		}
		// Watch blocks until ctx is cancelled.
		go func() {
			if err := library.Watch(ctx, dir); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("Reference watcher stopped", "dir", dir, "error", err)
			}
		}()
	}

	notation, vocabulary := library.Counts()
	slog.Info("Reference data loaded",
		"notation_entries", notation,
		"vocabulary_terms", vocabulary,
	)
	s.library = library
	return nil
}

func (s *service) initClients() error {
	llmClient, err := llm.NewFromEnv()
	if err != nil {
		return fmt.Errorf("init LLM client: %w", err)
	}
	s.llmClient = llmClient

	ocrClient, err := ocr.NewFromEnv()
	if err != nil {
		return fmt.Errorf("init OCR client: %w", err)
	}
	s.ocrClient = ocrClient
	return nil
}

func (s *service) initTTLScheduler(ctx context.Context) error {
	cleaner, err := ttl.NewSessionCleaner(
		s.store.ExpiredSessions,
		s.store.Delete,
		ttl.NewClockChecker(ttl.DefaultClockConfig()),
		ttl.DefaultSchedulerConfig().SessionBatchSize,
	)
	if err != nil {
		return fmt.Errorf("create session cleaner: %w", err)
	}

	schedulerCfg := ttl.DefaultSchedulerConfig()
	schedulerCfg.Interval = s.config.TTLCleanupInterval
	scheduler, err := ttl.NewScheduler(cleaner, schedulerCfg)
	if err != nil {
		return fmt.Errorf("create TTL scheduler: %w", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start TTL scheduler: %w", err)
	}
	s.ttlScheduler = scheduler
	return nil
}

func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(otelgin.Middleware(s.config.Telemetry.ServiceName))

	routes.SetupRoutes(router, routes.Deps{
		LLM:     s.llmClient,
		OCR:     s.ocrClient,
		Store:   s.store,
		Library: s.library,
	})
	s.router = router
}

func (s *service) cleanup() {
	if s.ttlScheduler != nil {
		s.ttlScheduler.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Failed to close session database", "error", err)
		}
	}
	if s.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.otelShutdown(ctx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}
}
