// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command tutord starts the precalc tutoring HTTP server.
//
// # Environment Variables
//
//   - TUTOR_PORT: HTTP server port (default: 8080)
//   - TUTOR_DATA_DIR: BadgerDB session directory (default: ./data)
//   - TUTOR_EPHEMERAL: "true" keeps all sessions in memory
//   - TUTOR_REFERENCE_DIR: optional notation/vocabulary override directory
//   - LLM_BACKEND_TYPE: "ollama" or "openai" (default: ollama)
//   - OCR_PROVIDER: "http" or "stub" (default: stub)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: stdout traces)
//
// # Usage
//
//	go build -o tutord ./cmd/tutord
//	./tutord
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := tutor.Config{
		Port:         getEnvInt("TUTOR_PORT", 8080),
		DataDir:      getEnvString("TUTOR_DATA_DIR", "./data"),
		Ephemeral:    os.Getenv("TUTOR_EPHEMERAL") == "true",
		ReferenceDir: os.Getenv("TUTOR_REFERENCE_DIR"),
	}

	slog.Info("Starting tutor",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"ephemeral", cfg.Ephemeral,
	)

	svc, err := tutor.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create tutor service: %v", err)
	}
	if err := svc.Run(); err != nil {
		log.Fatalf("Tutor server error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
