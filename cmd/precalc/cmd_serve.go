// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor"
)

// runServe starts the tutoring server in the foreground. Flags win over
// environment variables; both fall back to the server defaults.
func runServe(cmd *cobra.Command, args []string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := tutor.Config{
		Port:         getEnvInt("TUTOR_PORT", 8080),
		DataDir:      getEnvString("TUTOR_DATA_DIR", "./data"),
		Ephemeral:    os.Getenv("TUTOR_EPHEMERAL") == "true",
		ReferenceDir: os.Getenv("TUTOR_REFERENCE_DIR"),
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveDataDir != "" {
		cfg.DataDir = serveDataDir
	}
	if serveEphemeral {
		cfg.Ephemeral = true
	}
	if serveReferenceDir != "" {
		cfg.ReferenceDir = serveReferenceDir
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
