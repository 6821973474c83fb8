// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the precalc CLI configuration from
// ~/.precalc/precalc.yaml, creating a default file on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".precalc"
	configFileName = "precalc.yaml"
)

var (
	// Global is the process-wide configuration, populated by Load.
	Global PrecalcConfig

	once    sync.Once
	loadErr error
)

// Load reads the configuration exactly once per process. Subsequent
// calls return the first result.
func Load() error {
	once.Do(func() {
		loadErr = loadInternal()
	})
	return loadErr
}

// Path returns the location of the config file, honoring the
// PRECALC_CONFIG override used by tests.
func Path() (string, error) {
	if override := os.Getenv("PRECALC_CONFIG"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

func loadInternal() error {
	path, err := Path()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return err
		}
		Global = DefaultConfig()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	Global = cfg
	return nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write default config %s: %w", path, err)
	}
	return nil
}
