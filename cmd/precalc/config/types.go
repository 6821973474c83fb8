// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

// PrecalcConfig is the top-level CLI configuration, stored at
// ~/.precalc/precalc.yaml and created with defaults on first run.
type PrecalcConfig struct {
	Server ServerConfig `yaml:"server"`
	Backup BackupConfig `yaml:"backup"`
	Output OutputConfig `yaml:"output"`
}

// ServerConfig points the CLI at a running tutord instance.
type ServerConfig struct {
	// URL is the base URL of the tutoring server, without a trailing slash.
	URL string `yaml:"url"`

	// TimeoutSeconds bounds every HTTP request the CLI makes.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// BackupConfig controls where session backups land.
type BackupConfig struct {
	// Dir is the local directory backups are written to.
	Dir string `yaml:"dir"`

	// GCPProjectID and BucketName enable uploading backups to Google
	// Cloud Storage when both are set.
	GCPProjectID string `yaml:"gcp_project_id"`
	BucketName   string `yaml:"bucket_name"`

	// ServiceAccountKeyPath is the JSON key used to authenticate uploads.
	ServiceAccountKeyPath string `yaml:"service_account_key_path"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color forces styled output on ("always"), off ("never"), or
	// leaves it to terminal detection ("auto").
	Color string `yaml:"color"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() PrecalcConfig {
	return PrecalcConfig{
		Server: ServerConfig{
			URL:            "http://localhost:8080",
			TimeoutSeconds: 30,
		},
		Backup: BackupConfig{
			Dir: "backups",
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}
