// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/cmd/precalc/config"
)

// getServerBaseURL resolves the tutoring server address.
//
// Priority: PRECALC_SERVER_URL environment variable (used by tests and
// container overrides), then the loaded configuration.
func getServerBaseURL() string {
	if url := os.Getenv("PRECALC_SERVER_URL"); url != "" {
		return url
	}
	if config.Global.Server.URL != "" {
		return config.Global.Server.URL
	}
	return config.DefaultConfig().Server.URL
}

// apiClient returns the HTTP client used for server calls, bounded by
// the configured timeout.
func apiClient() *http.Client {
	timeout := config.Global.Server.TimeoutSeconds
	if timeout <= 0 {
		timeout = config.DefaultConfig().Server.TimeoutSeconds
	}
	return &http.Client{Timeout: time.Duration(timeout) * time.Second}
}

// apiError mirrors the server's error envelope.
type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// decodeAPIResponse checks the status code and decodes the body into
// out. Non-2xx responses are turned into errors carrying the server's
// message when one is present.
func decodeAPIResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var envelope apiErrorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			return fmt.Errorf("server returned %s: %s", resp.Status, envelope.Error.Message)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse server response: %w", err)
	}
	return nil
}
