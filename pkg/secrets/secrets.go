// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package secrets holds provider API keys in memguard enclaves so they are
// encrypted at rest in process memory and only materialized for the
// duration of a call.
package secrets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/awnumar/memguard"
)

// ErrNotFound means no source yielded a non-empty value.
var ErrNotFound = errors.New("secret not found")

// Secret is an API key sealed in a memguard enclave.
type Secret struct {
	enclave *memguard.Enclave
}

// New seals value. The caller should not retain its own copy.
func New(value string) *Secret {
	return &Secret{enclave: memguard.NewEnclave([]byte(value))}
}

// FromEnv reads the first non-empty source and seals it. A source is an
// environment variable name, or a file path when prefixed with "file:"
// (container secret mounts, e.g. "file:/run/secrets/openai_api_key").
// The winning environment variable is unset afterwards so the plaintext
// does not linger in the environment block.
func FromEnv(sources ...string) (*Secret, error) {
	for _, src := range sources {
		if path, ok := strings.CutPrefix(src, "file:"); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			slog.Info("Read secret from file", "path", path)
			return New(strings.TrimSpace(string(data))), nil
		}
		if v := os.Getenv(src); v != "" {
			os.Unsetenv(src)
			return New(v), nil
		}
	}
	return nil, fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(sources, ", "))
}

// Use opens the enclave, passes the plaintext to fn, and wipes the working
// buffer before returning. The plaintext must not escape fn.
func (s *Secret) Use(fn func(value string) error) error {
	buf, err := s.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open secret enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.String())
}
