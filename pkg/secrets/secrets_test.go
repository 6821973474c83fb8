// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_ReadsAndUnsetsVariable(t *testing.T) {
	t.Setenv("TEST_SECRET_KEY", "sk-value")

	s, err := FromEnv("TEST_SECRET_KEY")
	require.NoError(t, err)
	assert.Empty(t, os.Getenv("TEST_SECRET_KEY"), "env var should be wiped")

	var got string
	require.NoError(t, s.Use(func(v string) error {
		got = v
		return nil
	}))
	assert.Equal(t, "sk-value", got)
}

func TestFromEnv_FileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("sk-from-file\n"), 0o600))

	s, err := FromEnv("MISSING_VAR", "file:"+path)
	require.NoError(t, err)

	var got string
	require.NoError(t, s.Use(func(v string) error {
		got = v
		return nil
	}))
	assert.Equal(t, "sk-from-file", got, "file content should be trimmed")
}

func TestFromEnv_NotFound(t *testing.T) {
	_, err := FromEnv("DEFINITELY_NOT_SET_123", "file:/nonexistent/path")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUse_CanBeCalledRepeatedly(t *testing.T) {
	s := New("repeat")
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Use(func(v string) error {
			assert.Equal(t, "repeat", v)
			return nil
		}))
	}
}
