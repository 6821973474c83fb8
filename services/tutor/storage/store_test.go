// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()

	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSessionStore(db)
	require.NoError(t, err)
	return store
}

func newTestMeta(id string) datatypes.SessionMetadata {
	now := time.Now().UnixMilli()
	return datatypes.SessionMetadata{
		SessionID:     id,
		Title:         "Polynomial practice",
		Topic:         "polynomials",
		CreatedAt:     now,
		UpdatedAt:     now,
		TTLDurationMs: datatypes.DefaultSessionTTL.Milliseconds(),
		TTLExpiresAt:  now + datatypes.DefaultSessionTTL.Milliseconds(),
	}
}

// TestCreateAndGet verifies round-tripping session metadata.
func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	meta := newTestMeta("sess-1")

	require.NoError(t, store.Create(meta))

	got, err := store.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

// TestCreateDuplicate verifies a session ID cannot be reused.
func TestCreateDuplicate(t *testing.T) {
	store := newTestStore(t)
	meta := newTestMeta("sess-1")

	require.NoError(t, store.Create(meta))
	err := store.Create(meta)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

// TestGetMissing verifies the not-found sentinel.
func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// TestAppendMessageAssignsSequence verifies sequence numbers and
// MessageCount stay in lockstep.
func TestAppendMessageAssignsSequence(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Create(newTestMeta("sess-1")))

	m0, err := store.AppendMessage("sess-1", "user", "What is a polynomial?")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m0.Seq)

	m1, err := store.AppendMessage("sess-1", "assistant", "A sum of terms.")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m1.Seq)

	meta, err := store.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, meta.MessageCount)
}

// TestAppendMessageMissingSession verifies appends require an existing session.
func TestAppendMessageMissingSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendMessage("nope", "user", "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// TestHistoryOrder verifies messages come back oldest first even past
// single-digit sequence numbers.
func TestHistoryOrder(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Create(newTestMeta("sess-1")))

	// Enough messages to catch lexicographic vs numeric ordering bugs.
	for i := 0; i < 12; i++ {
		_, err := store.AppendMessage("sess-1", "user", "message")
		require.NoError(t, err)
	}

	history, err := store.History("sess-1")
	require.NoError(t, err)
	require.Len(t, history, 12)
	for i, msg := range history {
		assert.Equal(t, uint64(i), msg.Seq)
	}
}

// TestHistoryEmpty verifies a fresh session has an empty, non-nil history.
func TestHistoryEmpty(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Create(newTestMeta("sess-1")))

	history, err := store.History("sess-1")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

// TestHistoryMissingSession verifies history requires an existing session.
func TestHistoryMissingSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.History("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// TestListRecencyOrder verifies List returns most recently updated first.
func TestListRecencyOrder(t *testing.T) {
	store := newTestStore(t)

	older := newTestMeta("sess-old")
	older.UpdatedAt = 1000
	newer := newTestMeta("sess-new")
	newer.UpdatedAt = 2000

	require.NoError(t, store.Create(older))
	require.NoError(t, store.Create(newer))

	sessions, err := store.List()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "sess-new", sessions[0].SessionID)
	assert.Equal(t, "sess-old", sessions[1].SessionID)
}

// TestDeleteRemovesMessages verifies deletion covers the message history.
func TestDeleteRemovesMessages(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Create(newTestMeta("sess-1")))
	_, err := store.AppendMessage("sess-1", "user", "hello")
	require.NoError(t, err)

	require.NoError(t, store.Delete("sess-1"))

	_, err = store.Get("sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.History("sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Recreating the session must not resurrect old messages.
	require.NoError(t, store.Create(newTestMeta("sess-1")))
	history, err := store.History("sess-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

// TestDeleteLongSession verifies a session with more messages than one
// delete batch is removed completely.
func TestDeleteLongSession(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Create(newTestMeta("sess-long")))

	for i := 0; i < deleteBatchSize+5; i++ {
		_, err := store.AppendMessage("sess-long", "user", "m")
		require.NoError(t, err)
	}

	require.NoError(t, store.Delete("sess-long"))

	_, err := store.Get("sess-long")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// No message keys may survive the chunked batches.
	require.NoError(t, store.Create(newTestMeta("sess-long")))
	history, err := store.History("sess-long")
	require.NoError(t, err)
	assert.Empty(t, history)
}

// TestDeleteMissing verifies deleting an unknown session errors.
func TestDeleteMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.Delete("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// TestExpiredSessions verifies TTL filtering.
func TestExpiredSessions(t *testing.T) {
	store := newTestStore(t)

	live := newTestMeta("sess-live")
	dead := newTestMeta("sess-dead")
	dead.TTLExpiresAt = 500

	require.NoError(t, store.Create(live))
	require.NoError(t, store.Create(dead))

	expired, err := store.ExpiredSessions(1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-dead"}, expired)
}

// TestBackupProducesData verifies the backup stream is non-empty once
// the database has content.
func TestBackupProducesData(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Create(newTestMeta("sess-1")))

	var buf bytes.Buffer
	_, err := store.Backup(&buf)
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}