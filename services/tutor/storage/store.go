// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
)

// ErrSessionNotFound is returned when a session ID has no stored metadata.
var ErrSessionNotFound = errors.New("session not found")

const (
	sessionKeyPrefix = "session/"
	messageKeyPrefix = "msg/"
)

// SessionStore persists tutoring sessions and their message history.
//
// Description:
//
//	All operations run inside BadgerDB transactions, so concurrent
//	handlers see consistent metadata and message sequence numbers.
//	Message sequence numbers are assigned from the session's
//	MessageCount, which is incremented in the same transaction that
//	writes the message.
//
// Thread Safety: Safe for concurrent use.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a store backed by an open database.
func NewSessionStore(db *DB) (*SessionStore, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	return &SessionStore{db: db}, nil
}

func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

func messageKey(id string, seq uint64) []byte {
	// Zero-padded so lexicographic key order matches sequence order.
	return []byte(fmt.Sprintf("%s%s/%020d", messageKeyPrefix, id, seq))
}

// Create persists new session metadata.
//
// Inputs:
//
//	meta - Session metadata. SessionID must be set by the caller.
//
// Outputs:
//
//	error - Non-nil if the session already exists or the write fails.
func (s *SessionStore) Create(meta datatypes.SessionMetadata) error {
	if meta.SessionID == "" {
		return errors.New("session id must not be empty")
	}
	key := sessionKey(meta.SessionID)

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("session %s already exists", meta.SessionID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check session %s: %w", meta.SessionID, err)
		}
		return putJSON(txn, key, meta)
	})
}

// Get returns the metadata for a session.
//
// Outputs:
//
//	datatypes.SessionMetadata - The stored metadata.
//	error - ErrSessionNotFound if the session does not exist.
func (s *SessionStore) Get(sessionID string) (datatypes.SessionMetadata, error) {
	var meta datatypes.SessionMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, sessionKey(sessionID), &meta)
	})
	return meta, err
}

// List returns metadata for all sessions, most recently updated first.
func (s *SessionStore) List() ([]datatypes.SessionMetadata, error) {
	var sessions []datatypes.SessionMetadata

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var meta datatypes.SessionMetadata
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return fmt.Errorf("decode session %s: %w", it.Item().Key(), err)
			}
			sessions = append(sessions, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Badger iterates in key order; callers want recency order.
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt > sessions[j].UpdatedAt
	})
	return sessions, nil
}

// AppendMessage appends a chat message to a session's history.
//
// Description:
//
//	Assigns the next sequence number from the session's MessageCount,
//	writes the message, and bumps MessageCount and UpdatedAt, all in
//	one transaction.
//
// Outputs:
//
//	datatypes.StoredMessage - The stored message with its assigned Seq.
//	error - ErrSessionNotFound if the session does not exist.
func (s *SessionStore) AppendMessage(sessionID, role, content string) (datatypes.StoredMessage, error) {
	now := time.Now().UnixMilli()
	var stored datatypes.StoredMessage

	err := s.db.Update(func(txn *badger.Txn) error {
		var meta datatypes.SessionMetadata
		if err := getJSON(txn, sessionKey(sessionID), &meta); err != nil {
			return err
		}

		stored = datatypes.StoredMessage{
			Seq:       uint64(meta.MessageCount),
			Role:      role,
			Content:   content,
			CreatedAt: now,
		}
		if err := putJSON(txn, messageKey(sessionID, stored.Seq), stored); err != nil {
			return err
		}

		meta.MessageCount++
		meta.UpdatedAt = now
		return putJSON(txn, sessionKey(sessionID), meta)
	})
	return stored, err
}

// History returns a session's messages in sequence order.
//
// Outputs:
//
//	[]datatypes.StoredMessage - Messages oldest first. Empty, not nil,
//	  for a session with no messages.
//	error - ErrSessionNotFound if the session does not exist.
func (s *SessionStore) History(sessionID string) ([]datatypes.StoredMessage, error) {
	messages := []datatypes.StoredMessage{}

	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(sessionKey(sessionID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("check session %s: %w", sessionID, err)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(messageKeyPrefix + sessionID + "/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var msg datatypes.StoredMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				return fmt.Errorf("decode message %s: %w", it.Item().Key(), err)
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// deleteBatchSize bounds how many message deletes share one transaction.
// A session with thousands of messages would otherwise overflow a single
// Badger transaction (ErrTxnTooBig) and never become deletable.
const deleteBatchSize = 1000

// Delete removes a session's metadata and all of its messages.
//
// Description:
//
//	The metadata key goes first, so the session disappears from listings
//	and History even if a later message batch fails partway.
//
// Outputs:
//
//	error - ErrSessionNotFound if the session does not exist.
func (s *SessionStore) Delete(sessionID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := sessionKey(sessionID)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("check session %s: %w", sessionID, err)
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete session %s: %w", sessionID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Collect message keys first; deleting while iterating is unsafe.
	var msgKeys [][]byte
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(messageKeyPrefix + sessionID + "/")
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			msgKeys = append(msgKeys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan messages for %s: %w", sessionID, err)
	}

	for start := 0; start < len(msgKeys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(msgKeys))
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, k := range msgKeys[start:end] {
				if err := txn.Delete(k); err != nil {
					return fmt.Errorf("delete message %s: %w", k, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ExpiredSessions returns the IDs of sessions whose TTL has elapsed.
//
// Inputs:
//
//	nowMs - Current time in Unix milliseconds.
func (s *SessionStore) ExpiredSessions(nowMs int64) ([]string, error) {
	var expired []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var meta datatypes.SessionMetadata
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return fmt.Errorf("decode session %s: %w", it.Item().Key(), err)
			}
			if meta.Expired(nowMs) {
				expired = append(expired, meta.SessionID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// Backup streams a full backup of the database to w.
//
// Description:
//
//	Uses BadgerDB's native backup format, which can be restored with
//	badger.DB.Load. Suitable for piping to a file or object storage.
//
// Outputs:
//
//	uint64 - The version the backup is valid until.
//	error - Non-nil if the backup stream fails.
func (s *SessionStore) Backup(w io.Writer) (uint64, error) {
	since, err := s.db.DB.Backup(w, 0)
	if err != nil {
		return 0, fmt.Errorf("backup database: %w", err)
	}
	return since, nil
}

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
