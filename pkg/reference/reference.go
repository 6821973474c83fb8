// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reference serves the static study-aid data behind the notation
// translator and vocabulary guide: hand-authored records bundled into the
// binary, filtered by case-insensitive substring match.
//
// The bundled data never mutates after load. An optional override directory
// lets curriculum authors replace either data set at runtime (see Watch).
package reference

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

//go:embed data/notation.json data/vocabulary.json
var bundledData embed.FS

// NotationEntry is one row of the notation translator: a math symbol, how
// to say it out loud, and what it means in plain language.
type NotationEntry struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	LaTeX    string `json:"latex"`
	Spoken   string `json:"spoken"`
	Meaning  string `json:"meaning"`
	Example  string `json:"example"`
	Category string `json:"category"`
}

// VocabTerm is one row of the vocabulary guide.
type VocabTerm struct {
	ID         string `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
	Category   string `json:"category"`
}

// Library holds the loaded reference data. Reads take an RLock so Watch can
// swap data under load without tearing a search in half.
type Library struct {
	mu         sync.RWMutex
	notation   []NotationEntry
	vocabulary []VocabTerm
}

// Load parses the bundled data sets and returns a ready Library.
func Load() (*Library, error) {
	lib := &Library{}
	if err := lib.loadFrom(func(name string) ([]byte, error) {
		// embed paths always use forward slashes
		return bundledData.ReadFile("data/" + name)
	}); err != nil {
		return nil, err
	}
	return lib, nil
}

// LoadOverrides replaces either data set with files from dir. Missing files
// are not an error; the bundled data stays in place for them.
func (l *Library) LoadOverrides(dir string) error {
	return l.loadFrom(func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			return nil, nil
		}
		return data, err
	})
}

func (l *Library) loadFrom(read func(name string) ([]byte, error)) error {
	notationRaw, err := read("notation.json")
	if err != nil {
		return fmt.Errorf("failed to read notation data: %w", err)
	}
	vocabRaw, err := read("vocabulary.json")
	if err != nil {
		return fmt.Errorf("failed to read vocabulary data: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if notationRaw != nil {
		var entries []NotationEntry
		if err := json.Unmarshal(notationRaw, &entries); err != nil {
			return fmt.Errorf("failed to parse notation data: %w", err)
		}
		l.notation = entries
	}
	if vocabRaw != nil {
		var terms []VocabTerm
		if err := json.Unmarshal(vocabRaw, &terms); err != nil {
			return fmt.Errorf("failed to parse vocabulary data: %w", err)
		}
		l.vocabulary = terms
	}
	return nil
}

// SearchNotation returns every entry whose text fields contain query
// (case-insensitive). An empty query returns the full list. A non-empty
// category restricts the result further.
func (l *Library) SearchNotation(query, category string) []NotationEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]NotationEntry, 0, len(l.notation))
	for _, e := range l.notation {
		if category != "" && e.Category != category {
			continue
		}
		if q == "" || containsFold(q, e.Symbol, e.LaTeX, e.Spoken, e.Meaning, e.Example) {
			out = append(out, e)
		}
	}
	return out
}

// SearchVocabulary is SearchNotation for the vocabulary guide.
func (l *Library) SearchVocabulary(query, category string) []VocabTerm {
	l.mu.RLock()
	defer l.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]VocabTerm, 0, len(l.vocabulary))
	for _, t := range l.vocabulary {
		if category != "" && t.Category != category {
			continue
		}
		if q == "" || containsFold(q, t.Term, t.Definition, t.Example) {
			out = append(out, t)
		}
	}
	return out
}

// NotationByID returns the entry with the given id, or false.
func (l *Library) NotationByID(id string) (NotationEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.notation {
		if e.ID == id {
			return e, true
		}
	}
	return NotationEntry{}, false
}

// Categories returns the sorted union of categories across both data sets.
func (l *Library) Categories() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := map[string]bool{}
	for _, e := range l.notation {
		seen[e.Category] = true
	}
	for _, t := range l.vocabulary {
		seen[t.Category] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Counts returns the sizes of both data sets.
func (l *Library) Counts() (notation, vocabulary int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.notation), len(l.vocabulary)
}

func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
