// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reference

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce batches rapid saves from an editor into one reload.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the library from dir whenever notation.json or
// vocabulary.json changes there. It blocks until ctx is cancelled, so run
// it on its own goroutine. The initial load of the directory must already
// have happened via LoadOverrides; Watch only handles subsequent edits.
func (l *Library) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	slog.Info("Watching reference override directory", "dir", dir)

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if name != "notation.json" && name != "vocabulary.json" {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				reload = time.After(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Reference watcher error", "error", err)
		case <-reload:
			reload = nil
			if err := l.LoadOverrides(dir); err != nil {
				slog.Error("Failed to reload reference overrides", "dir", dir, "error", err)
				continue
			}
			n, v := l.Counts()
			slog.Info("Reloaded reference overrides", "notation", n, "vocabulary", v)
		}
	}
}
