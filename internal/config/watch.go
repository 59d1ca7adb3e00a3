package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/ownertask/go-owner-tasks/core"
)

// Watch reloads path whenever it is written or replaced and hands every
// valid result to onChange. Invalid files are logged and skipped. It blocks
// until ctx is done.
//
// The parent directory is watched rather than the file so that editors that
// save through a rename are still seen.
func Watch(ctx context.Context, path string, logger core.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(target)
			if err != nil {
				logger.Warn("config reload failed", core.F("path", target), core.F("error", err))
				continue
			}
			logger.Info("config reloaded", core.F("path", target))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", core.F("error", err))
		}
	}
}
