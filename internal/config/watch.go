package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"quorum/internal/logger"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Watch reloads the config file chain whenever one of its files changes and
// hands the new config to onChange. Invalid edits are logged and ignored.
// It blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	files, err := includeChain(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	tracked := make(map[string]struct{}, len(files))
	dirs := make(map[string]struct{})
	for _, f := range files {
		tracked[filepath.Clean(f)] = struct{}{}
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, hit := tracked[filepath.Clean(evt.Name)]; !hit {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config watcher error: %v", err)
		case <-pending:
			pending = nil
			cfg, err := Load(path)
			if err != nil {
				logger.Errorf("config reload failed, keeping previous settings: %v", err)
				continue
			}
			logger.Infof("config reloaded from %s", path)
			if onChange != nil {
				onChange(cfg)
			}
		}
	}
}
