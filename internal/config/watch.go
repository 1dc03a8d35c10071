package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 250 * time.Millisecond

// Watch reloads the config file whenever it is written and hands the new
// config to onChange. It watches the parent directory so editors that
// replace the file via rename are picked up. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("watching config", zap.String("path", abs))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts of writes from a single save.
			pending = time.After(watchDebounce)

		case <-pending:
			pending = nil
			cfg, err := Load(abs)
			if err != nil {
				logger.Warn("config reload failed", zap.Error(err))
				continue
			}
			logger.Info("config reloaded", zap.String("path", abs))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
