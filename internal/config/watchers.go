package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// ConfigWatcher reloads configuration on file change and notifies registered
// callbacks. Components that can apply settings live (the scheduler check
// interval) register here; everything else keeps its startup value.
type ConfigWatcher struct {
	config     *Config
	configPath string
	logger     logger.Logger
	mu         sync.RWMutex
	watchers   []func(*Config)
	stopCh     chan struct{}
}

func NewConfigWatcher(configPath string, log logger.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		configPath: configPath,
		logger:     log,
		watchers:   make([]func(*Config), 0),
		stopCh:     make(chan struct{}),
	}
}

// Start blocks watching for configuration file changes until ctx is done or
// Stop is called.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.configPath); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	w.logger.Info("configuration watcher started", "configPath", w.configPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				w.logger.Info("configuration file changed, reloading", "file", event.Name)
				if err := w.reloadConfig(); err != nil {
					w.logger.Error("failed to reload configuration", "error", err)
					continue
				}
				w.notifyWatchers()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("configuration watcher error", "error", err)

		case <-ctx.Done():
			return nil

		case <-w.stopCh:
			return nil
		}
	}
}

// RegisterWatcher adds a callback invoked after each successful reload.
func (w *ConfigWatcher) RegisterWatcher(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = append(w.watchers, callback)
}

// GetConfig returns the most recently loaded configuration.
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *ConfigWatcher) Stop() {
	close(w.stopCh)
}

func (w *ConfigWatcher) reloadConfig() error {
	newConfig, err := Load()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.config = newConfig
	w.mu.Unlock()
	return nil
}

func (w *ConfigWatcher) notifyWatchers() {
	w.mu.RLock()
	config := w.config
	callbacks := make([]func(*Config), len(w.watchers))
	copy(callbacks, w.watchers)
	w.mu.RUnlock()

	for _, callback := range callbacks {
		go func(cb func(*Config)) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("configuration watcher callback panicked", "panic", r)
				}
			}()
			cb(config)
		}(callback)
	}
}
