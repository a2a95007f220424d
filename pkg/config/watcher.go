// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls configuration files and reloads the configuration when one
// of them changes. Long running commands use it to pick up log settings
// without a restart.
type Watcher struct {
	mu        sync.RWMutex
	paths     []string
	load      func() (*Config, error)
	interval  time.Duration
	modTimes  map[string]time.Time
	config    *Config
	listeners []func(*Config)
	logger    *slog.Logger
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the polling interval for file changes.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WatchCLI returns a watcher that reloads with LoadWithCLI(args) whenever a
// file named by --config (or its profile sibling) changes.
func WatchCLI(args []string, opts ...WatcherOption) (*Watcher, error) {
	paths, _, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return NewWatcher(paths, func() (*Config, error) { return LoadWithCLI(args) }, opts...)
}

// NewWatcher loads the initial configuration with load and watches paths.
func NewWatcher(paths []string, load func() (*Config, error), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		paths:    paths,
		load:     load,
		interval: time.Second,
		modTimes: make(map[string]time.Time),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil {
			w.modTimes[path] = info.ModTime()
		}
	}
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	w.config = cfg
	return w, nil
}

// OnChange registers a callback run after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.changed() {
				w.reload(ctx)
			}
		}
	}
}

func (w *Watcher) changed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := false
	for _, path := range w.paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if last, ok := w.modTimes[path]; !ok || info.ModTime().After(last) {
			w.modTimes[path] = info.ModTime()
			changed = true
		}
	}
	return changed
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := w.load()
	if err != nil {
		w.logger.ErrorContext(ctx, "config.reload.failed", "error", err)
		return
	}

	w.mu.Lock()
	w.config = cfg
	listeners := append(([]func(*Config))(nil), w.listeners...)
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "config.reloaded")
	for _, fn := range listeners {
		fn(cfg)
	}
}
