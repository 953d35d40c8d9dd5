package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kubeschema/kubeschema/internal/logger"
)

// Manager provides thread-safe access to the effective source registry
// configuration. The config file is read-only from this process; all updates
// come from external tooling, so the manager only observes changes.
//
// On an invalid external update the last known good configuration stays
// active.
type Manager interface {
	// GetConfig safely retrieves the current configuration.
	GetConfig() *Config

	// Reload re-resolves and re-loads the configuration, applying it if
	// valid and notifying reload listeners.
	Reload() error

	// Watch observes the configuration file for external changes and
	// reloads on updates. Blocks until the context is cancelled. No-op
	// when the effective configuration came from built-in defaults.
	Watch(ctx context.Context) error

	// OnReload registers a callback invoked after every successful reload.
	OnReload(fn func(*Config))

	// Close releases file watcher resources.
	Close() error
}

type manager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string

	callbackMu sync.Mutex
	callbacks  []func(*Config)

	watcherMu sync.Mutex
	watcher   *fsnotify.Watcher
}

// NewManager creates a Manager for the given explicit config path (may be
// empty, in which case the usual path resolution applies). The initial
// configuration is loaded eagerly; a hard configuration error fails
// construction.
func NewManager(configPath string) (Manager, error) {
	m := &manager{configPath: configPath}
	if err := m.Reload(); err != nil {
		return nil, fmt.Errorf("failed to load initial configuration: %w", err)
	}
	return m, nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) Reload() error {
	newConfig, err := Load(m.configPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = newConfig
	m.mu.Unlock()

	m.callbackMu.Lock()
	callbacks := make([]func(*Config), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.callbackMu.Unlock()
	for _, fn := range callbacks {
		fn(newConfig)
	}

	return nil
}

func (m *manager) OnReload(fn func(*Config)) {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

func (m *manager) Watch(ctx context.Context) error {
	path := resolvePath(m.configPath)
	if path == "" {
		logger.Debug("No configuration file in use, nothing to watch")
		<-ctx.Done()
		return ctx.Err()
	}

	m.watcherMu.Lock()
	if m.watcher != nil {
		m.watcherMu.Unlock()
		return fmt.Errorf("config watcher is already running")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.watcherMu.Unlock()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	m.watcher = watcher
	m.watcherMu.Unlock()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch config file %s: %w", path, err)
	}
	logger.Infof("Watching configuration file: %s", path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher event channel closed")
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Infof("External config update detected, reloading")
				if err := m.Reload(); err != nil {
					// Previous config remains active.
					logger.Errorf("Failed to reload config: %v", err)
				}
			}
			// Kubernetes ConfigMap updates replace the file via symlink
			// swaps, which surface as removes.
			if event.Has(fsnotify.Remove) {
				_ = watcher.Add(path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logger.Errorf("File watcher error: %v", err)
		}
	}
}

func (m *manager) Close() error {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()

	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close file watcher: %w", err)
		}
		m.watcher = nil
	}
	return nil
}
