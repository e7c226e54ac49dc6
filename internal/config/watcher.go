package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads Config from disk when its backing file changes,
// notifying registered callbacks with the old and new values.
//
// Reloads are debounced by reloadDelay so a burst of writes from an editor
// (truncate, then rewrite) only triggers one reload. Successive GetConfig
// calls can return different configs if a reload lands between them;
// callers that need consistency across several fields should read
// GetConfig once and use that snapshot.
type ConfigWatcher struct {
	configPath  string
	config      *Config
	loader      *ConfigLoader
	watcher     *fsnotify.Watcher
	callbacks   []ConfigChangeCallback
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	reloadDelay time.Duration
	lastReload  time.Time
}

// ConfigChangeCallback is invoked after a reload passes ValidateConfigChange,
// before the watcher swaps in the new config. Returning an error aborts the
// reload and leaves the old config in place.
type ConfigChangeCallback func(oldConfig, newConfig *Config) error

// NewConfigWatcher builds a watcher over configPath without starting it;
// call Start to load the initial config and begin watching.
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ConfigWatcher{
		configPath:  configPath,
		loader:      NewConfigLoader(filepath.Dir(configPath), "FUJINIO"),
		watcher:     watcher,
		callbacks:   make([]ConfigChangeCallback, 0),
		ctx:         ctx,
		cancel:      cancel,
		reloadDelay: 1 * time.Second,
	}, nil
}

// Start loads the initial config and, if it came from a file on disk,
// begins watching that file for changes in the background.
func (cw *ConfigWatcher) Start() error {
	config, err := cw.loader.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}

	cw.mu.Lock()
	cw.config = config
	cw.mu.Unlock()

	configFile := cw.loader.GetConfigPath()
	if configFile == "" {
		// Nothing on disk to watch (defaults-only run); hot reload is a
		// no-op until a config file shows up.
		return nil
	}

	if err := cw.watcher.Add(configFile); err != nil {
		return fmt.Errorf("failed to watch config file %s: %w", configFile, err)
	}

	go cw.watchLoop()

	return nil
}

// Stop ends the watch loop and releases the underlying fsnotify watcher.
func (cw *ConfigWatcher) Stop() error {
	cw.cancel()
	return cw.watcher.Close()
}

// GetConfig returns the most recently loaded config.
func (cw *ConfigWatcher) GetConfig() *Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config
}

// AddCallback registers callback to run on every successful reload.
func (cw *ConfigWatcher) AddCallback(callback ConfigChangeCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// watchLoop drains fsnotify events until Stop cancels cw.ctx.
func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case <-cw.ctx.Done():
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleFileEvent(event)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			fmt.Printf("config watcher error: %v\n", err)
		}
	}
}

// handleFileEvent debounces write/create events and schedules a reload
// reloadDelay after the first event in a burst.
func (cw *ConfigWatcher) handleFileEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
		now := time.Now()
		if now.Sub(cw.lastReload) < cw.reloadDelay {
			return
		}
		cw.lastReload = now

		time.AfterFunc(cw.reloadDelay, func() {
			if err := cw.reloadConfig(); err != nil {
				fmt.Printf("failed to reload config: %v\n", err)
			}
		})
	}
}

// reloadConfig re-reads the config file, rejects the reload if
// ValidateConfigChange objects, then runs callbacks and swaps cw.config.
func (cw *ConfigWatcher) reloadConfig() error {
	newConfig, err := cw.loader.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	cw.mu.RLock()
	oldConfig := cw.config
	cw.mu.RUnlock()

	if err := ValidateConfigChange(oldConfig, newConfig); err != nil {
		return fmt.Errorf("rejected config reload: %w", err)
	}

	for _, callback := range cw.callbacks {
		if err := callback(oldConfig, newConfig); err != nil {
			return fmt.Errorf("config change callback failed: %w", err)
		}
	}

	cw.mu.Lock()
	cw.config = newConfig
	cw.mu.Unlock()

	fmt.Println("config reloaded")
	return nil
}

// WatchConfig builds a ConfigWatcher over configPath, registers callback,
// and starts it in one call.
func WatchConfig(configPath string, callback ConfigChangeCallback) (*ConfigWatcher, error) {
	watcher, err := NewConfigWatcher(configPath)
	if err != nil {
		return nil, err
	}

	if callback != nil {
		watcher.AddCallback(callback)
	}

	if err := watcher.Start(); err != nil {
		return nil, err
	}

	return watcher, nil
}

// ValidateConfigChange rejects hot-reload changes that require a restart:
// the listen port and enabled-device set are read once at startup by
// cmd/fujinio to wire transports and devices, so changing them under a
// running engine would silently desync config from reality.
func ValidateConfigChange(oldConfig, newConfig *Config) error {
	if oldConfig == nil || newConfig == nil {
		return nil
	}

	if newConfig.Engine.TickInterval <= 0 {
		return fmt.Errorf("invalid engine tick interval: %s", newConfig.Engine.TickInterval)
	}

	if oldConfig.Devices.Modem.Enabled != newConfig.Devices.Modem.Enabled {
		return fmt.Errorf("devices.modem.enabled cannot change without a restart")
	}
	if oldConfig.Devices.Modem.ListenPort != newConfig.Devices.Modem.ListenPort {
		return fmt.Errorf("devices.modem.listen_port cannot change without a restart")
	}
	oldNet, newNet := oldConfig.Devices.NetworkService, newConfig.Devices.NetworkService
	if oldNet != nil && newNet != nil && oldNet.Enabled != newNet.Enabled {
		return fmt.Errorf("devices.network_service.enabled cannot change without a restart")
	}
	oldLegacy, newLegacy := oldConfig.Devices.LegacyNetwork, newConfig.Devices.LegacyNetwork
	if oldLegacy != nil && newLegacy != nil && oldLegacy.Enabled != newLegacy.Enabled {
		return fmt.Errorf("devices.legacy_network.enabled cannot change without a restart")
	}

	return nil
}
