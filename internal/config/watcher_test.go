package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const initialYAML = `
engine:
  tick_interval: 20ms
devices:
  modem:
    enabled: false
    listen_port: 6400
log:
  level: info
`

const reloadedYAML = `
engine:
  tick_interval: 50ms
devices:
  modem:
    enabled: false
    listen_port: 6400
log:
  level: debug
`

func writeConfig(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, initialYAML)

	type reload struct{ old, new *Config }
	reloads := make(chan reload, 1)

	watcher, err := WatchConfig(path, func(oldConfig, newConfig *Config) error {
		reloads <- reload{oldConfig, newConfig}
		return nil
	})
	if err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
	defer watcher.Stop()

	if got := watcher.GetConfig().Log.Level; got != "info" {
		t.Fatalf("initial log level = %q, want info", got)
	}

	// Give the debounce window a moment, then rewrite the file.
	time.Sleep(50 * time.Millisecond)
	writeConfig(t, path, reloadedYAML)

	select {
	case r := <-reloads:
		if r.old.Log.Level != "info" {
			t.Errorf("callback old config log level = %q, want info", r.old.Log.Level)
		}
		if r.new.Log.Level != "debug" {
			t.Errorf("callback new config log level = %q, want debug", r.new.Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload callback")
	}

	// Callbacks run before the watcher swaps in the new config, so give
	// the swap a moment to land.
	deadline := time.Now().Add(time.Second)
	for watcher.GetConfig().Engine.TickInterval != 50*time.Millisecond && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := watcher.GetConfig().Engine.TickInterval; got != 50*time.Millisecond {
		t.Errorf("GetConfig().Engine.TickInterval = %v, want 50ms", got)
	}
}

func TestValidateConfigChangeRejectsModemPortChange(t *testing.T) {
	oldConfig := &Config{
		Engine: &EngineConfig{TickInterval: 20 * time.Millisecond},
		Devices: &DevicesConfig{
			Modem: &ModemConfig{Enabled: true, ListenPort: 6400},
		},
	}
	newConfig := &Config{
		Engine: &EngineConfig{TickInterval: 20 * time.Millisecond},
		Devices: &DevicesConfig{
			Modem: &ModemConfig{Enabled: true, ListenPort: 6401},
		},
	}

	if err := ValidateConfigChange(oldConfig, newConfig); err == nil {
		t.Fatal("expected ValidateConfigChange to reject a listen_port change, got nil")
	}
}

func TestValidateConfigChangeAllowsTickIntervalChange(t *testing.T) {
	oldConfig := &Config{
		Engine:  &EngineConfig{TickInterval: 20 * time.Millisecond},
		Devices: &DevicesConfig{Modem: &ModemConfig{Enabled: false}},
	}
	newConfig := &Config{
		Engine:  &EngineConfig{TickInterval: 50 * time.Millisecond},
		Devices: &DevicesConfig{Modem: &ModemConfig{Enabled: false}},
	}

	if err := ValidateConfigChange(oldConfig, newConfig); err != nil {
		t.Fatalf("expected tick interval change to be allowed, got: %v", err)
	}
}
