package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigLoader resolves a Config from, in increasing priority: built-in
// defaults, an optional YAML file on disk, then environment variables
// under envPrefix.
type ConfigLoader struct {
	configPath string
	envPrefix  string
	viper      *viper.Viper
}

// NewConfigLoader creates a ConfigLoader reading from configPath (a file
// or a directory to search), with environment overrides bound under
// envPrefix.
func NewConfigLoader(configPath, envPrefix string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = "FUJINIO"
	}

	return &ConfigLoader{
		configPath: configPath,
		envPrefix:  envPrefix,
		viper:      viper.New(),
	}
}

// LoadConfig builds the effective Config: defaults, then any config
// file found, then environment overrides, then a final sanity check.
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	cl.viper.SetConfigType("yaml")

	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.AutomaticEnv()
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cl.bindEnvVars()
	cl.setDefaults()

	if err := cl.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	var config Config
	if err := cl.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cl.validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadConfigFile reads cl.configPath directly when it names a file.
// Otherwise it searches cl.configPath and a couple of standard
// fallback locations for config.<environment>.yaml, falling back to a
// plain config.yaml. A missing file anywhere is not an error — the
// runtime is happy to start on defaults and environment variables
// alone.
func (cl *ConfigLoader) loadConfigFile() error {
	if cl.configPath == "" {
		if envPath := os.Getenv("FUJINIO_CONFIG_PATH"); envPath != "" {
			cl.configPath = envPath
		} else {
			cl.configPath = "./configs"
		}
	}

	if info, err := os.Stat(cl.configPath); err == nil && !info.IsDir() {
		cl.viper.SetConfigFile(cl.configPath)
		if err := cl.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", cl.configPath, err)
		}
		return nil
	}

	env := cl.getEnvironment()

	cl.viper.AddConfigPath(cl.configPath)
	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")

	configName := fmt.Sprintf("config.%s", env)
	cl.viper.SetConfigName(configName)

	if err := cl.viper.ReadInConfig(); err != nil {
		cl.viper.SetConfigName("config")
		if err := cl.viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				// No config file anywhere: run on defaults + env vars.
				return nil
			}
			return fmt.Errorf("config file not found: %w", err)
		}
	}

	return nil
}

// getEnvironment reports which environment's config file to prefer
// (FUJINIO_ENV, then GO_ENV, defaulting to "development").
func (cl *ConfigLoader) getEnvironment() string {
	env := os.Getenv("FUJINIO_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development"
	}
	return env
}

// bindEnvVars registers the environment variables that override specific
// config keys directly, ahead of the generic envPrefix/AutomaticEnv pass.
func (cl *ConfigLoader) bindEnvVars() {
	cl.viper.BindEnv("app.name", "FUJINIO_APP_NAME")
	cl.viper.BindEnv("app.version", "FUJINIO_APP_VERSION")
	cl.viper.BindEnv("app.environment", "FUJINIO_APP_ENVIRONMENT")
	cl.viper.BindEnv("app.debug", "FUJINIO_APP_DEBUG")

	cl.viper.BindEnv("log.level", "FUJINIO_LOG_LEVEL")
	cl.viper.BindEnv("log.file_path", "FUJINIO_LOG_FILE_PATH")

	cl.viper.BindEnv("engine.tick_interval", "FUJINIO_ENGINE_TICK_INTERVAL")

	cl.viper.BindEnv("devices.modem.listen_port", "FUJINIO_MODEM_LISTEN_PORT")
	cl.viper.BindEnv("devices.modem.auto_answer", "FUJINIO_MODEM_AUTO_ANSWER")
}

// setDefaults seeds viper with a value for every config key, so the
// runtime starts cleanly with no config file and no environment at all.
func (cl *ConfigLoader) setDefaults() {
	cl.viper.SetDefault("app.name", "fujinio")
	cl.viper.SetDefault("app.version", "0.1.0")
	cl.viper.SetDefault("app.environment", "development")
	cl.viper.SetDefault("app.debug", false)

	cl.viper.SetDefault("log.level", "info")
	cl.viper.SetDefault("log.format", "text")
	cl.viper.SetDefault("log.output", "stdout")
	cl.viper.SetDefault("log.file_path", "./logs/fujinio.log")
	cl.viper.SetDefault("log.max_size", 100)
	cl.viper.SetDefault("log.max_backups", 3)
	cl.viper.SetDefault("log.max_age", 28)
	cl.viper.SetDefault("log.compress", true)
	cl.viper.SetDefault("log.caller", false)

	cl.viper.SetDefault("engine.tick_interval", "20ms")

	cl.viper.SetDefault("transports.fujibus.enabled", true)
	cl.viper.SetDefault("transports.fujibus.channel", "loopback")

	cl.viper.SetDefault("transports.legacy_byte.enabled", false)
	cl.viper.SetDefault("transports.legacy_byte.channel", "loopback")
	cl.viper.SetDefault("transports.legacy_byte.data_length", 256)
	cl.viper.SetDefault("transports.legacy_byte.immediate_ack", false)

	cl.viper.SetDefault("transports.legacy_packet.enabled", false)
	cl.viper.SetDefault("transports.legacy_packet.channel", "loopback")

	cl.viper.SetDefault("devices.network_service.enabled", true)
	cl.viper.SetDefault("devices.network_service.http_timeout", "30s")

	cl.viper.SetDefault("devices.legacy_network.enabled", false)

	cl.viper.SetDefault("devices.modem.enabled", false)
	cl.viper.SetDefault("devices.modem.listen_port", 6400)
	cl.viper.SetDefault("devices.modem.auto_answer", false)
	cl.viper.SetDefault("devices.modem.use_telnet", true)
	cl.viper.SetDefault("devices.modem.baud", 9600)
}

// validateConfig rejects a handful of combinations that would otherwise
// fail much later, deep inside the engine or the modem listener.
func (cl *ConfigLoader) validateConfig(config *Config) error {
	if config.Engine.TickInterval <= 0 {
		return fmt.Errorf("invalid engine tick interval: %s", config.Engine.TickInterval)
	}

	if config.Devices.Modem.Enabled && config.Devices.Modem.ListenPort == 0 {
		return fmt.Errorf("modem device enabled but listen_port is 0")
	}

	return nil
}

// GetConfigPath returns the config file viper actually read, or "" if
// none was found (the runtime fell back to defaults/environment only).
func (cl *ConfigLoader) GetConfigPath() string {
	return cl.viper.ConfigFileUsed()
}

// LoadConfigFromFile loads a Config from a single named file, for callers
// (tests, the config watcher) that already know the exact path.
func LoadConfigFromFile(configFile string) (*Config, error) {
	configPath := filepath.Dir(configFile)
	loader := NewConfigLoader(configPath, "FUJINIO")
	return loader.LoadConfig()
}
