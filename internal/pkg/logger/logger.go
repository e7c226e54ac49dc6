// Package logger provides the structured logging ambient concern shared by
// every transport and device in this repo. It wraps logrus + lumberjack,
// the same stack the rest of this codebase family uses, behind a small
// interface so the hard-core packages depend on an interface rather than a
// concrete logging library.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls level, format and destination of a Logger.
type Config struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	Output     string `yaml:"output" mapstructure:"output"`
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Caller     bool   `yaml:"caller" mapstructure:"caller"`
}

// DefaultConfig returns sane defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
		Output: "stdout",
	}
}

// Logger is the logging surface every package in internal/ depends on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

// nopLogger discards everything. Used when a caller doesn't supply a Logger
// so the hard-core packages never have to nil-check.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{})     {}
func (nopLogger) Infof(string, ...interface{})      {}
func (nopLogger) Warnf(string, ...interface{})      {}
func (nopLogger) Errorf(string, ...interface{})     {}
func (n nopLogger) WithField(string, interface{}) Logger { return n }

// Nop is a Logger that discards everything.
var Nop Logger = nopLogger{}

// OrNop returns l, or Nop if l is nil. Callers use this to avoid storing a
// possibly-nil interface.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}

// logrusLogger adapts *logrus.Logger / *logrus.Entry to Logger.
type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// Manager owns the configured logrus instance and supports runtime
// reconfiguration (the config store's hot-reload callback calls Update).
type Manager struct {
	logger *logrus.Logger
	config *Config
}

// New builds a Manager from cfg, configuring level, formatter and output.
func New(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("invalid log level %q, defaulting to info", cfg.Level)
	}
	l.SetLevel(level)

	if err := setFormatter(l, cfg); err != nil {
		return nil, fmt.Errorf("set log formatter: %w", err)
	}
	if err := setOutput(l, cfg); err != nil {
		return nil, fmt.Errorf("set log output: %w", err)
	}
	l.SetReportCaller(cfg.Caller)

	return &Manager{logger: l, config: cfg}, nil
}

// Logger returns a Logger bound to this manager's current logrus instance.
func (m *Manager) Logger() Logger {
	return &logrusLogger{entry: logrus.NewEntry(m.logger)}
}

var globalManager *Manager

// InitGlobalLogger builds the process-wide Manager from cfg and returns its
// Logger. Later calls replace the global Manager; GetGlobalLogger always
// reflects the most recent call.
func InitGlobalLogger(cfg *Config) (Logger, error) {
	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	globalManager = m
	return m.Logger(), nil
}

// GetGlobalLogger returns the process-wide Logger, initializing it with
// DefaultConfig if InitGlobalLogger was never called.
func GetGlobalLogger() Logger {
	if globalManager == nil {
		m, _ := New(DefaultConfig())
		globalManager = m
	}
	return globalManager.Logger()
}

// UpdateGlobal reconfigures the process-wide Manager in place. Called from
// the config watcher's hot-reload callback so a running process can pick up
// a new log level without a restart.
func UpdateGlobal(cfg *Config) error {
	if globalManager == nil {
		_, err := InitGlobalLogger(cfg)
		return err
	}
	return globalManager.Update(cfg)
}

// Update reconfigures level/format/output in place, used by the config
// store's hot-reload path.
func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("logger: nil config")
	}

	if cfg.Level != m.config.Level {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		m.logger.SetLevel(level)
	}
	if cfg.Format != m.config.Format {
		if err := setFormatter(m.logger, cfg); err != nil {
			return fmt.Errorf("update log formatter: %w", err)
		}
	}
	if cfg.Output != m.config.Output || cfg.FilePath != m.config.FilePath {
		if err := setOutput(m.logger, cfg); err != nil {
			return fmt.Errorf("update log output: %w", err)
		}
	}
	m.logger.SetReportCaller(cfg.Caller)
	m.config = cfg
	return nil
}

func setFormatter(l *logrus.Logger, cfg *Config) error {
	const timestampFormat = "2006-01-02 15:04:05.000"

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	return nil
}

func setOutput(l *logrus.Logger, cfg *Config) error {
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	case "file":
		if cfg.FilePath == "" {
			return fmt.Errorf("file path required when output is file")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}

		rotated := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}

		if strings.EqualFold(cfg.Level, "debug") {
			l.SetOutput(io.MultiWriter(os.Stdout, rotated))
		} else {
			l.SetOutput(rotated)
		}
	default:
		return fmt.Errorf("unsupported log output: %s", cfg.Output)
	}
	return nil
}
