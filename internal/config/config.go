// Package config holds the typed configuration tree for the fujinio
// runtime: engine timing, transport selection, and device enablement.
package config

import "time"

// Config is the root configuration for the fujinio runtime.
type Config struct {
	App        *AppConfig        `yaml:"app" mapstructure:"app"`
	Log        *LogConfig        `yaml:"log" mapstructure:"log"`
	Engine     *EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Transports *TransportsConfig `yaml:"transports" mapstructure:"transports"`
	Devices    *DevicesConfig    `yaml:"devices" mapstructure:"devices"`
}

// AppConfig identifies the running process for logs and diagnostics.
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Version     string `yaml:"version" mapstructure:"version"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// LogConfig mirrors logger.Config's yaml/mapstructure shape so it can be
// unmarshaled straight into it at the cmd layer.
type LogConfig struct {
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

// EngineConfig controls the composition root's tick pump (spec.md §5).
type EngineConfig struct {
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
}

// TransportsConfig enumerates the bus-facing transports the engine wires
// in at startup. Each transport binds to an abstract channel.Channel;
// concrete channels (serial UART, PTY, UDP, ...) are external
// collaborators (spec.md §1) chosen at the cmd layer, not here.
type TransportsConfig struct {
	FujiBus      *FujiBusTransportConfig      `yaml:"fujibus" mapstructure:"fujibus"`
	LegacyByte   *LegacyByteTransportConfig   `yaml:"legacy_byte" mapstructure:"legacy_byte"`
	LegacyPacket *LegacyPacketTransportConfig `yaml:"legacy_packet" mapstructure:"legacy_packet"`
}

// FujiBusTransportConfig configures the modern SLIP+descriptor transport.
type FujiBusTransportConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Channel string `yaml:"channel" mapstructure:"channel"` // "loopback" or a device path
}

// LegacyByteTransportConfig configures the Atari SIO-style byte transport.
type LegacyByteTransportConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Channel      string `yaml:"channel" mapstructure:"channel"`
	DataLength   int    `yaml:"data_length" mapstructure:"data_length"`
	ImmediateAck bool   `yaml:"immediate_ack" mapstructure:"immediate_ack"` // ResponseStyle: ImmediateData
}

// LegacyPacketTransportConfig configures the IWM-style packet transport.
type LegacyPacketTransportConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Channel string `yaml:"channel" mapstructure:"channel"`
}

// DevicesConfig enumerates the devices the engine registers.
type DevicesConfig struct {
	NetworkService *NetworkServiceConfig `yaml:"network_service" mapstructure:"network_service"`
	LegacyNetwork  *LegacyNetworkConfig  `yaml:"legacy_network" mapstructure:"legacy_network"`
	Modem          *ModemConfig          `yaml:"modem" mapstructure:"modem"`
}

// NetworkServiceConfig configures the 0xFD modern network-service device.
type NetworkServiceConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
}

// LegacyNetworkConfig configures the 0x71-0x78 legacy adapter bridging to
// the network-service device.
type LegacyNetworkConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ModemConfig configures the AT-command modem device.
type ModemConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	ListenPort uint16 `yaml:"listen_port" mapstructure:"listen_port"`
	AutoAnswer bool   `yaml:"auto_answer" mapstructure:"auto_answer"`
	UseTelnet  bool   `yaml:"use_telnet" mapstructure:"use_telnet"`
	Baud       uint32 `yaml:"baud" mapstructure:"baud"`
}
