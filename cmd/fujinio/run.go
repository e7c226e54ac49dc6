// Command `fujinio run` builds the engine from config and pumps its tick
// loop until interrupted.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markjfisher/fujinet-nio-sub001/internal/channel"
	"github.com/markjfisher/fujinet-nio-sub001/internal/config"
	"github.com/markjfisher/fujinet-nio-sub001/internal/engine"
	"github.com/markjfisher/fujinet-nio-sub001/internal/legacynet"
	"github.com/markjfisher/fujinet-nio-sub001/internal/modem"
	"github.com/markjfisher/fujinet-nio-sub001/internal/netsvc"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"
	"github.com/markjfisher/fujinet-nio-sub001/internal/transport/fujibus"
	"github.com/markjfisher/fujinet-nio-sub001/internal/transport/legacy"
	"github.com/markjfisher/fujinet-nio-sub001/internal/transport/legacypacket"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const (
	networkServiceDeviceID = 0xFD
	modemDeviceID          = 0x50
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the fujinio engine until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEngine(cfgStore)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cfg *config.Config) error {
	log := logger.GetGlobalLogger()
	eng := engine.New(log)

	wireDevices(eng, cfg, log)
	if err := wireTransports(eng, cfg); err != nil {
		return err
	}

	pterm.Info.Printfln("fujinio engine starting (%d devices registered)", eng.Registry.Count())

	ticker := time.NewTicker(cfg.Engine.TickInterval)
	defer ticker.Stop()

	watcher, err := watchConfig(cfgPathUsed, log, ticker)
	if err != nil {
		log.Warnf("fujinio: config hot-reload disabled: %v", err)
	} else if watcher != nil {
		defer watcher.Stop()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			eng.Tick()
		case <-quit:
			pterm.Info.Printfln("fujinio: shutting down after %d ticks", eng.Ticks())
			return nil
		}
	}
}

// watchConfig hot-reloads log level and tick interval from cfgPath without
// a restart. Device enablement and the modem listen port can't change this
// way — ValidateConfigChange rejects those, since wireDevices/wireTransports
// already ran once against the startup config. Returns a nil watcher (and
// nil error) when cfgPath is empty, since there is nothing on disk to watch.
func watchConfig(cfgPath string, log logger.Logger, ticker *time.Ticker) (*config.ConfigWatcher, error) {
	if cfgPath == "" {
		return nil, nil
	}

	return config.WatchConfig(cfgPath, func(oldConfig, newConfig *config.Config) error {
		if err := logger.UpdateGlobal(&logger.Config{
			Level:      newConfig.Log.Level,
			Format:     newConfig.Log.Format,
			Output:     newConfig.Log.Output,
			FilePath:   newConfig.Log.FilePath,
			MaxSize:    newConfig.Log.MaxSize,
			MaxBackups: newConfig.Log.MaxBackups,
			MaxAge:     newConfig.Log.MaxAge,
			Compress:   newConfig.Log.Compress,
			Caller:     newConfig.Log.Caller,
		}); err != nil {
			return fmt.Errorf("apply reloaded log config: %w", err)
		}

		if newConfig.Engine.TickInterval != oldConfig.Engine.TickInterval {
			ticker.Reset(newConfig.Engine.TickInterval)
		}

		cfgStore = newConfig
		log.Infof("fujinio: config reloaded from %s", cfgPath)
		return nil
	})
}

func wireDevices(eng *engine.Engine, cfg *config.Config, log logger.Logger) {
	if cfg.Devices.NetworkService.Enabled {
		netDev := netsvc.New(log)
		if err := eng.Register(networkServiceDeviceID, netDev); err != nil {
			log.Errorf("fujinio: register network-service device: %v", err)
		}

		if cfg.Devices.LegacyNetwork.Enabled {
			// downstream is the registry itself, so an adapted Open/Read/
			// Write/Close reaches netDev through the normal dispatch path
			// (by DeviceID), the same as any other device.
			adapter := legacynet.New(eng.Registry, log)
			// As the Router's override, the adapter receives every request;
			// it translates legacy slot addresses and passes everything else
			// through unchanged to the registry.
			eng.Router.SetOverride(adapter)
		}
	}

	if cfg.Devices.Modem.Enabled {
		modemDev := modem.New(modem.Config{
			SocketOps:  modem.NewTCPSocketOps(),
			ListenPort: cfg.Devices.Modem.ListenPort,
			AutoAnswer: cfg.Devices.Modem.AutoAnswer,
			UseTelnet:  cfg.Devices.Modem.UseTelnet,
			Baud:       cfg.Devices.Modem.Baud,
		}, log)
		if err := eng.Register(modemDeviceID, modemDev); err != nil {
			log.Errorf("fujinio: register modem device: %v", err)
		}
	}
}

func wireTransports(eng *engine.Engine, cfg *config.Config) error {
	if cfg.Transports.FujiBus.Enabled {
		ch := resolveChannel(cfg.Transports.FujiBus.Channel)
		eng.AddTransport(fujibus.New(ch, nil))
	}

	if cfg.Transports.LegacyByte.Enabled {
		ch := resolveChannel(cfg.Transports.LegacyByte.Channel)
		traits := legacy.AtariSIOTraits()
		if cfg.Transports.LegacyByte.ImmediateAck {
			traits.ResponseStyle = legacy.ImmediateData
		}
		eng.AddTransport(legacy.NewByteTransport(ch, traits, nil))
	}

	if cfg.Transports.LegacyPacket.Enabled {
		ch := resolveChannel(cfg.Transports.LegacyPacket.Channel)
		eng.AddTransport(legacypacket.New(ch, nil))
	}

	if eng.Registry.Count() == 0 {
		return fmt.Errorf("fujinio: no devices enabled in config")
	}
	return nil
}

// resolveChannel maps a config channel name onto a concrete channel.Channel.
// Only the in-memory loopback channel is supported today: real serial/PTY
// backends are external collaborators (spec.md §1) this CLI doesn't pick a
// library for yet.
func resolveChannel(name string) channel.Channel {
	switch name {
	case "", "loopback":
		return channel.NewMemory()
	default:
		pterm.Warning.Printfln("fujinio: unknown channel %q, using loopback", name)
		return channel.NewMemory()
	}
}
