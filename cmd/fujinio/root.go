// Cobra root command for the fujinio runtime CLI.
package main

import (
	"fmt"
	"os"

	"github.com/markjfisher/fujinet-nio-sub001/internal/config"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	cfgStore *config.Config
	// cfgPathUsed is the config file viper actually resolved (possibly ""
	// for a defaults-only run), captured so runEngine can hand it to
	// config.WatchConfig for hot reload.
	cfgPathUsed string
)

var rootCmd = &cobra.Command{
	Use:   "fujinio",
	Short: "fujinio runs the FujiNet-NIO device engine",
	Long: `fujinio is the host-side I/O runtime for FujiNet-NIO devices.

It owns a device registry, a routing stage in front of it, and one or more
transports (the modern FujiBus packet transport and two legacy adapters)
that translate bus traffic into device requests.

Examples:
  fujinio run
  fujinio run --config ./configs/config.yaml
  fujinio version`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfigAndLogger(cmd)
	},
}

func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\nfujinio: fatal: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file or directory (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfigAndLogger loads the runtime config (env file, then config
// file/env vars/defaults via ConfigLoader) and sets up the process logger
// from it, before any subcommand's Run executes.
func initConfigAndLogger(cmd *cobra.Command) error {
	_ = config.NewEnvLoader().Load()

	loader := config.NewConfigLoader(cfgFile, "FUJINIO")
	cfg, err := loader.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		cfg.Log.Level = flag.Value.String()
	}
	cfgStore = cfg
	cfgPathUsed = loader.GetConfigPath()

	if _, err := logger.InitGlobalLogger(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		Caller:     cfg.Log.Caller,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if cfg.App.Debug {
		pterm.EnableDebugMessages()
	}

	return nil
}
