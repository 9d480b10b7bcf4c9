package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

var (
	homePath    string
	debugMode   bool
	configPath  = filepath.Join("config", "config.yaml")
	defaultHome = os.ExpandEnv("$HOME/.ybrly")
)

const (
	flagHome  = "home"
	flagDebug = "debug"
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute(modules ...config.ModuleI) error {
	// rootCmd represents the base command when called without any subcommands
	var rootCmd = &cobra.Command{
		Use:   "ybrly",
		Short: "This application relays headers and messages between bridged chains",
	}

	cobra.EnableCommandSorting = false
	rootCmd.SilenceUsage = true

	// Register top level flags --home and --debug
	rootCmd.PersistentFlags().StringVar(&homePath, flagHome, defaultHome, "set home directory")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, flagDebug, "d", false, "debug output")
	if err := viper.BindPFlag(flagHome, rootCmd.PersistentFlags().Lookup(flagHome)); err != nil {
		return err
	}
	if err := viper.BindPFlag(flagDebug, rootCmd.PersistentFlags().Lookup(flagDebug)); err != nil {
		return err
	}

	defaultConfig := config.DefaultConfig(filepath.Join(defaultHome, configPath))
	ctx := config.NewContext(&defaultConfig, modules...)

	var shutdownTelemetry func(context.Context) error
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// reads `homeDir/config/config.yaml` into `ctx.Config` before each command
		if err := initConfig(ctx, viper.New()); err != nil {
			return err
		}
		if err := initLogger(ctx); err != nil {
			return err
		}
		var err error
		if shutdownTelemetry, err = telemetry.SetupOTelSDK(cmd.Context()); err != nil {
			return fmt.Errorf("failed to set up the OpenTelemetry SDK: %w", err)
		}
		return initChains(ctx)
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		if shutdownTelemetry == nil {
			return nil
		}
		return shutdownTelemetry(context.WithoutCancel(cmd.Context()))
	}

	rootCmd.AddCommand(
		configCmd(ctx),
		chainsCmd(ctx),
		bridgesCmd(ctx),
		transactionCmd(ctx),
		queryCmd(ctx),
		relayHeadersCmd(ctx),
		relayMessagesCmd(ctx),
		relayHeadersAndMessagesCmd(ctx),
		serviceCmd(ctx),
		modulesCmd(ctx),
	)
	for _, module := range modules {
		if cmd := module.GetCmd(ctx); cmd != nil {
			rootCmd.AddCommand(cmd)
		}
	}

	return rootCmd.Execute()
}

// initConfig reads the config file of the home directory if it exists
func initConfig(ctx *config.Context, v *viper.Viper) error {
	cfgPath := filepath.Join(homePath, configPath)
	if _, err := os.Stat(cfgPath); err != nil {
		defConfig := config.DefaultConfig(cfgPath)
		ctx.Config = &defConfig
		return nil
	}
	cfg, err := config.LoadConfig(v, cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", cfgPath, err)
	}
	ctx.Config = cfg
	return nil
}

func initLogger(ctx *config.Context) error {
	c := ctx.Config.Global.Logger
	level := c.Level
	if debugMode {
		level = "DEBUG"
	}
	return log.InitLogger(level, c.Format, c.Output, !telemetry.Disabled())
}

func initChains(ctx *config.Context) error {
	if err := config.InitChains(ctx, homePath, debugMode); err != nil {
		return fmt.Errorf("failed to initialize chains: %w", err)
	}
	return nil
}
