// Package main is shadowctl, the operator CLI: schema migrations, one-off
// batch runs and single-user smoothing or rollups.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/app"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "shadowctl",
		Short:        "Operate the shadow pace engine",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml when present)")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSmoothCmd())
	rootCmd.AddCommand(newRollupCmd())
	rootCmd.AddCommand(newFlagsCmd())

	return rootCmd
}

// loadConfig reads --config when given, otherwise the default lookup.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Load()
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}
	return config.LoadFrom(v)
}

// withApp connects, runs fn and always closes the connections.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := app.NewLogger(cfg)
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// flags only needs the config, not a database.
func newFlagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flags",
		Short: "Print the effective feature flag rollout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cmd, cfg.Features.Rollout())
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var errMissingUser = errors.New("--user is required")
