// Package main implements the syncd server and its operational commands.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	dbfs "github.com/synclinear/syncd/db"
	"github.com/synclinear/syncd/internal/config"
	"github.com/synclinear/syncd/internal/db"
	"github.com/synclinear/syncd/internal/logger"
	"github.com/synclinear/syncd/internal/version"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "syncd",
	Short:   "Bidirectional GitHub and Linear issue synchronization",
	Version: version.GetInfo(),
}

func init() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if strings.TrimSpace(defaultConfig) == "" {
		defaultConfig = config.DefaultConfigPath
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Path to config.toml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync API and webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		runApp()
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <up|down|version|force N>",
	Short: "Apply or roll back database migrations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level, cfg.Log.Format)

		migrationsFS, err := dbfs.Migrations()
		if err != nil {
			return err
		}
		return db.RunMigrate(logger.L, cfg.Postgres, migrationsFS, args[0], args[1:])
	},
}
