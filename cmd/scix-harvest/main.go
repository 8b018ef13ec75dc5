// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the scix-harvest CLI.
// Subcommands: harvest, count, runs, version.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/scix-harvest/internal/logging"
	"github.com/pdiddy/scix-harvest/internal/scix"
	"github.com/pdiddy/scix-harvest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir holds one file per secret, named by key.
const secretsDir = ".secrets"

// loadedSecrets holds values loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is built from the log flags before any subcommand runs.
var logger = zap.NewNop()

// Process exit statuses.
const (
	exitOK          = 0
	exitUnexpected  = 1
	exitConfig      = 2
	exitAuth        = 3
	exitAPI         = 4
	exitInterrupted = 130
)

// rootCmd is the base command for the scix-harvest CLI.
var rootCmd = &cobra.Command{
	Use:   "scix-harvest",
	Short: "Harvest full-text highlight snippets from the NASA ADS/SciX search API",
	Long: `scix-harvest queries the NASA ADS/SciX search API for documents that
mention a term, pages through the results and saves highlight snippets with
bibliographic metadata as JSON. Partial results are kept when a run fails or
is interrupted.

Subcommands: harvest runs a paginated harvest, count reports how many
documents match, runs lists earlier harvests.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Config{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		}, os.Stderr)
		if err != nil {
			return &scix.Error{Kind: scix.KindConfig, Err: err}
		}
		logger = l

		s, err := secrets.Load(secretsDir)
		if err != nil {
			return &scix.Error{Kind: scix.KindConfig, Err: err}
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./scix-harvest.yaml or ~/.config/scix-harvest/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &scix.Error{Kind: scix.KindConfig, Err: err}
	})
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scix-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scix-harvest"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("SCIX_HARVEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch scix.KindOf(err) {
	case scix.KindConfig:
		return exitConfig
	case scix.KindAuth:
		return exitAuth
	case scix.KindInterrupted:
		return exitInterrupted
	case scix.KindRateLimit, scix.KindTimeout, scix.KindNetwork, scix.KindHTTP, scix.KindParse:
		return exitAPI
	}
	if errors.Is(err, secrets.ErrTokenMissing) || errors.Is(err, secrets.ErrTokenMalformed) {
		return exitConfig
	}
	return exitUnexpected
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	logger.Sync()
	os.Exit(exitCode(err))
}
