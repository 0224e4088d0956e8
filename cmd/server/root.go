package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"postboard/internal/config"
)

var configFile string

// rootCmd serves the API when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "postboard",
	Short: "Postboard - multi-user post board API",
	Long: `Postboard is a small HTTP API where registered users publish text posts.

Users authenticate with the OAuth2 password grant and receive bearer tokens.
Posts are unique by title and content; only their owner may change them.

Configuration comes from POSTBOARD_* environment variables, an optional .env
file and an optional config file.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./config.{yaml,json,toml})")
	rootCmd.AddCommand(serveCmd, userCmd, backupCmd)
}

func loadConfig() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
