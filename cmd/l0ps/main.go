// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sunchaser23/l0ps/chainclient"
	"github.com/sunchaser23/l0ps/database"
	"github.com/sunchaser23/l0ps/internal/config"
	"github.com/sunchaser23/l0ps/internal/version"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	programName = "l0ps"
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

func commonRun() *slog.Logger {
	// Configure logger
	logLevel := slog.LevelInfo
	addSource := false
	if globalFlags.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	// Configure max processes with our logger wrapper, toss undo func
	_, err := maxprocs.Set(maxprocs.Logger(slogPrintf))
	if err != nil {
		// If we hit this, something really wrong happened
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

func openStore(cfg *config.Config, logger *slog.Logger) (*database.Store, error) {
	return database.New(&database.Config{
		DataDir: cfg.DataDir,
		Logger:  logger,
	})
}

func newChainClient(
	cfg *config.Config,
	logger *slog.Logger,
) (*chainclient.Client, error) {
	retryDelay, err := time.ParseDuration(cfg.FetchRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid fetch retry delay: %w", err)
	}
	return chainclient.NewClient(
		cfg.Node.Url,
		chainclient.WithApiKey(cfg.Node.ApiKey),
		chainclient.WithRetries(cfg.FetchRetries),
		chainclient.WithRetryDelay(retryDelay),
		chainclient.WithLogger(logger),
	), nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Lease-proof-of-stake reward sharing for a validator node",
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(syncCommand())
	rootCmd.AddCommand(calculateCommand())
	rootCmd.AddCommand(payCommand())
	rootCmd.AddCommand(claimCommand())
	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(versionCommand())

	// Execute cobra command
	if err := rootCmd.Execute(); err != nil {
		// NOTE: we purposely don't display the error, since cobra will have already displayed it
		os.Exit(1)
	}
}
