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
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/sunchaser23/l0ps/ingest"
	"github.com/sunchaser23/l0ps/internal/config"
)

var syncFlags = struct {
	startBlock uint64
	endBlock   uint64
}{}

func syncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Extend the local lease ledger from the chain",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			syncRun(cmd, cfg)
		},
	}
	cmd.Flags().Uint64Var(
		&syncFlags.startBlock,
		"start",
		0,
		"first block to ingest (default: after the last stored block)",
	)
	cmd.Flags().Uint64Var(
		&syncFlags.endBlock,
		"end",
		0,
		"last block to ingest (default: one below the chain tip)",
	)
	return cmd
}

func syncRun(cmd *cobra.Command, cfg *config.Config) {
	logger := commonRun()
	store, err := openStore(cfg, logger)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	defer store.Close()
	client, err := newChainClient(cfg, logger)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	ingester, err := ingest.NewIngester(ingest.IngesterConfig{
		Store:        store,
		Client:       client,
		NodeAddress:  cfg.Address,
		NodeAlias:    cfg.Alias,
		ChainID:      cfg.Node.Chain,
		Logger:       logger,
		PromRegistry: prometheus.NewRegistry(),
	})
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	var start, end *uint64
	if syncFlags.startBlock > 0 {
		start = &syncFlags.startBlock
	}
	if syncFlags.endBlock > 0 {
		end = &syncFlags.endBlock
	}
	if err := ingester.Run(cmd.Context(), start, end); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
