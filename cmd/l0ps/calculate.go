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
	"github.com/sunchaser23/l0ps/internal/config"
	"github.com/sunchaser23/l0ps/payout"
)

var calculateFlags = struct {
	dryRun bool
}{}

func calculateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Compute the next payment batch from the lease ledger",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			calculateRun(cmd, cfg, calculateFlags.dryRun)
		},
	}
	cmd.Flags().BoolVar(
		&calculateFlags.dryRun,
		"dry-run",
		false,
		"compute and log the batch without persisting it",
	)
	return cmd
}

func calculateRun(cmd *cobra.Command, cfg *config.Config, dryRun bool) {
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
	calc, err := payout.NewCalculator(payout.CalculatorConfig{
		Store:        store,
		Client:       client,
		Config:       cfg,
		Logger:       logger,
		PromRegistry: prometheus.NewRegistry(),
	})
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	result, err := calc.Run(cmd.Context(), dryRun)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	if result.DryRun {
		logger.Info(
			"dry run complete, no batch was saved",
			"component", programName,
		)
	} else {
		logger.Info(
			"payment batch ready for disbursement",
			"component", programName,
			"payment", result.Payment.ID,
		)
	}
}
