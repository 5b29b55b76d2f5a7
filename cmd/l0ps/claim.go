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

	"github.com/spf13/cobra"
	"github.com/sunchaser23/l0ps/internal/config"
)

// claimFunction is the entry point on the LP dApp that releases accrued
// rewards to the caller
const claimFunction = "processBlocks"

func claimCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim accrued LP rewards from the configured dApp",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			claimRun(cmd, cfg)
		},
	}
	return cmd
}

func claimRun(cmd *cobra.Command, cfg *config.Config) {
	logger := commonRun()
	if cfg.ClaimDApp == "" {
		slog.Error("no claim dApp address configured")
		os.Exit(1)
	}
	client, err := newChainClient(cfg, logger)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	resp, err := client.InvokeScript(
		cmd.Context(), cfg.Address, cfg.ClaimDApp, claimFunction,
	)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Info(
		"claim invocation broadcast",
		"component", programName,
		"dapp", cfg.ClaimDApp,
		"tx", resp.ID,
	)
}
