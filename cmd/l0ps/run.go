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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/sunchaser23/l0ps/internal/config"
	"github.com/sunchaser23/l0ps/payout"
)

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full payout cycle: claim, calculate, pay",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			pipelineRun(cmd, cfg)
		},
	}
	return cmd
}

func pipelineRun(cmd *cobra.Command, cfg *config.Config) {
	logger := commonRun()
	ctx := cmd.Context()

	store, err := openStore(cfg, logger)
	if err != nil {
		failStage(ctx, cfg, logger, "setup", err)
	}
	defer store.Close()
	client, err := newChainClient(cfg, logger)
	if err != nil {
		failStage(ctx, cfg, logger, "setup", err)
	}

	if cfg.ClaimDApp != "" {
		logger.Info("claiming LP rewards", "component", programName)
		_, err := client.InvokeScript(
			ctx, cfg.Address, cfg.ClaimDApp, claimFunction,
		)
		if err != nil {
			failStage(ctx, cfg, logger, "claim", err)
		}
	}

	logger.Info("calculating payments", "component", programName)
	calc, err := payout.NewCalculator(payout.CalculatorConfig{
		Store:        store,
		Client:       client,
		Config:       cfg,
		Logger:       logger,
		PromRegistry: prometheus.NewRegistry(),
	})
	if err != nil {
		failStage(ctx, cfg, logger, "calculate", err)
	}
	if _, err := calc.Run(ctx, false); err != nil {
		failStage(ctx, cfg, logger, "calculate", err)
	}

	logger.Info("sending payments", "component", programName)
	sender, err := payout.NewSender(payout.SenderConfig{
		Store:        store,
		Client:       client,
		Config:       cfg,
		Logger:       logger,
		PromRegistry: prometheus.NewRegistry(),
	})
	if err != nil {
		failStage(ctx, cfg, logger, "pay", err)
	}
	if err := sender.Run(ctx, false); err != nil {
		failStage(ctx, cfg, logger, "pay", err)
	}

	logger.Info("payout cycle complete", "component", programName)
}

// failStage logs the failing stage, pings the operator webhook when one is
// configured, and exits
func failStage(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	stage string,
	err error,
) {
	logger.Error(
		err.Error(),
		"component", programName,
		"stage", stage,
	)
	if cfg.NotifyUrl != "" {
		message := fmt.Sprintf("l0ps: %s stage failed: %s", stage, err)
		if notifyErr := notify(ctx, cfg.NotifyUrl, message); notifyErr != nil {
			logger.Error(
				"failed to notify operator: "+notifyErr.Error(),
				"component", programName,
			)
		}
	}
	os.Exit(1)
}

// notify pings a webhook with the message in a "text" query parameter
func notify(ctx context.Context, notifyUrl, message string) error {
	u, err := url.Parse(notifyUrl)
	if err != nil {
		return fmt.Errorf("invalid notify URL: %w", err)
	}
	query := u.Query()
	query.Set("text", message)
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, u.String(), nil,
	)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify webhook returned %s", resp.Status)
	}
	return nil
}
