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

package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sunchaser23/l0ps/chainclient"
	"github.com/sunchaser23/l0ps/database"
	"github.com/sunchaser23/l0ps/internal/config"
)

var (
	// ErrEmptyLedger is returned when a payout is requested before any
	// blocks were ingested
	ErrEmptyLedger = errors.New("lease ledger holds no blocks")
	// ErrNoMinedBlocks is returned when the payout period contains no
	// blocks generated by the tracked node
	ErrNoMinedBlocks = errors.New("no blocks mined in payout period")
	// ErrBelowMinimumBalance is returned when an enabled bonus asset's
	// balance sits below its configured floor
	ErrBelowMinimumBalance = errors.New(
		"bonus asset balance below configured minimum",
	)
	// ErrInsufficientBalance is returned when the node cannot cover the
	// computed chain-asset payout
	ErrInsufficientBalance = errors.New(
		"node balance cannot cover computed payout",
	)
)

// RewardsReader is the subset of the node API consumed when computing a
// payment batch
type RewardsReader interface {
	Rewards(ctx context.Context) (*chainclient.RewardStatus, error)
	WavesBalance(ctx context.Context, address string) (uint64, error)
	AssetBalance(ctx context.Context, address, assetID string) (uint64, error)
}

// Calculator turns the accumulated block period since the last payment into
// a locked payment batch
type Calculator struct {
	store   *database.Store
	client  RewardsReader
	cfg     *config.Config
	logger  *slog.Logger
	metrics struct {
		batchesComputed prometheus.Counter
		lastPayoutWaves prometheus.Gauge
	}
}

type CalculatorConfig struct {
	Store        *database.Store
	Client       RewardsReader
	Config       *config.Config
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

func NewCalculator(cfg CalculatorConfig) (*Calculator, error) {
	if cfg.Store == nil {
		return nil, errors.New("no store provided")
	}
	if cfg.Client == nil {
		return nil, errors.New("no chain client provided")
	}
	if cfg.Config == nil {
		return nil, errors.New("no configuration provided")
	}
	c := &Calculator{
		store:  cfg.Store,
		client: cfg.Client,
		cfg:    cfg.Config,
		logger: cfg.Logger,
	}
	if c.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	promautoFactory := promauto.With(cfg.PromRegistry)
	c.metrics.batchesComputed = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "l0ps_payment_batches_total",
			Help: "number of payment batches computed",
		},
	)
	c.metrics.lastPayoutWaves = promautoFactory.NewGauge(
		prometheus.GaugeOpts{
			Name: "l0ps_last_payout_waves",
			Help: "chain-asset total of the most recently computed batch, minor units",
		},
	)
	return c, nil
}

// Result is one computed payment batch
type Result struct {
	Payment *database.Payment
	Details []database.PaymentDetail
	Totals  map[string]uint64
	DryRun  bool
}

// Run computes and persists the next payment batch. The period runs from the
// block after the last paid period (or the start of the ledger) through the
// highest ingested block. A dry run computes and logs everything but rolls
// the persistence back.
func (c *Calculator) Run(ctx context.Context, dryRun bool) (*Result, error) {
	// Refuse to stack a batch on an undisbursed one
	latest, err := c.store.LatestPayment(nil)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.Lock == database.PaymentLocked {
		return nil, fmt.Errorf(
			"payment %d: %w", latest.ID, database.ErrPaymentLocked,
		)
	}

	startBlock, endBlock, chainStart, err := c.resolvePeriod()
	if err != nil {
		return nil, err
	}
	blocks, err := c.store.GetBlocksRange(startBlock, endBlock, nil)
	if err != nil {
		return nil, err
	}
	var minedBlocks, selfInvokes int
	for _, block := range blocks {
		if block.Height <= startBlock {
			continue
		}
		// The node's own invocations land in whichever block happened to
		// include them, so debt accrues across the whole period
		selfInvokes += block.SelfInvokes
		if block.Generator == c.cfg.Address {
			minedBlocks++
		}
	}
	c.logger.Info(
		"computing payment batch",
		"component", "payout",
		"start_block", startBlock+1,
		"end_block", endBlock,
		"mined_blocks", minedBlocks,
		"percent", c.cfg.DistributionPercent,
	)
	if minedBlocks == 0 {
		return nil, ErrNoMinedBlocks
	}

	rewards, err := c.client.Rewards(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching block reward: %w", err)
	}
	wavesBalance, err := c.client.WavesBalance(ctx, c.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("fetching node balance: %w", err)
	}
	airdrops, err := c.airdropPools(ctx, minedBlocks)
	if err != nil {
		return nil, err
	}
	leases, err := c.store.GetLeases(nil)
	if err != nil {
		return nil, err
	}

	dist, err := Distribute(blocks, leases, Params{
		Generator:           c.cfg.Address,
		Beneficiary:         c.cfg.Beneficiary,
		DistributionPercent: c.cfg.DistributionPercent,
		StartBlock:          startBlock,
		ChainStart:          chainStart,
		// The node keeps a third of the chain's block reward
		BlockReward:    rewards.CurrentReward / 3,
		SelfInvokeDebt: uint64(selfInvokes) * c.cfg.InvokeFee,
		TransferFee:    c.cfg.TransferFee,
		MinedBlocks:    minedBlocks,
		Airdrops:       airdrops,
	})
	if err != nil {
		return nil, err
	}
	for asset, total := range dist.Totals {
		c.logger.Info(
			"computed asset total",
			"component", "payout",
			"asset", asset,
			"total", total,
		)
	}
	if dist.Totals[WavesAsset] > wavesBalance {
		return nil, fmt.Errorf(
			"%w: need %d, have %d",
			ErrInsufficientBalance, dist.Totals[WavesAsset], wavesBalance,
		)
	}

	summary, err := json.Marshal(dist.Totals)
	if err != nil {
		return nil, fmt.Errorf("encoding payment summary: %w", err)
	}
	payment := &database.Payment{
		StartBlock:  startBlock + 1,
		EndBlock:    endBlock,
		MinedBlocks: minedBlocks,
		Summary:     string(summary),
	}
	txn := c.store.Transaction()
	if txn.Error != nil {
		return nil, txn.Error
	}
	if err := c.store.CreatePayment(payment, dist.Details, txn); err != nil {
		txn.Rollback()
		return nil, err
	}
	if dryRun {
		c.logger.Info(
			"dry run, rolling payment batch back",
			"component", "payout",
		)
		if result := txn.Rollback(); result.Error != nil {
			return nil, result.Error
		}
	} else {
		if result := txn.Commit(); result.Error != nil {
			return nil, fmt.Errorf(
				"committing payment batch: %w", result.Error,
			)
		}
	}
	c.metrics.batchesComputed.Inc()
	c.metrics.lastPayoutWaves.Set(float64(dist.Totals[WavesAsset]))
	return &Result{
		Payment: payment,
		Details: dist.Details,
		Totals:  dist.Totals,
		DryRun:  dryRun,
	}, nil
}

// resolvePeriod returns the payout period bounds and the ledger's first
// tracked height. StartBlock is exclusive: it is the last paid block, or one
// below the ledger's first block for the initial payout.
func (c *Calculator) resolvePeriod() (uint64, uint64, uint64, error) {
	endBlock, err := c.store.MaxBlockHeight(nil)
	if err != nil {
		return 0, 0, 0, err
	}
	if endBlock == 0 {
		return 0, 0, 0, ErrEmptyLedger
	}
	chainStart, err := c.store.MinBlockHeight(nil)
	if err != nil {
		return 0, 0, 0, err
	}
	startBlock, err := c.store.MaxPaymentEndBlock(nil)
	if err != nil {
		return 0, 0, 0, err
	}
	if startBlock == 0 {
		startBlock = chainStart - 1
	}
	return startBlock, endBlock, chainStart, nil
}

// airdropPools sizes each enabled bonus asset's per-block pool from the
// node's current balance
func (c *Calculator) airdropPools(
	ctx context.Context,
	minedBlocks int,
) ([]AirdropPool, error) {
	var ret []AirdropPool
	for _, airdrop := range c.cfg.EnabledAirdrops() {
		balance, err := c.client.AssetBalance(
			ctx, c.cfg.Address, airdrop.AssetID,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"fetching %s balance: %w", airdrop.Name, err,
			)
		}
		if balance < airdrop.MinBalance {
			return nil, fmt.Errorf(
				"%s: %w: have %d, floor %d",
				airdrop.Name, ErrBelowMinimumBalance,
				balance, airdrop.MinBalance,
			)
		}
		ret = append(ret, AirdropPool{
			Name:     airdrop.Name,
			AssetID:  airdrop.AssetID,
			PerBlock: balance / uint64(minedBlocks),
		})
	}
	return ret, nil
}
