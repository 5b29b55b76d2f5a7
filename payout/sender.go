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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sunchaser23/l0ps/chainclient"
	"github.com/sunchaser23/l0ps/database"
	"github.com/sunchaser23/l0ps/internal/config"
)

// ErrNoPendingPayment is returned when disbursement finds no locked payment
// batch to pay out
var ErrNoPendingPayment = errors.New("no pending payment batch")

// feeHeadroom is extra chain-asset balance required beyond the computed
// payout plus transfer fees, as a safety margin against fee drift
const feeHeadroom = 100_000_000

// TransferClient is the subset of the node API consumed during disbursement
type TransferClient interface {
	WavesBalance(ctx context.Context, address string) (uint64, error)
	AssetBalance(ctx context.Context, address, assetID string) (uint64, error)
	MassTransfer(
		ctx context.Context,
		sender, assetID string,
		transfers []chainclient.Transfer,
	) (*chainclient.TxResponse, error)
}

// Sender disburses the most recent locked payment batch through mass
// transfers
type Sender struct {
	store   *database.Store
	client  TransferClient
	cfg     *config.Config
	logger  *slog.Logger
	metrics struct {
		transfersSent    prometheus.Counter
		batchesDisbursed prometheus.Counter
	}
}

type SenderConfig struct {
	Store        *database.Store
	Client       TransferClient
	Config       *config.Config
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.Store == nil {
		return nil, errors.New("no store provided")
	}
	if cfg.Client == nil {
		return nil, errors.New("no chain client provided")
	}
	if cfg.Config == nil {
		return nil, errors.New("no configuration provided")
	}
	s := &Sender{
		store:  cfg.Store,
		client: cfg.Client,
		cfg:    cfg.Config,
		logger: cfg.Logger,
	}
	if s.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	promautoFactory := promauto.With(cfg.PromRegistry)
	s.metrics.transfersSent = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "l0ps_transfers_sent_total",
			Help: "number of mass-transfer transactions broadcast",
		},
	)
	s.metrics.batchesDisbursed = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "l0ps_payment_batches_disbursed_total",
			Help: "number of payment batches fully disbursed",
		},
	)
	return s, nil
}

type assetGroup struct {
	name      string
	assetID   string
	total     uint64
	transfers []chainclient.Transfer
}

// Run pays out the most recent locked payment batch. Detail rows are grouped
// per asset and sent in mass transfers of at most 100 recipients; an asset's
// rows flip to "paid" once all its transfers went out, and the batch unlocks
// after the last asset. The status updates and the unlock ride one store
// transaction: any failure rolls everything back, leaving the batch locked
// with all rows "new" for an operator to reconcile against the chain.
//
// A dry run performs every check and logs the planned transfers without
// broadcasting or mutating the store.
func (s *Sender) Run(ctx context.Context, dryRun bool) error {
	payment, err := s.store.LatestLockedPayment(nil)
	if err != nil {
		return err
	}
	if payment == nil {
		return ErrNoPendingPayment
	}
	s.logger.Info(
		"disbursing payment batch",
		"component", "payout",
		"payment", payment.ID,
		"start_block", payment.StartBlock,
		"end_block", payment.EndBlock,
	)
	details, err := s.store.PaymentDetailsByStatus(
		payment.ID, database.DetailStatusNew, nil,
	)
	if err != nil {
		return err
	}
	groups, lines := groupByAsset(details)
	if err := s.checkBalances(ctx, groups, lines); err != nil {
		return err
	}

	txn := s.store.Transaction()
	if txn.Error != nil {
		return txn.Error
	}
	for _, group := range groups {
		if err := s.payAsset(ctx, group, dryRun); err != nil {
			txn.Rollback()
			return err
		}
		if err := s.store.MarkDetailsPaid(payment.ID, group.name, txn); err != nil {
			txn.Rollback()
			return err
		}
	}
	if err := s.store.UnlockPayment(payment.ID, txn); err != nil {
		txn.Rollback()
		return err
	}
	if dryRun {
		s.logger.Info(
			"dry run, rolling disbursement back",
			"component", "payout",
		)
		if result := txn.Rollback(); result.Error != nil {
			return result.Error
		}
		return nil
	}
	if result := txn.Commit(); result.Error != nil {
		return fmt.Errorf("committing disbursement: %w", result.Error)
	}
	s.metrics.batchesDisbursed.Inc()
	return nil
}

// payAsset sends one asset's transfers in recipient-limited batches
func (s *Sender) payAsset(
	ctx context.Context,
	group *assetGroup,
	dryRun bool,
) error {
	limit := chainclient.MaxMassTransferRecipients
	for start := 0; start < len(group.transfers); start += limit {
		batch := group.transfers[start:min(start+limit, len(group.transfers))]
		s.logger.Info(
			"sending transfer batch",
			"component", "payout",
			"asset", group.name,
			"recipients", len(batch),
		)
		if dryRun {
			continue
		}
		resp, err := s.client.MassTransfer(
			ctx, s.cfg.Address, group.assetID, batch,
		)
		if err != nil {
			return fmt.Errorf("sending %s batch: %w", group.name, err)
		}
		s.logger.Info(
			"transfer broadcast",
			"component", "payout",
			"asset", group.name,
			"tx", resp.ID,
		)
		s.metrics.transfersSent.Inc()
	}
	return nil
}

// checkBalances verifies the node can cover every asset's payout, with fee
// headroom on the chain asset
func (s *Sender) checkBalances(
	ctx context.Context,
	groups []*assetGroup,
	lines int,
) error {
	wavesBalance, err := s.client.WavesBalance(ctx, s.cfg.Address)
	if err != nil {
		return fmt.Errorf("fetching node balance: %w", err)
	}
	for _, group := range groups {
		if group.name == WavesAsset {
			needed := group.total +
				s.cfg.TransferFee*uint64(lines) + feeHeadroom
			if wavesBalance < needed {
				return fmt.Errorf(
					"%w: need %d, have %d",
					ErrInsufficientBalance, needed, wavesBalance,
				)
			}
			continue
		}
		balance, err := s.client.AssetBalance(
			ctx, s.cfg.Address, group.assetID,
		)
		if err != nil {
			return fmt.Errorf(
				"fetching %s balance: %w", group.name, err,
			)
		}
		if balance < group.total {
			return fmt.Errorf(
				"%s: %w: need %d, have %d",
				group.name, ErrInsufficientBalance, group.total, balance,
			)
		}
	}
	return nil
}

// groupByAsset buckets detail rows per asset, dropping zero-amount rows from
// the transfer lists while still counting them toward the fee estimate. The
// chain asset sorts first.
func groupByAsset(
	details []database.PaymentDetail,
) ([]*assetGroup, int) {
	byName := make(map[string]*assetGroup)
	var names []string
	for _, detail := range details {
		group, ok := byName[detail.Asset]
		if !ok {
			group = &assetGroup{
				name:    detail.Asset,
				assetID: detail.AssetID,
			}
			byName[detail.Asset] = group
			names = append(names, detail.Asset)
		}
		group.total += detail.Amount
		if detail.Amount > 0 {
			group.transfers = append(group.transfers, chainclient.Transfer{
				Recipient: detail.Address,
				Amount:    detail.Amount,
			})
		}
	}
	sort.Slice(names, func(a, b int) bool {
		if names[a] == WavesAsset {
			return true
		}
		if names[b] == WavesAsset {
			return false
		}
		return names[a] < names[b]
	})
	ret := make([]*assetGroup, 0, len(names))
	for _, name := range names {
		ret = append(ret, byName[name])
	}
	return ret, len(details)
}
