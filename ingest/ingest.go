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

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sunchaser23/l0ps/chainclient"
	"github.com/sunchaser23/l0ps/database"
	"gorm.io/gorm"
)

// blockBatchSize bounds a single block-range request
const blockBatchSize = 100

// ChainReader is the subset of the node API consumed during ingestion
type ChainReader interface {
	Height(ctx context.Context) (uint64, error)
	BlockSeq(ctx context.Context, from, to uint64) ([]chainclient.Block, error)
	TransactionsInfo(
		ctx context.Context,
		ids []string,
	) ([]chainclient.Transaction, error)
}

// Ingester extends the local lease ledger from chain blocks. It is the only
// writer of block and lease rows.
type Ingester struct {
	store       *database.Store
	client      ChainReader
	nodeAddress string
	nodeAlias   string
	chainID     string
	logger      *slog.Logger
	metrics     struct {
		blocksIngested prometheus.Counter
		leasesRecorded prometheus.Counter
		leaseCancels   prometheus.Counter
	}
}

type IngesterConfig struct {
	Store        *database.Store
	Client       ChainReader
	NodeAddress  string
	NodeAlias    string
	ChainID      string
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

func NewIngester(cfg IngesterConfig) (*Ingester, error) {
	if cfg.Store == nil {
		return nil, errors.New("no store provided")
	}
	if cfg.Client == nil {
		return nil, errors.New("no chain client provided")
	}
	if cfg.NodeAddress == "" {
		return nil, errors.New("no tracked node address provided")
	}
	i := &Ingester{
		store:       cfg.Store,
		client:      cfg.Client,
		nodeAddress: cfg.NodeAddress,
		nodeAlias:   cfg.NodeAlias,
		chainID:     cfg.ChainID,
		logger:      cfg.Logger,
	}
	if i.chainID == "" {
		i.chainID = "W"
	}
	if i.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		i.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	promautoFactory := promauto.With(cfg.PromRegistry)
	i.metrics.blocksIngested = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "l0ps_blocks_ingested_total",
			Help: "number of blocks ingested into the lease ledger",
		},
	)
	i.metrics.leasesRecorded = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "l0ps_leases_recorded_total",
			Help: "number of lease rows inserted or replaced",
		},
	)
	i.metrics.leaseCancels = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "l0ps_lease_cancels_total",
			Help: "number of lease cancellations applied",
		},
	)
	return i, nil
}

// matchesNode reports whether a lease recipient resolves to the tracked
// node, by raw address, prefixed address form, or alias form
func (i *Ingester) matchesNode(recipient string) bool {
	if recipient == i.nodeAddress {
		return true
	}
	if recipient == "address:"+i.nodeAddress {
		return true
	}
	if i.nodeAlias != "" &&
		recipient == "alias:"+i.chainID+":"+i.nodeAlias {
		return true
	}
	return false
}

// Run extends the local ledger from the last checkpoint (or the given
// explicit bounds) up to one block below the chain tip. Each batch of blocks
// is committed as a unit; a failed batch aborts the run with no partial
// commit.
func (i *Ingester) Run(ctx context.Context, startBlock, endBlock *uint64) error {
	start, end, err := i.resolveRange(ctx, startBlock, endBlock)
	if err != nil {
		return err
	}
	if start > end {
		i.logger.Info(
			"ledger is up to date",
			"component", "ingest",
			"height", end,
		)
		return nil
	}
	i.logger.Info(
		"ingesting blocks",
		"component", "ingest",
		"start", start,
		"end", end,
	)
	var totalBlocks int
	for batchStart := start; batchStart <= end; batchStart += blockBatchSize {
		batchEnd := min(batchStart+blockBatchSize-1, end)
		blocks, err := i.client.BlockSeq(ctx, batchStart, batchEnd)
		if err != nil {
			return fmt.Errorf(
				"fetching blocks %d..%d: %w", batchStart, batchEnd, err,
			)
		}
		if err := i.processBatch(ctx, blocks); err != nil {
			return fmt.Errorf(
				"processing blocks %d..%d: %w", batchStart, batchEnd, err,
			)
		}
		totalBlocks += len(blocks)
		i.logger.Info(
			"committed block batch",
			"component", "ingest",
			"through", batchEnd,
			"total", totalBlocks,
		)
	}
	return nil
}

// resolveRange determines the ingestion bounds: one past the highest stored
// block (or 1) through chain height minus one, unless given explicitly. The
// tip is excluded to avoid non-final data.
func (i *Ingester) resolveRange(
	ctx context.Context,
	startBlock, endBlock *uint64,
) (uint64, uint64, error) {
	var start, end uint64
	if endBlock != nil {
		end = *endBlock
	} else {
		height, err := i.client.Height(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("fetching chain height: %w", err)
		}
		end = height - 1
	}
	if startBlock != nil {
		start = *startBlock
	} else {
		maxHeight, err := i.store.MaxBlockHeight(nil)
		if err != nil {
			return 0, 0, fmt.Errorf("reading ledger checkpoint: %w", err)
		}
		if maxHeight == 0 {
			start = 1
		} else {
			start = maxHeight + 1
		}
	}
	return start, end, nil
}

// processBatch classifies a batch's transactions and upserts block summaries
// and lease rows in a single store transaction
func (i *Ingester) processBatch(
	ctx context.Context,
	blocks []chainclient.Block,
) error {
	// Collect ids of transactions that need extended details
	var txIds []string
	for _, block := range blocks {
		for _, tx := range block.Transactions {
			switch tx.Type {
			case chainclient.TxTypeLeaseCancel,
				chainclient.TxTypeInvokeScript,
				chainclient.TxTypeEthereum:
				txIds = append(txIds, tx.ID)
			}
		}
	}
	extended, err := i.client.TransactionsInfo(ctx, txIds)
	if err != nil {
		return fmt.Errorf("fetching extended transactions: %w", err)
	}
	extendedMap := make(map[string]*chainclient.Transaction, len(extended))
	for idx := range extended {
		extendedMap[extended[idx].ID] = &extended[idx]
	}

	txn := i.store.Transaction()
	if txn.Error != nil {
		return txn.Error
	}
	for _, block := range blocks {
		selfInvokes := 0
		for _, tx := range block.Transactions {
			switch tx.Type {
			case chainclient.TxTypeLease:
				if err := i.applyLease(&block, &tx, txn); err != nil {
					txn.Rollback()
					return err
				}
			case chainclient.TxTypeLeaseCancel:
				err := i.applyLeaseCancel(extendedMap[tx.ID], txn)
				if err != nil {
					txn.Rollback()
					return err
				}
			case chainclient.TxTypeInvokeScript,
				chainclient.TxTypeEthereum:
				invoked, err := i.applyInvocation(
					&block, &tx, extendedMap[tx.ID], txn,
				)
				if err != nil {
					txn.Rollback()
					return err
				}
				if invoked {
					selfInvokes++
				}
			}
		}
		err := i.store.SetBlock(&database.Block{
			Height:      block.Height,
			Generator:   block.Generator,
			Fees:        block.TotalFee,
			Txs:         len(block.Transactions),
			Timestamp:   block.Timestamp / 1000,
			SelfInvokes: selfInvokes,
		}, txn)
		if err != nil {
			txn.Rollback()
			return err
		}
		i.metrics.blocksIngested.Inc()
	}
	if result := txn.Commit(); result.Error != nil {
		return fmt.Errorf("committing batch: %w", result.Error)
	}
	return nil
}

// applyLease records a plain lease transaction targeting the tracked node
func (i *Ingester) applyLease(
	block *chainclient.Block,
	tx *chainclient.Transaction,
	txn *gorm.DB,
) error {
	if !i.matchesNode(tx.Recipient) {
		return nil
	}
	i.logger.Debug(
		"found lease",
		"component", "ingest",
		"height", block.Height,
		"sender", tx.Sender,
		"id", tx.ID,
	)
	err := i.store.SetLease(&database.Lease{
		LeaseID:     tx.ID,
		TxID:        tx.ID,
		TxType:      tx.Type,
		Address:     tx.Sender,
		StartHeight: block.Height,
		StartTime:   tx.Timestamp / 1000,
		Amount:      tx.Amount,
	}, txn)
	if err != nil {
		return err
	}
	i.metrics.leasesRecorded.Inc()
	return nil
}

// applyLeaseCancel closes the lease referenced by a cancel transaction when
// the cancelled lease targeted the tracked node
func (i *Ingester) applyLeaseCancel(
	ext *chainclient.Transaction,
	txn *gorm.DB,
) error {
	if ext == nil || ext.Lease == nil {
		return nil
	}
	if ext.Lease.Recipient != i.nodeAddress {
		return nil
	}
	rows, err := i.store.CloseLease(
		ext.LeaseID, ext.Height, ext.Timestamp/1000, txn,
	)
	if err != nil {
		return err
	}
	if rows > 0 {
		i.logger.Debug(
			"found lease cancellation",
			"component", "ingest",
			"height", ext.Height,
			"id", ext.LeaseID,
		)
		i.metrics.leaseCancels.Inc()
	}
	return nil
}

// applyInvocation walks a contract invocation's state changes for emitted
// lease events. It reports whether the invocation was sent by the tracked
// node itself, which feeds the per-block debt counter.
func (i *Ingester) applyInvocation(
	block *chainclient.Block,
	tx *chainclient.Transaction,
	ext *chainclient.Transaction,
	txn *gorm.DB,
) (bool, error) {
	if ext == nil {
		return false, nil
	}
	selfInvoke := ext.Sender == i.nodeAddress
	var stateChanges *chainclient.StateChanges
	switch tx.Type {
	case chainclient.TxTypeInvokeScript:
		stateChanges = ext.StateChanges
	case chainclient.TxTypeEthereum:
		if ext.Payload != nil {
			stateChanges = ext.Payload.StateChanges
		}
	}
	leases, cancels, err := CollectLeaseEvents(stateChanges)
	if err != nil {
		return selfInvoke, fmt.Errorf(
			"walking state changes of %s: %w", tx.ID, err,
		)
	}
	for _, lease := range leases {
		if !i.matchesNode(lease.Recipient) {
			continue
		}
		i.logger.Debug(
			"found invocation lease",
			"component", "ingest",
			"height", block.Height,
			"id", lease.ID,
		)
		err := i.store.SetLease(&database.Lease{
			LeaseID:     lease.ID,
			TxID:        tx.ID,
			TxType:      tx.Type,
			Address:     lease.Sender,
			StartHeight: block.Height,
			StartTime:   tx.Timestamp / 1000,
			Amount:      lease.Amount,
		}, txn)
		if err != nil {
			return selfInvoke, err
		}
		i.metrics.leasesRecorded.Inc()
	}
	for _, cancel := range cancels {
		rows, err := i.store.CloseLease(
			cancel.ID, ext.Height, ext.Timestamp/1000, txn,
		)
		if err != nil {
			return selfInvoke, err
		}
		if rows > 0 {
			i.logger.Debug(
				"found invocation lease cancellation",
				"component", "ingest",
				"height", block.Height,
				"id", cancel.ID,
			)
			i.metrics.leaseCancels.Inc()
		}
	}
	return selfInvoke, nil
}
