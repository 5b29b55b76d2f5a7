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

package payout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunchaser23/l0ps/chainclient"
	"github.com/sunchaser23/l0ps/database"
	"github.com/sunchaser23/l0ps/internal/config"
	"github.com/sunchaser23/l0ps/payout"
)

type fakeGateway struct {
	currentReward uint64
	wavesBalance  uint64
	assetBalances map[string]uint64
}

func (f *fakeGateway) Rewards(
	ctx context.Context,
) (*chainclient.RewardStatus, error) {
	return &chainclient.RewardStatus{CurrentReward: f.currentReward}, nil
}

func (f *fakeGateway) WavesBalance(
	ctx context.Context,
	address string,
) (uint64, error) {
	return f.wavesBalance, nil
}

func (f *fakeGateway) AssetBalance(
	ctx context.Context,
	address, assetID string,
) (uint64, error) {
	return f.assetBalances[assetID], nil
}

func testStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testConfig() *config.Config {
	return &config.Config{
		Address:             generator,
		Beneficiary:         beneficiary,
		DistributionPercent: 50,
		InvokeFee:           500_000,
		TransferFee:         100_000,
	}
}

func seedPeriod(t *testing.T, store *database.Store) {
	t.Helper()
	blocks := []database.Block{
		{Height: 100, Generator: "3PSomeoneElse", Fees: 0},
		{Height: 101, Generator: generator, Fees: 1_000_000},
		{Height: 102, Generator: "3PSomeoneElse", Fees: 0},
	}
	for i := range blocks {
		require.NoError(t, store.SetBlock(&blocks[i], nil))
	}
	lease := openLease("l1", "3PAlice", 50, 5_000)
	require.NoError(t, store.SetLease(&lease, nil))
}

func newCalculator(
	t *testing.T,
	store *database.Store,
	gateway *fakeGateway,
	cfg *config.Config,
) *payout.Calculator {
	t.Helper()
	calc, err := payout.NewCalculator(payout.CalculatorConfig{
		Store:  store,
		Client: gateway,
		Config: cfg,
	})
	require.NoError(t, err)
	return calc
}

func TestCalculatorCreatesLockedBatch(t *testing.T) {
	store := testStore(t)
	seedPeriod(t, store)
	gateway := &fakeGateway{
		currentReward: 1_800_000,
		wavesBalance:  10_000_000_000,
	}
	calc := newCalculator(t, store, gateway, testConfig())

	result, err := calc.Run(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.Equal(t, uint64(100), result.Payment.StartBlock)
	assert.Equal(t, uint64(102), result.Payment.EndBlock)
	assert.Equal(t, 1, result.Payment.MinedBlocks)

	// Fee pool 400,000 + reward 600,000, split 50/50; one transfer fee off
	// each chain-asset line
	alice := detailFor(t, result.Details, "3PAlice", payout.WavesAsset)
	require.NotNil(t, alice)
	assert.Equal(t, uint64(400_000), alice.Amount)
	owner := detailFor(t, result.Details, beneficiary, payout.WavesAsset)
	require.NotNil(t, owner)
	assert.Equal(t, uint64(400_000), owner.Amount)
	assert.Equal(t, uint64(800_000), result.Totals[payout.WavesAsset])

	latest, err := store.LatestPayment(nil)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, database.PaymentLocked, latest.Lock)
	assert.Contains(t, latest.Summary, "800000")

	// A locked batch blocks the next computation
	_, err = calc.Run(context.Background(), false)
	require.ErrorIs(t, err, database.ErrPaymentLocked)
}

func TestCalculatorDebtOnForeignBlocks(t *testing.T) {
	store := testStore(t)
	blocks := []database.Block{
		// The node's invocations can land in blocks forged by others;
		// their debt still counts against the lessors
		{Height: 100, Generator: "3PSomeoneElse", SelfInvokes: 3},
		{Height: 101, Generator: generator, Fees: 1_000_000},
		{Height: 102, Generator: "3PSomeoneElse"},
	}
	for i := range blocks {
		require.NoError(t, store.SetBlock(&blocks[i], nil))
	}
	lease := openLease("l1", "3PAlice", 50, 5_000)
	require.NoError(t, store.SetLease(&lease, nil))

	gateway := &fakeGateway{
		currentReward: 1_800_000,
		wavesBalance:  10_000_000_000,
	}
	calc := newCalculator(t, store, gateway, testConfig())
	result, err := calc.Run(context.Background(), false)
	require.NoError(t, err)

	// Debt of 3 * 500,000 over a single mined block swamps the 500,000
	// lessor pool, so the lessor line floors to zero and is dropped
	assert.Nil(t, detailFor(t, result.Details, "3PAlice", payout.WavesAsset))
	owner := detailFor(t, result.Details, beneficiary, payout.WavesAsset)
	require.NotNil(t, owner)
	assert.Equal(t, uint64(400_000), owner.Amount)
	assert.Equal(t, uint64(400_000), result.Totals[payout.WavesAsset])
}

func TestCalculatorDryRunPersistsNothing(t *testing.T) {
	store := testStore(t)
	seedPeriod(t, store)
	gateway := &fakeGateway{
		currentReward: 1_800_000,
		wavesBalance:  10_000_000_000,
	}
	calc := newCalculator(t, store, gateway, testConfig())

	result, err := calc.Run(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, uint64(800_000), result.Totals[payout.WavesAsset])

	latest, err := store.LatestPayment(nil)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestCalculatorInsufficientBalance(t *testing.T) {
	store := testStore(t)
	seedPeriod(t, store)
	gateway := &fakeGateway{
		currentReward: 1_800_000,
		wavesBalance:  100,
	}
	calc := newCalculator(t, store, gateway, testConfig())
	_, err := calc.Run(context.Background(), false)
	require.ErrorIs(t, err, payout.ErrInsufficientBalance)

	latest, err := store.LatestPayment(nil)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestCalculatorBonusBalanceFloor(t *testing.T) {
	store := testStore(t)
	seedPeriod(t, store)
	gateway := &fakeGateway{
		currentReward: 1_800_000,
		wavesBalance:  10_000_000_000,
		assetBalances: map[string]uint64{"tok1": 500},
	}
	cfg := testConfig()
	cfg.Airdrops = []config.Airdrop{
		{
			Name:       "token",
			AssetID:    "tok1",
			MinBalance: 1_000_000,
			Enabled:    true,
		},
	}
	calc := newCalculator(t, store, gateway, cfg)
	_, err := calc.Run(context.Background(), false)
	require.ErrorIs(t, err, payout.ErrBelowMinimumBalance)
}

func TestCalculatorNoMinedBlocks(t *testing.T) {
	store := testStore(t)
	for _, height := range []uint64{100, 101} {
		require.NoError(t, store.SetBlock(&database.Block{
			Height:    height,
			Generator: "3PSomeoneElse",
		}, nil))
	}
	gateway := &fakeGateway{wavesBalance: 10_000_000_000}
	calc := newCalculator(t, store, gateway, testConfig())
	_, err := calc.Run(context.Background(), false)
	require.ErrorIs(t, err, payout.ErrNoMinedBlocks)
}

func TestCalculatorEmptyLedger(t *testing.T) {
	store := testStore(t)
	gateway := &fakeGateway{}
	calc := newCalculator(t, store, gateway, testConfig())
	_, err := calc.Run(context.Background(), false)
	require.ErrorIs(t, err, payout.ErrEmptyLedger)
}

func TestCalculatorPeriodFollowsLastPayment(t *testing.T) {
	store := testStore(t)
	seedPeriod(t, store)
	require.NoError(t, store.CreatePayment(&database.Payment{
		StartBlock: 90,
		EndBlock:   101,
	}, nil, nil))
	require.NoError(t, store.UnlockPayment(1, nil))

	gateway := &fakeGateway{
		currentReward: 1_800_000,
		wavesBalance:  10_000_000_000,
	}
	calc := newCalculator(t, store, gateway, testConfig())
	// Remaining period (101, 102] holds no generated blocks
	_, err := calc.Run(context.Background(), false)
	require.ErrorIs(t, err, payout.ErrNoMinedBlocks)
}
