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

package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunchaser23/l0ps/database"
)

func TestCreatePaymentLockExclusivity(t *testing.T) {
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer db.Close()

	payment := &database.Payment{
		StartBlock:  100,
		EndBlock:    200,
		MinedBlocks: 5,
		Summary:     `{"waves":150000}`,
	}
	details := []database.PaymentDetail{
		{Address: "3PAddrA", Asset: "waves", Amount: 100000},
		{Address: "3PAddrB", Asset: "waves", Amount: 50000},
	}
	require.NoError(t, db.CreatePayment(payment, details, nil))
	assert.Equal(t, database.PaymentLocked, payment.Lock)

	// A second payment while the first is locked must fail without mutation
	second := &database.Payment{StartBlock: 200, EndBlock: 300}
	err = db.CreatePayment(second, nil, nil)
	require.ErrorIs(t, err, database.ErrPaymentLocked)

	latest, err := db.LatestPayment(nil)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, payment.ID, latest.ID)

	// After unlock, a new payment is accepted
	require.NoError(t, db.UnlockPayment(payment.ID, nil))
	require.NoError(t, db.CreatePayment(second, nil, nil))
}

func TestCreatePaymentDetails(t *testing.T) {
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer db.Close()

	payment := &database.Payment{StartBlock: 1, EndBlock: 10, MinedBlocks: 2}
	details := []database.PaymentDetail{
		{Address: "3PAddrA", Asset: "waves", Amount: 42},
		{Address: "3PAddrA", Asset: "token", AssetID: "AbCd", Amount: 7},
	}
	require.NoError(t, db.CreatePayment(payment, details, nil))

	rows, err := db.PaymentDetailsByStatus(
		payment.ID, database.DetailStatusNew, nil,
	)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, payment.ID, row.PaymentID)
		assert.Equal(t, database.DetailStatusNew, row.Status)
	}
}

func TestMarkDetailsPaidPerAsset(t *testing.T) {
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer db.Close()

	payment := &database.Payment{StartBlock: 1, EndBlock: 10}
	details := []database.PaymentDetail{
		{Address: "3PAddrA", Asset: "waves", Amount: 42},
		{Address: "3PAddrB", Asset: "waves", Amount: 10},
		{Address: "3PAddrA", Asset: "token", AssetID: "AbCd", Amount: 7},
	}
	require.NoError(t, db.CreatePayment(payment, details, nil))

	require.NoError(t, db.MarkDetailsPaid(payment.ID, "waves", nil))

	newRows, err := db.PaymentDetailsByStatus(
		payment.ID, database.DetailStatusNew, nil,
	)
	require.NoError(t, err)
	require.Len(t, newRows, 1)
	assert.Equal(t, "token", newRows[0].Asset)

	paidRows, err := db.PaymentDetailsByStatus(
		payment.ID, database.DetailStatusPaid, nil,
	)
	require.NoError(t, err)
	assert.Len(t, paidRows, 2)
}

func TestCreatePaymentRollback(t *testing.T) {
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer db.Close()

	txn := db.Transaction()
	require.NoError(t, txn.Error)

	payment := &database.Payment{StartBlock: 1, EndBlock: 10}
	details := []database.PaymentDetail{
		{Address: "3PAddrA", Asset: "waves", Amount: 42},
	}
	require.NoError(t, db.CreatePayment(payment, details, txn))
	txn.Rollback()

	// Dry-run semantics: nothing persisted after rollback
	latest, err := db.LatestPayment(nil)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestMaxPaymentEndBlock(t *testing.T) {
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer db.Close()

	endBlock, err := db.MaxPaymentEndBlock(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), endBlock)

	payment := &database.Payment{StartBlock: 100, EndBlock: 250}
	require.NoError(t, db.CreatePayment(payment, nil, nil))

	endBlock, err = db.MaxPaymentEndBlock(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), endBlock)
}
