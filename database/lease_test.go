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

func TestSetAndCloseLease(t *testing.T) {
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer db.Close()

	err = db.SetLease(&database.Lease{
		LeaseID:     "lease-1",
		TxID:        "tx-1",
		TxType:      8,
		Address:     "3PLessor",
		StartHeight: 1000,
		StartTime:   1700000000,
		Amount:      5_00000000,
	}, nil)
	require.NoError(t, err)

	lease, err := db.GetLease("lease-1", nil)
	require.NoError(t, err)
	require.NotNil(t, lease)
	assert.Nil(t, lease.EndHeight)

	rows, err := db.CloseLease("lease-1", 2000, 1700100000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	lease, err = db.GetLease("lease-1", nil)
	require.NoError(t, err)
	require.NotNil(t, lease)
	require.NotNil(t, lease.EndHeight)
	assert.Equal(t, uint64(2000), *lease.EndHeight)
	require.NotNil(t, lease.EndTime)
	assert.Equal(t, int64(1700100000), *lease.EndTime)
	// Amount and start are untouched by the cancellation
	assert.Equal(t, uint64(5_00000000), lease.Amount)
	assert.Equal(t, uint64(1000), lease.StartHeight)
}

func TestCloseUnknownLease(t *testing.T) {
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer db.Close()

	// A cancel for a lease that predates tracking updates nothing
	rows, err := db.CloseLease("never-seen", 2000, 1700100000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestSetLeaseKeepsCancellation(t *testing.T) {
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer db.Close()

	creation := database.Lease{
		LeaseID:     "lease-3",
		TxID:        "tx-3",
		TxType:      8,
		Address:     "3PLessor",
		StartHeight: 40,
		StartTime:   1700000000,
		Amount:      1_000,
	}
	require.NoError(t, db.SetLease(&creation, nil))
	rows, err := db.CloseLease("lease-3", 45, 1700000500, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	// Re-ingesting the creation block must not reopen the lease
	reapplied := creation
	require.NoError(t, db.SetLease(&reapplied, nil))

	lease, err := db.GetLease("lease-3", nil)
	require.NoError(t, err)
	require.NotNil(t, lease)
	require.NotNil(t, lease.EndHeight)
	assert.Equal(t, uint64(45), *lease.EndHeight)
	require.NotNil(t, lease.EndTime)
	assert.Equal(t, int64(1700000500), *lease.EndTime)
}

func TestSetLeaseIdempotent(t *testing.T) {
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer db.Close()

	lease := &database.Lease{
		LeaseID:     "lease-2",
		TxID:        "tx-2",
		TxType:      16,
		Address:     "3PLessor",
		StartHeight: 500,
		StartTime:   1700000000,
		Amount:      100,
	}
	require.NoError(t, db.SetLease(lease, nil))
	require.NoError(t, db.SetLease(lease, nil))

	leases, err := db.GetLeases(nil)
	require.NoError(t, err)
	assert.Len(t, leases, 1)
}
