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

package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetLease inserts or replaces a lease row by lease ID
func (d *Store) SetLease(lease *Lease, txn *gorm.DB) error {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	// Only the creation columns are rewritten on conflict; a re-applied
	// creation must not clear a recorded cancellation
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "lease_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tx_id", "tx_type", "address",
			"start_height", "start_time", "amount",
		}),
	}).Create(lease)
	if result.Error != nil {
		return fmt.Errorf("failed to save lease %s: %w", lease.LeaseID, result.Error)
	}
	return nil
}

// CloseLease records a cancellation by setting the end height/timestamp on
// the matching lease row. It returns the number of rows updated; zero means
// the lease predates tracking and is not an error.
func (d *Store) CloseLease(
	leaseID string,
	endHeight uint64,
	endTime int64,
	txn *gorm.DB,
) (int64, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	result := db.Model(&Lease{}).
		Where("lease_id = ?", leaseID).
		Updates(map[string]any{
			"end_height": endHeight,
			"end_time":   endTime,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to close lease %s: %w", leaseID, result.Error)
	}
	return result.RowsAffected, nil
}

// GetLeases returns every stored lease
func (d *Store) GetLeases(txn *gorm.DB) ([]Lease, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	var ret []Lease
	result := db.Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetLease returns a single lease by ID, or nil when not found
func (d *Store) GetLease(leaseID string, txn *gorm.DB) (*Lease, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	ret := &Lease{}
	result := db.Where("lease_id = ?", leaseID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}
