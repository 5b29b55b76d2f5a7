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
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetBlock inserts or replaces the summary row for a block height
func (d *Store) SetBlock(block *Block, txn *gorm.DB) error {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "height"}},
		UpdateAll: true,
	}).Create(block)
	if result.Error != nil {
		return fmt.Errorf("failed to save block %d: %w", block.Height, result.Error)
	}
	return nil
}

// MaxBlockHeight returns the highest stored block height, or zero when the
// ledger is empty
func (d *Store) MaxBlockHeight(txn *gorm.DB) (uint64, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	var height *uint64
	result := db.Model(&Block{}).Select("MAX(height)").Scan(&height)
	if result.Error != nil {
		return 0, result.Error
	}
	if height == nil {
		return 0, nil
	}
	return *height, nil
}

// MinBlockHeight returns the lowest stored block height, or zero when the
// ledger is empty
func (d *Store) MinBlockHeight(txn *gorm.DB) (uint64, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	var height *uint64
	result := db.Model(&Block{}).Select("MIN(height)").Scan(&height)
	if result.Error != nil {
		return 0, result.Error
	}
	if height == nil {
		return 0, nil
	}
	return *height, nil
}

// GetBlocksRange returns all stored blocks with start <= height <= end in
// height order
func (d *Store) GetBlocksRange(
	start, end uint64,
	txn *gorm.DB,
) ([]Block, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	var ret []Block
	result := db.
		Where("height >= ? AND height <= ?", start, end).
		Order("height").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
