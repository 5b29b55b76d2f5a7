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

import "time"

// MigrateModels is the list of models for schema migration
var MigrateModels = []any{
	&Block{},
	&Lease{},
	&Payment{},
	&PaymentDetail{},
}

// Payment lock states
const (
	PaymentLocked   = "Y"
	PaymentUnlocked = "N"
)

// Payment detail states
const (
	DetailStatusNew  = "new"
	DetailStatusPaid = "paid"
)

// Block is a summary of a single chain block, keyed by height.
// SelfInvokes counts contract invocations sent by the tracked node itself
// within the block and feeds the per-block debt charge.
type Block struct {
	Height      uint64 `gorm:"primarykey"`
	Generator   string `gorm:"index"`
	Fees        uint64
	Txs         int
	Timestamp   int64
	SelfInvokes int
}

func (Block) TableName() string {
	return "blocks"
}

// Lease is a stake delegation to the tracked node. A cancellation updates
// EndHeight/EndTime on the existing row; rows are never deleted.
type Lease struct {
	LeaseID     string `gorm:"primarykey"`
	TxID        string `gorm:"index"`
	TxType      int
	Address     string `gorm:"index"`
	StartHeight uint64 `gorm:"index"`
	StartTime   int64
	EndHeight   *uint64
	EndTime     *int64
	Amount      uint64
}

func (Lease) TableName() string {
	return "leases"
}

// Payment is one computed distribution batch covering the block period
// (StartBlock, EndBlock]. Lock stays "Y" from computation until the batch
// has been fully disbursed; at most one row may hold Lock="Y" at a time.
type Payment struct {
	ID          uint `gorm:"primarykey"`
	StartBlock  uint64
	EndBlock    uint64
	MinedBlocks int
	Summary     string // JSON per-asset totals
	Lock        string `gorm:"index"`
	CreatedAt   time.Time
}

func (Payment) TableName() string {
	return "payments"
}

// PaymentDetail is a single address/asset line item within a Payment.
// Status moves new -> paid exactly once.
type PaymentDetail struct {
	ID        uint   `gorm:"primarykey"`
	PaymentID uint   `gorm:"index"`
	Address   string `gorm:"index"`
	Status    string `gorm:"index"`
	Asset     string
	AssetID   string
	Amount    uint64
}

func (PaymentDetail) TableName() string {
	return "payment_details"
}
