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
)

// ErrPaymentLocked is returned when a new payment batch is requested while a
// prior batch is still awaiting disbursement
var ErrPaymentLocked = errors.New("previous payment is still locked")

// LatestPayment returns the most recently created payment, or nil when no
// payments exist
func (d *Store) LatestPayment(txn *gorm.DB) (*Payment, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	ret := &Payment{}
	result := db.Order("id DESC").First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// LatestLockedPayment returns the most recently created payment with
// Lock="Y", or nil when none is outstanding
func (d *Store) LatestLockedPayment(txn *gorm.DB) (*Payment, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	ret := &Payment{}
	result := db.Where("lock = ?", PaymentLocked).Order("id DESC").First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// MaxPaymentEndBlock returns the highest end block across recorded payments,
// or zero when no payments exist
func (d *Store) MaxPaymentEndBlock(txn *gorm.DB) (uint64, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	var endBlock *uint64
	result := db.Model(&Payment{}).Select("MAX(end_block)").Scan(&endBlock)
	if result.Error != nil {
		return 0, result.Error
	}
	if endBlock == nil {
		return 0, nil
	}
	return *endBlock, nil
}

// CreatePayment inserts a locked payment and its detail rows as one unit.
// The newest payment must not be locked; a locked predecessor means the
// prior batch was never disbursed and an operator has to resolve it first.
func (d *Store) CreatePayment(
	payment *Payment,
	details []PaymentDetail,
	txn *gorm.DB,
) error {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	latest, err := d.LatestPayment(db)
	if err != nil {
		return err
	}
	if latest != nil && latest.Lock == PaymentLocked {
		return ErrPaymentLocked
	}
	payment.Lock = PaymentLocked
	if result := db.Create(payment); result.Error != nil {
		return fmt.Errorf("failed to create payment: %w", result.Error)
	}
	for i := range details {
		details[i].PaymentID = payment.ID
		details[i].Status = DetailStatusNew
	}
	if len(details) > 0 {
		if result := db.Create(&details); result.Error != nil {
			return fmt.Errorf("failed to create payment details: %w", result.Error)
		}
	}
	return nil
}

// PaymentDetailsByStatus returns a payment's detail rows filtered by status
func (d *Store) PaymentDetailsByStatus(
	paymentID uint,
	status string,
	txn *gorm.DB,
) ([]PaymentDetail, error) {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	var ret []PaymentDetail
	result := db.
		Where("payment_id = ? AND status = ?", paymentID, status).
		Order("id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// MarkDetailsPaid flips a payment's "new" detail rows for one asset to
// "paid"
func (d *Store) MarkDetailsPaid(
	paymentID uint,
	asset string,
	txn *gorm.DB,
) error {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	result := db.Model(&PaymentDetail{}).
		Where("payment_id = ? AND status = ? AND asset = ?",
			paymentID, DetailStatusNew, asset).
		Update("status", DetailStatusPaid)
	if result.Error != nil {
		return fmt.Errorf(
			"failed to mark %s details paid for payment %d: %w",
			asset, paymentID, result.Error,
		)
	}
	return nil
}

// UnlockPayment clears the lock after a fully successful disbursement
func (d *Store) UnlockPayment(paymentID uint, txn *gorm.DB) error {
	db := d.DB()
	if txn != nil {
		db = txn
	}
	result := db.Model(&Payment{}).
		Where("id = ?", paymentID).
		Update("lock", PaymentUnlocked)
	if result.Error != nil {
		return fmt.Errorf(
			"failed to unlock payment %d: %w",
			paymentID, result.Error,
		)
	}
	return nil
}
