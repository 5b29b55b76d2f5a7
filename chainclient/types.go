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

package chainclient

// Ledger transaction types relevant to lease tracking
const (
	TxTypeLease        = 8
	TxTypeLeaseCancel  = 9
	TxTypeInvokeScript = 16
	TxTypeMassTransfer = 11
	TxTypeEthereum     = 18
)

// Block is a single chain block as returned by /blocks/seq. Timestamps are
// in milliseconds.
type Block struct {
	Height       uint64        `json:"height"`
	Generator    string        `json:"generator"`
	TotalFee     uint64        `json:"totalFee"`
	Timestamp    int64         `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// Transaction carries the union of fields used across the transaction types
// this system inspects. Extended fields (Lease, StateChanges, Payload) are
// only populated on /transactions/info responses.
type Transaction struct {
	ID           string         `json:"id"`
	Type         int            `json:"type"`
	Sender       string         `json:"sender"`
	Recipient    string         `json:"recipient"`
	Amount       uint64         `json:"amount"`
	Timestamp    int64          `json:"timestamp"`
	Height       uint64         `json:"height"`
	LeaseID      string         `json:"leaseId"`
	Lease        *LeaseInfo     `json:"lease"`
	DApp         string         `json:"dApp"`
	StateChanges *StateChanges  `json:"stateChanges"`
	Payload      *InvokePayload `json:"payload"`
}

// LeaseInfo is the cancelled-lease detail attached to a lease-cancel
// transaction's extended info
type LeaseInfo struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// InvokePayload wraps the nested invoke data of an Ethereum-style (type 18)
// invocation, whose state changes hang off the payload
type InvokePayload struct {
	StateChanges *StateChanges `json:"stateChanges"`
}

// StateChanges is the script-invocation result tree. Leases and LeaseCancels
// are emitted at this node; Invokes are nested child invocations, each with
// its own subtree.
type StateChanges struct {
	Leases       []LeaseEvent       `json:"leases"`
	LeaseCancels []LeaseCancelEvent `json:"leaseCancels"`
	Invokes      []Invoke           `json:"invokes"`
}

// LeaseEvent is a lease created by a script invocation
type LeaseEvent struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Height    uint64 `json:"height"`
}

// LeaseCancelEvent is a lease cancellation emitted by a script invocation
type LeaseCancelEvent struct {
	ID string `json:"id"`
}

// Invoke is a nested invocation inside a state-change tree
type Invoke struct {
	DApp         string        `json:"dApp"`
	StateChanges *StateChanges `json:"stateChanges"`
}

// RewardStatus is the chain's block-reward summary
type RewardStatus struct {
	Height           uint64 `json:"height"`
	CurrentReward    uint64 `json:"currentReward"`
	TotalWavesAmount uint64 `json:"totalWavesAmount"`
}

// BalanceResponse is an address balance in minor units
type BalanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// AssetBalanceResponse is an address's balance for one asset
type AssetBalanceResponse struct {
	Address string `json:"address"`
	AssetID string `json:"assetId"`
	Balance uint64 `json:"balance"`
}

// Transfer is one recipient line of a mass transfer
type Transfer struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// TxResponse is the broadcast acknowledgement for a submitted transaction
type TxResponse struct {
	ID     string `json:"id"`
	Type   int    `json:"type"`
	Height uint64 `json:"height"`
}
