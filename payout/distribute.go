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
	"errors"
	"sort"

	"github.com/sunchaser23/l0ps/database"
)

// WavesAsset is the asset name used for chain-asset reward lines. Its asset
// ID on detail rows is empty.
const WavesAsset = "waves"

// AirdropPool is one bonus asset distributed alongside block rewards.
// PerBlock is the pool share attributed to each mined block, in the asset's
// minor units.
type AirdropPool struct {
	Name     string
	AssetID  string
	PerBlock uint64
}

// Params drives one reward distribution over a block period
type Params struct {
	// Generator is the tracked node's address; only blocks it generated pay
	// out
	Generator string
	// Beneficiary receives the operator share
	Beneficiary string
	// DistributionPercent is the lessors' cut of every pool, 0..100
	DistributionPercent int
	// StartBlock is the exclusive lower period bound. Its block row seeds
	// the fee carry-over but earns nothing.
	StartBlock uint64
	// ChainStart is the first tracked block height; it floors the
	// active-lease window early in the ledger's life
	ChainStart uint64
	// BlockReward is the node's reward portion per generated block
	BlockReward uint64
	// SelfInvokeDebt is the total charge for the node's own contract
	// invocations during the period, spread evenly over mined blocks
	SelfInvokeDebt uint64
	// TransferFee is deducted from each address's chain-asset line once per
	// asset line it receives
	TransferFee uint64
	MinedBlocks int
	Airdrops    []AirdropPool
}

// Distribution is the outcome of one reward split
type Distribution struct {
	// Details are the address/asset payout lines, ready for persistence
	Details []database.PaymentDetail
	// Totals sums the lines per asset name
	Totals map[string]uint64
	// Shares records each address's lease share as of the last block it
	// participated in
	Shares map[string]float64
}

type rewardLine struct {
	assetID string
	amount  uint64
}

// Distribute splits the period's fees, block rewards, and bonus pools over
// the addresses leasing to the generator, block by block.
//
// Per generated block the fee pool is 0.6 of the previous block's fees plus
// 0.4 of its own (the chain's fee split). Lessors divide their percentage of
// each pool proportionally to mature leased capital, with the node's
// self-invocation debt charged against their chain-asset line. The
// beneficiary accrues the operator remainder of every pool, debt-free.
// Per-block amounts are floored; an address's block accrual never goes
// negative.
func Distribute(
	blocks []database.Block,
	leases []database.Lease,
	params Params,
) (*Distribution, error) {
	if params.MinedBlocks <= 0 {
		return nil, errors.New("no mined blocks to distribute over")
	}
	pct := float64(params.DistributionPercent) / 100

	rewardPool := float64(params.BlockReward)
	lessorsRewards := rewardPool * pct
	ownerRewards := rewardPool - lessorsRewards

	perBlockDebt := float64(params.SelfInvokeDebt) /
		float64(params.MinedBlocks)
	lessorsDebt := perBlockDebt * pct

	lessorsAirdrop := make([]float64, len(params.Airdrops))
	ownerAirdrop := make([]float64, len(params.Airdrops))
	for i, pool := range params.Airdrops {
		lessorsAirdrop[i] = float64(pool.PerBlock) * pct
		ownerAirdrop[i] = float64(pool.PerBlock) - lessorsAirdrop[i]
	}

	accounts := make(map[string]map[string]*rewardLine)
	shares := make(map[string]float64)
	account := func(address string) map[string]*rewardLine {
		acct, ok := accounts[address]
		if !ok {
			acct = map[string]*rewardLine{
				WavesAsset: {},
			}
			for _, pool := range params.Airdrops {
				acct[pool.Name] = &rewardLine{assetID: pool.AssetID}
			}
			accounts[address] = acct
		}
		return acct
	}

	var prevFees uint64
	for _, block := range blocks {
		if block.Height > params.StartBlock &&
			block.Generator == params.Generator {
			blockFees := float64(prevFees)*0.6 + float64(block.Fees)*0.4
			lessorsFees := blockFees * pct
			ownerFees := blockFees - lessorsFees

			active := ActiveLeases(block.Height, params.ChainStart, leases)
			for address, leased := range active.Shares {
				share := float64(leased) / float64(active.Total)
				shares[address] = share
				acct := account(address)
				fees := int64(share * lessorsFees)
				rewards := int64(share * lessorsRewards)
				debt := int64(share * lessorsDebt)
				if amount := fees + rewards - debt; amount > 0 {
					acct[WavesAsset].amount += uint64(amount)
				}
				for i, pool := range params.Airdrops {
					if amount := int64(share * lessorsAirdrop[i]); amount > 0 {
						acct[pool.Name].amount += uint64(amount)
					}
				}
			}

			owner := account(params.Beneficiary)
			if amount := int64(ownerFees + ownerRewards); amount > 0 {
				owner[WavesAsset].amount += uint64(amount)
			}
			for i, pool := range params.Airdrops {
				if amount := int64(ownerAirdrop[i]); amount > 0 {
					owner[pool.Name].amount += uint64(amount)
				}
			}
		}
		prevFees = block.Fees
	}

	// Drop empty lines, then charge the sending fee against each remaining
	// address's chain-asset line, one fee per asset line it receives
	for address, acct := range accounts {
		for asset, line := range acct {
			if line.amount == 0 {
				delete(acct, asset)
			}
		}
		if len(acct) == 0 {
			delete(accounts, address)
			continue
		}
		if line, ok := acct[WavesAsset]; ok {
			fee := params.TransferFee * uint64(len(acct))
			if line.amount > fee {
				line.amount -= fee
			} else {
				line.amount = 0
			}
		}
	}

	ret := &Distribution{
		Totals: make(map[string]uint64),
		Shares: shares,
	}
	addresses := make([]string, 0, len(accounts))
	for address := range accounts {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	for _, address := range addresses {
		acct := accounts[address]
		assets := make([]string, 0, len(acct))
		for asset := range acct {
			if asset != WavesAsset {
				assets = append(assets, asset)
			}
		}
		sort.Strings(assets)
		if _, ok := acct[WavesAsset]; ok {
			assets = append([]string{WavesAsset}, assets...)
		}
		for _, asset := range assets {
			line := acct[asset]
			ret.Details = append(ret.Details, database.PaymentDetail{
				Address: address,
				Asset:   asset,
				AssetID: line.assetID,
				Amount:  line.amount,
			})
			ret.Totals[asset] += line.amount
		}
	}
	return ret, nil
}
