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
	"math"
	"sort"

	"github.com/sunchaser23/l0ps/database"
)

// LeaseMaturityWindow is the number of blocks a lease must have been active
// for before it earns a share of a block's rewards. It matches the chain's
// own generating-balance maturity rule.
const LeaseMaturityWindow = 1000

// ActiveLeaseInfo holds the per-address leased amounts that count toward one
// block's reward split
type ActiveLeaseInfo struct {
	Shares map[string]uint64
	Total  uint64
}

// ActiveLeases computes which leased capital is mature at the given height.
//
// A lease strictly containing the window [height-1000, height] counts at
// full amount. Leases that only partly overlap the window are grouped per
// address; when an address's clipped intervals cover the window end to end
// with no gap, the address is credited the MINIMUM amount among those
// intervals. Splitting a lease into back-to-back segments therefore never
// earns more than keeping the smallest segment alive the whole window.
//
// chainStart clamps the window's lower bound: within the first 1000 tracked
// blocks the window cannot reach before the ledger begins, so a lease open
// since before chainStart still counts as covering it in full.
func ActiveLeases(
	height uint64,
	chainStart uint64,
	leases []database.Lease,
) *ActiveLeaseInfo {
	info := &ActiveLeaseInfo{
		Shares: make(map[string]uint64),
	}
	upper := int64(height)
	lower := max(upper-LeaseMaturityWindow, int64(chainStart))

	type span struct {
		from, to int64
	}
	partial := make(map[string][]span)
	minAmount := make(map[string]uint64)

	for _, lease := range leases {
		start := int64(lease.StartHeight)
		end := int64(math.MaxInt64)
		if lease.EndHeight != nil {
			end = int64(*lease.EndHeight)
		}
		if start < lower && upper < end {
			info.Shares[lease.Address] += lease.Amount
			info.Total += lease.Amount
			continue
		}
		if end < lower || start > upper {
			continue
		}
		partial[lease.Address] = append(partial[lease.Address], span{
			from: max(start, lower),
			to:   min(end, upper),
		})
		if cur, ok := minAmount[lease.Address]; !ok || lease.Amount < cur {
			minAmount[lease.Address] = lease.Amount
		}
	}

	for address, spans := range partial {
		sort.Slice(spans, func(a, b int) bool {
			return spans[a].from < spans[b].from
		})
		current := lower
		covered := true
		for _, s := range spans {
			if s.from > current {
				covered = false
				break
			}
			current = max(current, s.to)
		}
		if covered && current >= upper {
			info.Shares[address] += minAmount[address]
			info.Total += minAmount[address]
		}
	}

	return info
}
