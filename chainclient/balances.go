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

import (
	"context"
	"fmt"
	"net/http"
)

// WavesBalance returns an address's spendable chain-asset balance in minor
// units
func (c *Client) WavesBalance(
	ctx context.Context,
	address string,
) (uint64, error) {
	var resp BalanceResponse
	path := fmt.Sprintf("/addresses/balance/%s", address)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// AssetBalance returns an address's balance for one asset in minor units
func (c *Client) AssetBalance(
	ctx context.Context,
	address, assetID string,
) (uint64, error) {
	var resp AssetBalanceResponse
	path := fmt.Sprintf("/assets/balance/%s/%s", address, assetID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}
