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

// Height returns the current chain height
func (c *Client) Height(ctx context.Context) (uint64, error) {
	var resp struct {
		Height uint64 `json:"height"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/blocks/height", nil, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Height, nil
}

// BlockSeq returns the blocks from height from to height to, inclusive.
// The node caps a single range request at 100 blocks; callers page through
// larger ranges.
func (c *Client) BlockSeq(
	ctx context.Context,
	from, to uint64,
) ([]Block, error) {
	if to < from {
		return nil, fmt.Errorf("invalid block range %d..%d", from, to)
	}
	var ret []Block
	path := fmt.Sprintf("/blocks/seq/%d/%d", from, to)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Rewards returns the chain's current block-reward status
func (c *Client) Rewards(ctx context.Context) (*RewardStatus, error) {
	ret := &RewardStatus{}
	err := c.doJSON(ctx, http.MethodGet, "/blockchain/rewards", nil, ret)
	if err != nil {
		return nil, err
	}
	return ret, nil
}
