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
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// txInfoChunkSize is the node's request limit for bulk transaction info
	txInfoChunkSize = 900
	// MaxMassTransferRecipients is the ledger's per-transaction recipient limit
	MaxMassTransferRecipients = 100
	// Mass transfer fee: base plus a per-recipient increment, in minor units
	massTransferBaseFee    = 100_000
	massTransferFeePerItem = 50_000
	invokeScriptFee        = 500_000
)

// TransactionsInfo bulk-fetches extended transaction details by ID. Requests
// are chunked to the node's per-request ID limit; results preserve request
// order across chunks.
func (c *Client) TransactionsInfo(
	ctx context.Context,
	ids []string,
) ([]Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ret := make([]Transaction, 0, len(ids))
	for start := 0; start < len(ids); start += txInfoChunkSize {
		end := min(start+txInfoChunkSize, len(ids))
		payload := map[string]any{"ids": ids[start:end]}
		var chunk []Transaction
		err := c.doJSON(
			ctx, http.MethodPost, "/transactions/info", payload, &chunk,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"bulk transaction fetch (chunk at %d): %w", start, err,
			)
		}
		ret = append(ret, chunk...)
	}
	return ret, nil
}

// SignAndBroadcast signs an unsigned transaction through the node's signing
// endpoint (requires the API key) and broadcasts the result
func (c *Client) SignAndBroadcast(
	ctx context.Context,
	tx any,
) (*TxResponse, error) {
	var signed json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/transactions/sign", tx, &signed); err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	ret := &TxResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/transactions/broadcast", signed, ret); err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}
	return ret, nil
}

// MassTransfer submits one mass-transfer transaction for up to
// MaxMassTransferRecipients recipients. An empty assetID transfers the
// chain asset.
func (c *Client) MassTransfer(
	ctx context.Context,
	sender, assetID string,
	transfers []Transfer,
) (*TxResponse, error) {
	if len(transfers) == 0 {
		return nil, fmt.Errorf("no transfers given")
	}
	if len(transfers) > MaxMassTransferRecipients {
		return nil, fmt.Errorf(
			"too many recipients: %d (limit %d)",
			len(transfers), MaxMassTransferRecipients,
		)
	}
	tx := map[string]any{
		"type":      TxTypeMassTransfer,
		"version":   2,
		"sender":    sender,
		"transfers": transfers,
		"fee": massTransferBaseFee +
			massTransferFeePerItem*uint64(len(transfers)),
		"timestamp": time.Now().UnixMilli(),
	}
	if assetID != "" {
		tx["assetId"] = assetID
	}
	return c.SignAndBroadcast(ctx, tx)
}

// InvokeScript calls a dApp function with no arguments or payments
func (c *Client) InvokeScript(
	ctx context.Context,
	sender, dApp, function string,
) (*TxResponse, error) {
	tx := map[string]any{
		"type":    TxTypeInvokeScript,
		"version": 2,
		"sender":  sender,
		"dApp":    dApp,
		"call": map[string]any{
			"function": function,
			"args":     []any{},
		},
		"payment":   []any{},
		"fee":       invokeScriptFee,
		"timestamp": time.Now().UnixMilli(),
	}
	return c.SignAndBroadcast(ctx, tx)
}
