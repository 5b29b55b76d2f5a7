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

package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunchaser23/l0ps/chainclient"
	"github.com/sunchaser23/l0ps/ingest"
)

func TestCollectLeaseEventsNested(t *testing.T) {
	sc := &chainclient.StateChanges{
		Leases: []chainclient.LeaseEvent{
			{ID: "lease-top", Recipient: "3PNode", Amount: 100},
		},
		Invokes: []chainclient.Invoke{
			{
				DApp: "3PChild",
				StateChanges: &chainclient.StateChanges{
					Leases: []chainclient.LeaseEvent{
						{ID: "lease-child", Recipient: "3PNode", Amount: 200},
					},
					LeaseCancels: []chainclient.LeaseCancelEvent{
						{ID: "cancel-child"},
					},
					Invokes: []chainclient.Invoke{
						{
							DApp: "3PGrandchild",
							StateChanges: &chainclient.StateChanges{
								LeaseCancels: []chainclient.LeaseCancelEvent{
									{ID: "cancel-deep"},
								},
							},
						},
					},
				},
			},
		},
	}
	leases, cancels, err := ingest.CollectLeaseEvents(sc)
	require.NoError(t, err)
	require.Len(t, leases, 2)
	assert.Equal(t, "lease-top", leases[0].ID)
	assert.Equal(t, "lease-child", leases[1].ID)
	require.Len(t, cancels, 2)
	assert.Equal(t, "cancel-child", cancels[0].ID)
	assert.Equal(t, "cancel-deep", cancels[1].ID)
}

func TestCollectLeaseEventsNil(t *testing.T) {
	leases, cancels, err := ingest.CollectLeaseEvents(nil)
	require.NoError(t, err)
	assert.Empty(t, leases)
	assert.Empty(t, cancels)
}

func TestCollectLeaseEventsDepthLimit(t *testing.T) {
	// Build a chain deeper than the walker allows
	sc := &chainclient.StateChanges{}
	leaf := sc
	for range 300 {
		next := &chainclient.StateChanges{}
		leaf.Invokes = []chainclient.Invoke{{StateChanges: next}}
		leaf = next
	}
	_, _, err := ingest.CollectLeaseEvents(sc)
	require.ErrorIs(t, err, ingest.ErrStateChangeDepth)
}
