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

package ingest

import (
	"errors"

	"github.com/sunchaser23/l0ps/chainclient"
)

// maxStateChangeDepth caps recursion into nested invocations. The ledger's
// own call-depth limit keeps real trees far below this; the cap guards
// against malformed input.
const maxStateChangeDepth = 256

var ErrStateChangeDepth = errors.New("state-change tree exceeds depth limit")

// CollectLeaseEvents flattens an invocation's state-change tree into the
// lease and lease-cancel events it emits, in document order
func CollectLeaseEvents(
	sc *chainclient.StateChanges,
) ([]chainclient.LeaseEvent, []chainclient.LeaseCancelEvent, error) {
	return collectLeaseEvents(sc, 0)
}

func collectLeaseEvents(
	sc *chainclient.StateChanges,
	depth int,
) ([]chainclient.LeaseEvent, []chainclient.LeaseCancelEvent, error) {
	if sc == nil {
		return nil, nil, nil
	}
	if depth >= maxStateChangeDepth {
		return nil, nil, ErrStateChangeDepth
	}
	leases := append([]chainclient.LeaseEvent{}, sc.Leases...)
	cancels := append([]chainclient.LeaseCancelEvent{}, sc.LeaseCancels...)
	for _, invoke := range sc.Invokes {
		childLeases, childCancels, err := collectLeaseEvents(
			invoke.StateChanges, depth+1,
		)
		if err != nil {
			return nil, nil, err
		}
		leases = append(leases, childLeases...)
		cancels = append(cancels, childCancels...)
	}
	return leases, cancels, nil
}
