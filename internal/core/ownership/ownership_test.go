/*
 * Copyright 2018-2023 Open Networking Foundation (ONF) and the ONF Contributors

 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at

 * http://www.apache.org/licenses/LICENSE-2.0

 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ownership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opencord/olt-edge-core/internal/clustersvc"
	"github.com/opencord/olt-edge-core/internal/core/model"
)

func TestOwns_SingleNodeOwnsEverything(t *testing.T) {
	membership := clustersvc.NewFake("node-a")
	h := New(membership)

	assert.True(t, h.Owns("OLT-001"))
	assert.True(t, h.Owns("OLT-002"))
}

func TestOwns_ExactlyOneNodeOwnsEachDevice(t *testing.T) {
	a := clustersvc.NewFake("node-a")
	a.AddNode("node-b")
	ha := New(a)
	hb := &Hasher{localNodeID: "node-b", nodes: map[string]bool{"node-a": true, "node-b": true}}
	hb.rebuild()

	devices := []model.DeviceID{"OLT-001", "OLT-002", "OLT-003", "OLT-004", "OLT-005"}
	for _, d := range devices {
		nodeA, _ := ha.NodeFor(d)
		nodeB, _ := hb.NodeFor(d)
		assert.Equal(t, nodeA, nodeB, "both hashers must agree on the owning node for %s", d)
	}
}

func TestAddNode_RebalancesRing(t *testing.T) {
	membership := clustersvc.NewFake("node-a")
	h := New(membership)
	require := assert.New(t)

	owner, ok := h.NodeFor("OLT-001")
	require.True(ok)
	require.Equal("node-a", owner)

	membership.AddNode("node-b")
	// allow the watcher goroutine to process the membership event
	time.Sleep(10 * time.Millisecond)

	// Ownership may now be split between node-a and node-b; the local
	// instance must agree with NodeFor either way.
	owns := h.Owns("OLT-001")
	node, _ := h.NodeFor("OLT-001")
	require.Equal(node == "node-a", owns)
}
