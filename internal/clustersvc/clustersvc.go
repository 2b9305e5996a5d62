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

// Package clustersvc is the consumed cluster service contract (spec.md
// §6): membership list, local-node id, and cluster-change events, which
// the Ownership Hasher watches to know which devices this instance owns.
package clustersvc

// EventKind is a cluster membership change.
type EventKind int

const (
	InstanceReady EventKind = iota
	InstanceDeactivated
)

// Event is one membership change.
type Event struct {
	Kind   EventKind
	NodeID string
}

// Membership is the cluster service contract.
type Membership interface {
	LocalNodeID() string
	Nodes() []string
	Subscribe() <-chan Event
}

// Fake is an in-memory Membership for tests, driving INSTANCE_READY /
// INSTANCE_DEACTIVATED manually via AddNode/RemoveNode.
type Fake struct {
	local string
	nodes map[string]bool
	ch    chan Event
}

// NewFake builds a Fake whose local node id is local.
func NewFake(local string) *Fake {
	return &Fake{
		local: local,
		nodes: map[string]bool{local: true},
		ch:    make(chan Event, 16),
	}
}

func (f *Fake) LocalNodeID() string { return f.local }

func (f *Fake) Nodes() []string {
	out := make([]string, 0, len(f.nodes))
	for n := range f.nodes {
		out = append(out, n)
	}
	return out
}

func (f *Fake) Subscribe() <-chan Event { return f.ch }

// AddNode admits nodeID to the cluster and emits INSTANCE_READY.
func (f *Fake) AddNode(nodeID string) {
	f.nodes[nodeID] = true
	f.ch <- Event{Kind: InstanceReady, NodeID: nodeID}
}

// RemoveNode evicts nodeID from the cluster and emits INSTANCE_DEACTIVATED.
func (f *Fake) RemoveNode(nodeID string) {
	delete(f.nodes, nodeID)
	f.ch <- Event{Kind: InstanceDeactivated, NodeID: nodeID}
}
