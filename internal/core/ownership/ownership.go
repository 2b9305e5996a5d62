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

// Package ownership is the Ownership Hasher (spec.md §4.7): a weighted
// consistent hash ring over cluster node-ids, keyed on
// cespare/xxhash/v2 (already present transitively via go-redis's
// dependency graph, promoted here to a direct import).
package ownership

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	log "github.com/sirupsen/logrus"

	"github.com/opencord/olt-edge-core/internal/clustersvc"
	"github.com/opencord/olt-edge-core/internal/core/model"
)

var ownershipLogger = log.WithFields(log.Fields{"module": "ownership-hasher"})

// HashWeight is the number of virtual tokens each node receives on the
// ring (spec.md §4.7: "HASH_WEIGHT = 10").
const HashWeight = 10

type token struct {
	hash   uint64
	nodeID string
}

// Hasher is the Ownership Hasher: hash(deviceIdString) -> nodeId, rebuilt
// whenever cluster membership changes.
type Hasher struct {
	mu          sync.RWMutex
	localNodeID string
	tokens      []token // sorted by hash
	nodes       map[string]bool
}

// New builds a Hasher seeded with the given membership's current nodes,
// and starts a goroutine applying INSTANCE_READY/INSTANCE_DEACTIVATED
// events from its Subscribe() channel.
func New(membership clustersvc.Membership) *Hasher {
	h := &Hasher{
		localNodeID: membership.LocalNodeID(),
		nodes:       make(map[string]bool),
	}
	for _, n := range membership.Nodes() {
		h.nodes[n] = true
	}
	h.rebuild()

	go h.watch(membership.Subscribe())

	return h
}

func (h *Hasher) watch(events <-chan clustersvc.Event) {
	for ev := range events {
		switch ev.Kind {
		case clustersvc.InstanceReady:
			h.AddNode(ev.NodeID)
		case clustersvc.InstanceDeactivated:
			h.RemoveNode(ev.NodeID)
		}
	}
}

// AddNode admits nodeID to the ring (INSTANCE_READY).
func (h *Hasher) AddNode(nodeID string) {
	h.mu.Lock()
	h.nodes[nodeID] = true
	h.mu.Unlock()
	h.rebuild()
	ownershipLogger.WithFields(log.Fields{"node": nodeID}).Info("node joined ring")
}

// RemoveNode evicts nodeID from the ring (INSTANCE_DEACTIVATED).
func (h *Hasher) RemoveNode(nodeID string) {
	h.mu.Lock()
	delete(h.nodes, nodeID)
	h.mu.Unlock()
	h.rebuild()
	ownershipLogger.WithFields(log.Fields{"node": nodeID}).Info("node left ring")
}

func (h *Hasher) rebuild() {
	h.mu.Lock()
	defer h.mu.Unlock()

	tokens := make([]token, 0, len(h.nodes)*HashWeight)
	for nodeID := range h.nodes {
		for i := 0; i < HashWeight; i++ {
			tokens = append(tokens, token{hash: tokenHash(nodeID, i), nodeID: nodeID})
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].hash < tokens[j].hash })
	h.tokens = tokens
}

func tokenHash(nodeID string, replica int) uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte(nodeID))
	_, _ = h.Write([]byte{'#'})
	_, _ = h.Write([]byte{byte(replica)})
	return h.Sum64()
}

// NodeFor returns the node owning deviceID per the ring.
func (h *Hasher) NodeFor(deviceID model.DeviceID) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.tokens) == 0 {
		return "", false
	}
	target := xxhash.Sum64String(string(deviceID))
	idx := sort.Search(len(h.tokens), func(i int) bool { return h.tokens[i].hash >= target })
	if idx == len(h.tokens) {
		idx = 0
	}
	return h.tokens[idx].nodeID, true
}

// Owns reports whether this instance owns deviceID — the hash result
// equals the local node-id (spec.md §4.7).
func (h *Hasher) Owns(deviceID model.DeviceID) bool {
	node, ok := h.NodeFor(deviceID)
	return ok && node == h.localNodeID
}
