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

// Package hostinfo is the consumed host/ARP service contract (spec.md §6):
// used to verify a learned MAC on a (port, ponCTag) connect point before a
// MAC-learning-gated provisioning task proceeds.
package hostinfo

import (
	"context"
	"net"

	"github.com/opencord/olt-edge-core/internal/core/model"
)

// Host is one learned host record.
type Host struct {
	VLAN model.VlanID
	MAC  net.HardwareAddr
}

// Lookup is the host/ARP service contract.
type Lookup interface {
	ConnectedHosts(ctx context.Context, cp model.ConnectPoint) ([]Host, error)
}

// Fake is an in-memory Lookup for tests.
type Fake struct {
	hosts map[model.ConnectPoint][]Host
}

// NewFake builds an empty Fake ready for tests to populate via Learn.
func NewFake() *Fake {
	return &Fake{hosts: make(map[model.ConnectPoint][]Host)}
}

// Learn records a host as discovered on cp, as a real host/ARP service
// would report after seeing DHCP/ARP traffic.
func (f *Fake) Learn(cp model.ConnectPoint, h Host) {
	f.hosts[cp] = append(f.hosts[cp], h)
}

func (f *Fake) ConnectedHosts(_ context.Context, cp model.ConnectPoint) ([]Host, error) {
	return f.hosts[cp], nil
}

// MacFor looks for a host on cp tagged with vlan, the query the Reconciler
// uses to resolve whether a MAC-learning-gated provisioning task can
// proceed (spec.md §4.5 step 4).
func MacFor(hosts []Host, vlan model.VlanID) (net.HardwareAddr, bool) {
	for _, h := range hosts {
		if h.VLAN == vlan {
			return h.MAC, true
		}
	}
	return nil, false
}
