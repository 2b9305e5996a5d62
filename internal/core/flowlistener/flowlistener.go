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

// Package flowlistener is the Flow Listener (spec.md §4.4): reverse
// reconciliation from southbound-reported flow-rule events back into the
// Status Store, classifying each rule and deriving its ServiceKey.
package flowlistener

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/google/gopacket/layers"

	"github.com/opencord/olt-edge-core/internal/core/flows"
	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/core/statestore"
	"github.com/opencord/olt-edge-core/internal/subscriberinfo"
)

var listenerLogger = log.WithFields(log.Fields{"module": "flow-listener"})

// RuleEventKind is one of the four southbound rule lifecycle events
// (spec.md §4.4).
type RuleEventKind int

const (
	RuleAddRequested RuleEventKind = iota
	RuleAdded
	RuleRemoveRequested
	RuleRemoved
)

// RuleEvent is a flow-rule event reported by the southbound.
type RuleEvent struct {
	Kind RuleEventKind

	AppID string // owning application-id, compared against ours

	DeviceID   model.DeviceID
	PortNumber uint32
	PortName   string

	Selector  flows.Selector
	Treatment []flows.Instruction
}

func (k RuleEventKind) toStatus() model.OltFlowsStatus {
	switch k {
	case RuleAddRequested:
		return model.StatusPendingAdd
	case RuleAdded:
		return model.StatusAdded
	case RuleRemoveRequested:
		return model.StatusPendingRemove
	case RuleRemoved:
		return model.StatusRemoved
	default:
		return model.StatusNone
	}
}

// DeviceLookup resolves a device's uplink port, needed to decide whether a
// reported port is the NNI.
type DeviceLookup interface {
	Device(deviceID model.DeviceID) (*model.Device, bool)
}

// Ownership reports whether this instance owns deviceID (delegated to the
// Ownership Hasher).
type Ownership interface {
	Owns(deviceID model.DeviceID) bool
}

// Listener is the Flow Listener.
type Listener struct {
	appID       string
	ownership   Ownership
	devices     DeviceLookup
	subscribers subscriberinfo.Lookup
	store       *statestore.Store
}

// New builds a Listener. appID is this application's owning-id, compared
// against each incoming event (spec.md §4.4 step 1).
func New(appID string, ownership Ownership, devices DeviceLookup, subscribers subscriberinfo.Lookup, store *statestore.Store) *Listener {
	return &Listener{appID: appID, ownership: ownership, devices: devices, subscribers: subscribers, store: store}
}

// Handle processes one RuleEvent end to end: ownership/app-id filtering,
// classification, ServiceKey derivation, and the Status Store merge
// (spec.md §4.4 steps 1-6).
func (l *Listener) Handle(ctx context.Context, ev RuleEvent) error {
	if ev.AppID != "" && ev.AppID != l.appID {
		return nil
	}
	if !l.ownership.Owns(ev.DeviceID) {
		return nil
	}

	device, ok := l.devices.Device(ev.DeviceID)
	if !ok {
		return nil
	}
	isNNI := ev.PortNumber == device.UplinkPort
	if port := device.Port(ev.PortNumber); port != nil {
		isNNI = port.IsNNI(device.UplinkPort)
	}

	field, key, ok := l.classify(ctx, ev, isNNI)
	if !ok {
		listenerLogger.WithFields(log.Fields{"device": ev.DeviceID, "port": ev.PortNumber}).Debug("unclassified rule event, dropping")
		return nil
	}

	return l.store.UpdateField(ctx, key, field, ev.Kind.toStatus())
}

// classify implements spec.md §4.4 steps 3 and 5.
func (l *Listener) classify(ctx context.Context, ev RuleEvent, isNNI bool) (model.StatusField, model.ServiceKey, bool) {
	port := &model.Port{DeviceID: ev.DeviceID, Number: ev.PortNumber, Name: ev.PortName}

	if isDefaultEapol(ev) {
		uti := model.DefaultEapolUniTag()
		return model.FieldDefaultEapol, model.NewServiceKey(port, uti), true
	}

	if isNNI {
		uti := model.NniUniTag()
		if isDhcp(ev) {
			return model.FieldDhcp, model.NewServiceKey(port, uti), true
		}
		// NNI data flows are never tracked (spec.md §4.4 step 3).
		return 0, model.ServiceKey{}, false
	}

	if isDhcp(ev) {
		vlan, ok := pushedVlan(ev.Treatment)
		if !ok {
			return 0, model.ServiceKey{}, false
		}
		uti, ok := l.matchUniTag(ctx, ev.PortName, vlan)
		if !ok {
			return 0, model.ServiceKey{}, false
		}
		return model.FieldDhcp, model.NewServiceKey(port, uti), true
	}

	if vlan, ok := selectorVlan(ev.Selector); ok {
		uti, ok := l.matchUniTag(ctx, ev.PortName, vlan)
		if !ok {
			return 0, model.ServiceKey{}, false
		}
		return model.FieldSubscriberFlows, model.NewServiceKey(port, uti), true
	}

	return 0, model.ServiceKey{}, false
}

// isDefaultEapol implements spec.md §4.4 step 3's first bullet.
func isDefaultEapol(ev RuleEvent) bool {
	if ev.Selector.EthType == nil || *ev.Selector.EthType != uint16(layers.EthernetTypeEAPOL) {
		return false
	}
	for _, ins := range ev.Treatment {
		if ins.Kind == flows.InsSetVlan && ins.Vlan == flows.EapolDefaultVlan {
			return true
		}
	}
	return false
}

// isDhcp implements spec.md §4.4 step 3's second bullet.
func isDhcp(ev RuleEvent) bool {
	if ev.Selector.IPProto == nil || *ev.Selector.IPProto != uint8(layers.IPProtocolUDP) {
		return false
	}
	if ev.Selector.UDPSrc == nil {
		return false
	}
	return *ev.Selector.UDPSrc == 67 || *ev.Selector.UDPSrc == 68
}

// pushedVlan returns the VLAN set by a setVlan instruction in treatment,
// i.e. "the VLAN pushed by the treatment" (spec.md §4.4 step 5).
func pushedVlan(treatment []flows.Instruction) (model.VlanID, bool) {
	for _, ins := range treatment {
		if ins.Kind == flows.InsSetVlan {
			return ins.Vlan, true
		}
	}
	return 0, false
}

// selectorVlan returns the VLAN-id criterion from a selector, i.e. the
// "VLAN_VID criterion" spec.md §4.4 step 3/5 refers to for data flows.
func selectorVlan(sel flows.Selector) (model.VlanID, bool) {
	if sel.VlanID == nil {
		return 0, false
	}
	return *sel.VlanID, true
}

// matchUniTag implements spec.md §4.4 step 5's subscriber lookup: the
// matching tag is the first for which ponCTag, ponSTag or uniTagMatch
// equals the flow VLAN.
func (l *Listener) matchUniTag(ctx context.Context, portName string, vlan model.VlanID) (*model.UniTagInformation, bool) {
	sub, err := l.subscribers.SubscriberByPortName(ctx, portName)
	if err != nil || sub == nil {
		return nil, false
	}
	for _, uti := range sub.UniTagList {
		if uti.PonCTag == vlan || uti.PonSTag == vlan || uti.UniTagMatch == vlan {
			return uti, true
		}
	}
	return nil, false
}
