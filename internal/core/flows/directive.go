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

// Package flows is the pure Flow Builder (spec.md §4.1): it has no I/O and
// no state beyond its inputs, and translates a service definition plus
// direction and meter references into a deterministic Directive.
package flows

import (
	"net"

	"github.com/opencord/olt-edge-core/internal/core/model"
)

// Priority constants from spec.md §4.1.
const (
	MaxPriority = 10000
	MinPriority = 1000
)

// EapolDefaultVlan is the reserved VLAN the default-EAPOL trap is tagged
// with (spec.md §4.1, GLOSSARY).
const EapolDefaultVlan model.VlanID = 4091

// Verb is add or remove, carried alongside every directive.
type Verb int

const (
	VerbAdd Verb = iota
	VerbRemove
)

func (v Verb) String() string {
	if v == VerbRemove {
		return "remove"
	}
	return "add"
}

// Direction distinguishes upstream (UNI->NNI) from downstream (NNI->UNI)
// directives.
type Direction int

const (
	Upstream Direction = iota
	Downstream
)

// IPVersion distinguishes DHCPv4 from DHCPv6 traps.
type IPVersion int

const (
	IPv4 IPVersion = 4
	IPv6 IPVersion = 6
)

// Selector is the match side of a directive. Every field is optional; a nil
// pointer (or zero-length slice/address) means "don't match on this field".
type Selector struct {
	InPort      *uint32
	EthType     *uint16
	VlanID      *model.VlanID
	InnerVlanID *model.VlanID
	VlanPcp     *model.Priority
	IPProto     *uint8
	UDPSrc      *uint16
	UDPDst      *uint16
	Metadata    *uint64
	EthDst      net.HardwareAddr
}

// InstructionKind enumerates the treatment instruction types, applied in
// the order they appear in a directive's Treatment slice — order matters
// per spec.md §4.1 ("Treatment (in order): ...").
type InstructionKind int

const (
	InsPushVlan InstructionKind = iota
	InsPopVlan
	InsSetVlan
	InsSetInnerVlan
	InsSetVlanPcp
	InsWriteMetadata
	InsMeter
	InsOutput
	InsOutputController
)

// Instruction is one treatment action.
type Instruction struct {
	Kind     InstructionKind
	Vlan     model.VlanID
	Pcp      model.Priority
	Metadata uint64
	MeterID  uint64
	Port     uint32
}

func PushVlan() Instruction { return Instruction{Kind: InsPushVlan} }
func PopVlan() Instruction  { return Instruction{Kind: InsPopVlan} }
func SetVlan(v model.VlanID) Instruction {
	return Instruction{Kind: InsSetVlan, Vlan: v}
}
func SetInnerVlan(v model.VlanID) Instruction {
	return Instruction{Kind: InsSetInnerVlan, Vlan: v}
}
func SetVlanPcp(p model.Priority) Instruction {
	return Instruction{Kind: InsSetVlanPcp, Pcp: p}
}
func WriteMetadata(m uint64) Instruction {
	return Instruction{Kind: InsWriteMetadata, Metadata: m}
}
func Meter(id uint64) Instruction {
	return Instruction{Kind: InsMeter, MeterID: id}
}
func Output(port uint32) Instruction {
	return Instruction{Kind: InsOutput, Port: port}
}
func OutputController() Instruction {
	return Instruction{Kind: InsOutputController}
}

// FilteringObjective is a trap-style directive (spec.md §4.1): a filter
// installed/removed on a device, matching via Selector and acting via
// Treatment, with a priority (MaxPriority for all traps in this spec).
type FilteringObjective struct {
	DeviceID  model.DeviceID
	Key       model.ServiceKey
	Verb      Verb
	Priority  int
	Selector  Selector
	Treatment []Instruction
}

// ForwardingObjective is a match->treatment data-plane rule (spec.md §4.1):
// the upstream/downstream data forwards, at MinPriority.
type ForwardingObjective struct {
	DeviceID  model.DeviceID
	Key       model.ServiceKey
	Verb      Verb
	Priority  int
	Selector  Selector
	Treatment []Instruction
}
