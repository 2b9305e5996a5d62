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

package flows

import (
	"net"

	"github.com/google/gopacket/layers"
	"github.com/opencord/olt-edge-core/internal/core/model"
)

func u32p(v uint32) *uint32             { return &v }
func u16p(v uint16) *uint16             { return &v }
func u8p(v uint8) *uint8                { return &v }
func vlanp(v model.VlanID) *model.VlanID { return &v }

// buildEapolTrap is shared between the default-EAPOL and per-service
// tagged-EAPOL traps (spec.md §4.1): same match/treatment shape, different
// VLAN to tag with and different meter/tech-profile source.
func buildEapolTrap(port *model.Port, key model.ServiceKey, setVlan model.VlanID, innerVlanForMetadata model.VlanID, techProfileID int32, defaultTechProfileID int32, meterID uint64, oltMeterID uint64, verb Verb) FilteringObjective {
	var treatment []Instruction
	if meterID != 0 {
		treatment = append(treatment, Meter(meterID))
	}
	metadata := EncodeMetadata(innerVlanForMetadata, techProfileID, 0, defaultTechProfileID, oltMeterID)
	treatment = append(treatment, WriteMetadata(metadata), PushVlan(), SetVlan(setVlan), OutputController())

	return FilteringObjective{
		DeviceID: port.DeviceID,
		Key:      key,
		Verb:     verb,
		Priority: MaxPriority,
		Selector: Selector{
			InPort:  u32p(port.Number),
			EthType: u16p(uint16(layers.EthernetTypeEAPOL)),
		},
		Treatment: treatment,
	}
}

// TaggedEapolTrap builds the per-service EAPOL trap (spec.md §4.1).
func TaggedEapolTrap(port *model.Port, uti *model.UniTagInformation, defaultTechProfileID int32, subscriberMeterID, oltMeterID uint64, verb Verb) FilteringObjective {
	key := model.NewServiceKey(port, uti)
	return buildEapolTrap(port, key, uti.PonCTag, uti.PonCTag, uti.TechnologyProfileId, defaultTechProfileID, subscriberMeterID, oltMeterID, verb)
}

// DefaultEapolTrap builds the default-EAPOL trap installed on every enabled
// UNI prior to subscriber provisioning (spec.md §4.1, §4.5).
func DefaultEapolTrap(port *model.Port, defaultTechProfileID int32, defaultMeterID uint64, verb Verb) FilteringObjective {
	uti := model.DefaultEapolUniTag()
	key := model.NewServiceKey(port, uti)
	return buildEapolTrap(port, key, EapolDefaultVlan, model.VlanNone, model.NoneTechProfileID, defaultTechProfileID, defaultMeterID, 0, verb)
}

// dhcpPorts returns (serverPort, clientPort) for the given IP version.
func dhcpPorts(ipVersion IPVersion) (server, client uint16) {
	if ipVersion == IPv6 {
		return 547, 546
	}
	return 67, 68
}

// DhcpTrap builds the per-direction, per-IP-version DHCP trap (spec.md §4.1).
// It is used both for UNI services (uti carries the real tag) and for NNI
// (uti is model.NniUniTag(), which carries no VLAN rewrite).
func DhcpTrap(port *model.Port, uti *model.UniTagInformation, direction Direction, ipVersion IPVersion, subscriberMeterID uint64, verb Verb) FilteringObjective {
	key := model.NewServiceKey(port, uti)

	var ethType uint16
	if ipVersion == IPv6 {
		ethType = uint16(layers.EthernetTypeIPv6)
	} else {
		ethType = uint16(layers.EthernetTypeIPv4)
	}
	server, client := dhcpPorts(ipVersion)

	var udpSrc, udpDst uint16
	if direction == Upstream {
		udpSrc, udpDst = client, server
	} else {
		udpSrc, udpDst = server, client
	}

	sel := Selector{
		InPort:  u32p(port.Number),
		EthType: u16p(ethType),
		IPProto: u8p(uint8(layers.IPProtocolUDP)),
		UDPSrc:  u16p(udpSrc),
		UDPDst:  u16p(udpDst),
	}

	var treatment []Instruction
	if direction == Upstream {
		if uti.UniTagMatch != model.NoVID {
			sel.VlanID = vlanp(uti.UniTagMatch)
		}
		treatment = append(treatment, PushVlan(), SetVlan(uti.PonCTag))
		if uti.UsPonCTagPriority.IsSet() {
			treatment = append(treatment, SetVlanPcp(uti.UsPonCTagPriority))
		}
	}
	if subscriberMeterID != 0 {
		treatment = append(treatment, Meter(subscriberMeterID))
	}
	treatment = append(treatment, OutputController())

	return FilteringObjective{
		DeviceID:  port.DeviceID,
		Key:       key,
		Verb:      verb,
		Priority:  MaxPriority,
		Selector:  sel,
		Treatment: treatment,
	}
}

// upstreamVlanRewrite appends the push/set-vlan(+pcp) treatment shared by
// IGMP and PPPoED upstream traps (spec.md §4.1).
func upstreamVlanRewrite(treatment []Instruction, uti *model.UniTagInformation) []Instruction {
	treatment = append(treatment, PushVlan(), SetVlan(uti.PonCTag))
	if uti.UsPonCTagPriority.IsSet() {
		treatment = append(treatment, SetVlanPcp(uti.UsPonCTagPriority))
	}
	return treatment
}

// IgmpTrap builds the IGMP signaling trap (spec.md §4.1): upstream matches
// and rewrites VLAN, downstream omits the VLAN rewrite.
func IgmpTrap(port *model.Port, uti *model.UniTagInformation, direction Direction, subscriberMeterID uint64, verb Verb) FilteringObjective {
	key := model.NewServiceKey(port, uti)

	sel := Selector{
		InPort:  u32p(port.Number),
		EthType: u16p(uint16(layers.EthernetTypeIPv4)),
		IPProto: u8p(uint8(layers.IPProtocolIGMP)),
	}

	var treatment []Instruction
	if direction == Upstream {
		if uti.UniTagMatch.Present() {
			sel.VlanID = vlanp(uti.UniTagMatch)
		}
		treatment = upstreamVlanRewrite(treatment, uti)
	}
	if subscriberMeterID != 0 {
		treatment = append(treatment, Meter(subscriberMeterID))
	}
	treatment = append(treatment, OutputController())

	return FilteringObjective{
		DeviceID:  port.DeviceID,
		Key:       key,
		Verb:      verb,
		Priority:  MaxPriority,
		Selector:  sel,
		Treatment: treatment,
	}
}

// PppoedTrap builds the PPPoE Discovery trap (spec.md §4.1).
func PppoedTrap(port *model.Port, uti *model.UniTagInformation, direction Direction, subscriberMeterID uint64, verb Verb) FilteringObjective {
	key := model.NewServiceKey(port, uti)

	sel := Selector{
		InPort:  u32p(port.Number),
		EthType: u16p(uint16(layers.EthernetTypePPPoEDiscovery)),
	}

	var treatment []Instruction
	if direction == Upstream {
		if uti.UniTagMatch.Present() {
			sel.VlanID = vlanp(uti.UniTagMatch)
		}
		treatment = upstreamVlanRewrite(treatment, uti)
	}
	if subscriberMeterID != 0 {
		treatment = append(treatment, Meter(subscriberMeterID))
	}
	treatment = append(treatment, OutputController())

	return FilteringObjective{
		DeviceID:  port.DeviceID,
		Key:       key,
		Verb:      verb,
		Priority:  MaxPriority,
		Selector:  sel,
		Treatment: treatment,
	}
}

// LldpTrap builds the LLDP discovery trap, installed unconditionally on
// NNI port-up (spec.md §4.1, §4.5). NNI traps carry no meter and no VLAN
// rewrite.
func LldpTrap(port *model.Port, verb Verb) FilteringObjective {
	uti := model.NniUniTag()
	key := model.NewServiceKey(port, uti)
	return FilteringObjective{
		DeviceID: port.DeviceID,
		Key:      key,
		Verb:     verb,
		Priority: MaxPriority,
		Selector: Selector{
			InPort:  u32p(port.Number),
			EthType: u16p(uint16(layers.EthernetTypeLinkLayerDiscovery)),
		},
		Treatment: []Instruction{OutputController()},
	}
}

// UpstreamDataForward builds the UNI->NNI data-plane forward (spec.md
// §4.1). Its treatment order is significant.
func UpstreamDataForward(port *model.Port, uplinkPort uint32, uti *model.UniTagInformation, defaultTechProfileID int32, subscriberMeterID, oltMeterID uint64, verb Verb) ForwardingObjective {
	key := model.NewServiceKey(port, uti)

	sel := Selector{
		InPort: u32p(port.Number),
		VlanID: vlanp(uti.UniTagMatch),
	}

	var treatment []Instruction
	if uti.PonCTag != model.VlanAny {
		treatment = append(treatment, PushVlan(), SetVlan(uti.PonCTag))
	}
	if uti.PonSTag == model.VlanAny {
		treatment = append(treatment, PopVlan())
	}
	if uti.UsPonCTagPriority.IsSet() {
		treatment = append(treatment, SetVlanPcp(uti.UsPonCTagPriority))
	}
	treatment = append(treatment, PushVlan(), SetVlan(uti.PonSTag))
	if uti.UsPonSTagPriority.IsSet() {
		treatment = append(treatment, SetVlanPcp(uti.UsPonSTagPriority))
	}

	metadata := EncodeMetadata(uti.PonCTag, uti.TechnologyProfileId, uplinkPort, defaultTechProfileID, oltMeterID)
	treatment = append(treatment, WriteMetadata(metadata))

	if subscriberMeterID != 0 {
		treatment = append(treatment, Meter(subscriberMeterID))
	}
	if oltMeterID != 0 {
		treatment = append(treatment, Meter(oltMeterID))
	}
	treatment = append(treatment, Output(uplinkPort))

	return ForwardingObjective{
		DeviceID:  port.DeviceID,
		Key:       key,
		Verb:      verb,
		Priority:  MinPriority,
		Selector:  sel,
		Treatment: treatment,
	}
}

// DownstreamDataForward builds the NNI->UNI data-plane forward (spec.md
// §4.1). The "set PCP from usPonCTagPriority" step is written that way in
// the spec (reusing the upstream C-tag priority field on the downstream
// path) and is preserved verbatim here.
func DownstreamDataForward(port *model.Port, uplinkPort uint32, uti *model.UniTagInformation, defaultTechProfileID int32, subscriberMeterID, oltMeterID uint64, learnedMac net.HardwareAddr, verb Verb) ForwardingObjective {
	key := model.NewServiceKey(port, uti)

	sel := Selector{
		InPort:      u32p(uplinkPort),
		VlanID:      vlanp(uti.PonSTag),
		InnerVlanID: vlanp(uti.PonCTag),
	}
	if uti.PonCTag != model.VlanAny {
		m := uint64(uint16(uti.PonCTag))
		sel.Metadata = &m
	}
	if uti.DsPonSTagPriority.IsSet() {
		pcp := uti.DsPonSTagPriority
		sel.VlanPcp = &pcp
	}
	if mac := effectiveMac(uti, learnedMac); len(mac) == 6 {
		sel.EthDst = mac
	}

	var treatment []Instruction
	treatment = append(treatment, PopVlan())
	if uti.UsPonCTagPriority.IsSet() {
		treatment = append(treatment, SetVlanPcp(uti.UsPonCTagPriority))
	}
	if uti.UniTagMatch != model.VlanNone && uti.PonCTag != model.VlanAny {
		treatment = append(treatment, SetInnerVlan(uti.UniTagMatch))
	}

	metadata := EncodeMetadata(uti.PonCTag, uti.TechnologyProfileId, port.Number, defaultTechProfileID, oltMeterID)
	treatment = append(treatment, WriteMetadata(metadata))

	if subscriberMeterID != 0 {
		treatment = append(treatment, Meter(subscriberMeterID))
	}
	if oltMeterID != 0 {
		treatment = append(treatment, Meter(oltMeterID))
	}
	treatment = append(treatment, Output(port.Number))

	return ForwardingObjective{
		DeviceID:  port.DeviceID,
		Key:       key,
		Verb:      verb,
		Priority:  MinPriority,
		Selector:  sel,
		Treatment: treatment,
	}
}

// effectiveMac prefers a statically configured destination MAC, falling
// back to a MAC learned via host discovery.
func effectiveMac(uti *model.UniTagInformation, learnedMac net.HardwareAddr) net.HardwareAddr {
	if uti.HasConfiguredMac() {
		return uti.ConfiguredMacAddress
	}
	return learnedMac
}
