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

package model

import "net"

// UniTagInformation is a single service definition for one subscriber
// (spec.md §3). A subscriber may carry several of these, one per service.
type UniTagInformation struct {
	PonCTag VlanID
	PonSTag VlanID

	// UniTagMatch is the VLAN value expected on the UNI; may be VlanAny or
	// VlanNone.
	UniTagMatch VlanID

	UsPonCTagPriority Priority
	UsPonSTagPriority Priority
	DsPonCTagPriority Priority
	DsPonSTagPriority Priority

	// TechnologyProfileId is used in flow write-metadata; NoneTechProfileID
	// means "substitute the configured default".
	TechnologyProfileId int32

	UpstreamBandwidthProfile      string
	DownstreamBandwidthProfile    string
	UpstreamOltBandwidthProfile   string
	DownstreamOltBandwidthProfile string

	IsDhcpRequired  bool
	IsIgmpRequired  bool
	EnableMacLearning bool

	// ConfiguredMacAddress is an optional downstream destination MAC match;
	// nil/empty means "not configured".
	ConfiguredMacAddress net.HardwareAddr

	// ServiceName is a human-readable identifier; it is compared against
	// the configured multicast service name to identify the multicast
	// service, which skips per-service dataplane flows (spec.md §4.5).
	ServiceName string
}

// HasConfiguredMac reports whether a destination MAC has been statically
// configured for the downstream data-plane match.
func (u *UniTagInformation) HasConfiguredMac() bool {
	return len(u.ConfiguredMacAddress) == 6 && u.ConfiguredMacAddress.String() != "00:00:00:00:00:00"
}

// IsMulticast reports whether this service is the distinguished multicast
// service, identified purely by name (spec.md §4.5 step 4). An unset
// multicastServiceName means no service is treated as multicast, so an
// unnamed ordinary service never matches by coincidence.
func (u *UniTagInformation) IsMulticast(multicastServiceName string) bool {
	return multicastServiceName != "" && u.ServiceName == multicastServiceName
}

// EffectiveTechProfileID substitutes the configured default when the
// service did not set one (spec.md §3, §4.1).
func (u *UniTagInformation) EffectiveTechProfileID(defaultTechProfileID int32) int32 {
	if u.TechnologyProfileId == NoneTechProfileID {
		return defaultTechProfileID
	}
	return u.TechnologyProfileId
}
