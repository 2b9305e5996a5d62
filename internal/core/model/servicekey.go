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

import "fmt"

// ServiceKey is the primary key for all per-service status: a port plus
// enough of the service's identity to disambiguate multi-service UNIs
// (spec.md §3: "ponCTag+ponSTag+technologyProfileId triple"). It is a plain
// comparable struct so it can be used directly as a map key, and its field
// order matches the persisted serialisation spec.md §6 documents:
// (portDeviceId, portNumber, portName, ponCTag, ponSTag, technologyProfileId).
type ServiceKey struct {
	PortDeviceID DeviceID
	PortNumber   uint32
	PortName     string

	PonCTag             VlanID
	PonSTag             VlanID
	TechnologyProfileId int32
}

// NewServiceKey builds the key for one (port, service) tuple.
func NewServiceKey(port *Port, uti *UniTagInformation) ServiceKey {
	return ServiceKey{
		PortDeviceID:        port.DeviceID,
		PortNumber:          port.Number,
		PortName:            port.Name,
		PonCTag:             uti.PonCTag,
		PonSTag:             uti.PonSTag,
		TechnologyProfileId: uti.TechnologyProfileId,
	}
}

// ConnectPoint returns the (device, port) this key's flows live on.
func (k ServiceKey) ConnectPoint() ConnectPoint {
	return ConnectPoint{DeviceID: k.PortDeviceID, PortNumber: k.PortNumber}
}

// String renders the key in the serialised field order from spec.md §6, for
// logging and for use as a Redis hash field name.
func (k ServiceKey) String() string {
	return fmt.Sprintf("%s/%d/%s/%d/%d/%d",
		k.PortDeviceID, k.PortNumber, k.PortName, k.PonCTag, k.PonSTag, k.TechnologyProfileId)
}

// DefaultEapolUniTag is the canonical synthetic tag the Flow Listener uses
// to key the default-EAPOL ServiceKey for a port (spec.md §4.4 step 5: "for
// default-EAPOL use the canonical defaultEapolUniTag").
func DefaultEapolUniTag() *UniTagInformation {
	return &UniTagInformation{
		PonCTag:             VlanNone,
		PonSTag:             VlanNone,
		UniTagMatch:         VlanNone,
		TechnologyProfileId: NoneTechProfileID,
	}
}

// NniUniTag is the canonical synthetic tag used to key NNI-scoped flows
// (LLDP, NNI DHCP/IGMP/PPPoED traps) in the Status Store / Flow Listener.
func NniUniTag() *UniTagInformation {
	return &UniTagInformation{
		PonCTag:             VlanNone,
		PonSTag:             VlanNone,
		UniTagMatch:         VlanNone,
		TechnologyProfileId: NoneTechProfileID,
		ServiceName:         "nni",
	}
}
