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

// Package model holds the data shapes shared across the core: devices,
// ports, per-subscriber service definitions and the status records the
// Reconciler drives to convergence.
package model

import "strings"

// DeviceID is the opaque identifier VOLTHA-style southbound stacks hand out
// for a connected OLT.
type DeviceID string

// Device is an OLT: identified by an opaque id, looked up by serial number
// against the OLT configuration service, and owning a set of Ports.
type Device struct {
	ID           DeviceID
	SerialNumber string
	UplinkPort   uint32
	Ports        map[uint32]*Port
}

// Port returns the port with the given number, or nil.
func (d *Device) Port(number uint32) *Port {
	if d == nil {
		return nil
	}
	return d.Ports[number]
}

// PutPort adds or replaces a port on the device.
func (d *Device) PutPort(p *Port) {
	if d.Ports == nil {
		d.Ports = make(map[uint32]*Port)
	}
	d.Ports[p.Number] = p
}

// ConnectPoint identifies a port uniquely across devices: (device-id,
// port-number). It is the Public Service's unit of addressing (spec.md §4.8).
type ConnectPoint struct {
	DeviceID   DeviceID
	PortNumber uint32
}

// Port is identified by (device-id, port-number); carries the portName
// annotation used as the subscriber key, and is classified UNI or NNI.
type Port struct {
	DeviceID DeviceID
	Number   uint32
	Name     string
	Enabled  bool
}

// ConnectPoint returns this port's (device-id, port-number) address.
func (p *Port) ConnectPoint() ConnectPoint {
	return ConnectPoint{DeviceID: p.DeviceID, PortNumber: p.Number}
}

// nniPortNamePrefix is the fallback classification rule from spec.md §3:
// "as a fallback, its portName begins with nni-".
const nniPortNamePrefix = "nni-"

// IsNNI classifies the port per spec.md §3: NNI iff its number equals the
// device's configured uplink port, or — as a fallback — its portName begins
// with "nni-".
func (p *Port) IsNNI(uplinkPort uint32) bool {
	if p.Number == uplinkPort {
		return true
	}
	return strings.HasPrefix(p.Name, nniPortNamePrefix)
}

// IsUNI is the complement of IsNNI.
func (p *Port) IsUNI(uplinkPort uint32) bool {
	return !p.IsNNI(uplinkPort)
}
