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

package eventpump

import (
	"sync"

	"github.com/opencord/olt-edge-core/internal/core/model"
)

// registry is the pump's view of connected devices and their ports. Only
// the pump's run loop mutates it (spec.md §5: "single-threaded per
// component"); the Reconciler's worker-pool goroutines only read it, via
// the reconciler.DeviceLookup interface, so it still needs a lock against
// concurrent reads racing the single writer.
type registry struct {
	mu      sync.RWMutex
	devices map[model.DeviceID]*model.Device
}

func newRegistry() *registry {
	return &registry{devices: make(map[model.DeviceID]*model.Device)}
}

// Device implements reconciler.DeviceLookup.
func (r *registry) Device(id model.DeviceID) (*model.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

func (r *registry) putDevice(id model.DeviceID, serialNumber string, uplinkPort uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		d = &model.Device{ID: id, Ports: make(map[uint32]*model.Port)}
		r.devices[id] = d
	}
	d.SerialNumber = serialNumber
	d.UplinkPort = uplinkPort
}

func (r *registry) removeDevice(id model.DeviceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
}

// putPort records port on its device, returning the port's previous
// enabled state (if any), so the caller can detect an enable-bit toggle on
// a PORT_UPDATED event (spec.md §4.6).
func (r *registry) putPort(port *model.Port) (prevEnabled bool, hadPrev bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[port.DeviceID]
	if !ok {
		d = &model.Device{ID: port.DeviceID, Ports: make(map[uint32]*model.Port)}
		r.devices[port.DeviceID] = d
	}
	if prev, ok := d.Ports[port.Number]; ok {
		prevEnabled, hadPrev = prev.Enabled, true
	}
	d.PutPort(port)
	return prevEnabled, hadPrev
}

func (r *registry) removePort(deviceID model.DeviceID, portNumber uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[deviceID]; ok {
		delete(d.Ports, portNumber)
	}
}

// PortByName implements service.PortLookup: a linear scan over known
// devices, used by the Public Service's subscriberId-based provisioning
// overload to locate the (device, port) a portName belongs to.
func (r *registry) PortByName(name string) (*model.Port, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		for _, p := range d.Ports {
			if p.Name == name {
				return p, true
			}
		}
	}
	return nil, false
}

// Devices implements service.DeviceLister: a snapshot copy of every known
// device, used by the Public Service's list-OLTs query.
func (r *registry) Devices() []*model.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out
}
