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

// Package mock is an in-memory southbound.Driver test double, modelled on
// the teacher's sync.Map-keyed flow bookkeeping (olt.go: Flows sync.Map
// keyed by FlowKey{ID: flow.FlowId}) but generalized to record
// FilteringObjective/ForwardingObjective/meter submissions and complete
// them synchronously (or, for meter installs, on the test's call) instead
// of running a gRPC server.
package mock

import (
	"sync"

	"github.com/opencord/olt-edge-core/internal/core/flows"
	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/southbound"
)

// Call records one Filter/Forward/SubmitMeter/WithdrawMeter invocation.
type Call struct {
	DeviceID model.DeviceID
	Filter   *flows.FilteringObjective
	Forward  *flows.ForwardingObjective
	MeterBpID string
	MeterBands []model.MeterBand
	WithdrawMeterID uint64
}

// Driver is a southbound.Driver test double. By default every call
// auto-succeeds synchronously (AutoSucceed=true). With AutoSucceed false,
// meter installs are completed manually via CompleteMeter/FailMeter (to
// test meter-not-ready parking); filter and forward callbacks are recorded
// and never invoked.
type Driver struct {
	mu sync.Mutex

	AutoSucceed bool

	Calls []Call

	pendingFilters  map[string]southbound.Callback
	pendingForwards map[string]southbound.Callback
	pendingMeters   map[string]southbound.MeterCallback
}

// New builds a mock Driver with AutoSucceed enabled.
func New() *Driver {
	return &Driver{
		AutoSucceed:     true,
		pendingFilters:  make(map[string]southbound.Callback),
		pendingForwards: make(map[string]southbound.Callback),
		pendingMeters:   make(map[string]southbound.MeterCallback),
	}
}

func (d *Driver) Filter(deviceID model.DeviceID, obj flows.FilteringObjective, cb southbound.Callback) {
	d.mu.Lock()
	d.Calls = append(d.Calls, Call{DeviceID: deviceID, Filter: &obj})
	auto := d.AutoSucceed
	if !auto {
		d.pendingFilters[obj.Key.String()+obj.Verb.String()] = cb
	}
	d.mu.Unlock()

	if auto && cb.OnSuccess != nil {
		cb.OnSuccess()
	}
}

func (d *Driver) Forward(deviceID model.DeviceID, obj flows.ForwardingObjective, cb southbound.Callback) {
	d.mu.Lock()
	d.Calls = append(d.Calls, Call{DeviceID: deviceID, Forward: &obj})
	auto := d.AutoSucceed
	if !auto {
		d.pendingForwards[obj.Key.String()+obj.Verb.String()] = cb
	}
	d.mu.Unlock()

	if auto && cb.OnSuccess != nil {
		cb.OnSuccess()
	}
}

func (d *Driver) SubmitMeter(deviceID model.DeviceID, bpID string, bands []model.MeterBand, cb southbound.MeterCallback) {
	d.mu.Lock()
	d.Calls = append(d.Calls, Call{DeviceID: deviceID, MeterBpID: bpID, MeterBands: bands})
	auto := d.AutoSucceed
	key := string(deviceID) + "|" + bpID
	if !auto {
		d.pendingMeters[key] = cb
	}
	d.mu.Unlock()

	if auto && cb.OnSuccess != nil {
		cb.OnSuccess(syntheticMeterID(deviceID, bpID))
	}
}

func (d *Driver) WithdrawMeter(deviceID model.DeviceID, meterID uint64, cb southbound.Callback) {
	d.mu.Lock()
	d.Calls = append(d.Calls, Call{DeviceID: deviceID, WithdrawMeterID: meterID})
	auto := d.AutoSucceed
	d.mu.Unlock()

	if auto && cb.OnSuccess != nil {
		cb.OnSuccess()
	}
}

// CompleteMeter lets a test manually resolve a previously submitted meter
// install with a chosen meterID (AutoSucceed must be false).
func (d *Driver) CompleteMeter(deviceID model.DeviceID, bpID string, meterID uint64) {
	key := string(deviceID) + "|" + bpID
	d.mu.Lock()
	cb, ok := d.pendingMeters[key]
	delete(d.pendingMeters, key)
	d.mu.Unlock()
	if ok && cb.OnSuccess != nil {
		cb.OnSuccess(meterID)
	}
}

// FailMeter lets a test manually fail a previously submitted meter install.
func (d *Driver) FailMeter(deviceID model.DeviceID, bpID string, objErr *southbound.ObjectiveError) {
	key := string(deviceID) + "|" + bpID
	d.mu.Lock()
	cb, ok := d.pendingMeters[key]
	delete(d.pendingMeters, key)
	d.mu.Unlock()
	if ok && cb.OnError != nil {
		cb.OnError(objErr)
	}
}

func syntheticMeterID(deviceID model.DeviceID, bpID string) uint64 {
	var h uint64 = 1469598103934665603
	for _, b := range []byte(string(deviceID) + "|" + bpID) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}
