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

// Package southbound is the consumed "southbound driver" contract (spec.md
// §6): filter/forward/meter operations against a device, each admitting a
// completion callback rather than a blocking call, mirroring how a driver
// built against gRPC streaming hardware sessions reports completion
// asynchronously (the teacher's OpenOLT gRPC client never blocks the
// caller on device state changes either).
package southbound

import (
	"github.com/opencord/olt-edge-core/internal/core/flows"
	"github.com/opencord/olt-edge-core/internal/core/model"
)

// ObjectiveErrorKind classifies a southbound failure (spec.md §6).
type ObjectiveErrorKind int

const (
	ErrUnknown ObjectiveErrorKind = iota
	ErrBadParams
	ErrTransient
)

// ObjectiveError is the error a Driver callback reports on failure.
type ObjectiveError struct {
	Kind ObjectiveErrorKind
	Err  error
}

func (e *ObjectiveError) Error() string { return e.Err.Error() }
func (e *ObjectiveError) Unwrap() error { return e.Err }

// Callback is invoked exactly once per submitted operation.
type Callback struct {
	OnSuccess func()
	OnError   func(*ObjectiveError)
}

// MeterCallback is invoked exactly once per submitted meter operation; it
// carries the bound meter id back so the caller can complete
// Meter Cache's onMeterInstalled/onMeterFailed handshake.
type MeterCallback struct {
	OnSuccess func(meterID uint64)
	OnError   func(*ObjectiveError)
}

// Driver is the southbound contract consumed by the Reconciler and Flow
// Listener. Implementations install/remove directives against a real (or
// simulated) device and report completion via the callback.
type Driver interface {
	Filter(deviceID model.DeviceID, obj flows.FilteringObjective, cb Callback)
	Forward(deviceID model.DeviceID, obj flows.ForwardingObjective, cb Callback)
	SubmitMeter(deviceID model.DeviceID, bpID string, bands []model.MeterBand, cb MeterCallback)
	WithdrawMeter(deviceID model.DeviceID, meterID uint64, cb Callback)
}
