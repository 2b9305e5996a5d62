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

// Package events is the produced Event Sink contract (spec.md §6): an
// AccessDeviceEvent stream, mirroring the teacher's EventChannel/
// publishEvent pattern (olt.go) but carrying the structured fields this
// core's operations need instead of free-form printf args.
package events

import "github.com/opencord/olt-edge-core/internal/core/model"

// Kind enumerates the AccessDeviceEvent kinds (spec.md §6).
type Kind string

const (
	DeviceConnected                       Kind = "DEVICE_CONNECTED"
	DeviceDisconnected                     Kind = "DEVICE_DISCONNECTED"
	UniAdded                               Kind = "UNI_ADDED"
	UniRemoved                             Kind = "UNI_REMOVED"
	SubscriberUniTagRegistered             Kind = "SUBSCRIBER_UNI_TAG_REGISTERED"
	SubscriberUniTagUnregistered           Kind = "SUBSCRIBER_UNI_TAG_UNREGISTERED"
	SubscriberUniTagRegistrationFailed     Kind = "SUBSCRIBER_UNI_TAG_REGISTRATION_FAILED"
	SubscriberUniTagUnregistrationFailed   Kind = "SUBSCRIBER_UNI_TAG_UNREGISTRATION_FAILED"
)

// AccessDeviceEvent is the event the Public Service / Reconciler emits on
// the Event Sink for every user-visible state change (spec.md §6).
type AccessDeviceEvent struct {
	Kind     Kind
	DeviceID model.DeviceID
	Port     uint32
	STag     model.VlanID
	CTag     model.VlanID
	TpID     int32
}

// Sink is the produced Event Sink contract.
type Sink interface {
	Emit(e AccessDeviceEvent)
}

// NopSink discards every event; used where no sink is configured (tests,
// --mock CLI runs).
type NopSink struct{}

func (NopSink) Emit(AccessDeviceEvent) {}

// RecordingSink appends every emitted event, for test assertions.
type RecordingSink struct {
	Events []AccessDeviceEvent
}

func (r *RecordingSink) Emit(e AccessDeviceEvent) {
	r.Events = append(r.Events, e)
}
