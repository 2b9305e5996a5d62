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

// Package eventpump is the Device Event Pump (spec.md §4.6): it serialises
// every device/port event onto a single-writer queue, the same shape as
// the teacher's channel/processOltMessages loop (olt.go: o.channel chan
// types.Message, drained by a single select-loop goroutine), filters out
// noisy event kinds, checks cluster ownership, and dispatches to the
// Reconciler via an explicit switch on event kind.
package eventpump

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/opencord/olt-edge-core/internal/core/events"
	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/core/ownership"
	"github.com/opencord/olt-edge-core/internal/core/reconciler"
)

var pumpLogger = log.WithFields(log.Fields{"module": "event-pump"})

// Kind enumerates every device/port event this pump recognises, including
// the noisy kinds it filters before ownership is even checked.
type Kind int

const (
	PortAdded Kind = iota
	PortRemoved
	PortUpdated
	DeviceAdded
	DeviceRemoved
	DeviceAvailabilityChanged

	// Noisy kinds, dropped at the top of process (spec.md §4.6 step a):
	// "filter out noisy event types (stats updates, suspensions, metadata
	// updates)".
	StatsUpdate
	Suspension
	MetadataUpdate
)

// Event is one device/port event as reported by the southbound stack.
type Event struct {
	Kind Kind

	DeviceID     model.DeviceID
	SerialNumber string
	UplinkPort   uint32

	// Port is set for port-scoped events; its Enabled field carries the
	// new enable bit for PortUpdated.
	Port *model.Port

	// Available carries the new reachability for DeviceAvailabilityChanged.
	Available bool
}

// Pump is the Device Event Pump.
type Pump struct {
	queue      chan Event
	ownership  *ownership.Hasher
	reconciler *reconciler.Reconciler
	sink       events.Sink
	registry   *registry
}

// New builds a Pump. queueSize bounds how many events may be in flight
// before Submit blocks, the same backpressure the teacher's unbuffered
// o.channel applies (here given slack since southbound event bursts — a
// device rebooting with many ONUs — are expected).
func New(own *ownership.Hasher, rec *reconciler.Reconciler, sink events.Sink, queueSize int) *Pump {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pump{
		queue:      make(chan Event, queueSize),
		ownership:  own,
		reconciler: rec,
		sink:       sink,
		registry:   newRegistry(),
	}
}

// AttachReconciler wires the Reconciler this pump dispatches into, resolving
// the construction-order cycle (the Reconciler needs this pump's registry as
// its DeviceLookup, so the pump must exist first).
func (p *Pump) AttachReconciler(rec *reconciler.Reconciler) {
	p.reconciler = rec
}

// Devices returns the pump's device/port registry as a reconciler.DeviceLookup,
// the single source of truth the Reconciler consults for uplink ports and
// NNI/UNI classification.
func (p *Pump) Devices() reconciler.DeviceLookup {
	return p.registry
}

// PortByName implements service.PortLookup, delegating to the registry.
func (p *Pump) PortByName(name string) (*model.Port, bool) {
	return p.registry.PortByName(name)
}

// AllDevices implements service.DeviceLister, delegating to the registry.
func (p *Pump) AllDevices() []*model.Device {
	return p.registry.Devices()
}

// Submit enqueues ev for processing. Safe to call from any goroutine
// (southbound callback, gRPC stream handler, test code).
func (p *Pump) Submit(ev Event) {
	p.queue <- ev
}

// Run drains the queue until ctx is done, processing one event at a time
// on a single goroutine — the serialisation guarantee spec.md §5 names
// ("device events ... have their own serialised queue").
func (p *Pump) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			pumpLogger.Debug("event pump stopping, context canceled")
			return
		case ev, ok := <-p.queue:
			if !ok {
				pumpLogger.Debug("event pump stopping, queue closed")
				return
			}
			p.process(ev)
		}
	}
}

func (p *Pump) process(ev Event) {
	switch ev.Kind {
	case StatsUpdate, Suspension, MetadataUpdate:
		return
	}

	if !p.ownership.Owns(ev.DeviceID) {
		// NotOwned: silently skip (spec.md §7).
		return
	}

	switch ev.Kind {
	case DeviceAdded:
		p.handleDeviceAdded(ev)
	case DeviceRemoved:
		p.handleDeviceRemoved(ev)
	case DeviceAvailabilityChanged:
		p.handleAvailabilityChanged(ev)
	case PortAdded:
		p.handlePortUp(ev.Port)
	case PortRemoved:
		p.handlePortDown(ev.Port)
	case PortUpdated:
		p.handlePortUpdated(ev)
	default:
		pumpLogger.WithFields(log.Fields{"kind": ev.Kind}).Warn("unrecognised event kind")
	}
}

func (p *Pump) handleDeviceAdded(ev Event) {
	p.registry.putDevice(ev.DeviceID, ev.SerialNumber, ev.UplinkPort)
	p.sink.Emit(events.AccessDeviceEvent{Kind: events.DeviceConnected, DeviceID: ev.DeviceID})
}

func (p *Pump) handleDeviceRemoved(ev Event) {
	p.reconciler.PurgeDevice(ev.DeviceID)
	p.registry.removeDevice(ev.DeviceID)
}

// handleAvailabilityChanged treats a device going unreachable the same as
// a removal (purge), per spec.md §4.5's purge semantics; a device coming
// back available is a no-op here — its PORT_ADDED events will re-drive
// reconciliation as they arrive.
func (p *Pump) handleAvailabilityChanged(ev Event) {
	if !ev.Available {
		p.reconciler.PurgeDevice(ev.DeviceID)
	}
}

func (p *Pump) handlePortUp(port *model.Port) {
	if port == nil {
		return
	}
	d, _ := p.registry.Device(port.DeviceID)
	uplink := uint32(0)
	if d != nil {
		uplink = d.UplinkPort
	}
	isNNI := port.IsNNI(uplink)
	port.Enabled = true
	p.registry.putPort(port)

	p.reconciler.PortUp(port, isNNI)
	if !isNNI {
		p.sink.Emit(events.AccessDeviceEvent{Kind: events.UniAdded, DeviceID: port.DeviceID, Port: port.Number})
	}
}

func (p *Pump) handlePortDown(port *model.Port) {
	if port == nil {
		return
	}
	d, _ := p.registry.Device(port.DeviceID)
	uplink := uint32(0)
	if d != nil {
		uplink = d.UplinkPort
	}
	isNNI := port.IsNNI(uplink)

	p.reconciler.PortDown(port)
	p.registry.removePort(port.DeviceID, port.Number)
	if !isNNI {
		p.sink.Emit(events.AccessDeviceEvent{Kind: events.UniRemoved, DeviceID: port.DeviceID, Port: port.Number})
	}
}

// handlePortUpdated implements spec.md §4.6's "PORT_UPDATED where the
// enable bit toggles is treated as PORT_ADDED/PORT_REMOVED respectively".
// An update that does not flip the bit just refreshes the stored port
// (e.g. a name change) without driving reconciliation.
func (p *Pump) handlePortUpdated(ev Event) {
	port := ev.Port
	if port == nil {
		return
	}
	prevEnabled, hadPrev := p.registry.putPort(port)
	switch {
	case !hadPrev && port.Enabled:
		p.handlePortUp(port)
	case hadPrev && !prevEnabled && port.Enabled:
		p.handlePortUp(port)
	case hadPrev && prevEnabled && !port.Enabled:
		p.handlePortDown(port)
	}
}
