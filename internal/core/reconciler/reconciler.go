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

// Package reconciler is the Reconciler (spec.md §4.5): the state machine
// driving each ServiceKey's three status tracks to convergence with the
// southbound, one reconciliation task per (port, desired-operation).
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"

	"github.com/opencord/olt-edge-core/internal/core/events"
	"github.com/opencord/olt-edge-core/internal/core/meters"
	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/core/statestore"
	"github.com/opencord/olt-edge-core/internal/hostinfo"
	"github.com/opencord/olt-edge-core/internal/southbound"
	"github.com/opencord/olt-edge-core/internal/subscriberinfo"
)

var reconcilerLogger = log.WithFields(log.Fields{"module": "reconciler"})

// retryMin/retryMax/retryFactor tune the per-task backoff.Backoff; the
// spec names no concrete values for this, so these are ambient defaults.
const (
	retryMin    = 200 * time.Millisecond
	retryMax    = 30 * time.Second
	retryFactor = 2.0
)

// DeviceLookup resolves a device and its ports, needed to classify NNI vs
// UNI and to enumerate ports on purge.
type DeviceLookup interface {
	Device(deviceID model.DeviceID) (*model.Device, bool)
}

// Config is the subset of common.Config the Reconciler consumes, passed by
// value so callers don't need an import cycle on internal/common.
type Config struct {
	EnableEapol          bool
	EnableDhcpOnNni      bool
	EnableDhcpV4         bool
	EnableDhcpV6         bool
	EnableIgmpOnNni      bool
	EnablePppoe          bool
	DefaultTechProfileID int32
	WaitForRemoval       bool
	DefaultBpID          string
	MulticastServiceName string
	Workers              int
}

// Reconciler is the Reconciler.
type Reconciler struct {
	cfg Config

	meters      *meters.Cache
	store       *statestore.Store
	subscribers subscriberinfo.Lookup
	hosts       hostinfo.Lookup
	driver      southbound.Driver
	sink        events.Sink
	devices     DeviceLookup

	pool pond.Pool
}

// New builds a Reconciler backed by a pond.Pool sized by cfg.Workers
// (spec.md §5: "a bounded worker pool (≈4 workers)").
func New(cfg Config, m *meters.Cache, store *statestore.Store, subscribers subscriberinfo.Lookup, hosts hostinfo.Lookup, driver southbound.Driver, sink events.Sink, devices DeviceLookup) *Reconciler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Reconciler{
		cfg:         cfg,
		meters:      m,
		store:       store,
		subscribers: subscribers,
		hosts:       hosts,
		driver:      driver,
		sink:        sink,
		devices:     devices,
		pool:        pond.NewPool(workers),
	}
}

// runResult is what a reconciliation task reports back to dispatch.
type runResult struct {
	// done reports the task reached a terminal outcome (success or a hard
	// failure already surfaced); no further scheduling happens.
	done bool
	// parked reports the task already arranged its own wake-up (Meter
	// Cache park); dispatch must not also schedule a backoff retry.
	parked bool
	err    error
}

var runDone = runResult{done: true}
var runParked = runResult{parked: true}

func runRetry() runResult { return runResult{} }

func runError(err error) runResult { return runResult{done: true, err: err} }

// uplinkPort resolves deviceID's configured uplink port, the NNI port every
// upstream/downstream data forward must reference (spec.md §4.1).
func (r *Reconciler) uplinkPort(deviceID model.DeviceID) uint32 {
	if d, ok := r.devices.Device(deviceID); ok {
		return d.UplinkPort
	}
	return 0
}

// deviceEvent builds the AccessDeviceEvent for uti's service on port,
// following the (deviceId, port, sTag, cTag, tpId) shape spec.md §6 names.
func deviceEvent(kind events.Kind, port *model.Port, uti *model.UniTagInformation, tpID int32) events.AccessDeviceEvent {
	return events.AccessDeviceEvent{
		Kind:     kind,
		DeviceID: port.DeviceID,
		Port:     port.Number,
		STag:     uti.PonSTag,
		CTag:     uti.PonCTag,
		TpID:     tpID,
	}
}

// task is one reconciliation task: idempotent by construction (spec.md §5),
// safe to re-run after a park or a backoff retry.
type task struct {
	label string
	run   func(ctx context.Context) runResult
	bo    *backoff.Backoff
}

// submit schedules run for immediate execution on the pool, wiring up
// backoff-based re-submission for "not done" outcomes.
func (r *Reconciler) submit(label string, run func(ctx context.Context) runResult) {
	t := &task{
		label: label,
		run:   run,
		bo:    &backoff.Backoff{Min: retryMin, Max: retryMax, Factor: retryFactor},
	}
	r.dispatch(t)
}

func (r *Reconciler) dispatch(t *task) {
	r.pool.Submit(func() {
		res := t.run(context.Background())
		switch {
		case res.err != nil:
			reconcilerLogger.WithFields(log.Fields{"task": t.label, "error": res.err}).Error("reconciliation task failed")
		case res.parked:
			// The Meter Cache owns the wake-up.
		case res.done:
			t.bo.Reset()
		default:
			delay := t.bo.Duration()
			reconcilerLogger.WithFields(log.Fields{"task": t.label, "delay": delay}).Debug("reconciliation task not done, retrying")
			time.AfterFunc(delay, func() { r.dispatch(t) })
		}
	})
}

// ensureMeter resolves bpID to a ready meter id, submitting an install via
// the southbound driver and wiring the Meter Cache's install callback when
// it is not yet bound. An empty bpID means "no meter configured for this
// leg", which is always ready with id 0 (spec.md §4.2 treats 0 as "no
// meter instruction emitted").
func (r *Reconciler) ensureMeter(ctx context.Context, deviceID model.DeviceID, bpID string) (meterID uint64, ready bool, err error) {
	if bpID == "" {
		return 0, true, nil
	}
	bp, err := r.subscribers.BandwidthProfileByID(ctx, bpID)
	if err != nil {
		return 0, false, err
	}
	if bp == nil {
		reconcilerLogger.WithFields(log.Fields{"device": deviceID, "bpId": bpID}).Warn("bandwidth profile not configured")
		return 0, false, nil
	}

	meterID, ready, req, err := r.meters.EnsureMeter(ctx, deviceID, bp)
	if err != nil {
		return 0, false, err
	}
	if req != nil {
		r.submitMeterInstall(deviceID, req)
	}
	return meterID, ready, nil
}

func (r *Reconciler) submitMeterInstall(deviceID model.DeviceID, req *meters.MeterInstallRequest) {
	r.driver.SubmitMeter(deviceID, req.BpID, req.Bands, southbound.MeterCallback{
		OnSuccess: func(meterID uint64) {
			if err := r.meters.OnMeterInstalled(context.Background(), deviceID, req.BpID, meterID); err != nil {
				reconcilerLogger.WithFields(log.Fields{"device": deviceID, "bpId": req.BpID, "error": err}).Error("recording installed meter")
			}
		},
		OnError: func(objErr *southbound.ObjectiveError) {
			reconcilerLogger.WithFields(log.Fields{"device": deviceID, "bpId": req.BpID, "error": objErr}).Warn("meter install failed")
			r.meters.OnMeterFailed(deviceID, req.BpID)
		},
	})
}

// requiredBpIDs lists every bandwidth-profile id a service references,
// skipping unset (empty) legs (spec.md §4.5 step 2: "upstream/downstream +
// OLT variants").
func requiredBpIDs(uti *model.UniTagInformation) []string {
	var ids []string
	for _, id := range []string{
		uti.UpstreamBandwidthProfile,
		uti.DownstreamBandwidthProfile,
		uti.UpstreamOltBandwidthProfile,
		uti.DownstreamOltBandwidthProfile,
	} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// meterSet resolves every bpID in ids to a ready meter id. If any is not
// ready, it parks the task on deviceID (resumed once any meter on that
// device becomes ready) and returns ok=false.
func (r *Reconciler) meterSet(ctx context.Context, deviceID model.DeviceID, ids []string, resume func()) (meterIDs map[string]uint64, ok bool, err error) {
	meterIDs = make(map[string]uint64, len(ids))
	for _, id := range ids {
		meterID, ready, err := r.ensureMeter(ctx, deviceID, id)
		if err != nil {
			return nil, false, err
		}
		if !ready {
			r.meters.Park(deviceID, meterID, resume)
			return nil, false, nil
		}
		meterIDs[id] = meterID
	}
	return meterIDs, true, nil
}

// joinCallbacks builds n southbound.Callback handles that feed a single
// onDone(ok bool), called exactly once after all n have reported — the
// fan-in a multi-directive provisioning/removal step needs to decide when
// a ServiceKey's track may move to ADDED/REMOVED.
func joinCallbacks(n int, onDone func(ok bool)) func() southbound.Callback {
	var mu sync.Mutex
	remaining := n
	failed := false
	complete := func(ok bool) {
		mu.Lock()
		if !ok {
			failed = true
		}
		remaining--
		done := remaining == 0
		allOK := !failed
		mu.Unlock()
		if done {
			onDone(allOK)
		}
	}
	return func() southbound.Callback {
		return southbound.Callback{
			OnSuccess: func() { complete(true) },
			OnError: func(*southbound.ObjectiveError) { complete(false) },
		}
	}
}
