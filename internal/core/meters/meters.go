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

// Package meters is the Meter Cache (spec.md §4.2): it tracks the binding
// from (deviceId, bpId) to an installed meter id, guarantees at-most-one
// outstanding install per (device, bpId), and parks directives that
// reference a not-yet-ready meter until the southbound confirms install.
package meters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"

	log "github.com/sirupsen/logrus"

	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/platform/clustermap"
)

var metersLogger = log.WithFields(log.Fields{"module": "meter-cache"})

const meterIDField = "meterId"

// MeterInstallRequest is synthesised by ensureMeter when no binding exists
// yet; the caller is responsible for submitting it to the southbound
// driver's SubmitMeter.
type MeterInstallRequest struct {
	DeviceID model.DeviceID
	MeterID  uint64
	BpID     string
	Bands    []model.MeterBand
}

// ParkedDirective is anything the Reconciler wants to emit once a meter
// becomes ready; the cache only carries it around, it does not interpret it.
type ParkedDirective struct {
	DeviceID model.DeviceID
	MeterID  uint64
	Resume   func()
}

// Cache is the Meter Cache. The bindings themselves are cluster-replicated
// (spec.md §5: "the meter binding ... [is] cluster-replicated"); only the
// pending-install marker and the parked-directive queue are process-local
// compare-and-set guards, as §5 specifies.
type Cache struct {
	bindings clustermap.Map

	mu sync.Mutex

	// pending guarantees at-most-one outstanding install per (device, bpId)
	// (spec.md §4.2). Its TTL bounds how long an install that never gets a
	// callback blocks a new install request for that profile; expiry does
	// not resume or drop directives already parked.
	pending *ttlcache.Cache[string, struct{}]

	// parked[deviceID] holds directives waiting on any meter on that
	// device to become ready.
	parked map[model.DeviceID][]ParkedDirective
}

// New builds a Meter Cache over bindings (the cluster-replicated
// deviceId/bpId->meterId map). pendingTTL bounds how long a pending marker
// survives without a callback (spec.md §5: "long-parked tasks ... MAY be
// capped by a configurable timeout").
func New(bindings clustermap.Map, pendingTTL time.Duration) *Cache {
	pending := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](pendingTTL),
	)
	go pending.Start()

	return &Cache{
		bindings: bindings,
		pending:  pending,
		parked:   make(map[model.DeviceID][]ParkedDirective),
	}
}

func bindingKey(deviceID model.DeviceID, bpID string) string {
	return string(deviceID) + "|" + bpID
}

// synthMeterID deterministically derives a meter id from (deviceId, bpId)
// so the same bandwidth profile always maps to the same id, even across a
// restart that lost the process-local pending marker but not the
// southbound's programmed state.
func synthMeterID(deviceID model.DeviceID, bpID string) uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte(deviceID))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(bpID))
	return h.Sum64()
}

// EnsureMeter implements spec.md §4.2's ensureMeter. It returns the meter id
// to reference and whether it is ready to be used in an emitted directive.
// When not ready, req is populated and the caller MUST submit it via the
// southbound driver; it MUST NOT emit a flow referencing meterId yet.
func (c *Cache) EnsureMeter(ctx context.Context, deviceID model.DeviceID, bp *model.BandwidthProfileInformation) (meterID uint64, ready bool, req *MeterInstallRequest, err error) {
	key := bindingKey(deviceID, bp.ID)

	fields, ok, err := c.bindings.Get(ctx, key)
	if err != nil {
		return 0, false, nil, err
	}
	if ok {
		id, parseErr := strconv.ParseUint(fields[meterIDField], 10, 64)
		if parseErr == nil {
			return id, true, nil, nil
		}
	}

	meterID = synthMeterID(deviceID, bp.ID)

	c.mu.Lock()
	alreadyPending := c.pending.Has(key)
	if !alreadyPending {
		c.pending.Set(key, struct{}{}, ttlcache.DefaultTTL)
	}
	c.mu.Unlock()

	if alreadyPending {
		// An install is already in flight for this (device, bpId); the
		// caller parks again rather than issuing a second request.
		return meterID, false, nil, nil
	}

	metersLogger.WithFields(log.Fields{"device": deviceID, "bpId": bp.ID, "meterId": meterID}).Debug("submitting meter install")

	return meterID, false, &MeterInstallRequest{
		DeviceID: deviceID,
		MeterID:  meterID,
		BpID:     bp.ID,
		Bands:    bp.Bands(),
	}, nil
}

// Park records a directive to resume once any meter on deviceID becomes
// ready (onMeterInstalled/onMeterFailed drains it).
func (c *Cache) Park(deviceID model.DeviceID, meterID uint64, resume func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parked[deviceID] = append(c.parked[deviceID], ParkedDirective{DeviceID: deviceID, MeterID: meterID, Resume: resume})
}

// OnMeterInstalled binds bpId->meterId on deviceID, clears the pending
// marker, and drains the parked queue for that device.
func (c *Cache) OnMeterInstalled(ctx context.Context, deviceID model.DeviceID, bpID string, meterID uint64) error {
	key := bindingKey(deviceID, bpID)
	if err := c.bindings.Set(ctx, key, map[string]string{meterIDField: strconv.FormatUint(meterID, 10)}); err != nil {
		return err
	}

	c.mu.Lock()
	c.pending.Delete(key)
	toResume := c.parked[deviceID]
	delete(c.parked, deviceID)
	c.mu.Unlock()

	metersLogger.WithFields(log.Fields{"device": deviceID, "bpId": bpID, "meterId": meterID}).Info("meter installed")
	for _, p := range toResume {
		p.Resume()
	}
	return nil
}

// OnMeterFailed clears the pending marker so a later ensureMeter call can
// retry, and drains the parked queue (resuming tasks so they can observe
// the still-missing binding and re-park or fail).
func (c *Cache) OnMeterFailed(deviceID model.DeviceID, bpID string) {
	key := bindingKey(deviceID, bpID)

	c.mu.Lock()
	c.pending.Delete(key)
	toResume := c.parked[deviceID]
	delete(c.parked, deviceID)
	c.mu.Unlock()

	metersLogger.WithFields(log.Fields{"device": deviceID, "bpId": bpID}).Warn("meter install failed")
	for _, p := range toResume {
		p.Resume()
	}
}

// MeterFor implements spec.md §4.2's meterFor: never allocates.
func (c *Cache) MeterFor(ctx context.Context, deviceID model.DeviceID, bpID string) (uint64, bool, error) {
	fields, ok, err := c.bindings.Get(ctx, bindingKey(deviceID, bpID))
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseUint(fields[meterIDField], 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// Clear removes all bindings and parked state for a departing device. bpIDs
// lists every bandwidth profile known to have been bound on deviceID (the
// caller tracks this, e.g. via the subscriber list being purged).
func (c *Cache) Clear(ctx context.Context, deviceID model.DeviceID, bpIDs []string) error {
	for _, bpID := range bpIDs {
		key := bindingKey(deviceID, bpID)
		if err := c.bindings.Delete(ctx, key); err != nil {
			return err
		}
		c.mu.Lock()
		c.pending.Delete(key)
		c.mu.Unlock()
	}
	c.mu.Lock()
	delete(c.parked, deviceID)
	c.mu.Unlock()
	return nil
}

// OnMeterReferenceCountZero withdraws a meter iff it was installed by this
// application and is not in the currently-programmed set passed by the
// caller (spec.md §4.2).
func (c *Cache) OnMeterReferenceCountZero(ctx context.Context, deviceID model.DeviceID, bpID string, meterID uint64, programmed map[uint64]bool) (withdraw bool, err error) {
	if programmed[meterID] {
		return false, nil
	}
	boundID, ok, err := c.MeterFor(ctx, deviceID, bpID)
	if err != nil || !ok || boundID != meterID {
		return false, err
	}
	if err := c.bindings.Delete(ctx, bindingKey(deviceID, bpID)); err != nil {
		return false, err
	}
	return true, nil
}
