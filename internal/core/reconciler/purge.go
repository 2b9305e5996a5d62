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

package reconciler

import (
	"context"
	"fmt"

	"github.com/opencord/olt-edge-core/internal/core/events"
	"github.com/opencord/olt-edge-core/internal/core/model"
)

// PurgeDevice implements spec.md §4.5's "Device-removed / purge": drop
// every ServiceKey and provisioned entry belonging to the device, clear
// the Meter Cache bindings, and emit DEVICE_DISCONNECTED.
func (r *Reconciler) PurgeDevice(deviceID model.DeviceID) {
	r.submit(fmt.Sprintf("purge:%s", deviceID), func(ctx context.Context) runResult {
		return r.purgeTask(ctx, deviceID)
	})
}

func (r *Reconciler) purgeTask(ctx context.Context, deviceID model.DeviceID) runResult {
	statusKeys, err := r.store.StatusKeysForDevice(ctx, deviceID)
	if err != nil {
		return runRetry()
	}
	for _, key := range statusKeys {
		port := &model.Port{DeviceID: key.PortDeviceID, Number: key.PortNumber, Name: key.PortName}
		r.removeAllTracks(ctx, port, key)
	}

	provisionedKeys, err := r.store.ProvisionedKeysForDevice(ctx, deviceID)
	if err != nil {
		return runRetry()
	}
	for _, key := range provisionedKeys {
		_ = r.store.SetProvisioned(ctx, key, false)
	}

	bpIDs := r.bandwidthProfilesForDevice(ctx, deviceID, provisionedKeys)
	if err := r.meters.Clear(ctx, deviceID, bpIDs); err != nil {
		return runRetry()
	}

	r.sink.Emit(events.AccessDeviceEvent{Kind: events.DeviceDisconnected, DeviceID: deviceID})
	return runDone
}

// bandwidthProfilesForDevice collects every bpID referenced by the
// device's (now-former) provisioned services, so the Meter Cache knows
// which bindings to drop.
func (r *Reconciler) bandwidthProfilesForDevice(ctx context.Context, deviceID model.DeviceID, keys []model.ServiceKey) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(r.cfg.DefaultBpID)
	for _, key := range keys {
		port := &model.Port{DeviceID: key.PortDeviceID, Number: key.PortNumber, Name: key.PortName}
		sub, err := r.subscribers.SubscriberByPortName(ctx, port.Name)
		if err != nil || sub == nil {
			continue
		}
		for _, uti := range sub.UniTagList {
			for _, id := range requiredBpIDs(uti) {
				add(id)
			}
		}
	}
	return ids
}
