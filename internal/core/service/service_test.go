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

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencord/olt-edge-core/internal/clustersvc"
	"github.com/opencord/olt-edge-core/internal/core/events"
	"github.com/opencord/olt-edge-core/internal/core/meters"
	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/core/ownership"
	"github.com/opencord/olt-edge-core/internal/core/reconciler"
	"github.com/opencord/olt-edge-core/internal/core/statestore"
	"github.com/opencord/olt-edge-core/internal/coreerr"
	"github.com/opencord/olt-edge-core/internal/hostinfo"
	"github.com/opencord/olt-edge-core/internal/platform/clustermap"
	"github.com/opencord/olt-edge-core/internal/southbound/mock"
	"github.com/opencord/olt-edge-core/internal/subscriberinfo"
)

const svcDeviceID model.DeviceID = "OLT-SVC-1"

type fakePorts struct {
	devices map[model.DeviceID]*model.Device
}

func (f *fakePorts) PortByName(name string) (*model.Port, bool) {
	for _, d := range f.devices {
		for _, p := range d.Ports {
			if p.Name == name {
				return p, true
			}
		}
	}
	return nil, false
}

func (f *fakePorts) AllDevices() []*model.Device {
	out := make([]*model.Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, d)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *mock.Driver, *statestore.Store, *fakePorts) {
	t.Helper()
	return newTestServiceWithOwnership(t, ownership.New(clustersvc.NewFake("node-a")))
}

func newTestServiceWithOwnership(t *testing.T, own *ownership.Hasher) (*Service, *mock.Driver, *statestore.Store, *fakePorts) {
	t.Helper()
	driver := mock.New()
	store := statestore.New(clustermap.NewMemory(), clustermap.NewMemory())
	meterCache := meters.New(clustermap.NewMemory(), time.Minute)
	subs := subscriberinfo.NewFake()
	hosts := hostinfo.NewFake()
	sink := &events.RecordingSink{}

	port := &model.Port{DeviceID: svcDeviceID, Number: 16, Name: "uni-1", Enabled: true}
	devices := &fakePorts{devices: map[model.DeviceID]*model.Device{
		svcDeviceID: {ID: svcDeviceID, UplinkPort: 1048576, Ports: map[uint32]*model.Port{16: port}},
	}}

	subs.Subscribers["uni-1"] = &model.SubscriberInfo{
		PortName: "uni-1",
		UniTagList: []*model.UniTagInformation{
			{PonCTag: 100, PonSTag: 200, TechnologyProfileId: 64, ServiceName: "data"},
		},
	}

	rec := reconciler.New(reconciler.Config{EnableEapol: true, DefaultTechProfileID: 64, Workers: 2}, meterCache, store, subs, hosts, driver, sink, devices)
	svc := New(rec, store, own, devices, devices)
	return svc, driver, store, devices
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition never became true", msg)
}

func TestProvisionAtConnectPoint_ProvisionsEveryService(t *testing.T) {
	svc, _, store, _ := newTestService(t)
	ctx := context.Background()

	err := svc.ProvisionSubscriberAtConnectPoint(ctx, model.ConnectPoint{DeviceID: svcDeviceID, PortNumber: 16})
	require.NoError(t, err)

	key := model.ServiceKey{PortDeviceID: svcDeviceID, PortNumber: 16, PortName: "uni-1", PonCTag: 100, PonSTag: 200, TechnologyProfileId: 64}
	eventually(t, func() bool {
		provisioned, _ := store.IsProvisioned(ctx, key)
		return provisioned
	}, "service should be marked provisioned")
}

func TestProvisionService_UnknownSubscriber_ReturnsNotConfigured(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	err := svc.ProvisionSubscriberService(context.Background(), "no-such-port", 100, 200, 64)
	require.Error(t, err)
	assert.Equal(t, coreerr.KindNotConfigured, coreerr.KindOf(err))
}

// twoNodeRing builds a Hasher over {node-a, node-b} and returns a device id
// this ("node-a") instance does not own, so NotOwned paths are reachable —
// a single-node ring would own every device, masking the check.
func twoNodeRing(t *testing.T) (*ownership.Hasher, model.DeviceID) {
	t.Helper()
	fake := clustersvc.NewFake("node-a")
	own := ownership.New(fake)
	fake.AddNode("node-b")
	time.Sleep(10 * time.Millisecond)

	for i := 0; i < 64; i++ {
		id := model.DeviceID(string(rune('A' + i%26)))
		if !own.Owns(id) {
			return own, id
		}
	}
	require.Fail(t, "no unowned device id found in a two-node ring")
	return own, ""
}

func TestProvisionAtConnectPoint_UnownedDevice_ReturnsNotOwned(t *testing.T) {
	own, unowned := twoNodeRing(t)
	svc, _, _, _ := newTestServiceWithOwnership(t, own)
	err := svc.ProvisionSubscriberAtConnectPoint(context.Background(), model.ConnectPoint{DeviceID: unowned, PortNumber: 1})
	require.Error(t, err)
	assert.Equal(t, coreerr.KindNotOwned, coreerr.KindOf(err))
}

func TestListOlts_ReturnsTrackedDevices(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	olts := svc.ListOlts()
	require.Len(t, olts, 1)
	assert.Equal(t, svcDeviceID, olts[0].ID)
}

func TestPurgeDevice_UnownedDevice_ReturnsNotOwned(t *testing.T) {
	own, unowned := twoNodeRing(t)
	svc, _, _, _ := newTestServiceWithOwnership(t, own)
	err := svc.PurgeDevice(unowned)
	require.Error(t, err)
	assert.Equal(t, coreerr.KindNotOwned, coreerr.KindOf(err))
}
