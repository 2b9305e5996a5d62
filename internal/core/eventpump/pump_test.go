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
	"github.com/opencord/olt-edge-core/internal/hostinfo"
	"github.com/opencord/olt-edge-core/internal/platform/clustermap"
	"github.com/opencord/olt-edge-core/internal/southbound/mock"
	"github.com/opencord/olt-edge-core/internal/subscriberinfo"
)

const testDeviceID model.DeviceID = "OLT-PUMP-1"

func newTestPump(t *testing.T, own *ownership.Hasher) (*Pump, *mock.Driver, *statestore.Store, *events.RecordingSink) {
	t.Helper()
	driver := mock.New()
	store := statestore.New(clustermap.NewMemory(), clustermap.NewMemory())
	meterCache := meters.New(clustermap.NewMemory(), time.Minute)
	subs := subscriberinfo.NewFake()
	hosts := hostinfo.NewFake()
	sink := &events.RecordingSink{}

	p := New(own, nil, sink, 16)
	rec := reconciler.New(reconciler.Config{EnableEapol: true, DefaultTechProfileID: 64, Workers: 2}, meterCache, store, subs, hosts, driver, sink, p.Devices())
	p.AttachReconciler(rec)

	return p, driver, store, sink
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

func TestPump_DeviceAndPortUp_DrivesReconciler(t *testing.T) {
	own := ownership.New(clustersvc.NewFake("node-a"))
	p, driver, store, sink := newTestPump(t, own)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Submit(Event{Kind: DeviceAdded, DeviceID: testDeviceID, SerialNumber: "SN1", UplinkPort: 1048576})
	eventually(t, func() bool {
		for _, e := range sink.Events {
			if e.Kind == events.DeviceConnected {
				return true
			}
		}
		return false
	}, "DEVICE_CONNECTED should be emitted")

	port := &model.Port{DeviceID: testDeviceID, Number: 16, Name: "uni-1"}
	p.Submit(Event{Kind: PortAdded, DeviceID: testDeviceID, Port: port})

	key := model.NewServiceKey(port, model.DefaultEapolUniTag())
	eventually(t, func() bool {
		st, err := store.Get(context.Background(), key)
		return err == nil && st.DefaultEapolStatus == model.StatusAdded
	}, "default-EAPOL should be installed for the newly-added UNI")

	assert.NotEmpty(t, driver.Calls)

	var sawUniAdded bool
	for _, e := range sink.Events {
		if e.Kind == events.UniAdded {
			sawUniAdded = true
		}
	}
	assert.True(t, sawUniAdded)
}

func TestPump_NonOwnedDevice_SkippedSilently(t *testing.T) {
	// node-a joins node-b's ring below, so devices split between the two
	// nodes; the test then picks a device this pump (running as node-b)
	// does not own.
	own := &ownership.Hasher{}
	fake := clustersvc.NewFake("node-b")
	own = ownership.New(fake)
	// Force a second, disjoint node into the ring so node-b does not own
	// every device by default (a single-node ring owns everything).
	fake.AddNode("node-a")
	time.Sleep(10 * time.Millisecond)

	p, driver, _, sink := newTestPump(t, own)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// Submit events for every plausible device id until we find one this
	// instance does not own (ring placement is hash-dependent).
	var notOwned model.DeviceID
	for i := 0; i < 64; i++ {
		id := model.DeviceID(string(rune('A' + i%26)))
		if !own.Owns(id) {
			notOwned = id
			break
		}
	}
	require.NotEmpty(t, notOwned)

	p.Submit(Event{Kind: DeviceAdded, DeviceID: notOwned, SerialNumber: "SN-X"})
	p.Submit(Event{Kind: PortAdded, DeviceID: notOwned, Port: &model.Port{DeviceID: notOwned, Number: 1, Name: "uni-x"}})

	// Drain a trivial owned no-op so we know the pump has processed past
	// the unowned events (single-writer queue, FIFO).
	p.Submit(Event{Kind: StatsUpdate})
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, driver.Calls, "a non-owned device must never reach the southbound driver")
	assert.Empty(t, sink.Events, "a non-owned device must never emit access-device events")
}

func TestPump_PortUpdated_ToggleOff_RemovesFlows(t *testing.T) {
	own := ownership.New(clustersvc.NewFake("node-a"))
	p, _, store, _ := newTestPump(t, own)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Submit(Event{Kind: DeviceAdded, DeviceID: testDeviceID, UplinkPort: 1048576})
	port := &model.Port{DeviceID: testDeviceID, Number: 22, Name: "uni-toggle", Enabled: true}
	p.Submit(Event{Kind: PortAdded, DeviceID: testDeviceID, Port: port})

	key := model.NewServiceKey(port, model.DefaultEapolUniTag())
	eventually(t, func() bool {
		st, err := store.Get(context.Background(), key)
		return err == nil && st.DefaultEapolStatus == model.StatusAdded
	}, "default-EAPOL should be installed before toggling off")

	disabled := &model.Port{DeviceID: testDeviceID, Number: 22, Name: "uni-toggle", Enabled: false}
	p.Submit(Event{Kind: PortUpdated, DeviceID: testDeviceID, Port: disabled})

	eventually(t, func() bool {
		st, err := store.Get(context.Background(), key)
		return err == nil && !st.AnyPresent()
	}, "toggling the enable bit off should remove every track, as PORT_REMOVED would")
}
