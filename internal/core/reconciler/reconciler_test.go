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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencord/olt-edge-core/internal/core/events"
	"github.com/opencord/olt-edge-core/internal/core/flows"
	"github.com/opencord/olt-edge-core/internal/core/meters"
	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/core/statestore"
	"github.com/opencord/olt-edge-core/internal/hostinfo"
	"github.com/opencord/olt-edge-core/internal/platform/clustermap"
	"github.com/opencord/olt-edge-core/internal/southbound/mock"
	"github.com/opencord/olt-edge-core/internal/subscriberinfo"
)

type fakeDevices struct {
	devices map[model.DeviceID]*model.Device
}

func (f *fakeDevices) Device(id model.DeviceID) (*model.Device, bool) {
	d, ok := f.devices[id]
	return d, ok
}

type fixture struct {
	r       *Reconciler
	driver  *mock.Driver
	store   *statestore.Store
	meters  *meters.Cache
	subs    *subscriberinfo.Fake
	hosts   *hostinfo.Fake
	sink    *events.RecordingSink
	devices *fakeDevices
}

const testDeviceID model.DeviceID = "OLT-1"
const testUplink uint32 = 1048576

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	driver := mock.New()
	store := statestore.New(clustermap.NewMemory(), clustermap.NewMemory())
	meterCache := meters.New(clustermap.NewMemory(), time.Minute)
	subs := subscriberinfo.NewFake()
	hosts := hostinfo.NewFake()
	sink := &events.RecordingSink{}
	devices := &fakeDevices{devices: map[model.DeviceID]*model.Device{
		testDeviceID: {ID: testDeviceID, UplinkPort: testUplink},
	}}

	r := New(cfg, meterCache, store, subs, hosts, driver, sink, devices)

	return &fixture{r: r, driver: driver, store: store, meters: meterCache, subs: subs, hosts: hosts, sink: sink, devices: devices}
}

// eventually polls cond until it reports true or the deadline passes,
// failing the test on timeout. Reconciliation tasks run asynchronously on
// the pool, so every assertion that depends on one having run needs to poll.
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

func baseConfig() Config {
	return Config{
		EnableEapol:          true,
		DefaultTechProfileID: 64,
		DefaultBpID:          "",
		Workers:              2,
	}
}

func TestPortUp_UNI_InstallsDefaultEapol(t *testing.T) {
	f := newFixture(t, baseConfig())
	port := &model.Port{DeviceID: testDeviceID, Number: 16, Name: "uni-1", Enabled: true}
	key := model.NewServiceKey(port, model.DefaultEapolUniTag())

	f.r.PortUp(port, false)

	eventually(t, func() bool {
		st, err := f.store.Get(context.Background(), key)
		return err == nil && st.DefaultEapolStatus == model.StatusAdded
	}, "default-EAPOL should reach ADDED")

	assert.Len(t, f.driver.Calls, 1)
	assert.NotNil(t, f.driver.Calls[0].Filter)
	assert.Equal(t, flows.VerbAdd, f.driver.Calls[0].Filter.Verb)
}

func TestPortUp_UNI_Disabled_DoesNothing(t *testing.T) {
	cfg := baseConfig()
	cfg.EnableEapol = false
	f := newFixture(t, cfg)
	port := &model.Port{DeviceID: testDeviceID, Number: 16, Name: "uni-1", Enabled: true}

	f.r.PortUp(port, false)

	eventually(t, func() bool { return true }, "no-op path always settles")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.driver.Calls)
}

func TestPortUp_NNI_InstallsLldpAndGatedTraps(t *testing.T) {
	cfg := baseConfig()
	cfg.EnableDhcpOnNni = true
	cfg.EnableDhcpV4 = true
	cfg.EnableIgmpOnNni = true
	cfg.EnablePppoe = true
	f := newFixture(t, cfg)
	port := &model.Port{DeviceID: testDeviceID, Number: uint32(testUplink), Name: "nni-0", Enabled: true}
	key := model.NewServiceKey(port, model.NniUniTag())

	f.r.PortUp(port, true)

	eventually(t, func() bool {
		st, err := f.store.Get(context.Background(), key)
		return err == nil && st.SubscriberFlowsStatus == model.StatusAdded
	}, "NNI LLDP track should reach ADDED")

	// LLDP, DHCPv4, IGMP, PPPoED.
	assert.Len(t, f.driver.Calls, 4)
}

func TestProvisionSubscriber_ParksOnMeterNotReady(t *testing.T) {
	cfg := baseConfig()
	f := newFixture(t, cfg)
	f.driver.AutoSucceed = false

	f.subs.Profiles["bp-up"] = &model.BandwidthProfileInformation{ID: "bp-up", CommittedInformationRate: 1000000}
	uti := &model.UniTagInformation{
		PonCTag: 100, PonSTag: 200, UniTagMatch: 100,
		TechnologyProfileId:      64,
		UpstreamBandwidthProfile: "bp-up",
	}
	f.subs.Subscribers["uni-1"] = &model.SubscriberInfo{PortName: "uni-1", UniTagList: []*model.UniTagInformation{uti}}
	port := &model.Port{DeviceID: testDeviceID, Number: 16, Name: "uni-1", Enabled: true}
	key := model.NewServiceKey(port, uti)

	f.r.ProvisionSubscriber(ProvisionRequest{Port: port})

	eventually(t, func() bool {
		for _, c := range f.driver.Calls {
			if c.MeterBpID == "bp-up" {
				return true
			}
		}
		return false
	}, "a meter install should have been submitted")

	provisioned, _ := f.store.IsProvisioned(context.Background(), key)
	assert.False(t, provisioned, "must not be provisioned while the meter is still pending")

	// Let the resumed task's filter/forward directives complete; the mock
	// only has manual completion for meter installs.
	f.driver.AutoSucceed = true
	f.driver.CompleteMeter(testDeviceID, "bp-up", 777)

	eventually(t, func() bool {
		ok, _ := f.store.IsProvisioned(context.Background(), key)
		return ok
	}, "provisioning should complete once the meter install succeeds")

	st, err := f.store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAdded, st.SubscriberFlowsStatus)
}

func TestProvisionSubscriber_TransparentOnly_InstallsOnlyDataForwards(t *testing.T) {
	f := newFixture(t, baseConfig())
	uti := &model.UniTagInformation{PonCTag: 100, PonSTag: 200, UniTagMatch: 100, TechnologyProfileId: 64}
	f.subs.Subscribers["uni-2"] = &model.SubscriberInfo{PortName: "uni-2", UniTagList: []*model.UniTagInformation{uti}}
	port := &model.Port{DeviceID: testDeviceID, Number: 17, Name: "uni-2", Enabled: true}
	key := model.NewServiceKey(port, uti)

	f.r.ProvisionSubscriber(ProvisionRequest{Port: port, TransparentOnly: true, STag: 200, CTag: 100})

	eventually(t, func() bool {
		ok, _ := f.store.IsProvisioned(context.Background(), key)
		return ok
	}, "transparent-only provisioning should complete")

	for _, c := range f.driver.Calls {
		assert.Nil(t, c.Filter, "transparent-only provisioning must not install filtering objectives")
	}
	assert.Len(t, f.driver.Calls, 2, "exactly the upstream+downstream data forward pair")
}

func TestProvisionSubscriber_UnknownSubscriber_FailsFast(t *testing.T) {
	f := newFixture(t, baseConfig())
	port := &model.Port{DeviceID: testDeviceID, Number: 18, Name: "uni-unknown", Enabled: true}

	f.r.ProvisionSubscriber(ProvisionRequest{Port: port})

	eventually(t, func() bool { return true }, "settles immediately")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.driver.Calls)
}

func TestRemoveSubscriber_ReinstatesDefaultEapol(t *testing.T) {
	f := newFixture(t, baseConfig())
	uti := &model.UniTagInformation{PonCTag: 100, PonSTag: 200, UniTagMatch: 100, TechnologyProfileId: 64}
	f.subs.Subscribers["uni-3"] = &model.SubscriberInfo{PortName: "uni-3", UniTagList: []*model.UniTagInformation{uti}}
	port := &model.Port{DeviceID: testDeviceID, Number: 19, Name: "uni-3", Enabled: true}
	serviceKey := model.NewServiceKey(port, uti)
	defaultKey := model.NewServiceKey(port, model.DefaultEapolUniTag())

	f.r.ProvisionSubscriber(ProvisionRequest{Port: port})
	eventually(t, func() bool {
		ok, _ := f.store.IsProvisioned(context.Background(), serviceKey)
		return ok
	}, "provisioning should complete first")

	f.r.RemoveSubscriber(port, true)

	eventually(t, func() bool {
		st, err := f.store.Get(context.Background(), defaultKey)
		return err == nil && st.DefaultEapolStatus == model.StatusAdded
	}, "default-EAPOL should be reinstated after removal")

	provisioned, _ := f.store.IsProvisioned(context.Background(), serviceKey)
	assert.False(t, provisioned)
}

func TestPortDown_RemovesEveryTrack(t *testing.T) {
	f := newFixture(t, baseConfig())
	uti := &model.UniTagInformation{PonCTag: 101, PonSTag: 201, UniTagMatch: model.VlanAny, TechnologyProfileId: 64}
	f.subs.Subscribers["uni-4"] = &model.SubscriberInfo{PortName: "uni-4", UniTagList: []*model.UniTagInformation{uti}}
	port := &model.Port{DeviceID: testDeviceID, Number: 20, Name: "uni-4", Enabled: true}
	defaultKey := model.NewServiceKey(port, model.DefaultEapolUniTag())
	serviceKey := model.NewServiceKey(port, uti)

	f.r.PortUp(port, false)
	eventually(t, func() bool {
		st, err := f.store.Get(context.Background(), defaultKey)
		return err == nil && st.DefaultEapolStatus == model.StatusAdded
	}, "default-EAPOL should be installed before port-down")

	f.r.ProvisionSubscriber(ProvisionRequest{Port: port})
	eventually(t, func() bool {
		ok, _ := f.store.IsProvisioned(context.Background(), serviceKey)
		return ok
	}, "subscriber should be fully provisioned before port-down")

	f.r.PortDown(port)

	eventually(t, func() bool {
		st, err := f.store.Get(context.Background(), defaultKey)
		return err == nil && !st.AnyPresent()
	}, "default-EAPOL track should stay clear through port-down")
	eventually(t, func() bool {
		st, err := f.store.Get(context.Background(), serviceKey)
		return err == nil && !st.AnyPresent()
	}, "per-service tracks should clear on port-down")

	var sawDefaultEapolRemove, sawTaggedEapolRemove, sawForwardRemove bool
	for _, c := range f.driver.Calls {
		if c.Filter != nil && c.Filter.Verb == flows.VerbRemove && c.Filter.Key == defaultKey {
			sawDefaultEapolRemove = true
		}
		if c.Filter != nil && c.Filter.Verb == flows.VerbRemove && c.Filter.Key == serviceKey {
			sawTaggedEapolRemove = true
		}
		if c.Forward != nil && c.Forward.Verb == flows.VerbRemove && c.Forward.Key == serviceKey {
			sawForwardRemove = true
		}
	}
	assert.True(t, sawDefaultEapolRemove, "a VerbRemove for the default-EAPOL trap must have been issued (provisioning removes it)")
	assert.True(t, sawTaggedEapolRemove, "port-down must issue a VerbRemove for the tagged-EAPOL trap")
	assert.True(t, sawForwardRemove, "port-down must issue a VerbRemove for the data-plane forwards")
}

func TestPurgeDevice_ClearsStoreAndEmitsDisconnected(t *testing.T) {
	f := newFixture(t, baseConfig())
	port := &model.Port{DeviceID: testDeviceID, Number: 21, Name: "uni-5", Enabled: true}

	f.r.PortUp(port, false)
	key := model.NewServiceKey(port, model.DefaultEapolUniTag())
	eventually(t, func() bool {
		st, err := f.store.Get(context.Background(), key)
		return err == nil && st.DefaultEapolStatus == model.StatusAdded
	}, "default-EAPOL should be installed before purge")

	f.r.PurgeDevice(testDeviceID)

	eventually(t, func() bool {
		keys, err := f.store.StatusKeysForDevice(context.Background(), testDeviceID)
		return err == nil && len(keys) == 0
	}, "purge should clear every status key for the device")

	eventually(t, func() bool {
		for _, e := range f.sink.Events {
			if e.Kind == events.DeviceDisconnected && e.DeviceID == testDeviceID {
				return true
			}
		}
		return false
	}, "purge should emit DEVICE_DISCONNECTED")
}
