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
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/opencord/olt-edge-core/internal/core/events"
	"github.com/opencord/olt-edge-core/internal/core/flows"
	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/coreerr"
	"github.com/opencord/olt-edge-core/internal/hostinfo"
	"github.com/opencord/olt-edge-core/internal/southbound"
)

// ProvisionRequest selects what to provision on a port. With
// TransparentOnly false it provisions every service in the subscriber's UniTagList;
// TransparentOnly narrows it to exactly one service's data-plane forward
// pair — the Public Service's by-id+tags overload (spec.md §4.8).
type ProvisionRequest struct {
	Port            *model.Port
	TransparentOnly bool
	STag, CTag      model.VlanID
	TpID            int32
}

// ProvisionSubscriber implements spec.md §4.5's "Subscriber-provisioning"
// steps.
func (r *Reconciler) ProvisionSubscriber(req ProvisionRequest) {
	r.submit(fmt.Sprintf("provision:%s/%d", req.Port.DeviceID, req.Port.Number), func(ctx context.Context) runResult {
		return r.provisionTask(ctx, req)
	})
}

func (r *Reconciler) provisionTask(ctx context.Context, req ProvisionRequest) runResult {
	port := req.Port

	sub, err := r.subscribers.SubscriberByPortName(ctx, port.Name)
	if err != nil {
		return runRetry()
	}
	if sub == nil {
		reconcilerLogger.WithFields(log.Fields{"port": port.Name}).Warn("subscriber not configured, failing fast")
		return runError(coreerr.ErrNotConfigured)
	}

	services, ok := selectServices(sub.UniTagList, req)
	if !ok {
		reconcilerLogger.WithFields(log.Fields{"port": port.Name}).Warn("no matching service for transparent provisioning request")
		return runError(coreerr.ErrBadRequest)
	}

	var bpIDs []string
	for _, uti := range services {
		bpIDs = append(bpIDs, requiredBpIDs(uti)...)
	}
	meterIDs, ready, err := r.meterSet(ctx, port.DeviceID, bpIDs, func() { r.ProvisionSubscriber(req) })
	if err != nil {
		return runRetry()
	}
	if !ready {
		return runParked
	}

	if !req.TransparentOnly {
		if notDone := r.removeDefaultEapolBeforeProvision(ctx, port); notDone {
			return runRetry()
		}
	}

	allDone := true
	for _, uti := range services {
		if !r.provisionService(ctx, port, uti, meterIDs, req.TransparentOnly) {
			allDone = false
			continue
		}
		key := model.NewServiceKey(port, uti)
		if err := r.store.SetProvisioned(ctx, key, true); err != nil {
			allDone = false
		}
	}
	if !allDone {
		return runRetry()
	}

	return runDone
}

// selectServices implements the by-id+tags overload's "only the
// transparent data-plane pair matching one specific service" (spec.md §4.8).
func selectServices(all []*model.UniTagInformation, req ProvisionRequest) ([]*model.UniTagInformation, bool) {
	if !req.TransparentOnly {
		return all, true
	}
	for _, uti := range all {
		if uti.PonSTag == req.STag && uti.PonCTag == req.CTag {
			return []*model.UniTagInformation{uti}, true
		}
	}
	return nil, false
}

// removeDefaultEapolBeforeProvision implements step 3: initiate removal of
// an existing default-EAPOL flow, and — under waitForRemoval — report "not
// done" until it is gone, so the removal and the tagged add never race in
// the same southbound batch.
func (r *Reconciler) removeDefaultEapolBeforeProvision(ctx context.Context, port *model.Port) (notDone bool) {
	key := model.NewServiceKey(port, model.DefaultEapolUniTag())
	has, err := r.store.HasDefaultEapol(ctx, key)
	if err != nil || !has {
		return false
	}

	pendingRemoval, err := r.store.IsDefaultEapolPendingRemoval(ctx, key)
	if err == nil && pendingRemoval {
		return r.cfg.WaitForRemoval
	}

	meterID, _, _ := r.meters.MeterFor(ctx, port.DeviceID, r.cfg.DefaultBpID)
	obj := flows.DefaultEapolTrap(port, r.cfg.DefaultTechProfileID, meterID, flows.VerbRemove)
	_ = r.store.UpdateField(ctx, key, model.FieldDefaultEapol, model.StatusPendingRemove)
	r.driver.Filter(port.DeviceID, obj, southbound.Callback{
		OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldDefaultEapol, model.StatusRemoved) },
		OnError:   func(*southbound.ObjectiveError) { _ = r.store.UpdateField(context.Background(), key, model.FieldDefaultEapol, model.StatusError) },
	})
	return r.cfg.WaitForRemoval
}

// provisionService implements step 4: per-service DHCP, data-plane
// forwards and tagged-EAPOL, IGMP. It returns false when the service is
// still waiting on the MAC-learning gate, so the caller retries the whole
// provisioning task.
func (r *Reconciler) provisionService(ctx context.Context, port *model.Port, uti *model.UniTagInformation, meterIDs map[string]uint64, transparentOnly bool) bool {
	key := model.NewServiceKey(port, uti)
	st, _ := r.store.Get(ctx, key)

	upMeter := meterIDs[uti.UpstreamBandwidthProfile]
	downMeter := meterIDs[uti.DownstreamBandwidthProfile]
	upOltMeter := meterIDs[uti.UpstreamOltBandwidthProfile]
	downOltMeter := meterIDs[uti.DownstreamOltBandwidthProfile]

	if !transparentOnly && uti.IsDhcpRequired && !st.HasDhcpFlows() {
		r.provisionDhcp(ctx, port, uti, upMeter)
	}

	mac, macOK := r.learnedMac(ctx, port, uti)
	if uti.EnableMacLearning && !uti.HasConfiguredMac() && !macOK {
		// No push-based host-discovery wake exists in this deployment;
		// the bounded backoff on the enclosing task drives the retry
		// (spec.md §4.5 step 4: "Return not done while waiting").
		return false
	}

	if st.SubscriberFlowsStatus == model.StatusAdded {
		return true
	}

	isMulticast := uti.IsMulticast(r.cfg.MulticastServiceName)
	ops := 0
	if !isMulticast {
		ops += 2 // upstream + downstream data-plane forwards
	}
	if !transparentOnly {
		ops++ // tagged-EAPOL
	}
	if ops == 0 {
		_ = r.store.UpdateField(ctx, key, model.FieldSubscriberFlows, model.StatusPendingAdd)
		_ = r.store.UpdateField(ctx, key, model.FieldSubscriberFlows, model.StatusAdded)
		return true
	}

	cb := joinCallbacks(ops, func(ok bool) {
		next := model.StatusAdded
		kind := events.SubscriberUniTagRegistered
		if !ok {
			next = model.StatusError
			kind = events.SubscriberUniTagRegistrationFailed
		}
		_ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, next)
		r.sink.Emit(deviceEvent(kind, port, uti, uti.TechnologyProfileId))
	})
	_ = r.store.UpdateField(ctx, key, model.FieldSubscriberFlows, model.StatusPendingAdd)

	if !isMulticast {
		up := flows.UpstreamDataForward(port, r.uplinkPort(port.DeviceID), uti, r.cfg.DefaultTechProfileID, upMeter, upOltMeter, flows.VerbAdd)
		r.driver.Forward(port.DeviceID, up, cb())
		down := flows.DownstreamDataForward(port, r.uplinkPort(port.DeviceID), uti, r.cfg.DefaultTechProfileID, downMeter, downOltMeter, mac, flows.VerbAdd)
		r.driver.Forward(port.DeviceID, down, cb())
	}

	if !transparentOnly {
		eapol := flows.TaggedEapolTrap(port, uti, r.cfg.DefaultTechProfileID, upMeter, upOltMeter, flows.VerbAdd)
		r.driver.Filter(port.DeviceID, eapol, cb())

		if uti.IsIgmpRequired {
			igmp := flows.IgmpTrap(port, uti, flows.Upstream, upMeter, flows.VerbAdd)
			r.driver.Filter(port.DeviceID, igmp, southbound.Callback{})
		}
	}
	return true
}

func (r *Reconciler) provisionDhcp(ctx context.Context, port *model.Port, uti *model.UniTagInformation, meterID uint64) {
	key := model.NewServiceKey(port, uti)
	_ = r.store.UpdateField(ctx, key, model.FieldDhcp, model.StatusPendingAdd)
	cb := func() southbound.Callback {
		return southbound.Callback{
			OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldDhcp, model.StatusAdded) },
			OnError:   func(*southbound.ObjectiveError) { _ = r.store.UpdateField(context.Background(), key, model.FieldDhcp, model.StatusError) },
		}
	}
	r.driver.Filter(port.DeviceID, flows.DhcpTrap(port, uti, flows.Upstream, flows.IPv4, meterID, flows.VerbAdd), cb())
	r.driver.Filter(port.DeviceID, flows.DhcpTrap(port, uti, flows.Downstream, flows.IPv4, meterID, flows.VerbAdd), southbound.Callback{})
}

// learnedMac implements spec.md §4.5 step 4's MAC-learning gate.
func (r *Reconciler) learnedMac(ctx context.Context, port *model.Port, uti *model.UniTagInformation) (mac net.HardwareAddr, ok bool) {
	if uti.HasConfiguredMac() {
		return uti.ConfiguredMacAddress, true
	}
	hosts, err := r.hosts.ConnectedHosts(ctx, port.ConnectPoint())
	if err != nil {
		return nil, false
	}
	return hostinfo.MacFor(hosts, uti.PonCTag)
}

// RemoveRequest selects what to remove from a port, mirroring
// ProvisionRequest: with TransparentOnly false it removes every provisioned
// service, TransparentOnly narrows it to the one service matching the
// given tags (the Public Service's by-id+tags removeSubscriber overload,
// spec.md §4.8).
type RemoveRequest struct {
	Port            *model.Port
	StillEnabled    bool
	TransparentOnly bool
	STag, CTag      model.VlanID
}

// RemoveSubscriber implements spec.md §4.5's "Subscriber-removal": inverse
// order of provisioning, then re-emit the default-EAPOL add if the port is
// still enabled and present.
func (r *Reconciler) RemoveSubscriber(port *model.Port, stillEnabled bool) {
	r.RemoveSubscriberService(RemoveRequest{Port: port, StillEnabled: stillEnabled})
}

// RemoveSubscriberService is RemoveSubscriber generalized to a RemoveRequest,
// so a single matching service can be torn down without touching the port's
// other services.
func (r *Reconciler) RemoveSubscriberService(req RemoveRequest) {
	port := req.Port
	r.submit(fmt.Sprintf("remove:%s/%d", port.DeviceID, port.Number), func(ctx context.Context) runResult {
		return r.removeSubscriberTask(ctx, req)
	})
}

func (r *Reconciler) removeSubscriberTask(ctx context.Context, req RemoveRequest) runResult {
	port := req.Port
	sub, err := r.subscribers.SubscriberByPortName(ctx, port.Name)
	if err != nil {
		return runRetry()
	}
	if sub == nil {
		return runDone
	}

	services, ok := selectServices(sub.UniTagList, ProvisionRequest{TransparentOnly: req.TransparentOnly, STag: req.STag, CTag: req.CTag})
	if !ok {
		return runError(coreerr.ErrBadRequest)
	}

	for _, uti := range services {
		key := model.NewServiceKey(port, uti)
		st, _ := r.store.Get(ctx, key)

		if st.SubscriberFlowsStatus.Present() {
			_ = r.store.UpdateField(ctx, key, model.FieldSubscriberFlows, model.StatusPendingRemove)
			eapol := flows.TaggedEapolTrap(port, uti, r.cfg.DefaultTechProfileID, 0, 0, flows.VerbRemove)
			r.driver.Filter(port.DeviceID, eapol, southbound.Callback{})
			up := flows.UpstreamDataForward(port, r.uplinkPort(port.DeviceID), uti, r.cfg.DefaultTechProfileID, 0, 0, flows.VerbRemove)
			r.driver.Forward(port.DeviceID, up, southbound.Callback{})
			down := flows.DownstreamDataForward(port, r.uplinkPort(port.DeviceID), uti, r.cfg.DefaultTechProfileID, 0, 0, nil, flows.VerbRemove)
			r.driver.Forward(port.DeviceID, down, southbound.Callback{
				OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, model.StatusRemoved) },
				OnError:   func(*southbound.ObjectiveError) { _ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, model.StatusError) },
			})
			r.sink.Emit(deviceEvent(events.SubscriberUniTagUnregistered, port, uti, uti.TechnologyProfileId))
		}

		if st.DhcpStatus.Present() {
			_ = r.store.UpdateField(ctx, key, model.FieldDhcp, model.StatusPendingRemove)
			r.driver.Filter(port.DeviceID, flows.DhcpTrap(port, uti, flows.Upstream, flows.IPv4, 0, flows.VerbRemove), southbound.Callback{
				OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldDhcp, model.StatusRemoved) },
			})
			r.driver.Filter(port.DeviceID, flows.DhcpTrap(port, uti, flows.Downstream, flows.IPv4, 0, flows.VerbRemove), southbound.Callback{})
		}

		if uti.IsIgmpRequired {
			r.driver.Filter(port.DeviceID, flows.IgmpTrap(port, uti, flows.Upstream, 0, flows.VerbRemove), southbound.Callback{})
		}

		_ = r.store.SetProvisioned(ctx, key, false)
	}

	if req.StillEnabled && port.Enabled {
		r.uniPortUp(port)
	}
	return runDone
}
