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

	log "github.com/sirupsen/logrus"

	"github.com/opencord/olt-edge-core/internal/core/events"
	"github.com/opencord/olt-edge-core/internal/core/flows"
	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/southbound"
)

// PortUp reconciles a port transitioning to enabled (spec.md §4.5
// "Port-up reconciliation" / "NNI port handling"), dispatching UNI or NNI
// handling by classification.
func (r *Reconciler) PortUp(port *model.Port, isNNI bool) {
	if isNNI {
		r.nniPortUp(port)
		return
	}
	r.submit(fmt.Sprintf("port-up:%s/%d", port.DeviceID, port.Number), func(ctx context.Context) runResult {
		return r.uniPortUpTask(ctx, port)
	})
}

// uniPortUpTask implements spec.md §4.5's UNI port-up steps 1-2: default
// EAPOL only, nothing further until the operator provisions a subscriber.
func (r *Reconciler) uniPortUpTask(ctx context.Context, port *model.Port) runResult {
	if !r.cfg.EnableEapol {
		return runDone
	}

	key := model.NewServiceKey(port, model.DefaultEapolUniTag())
	has, err := r.store.HasDefaultEapol(ctx, key)
	if err != nil {
		return runRetry()
	}
	if has {
		return runDone
	}

	meterID, ready, err := r.ensureMeter(ctx, port.DeviceID, r.cfg.DefaultBpID)
	if err != nil {
		reconcilerLogger.WithFields(log.Fields{"port": port.Number, "error": err}).Warn("default meter lookup failed")
		return runRetry()
	}
	if !ready {
		r.meters.Park(port.DeviceID, meterID, func() { r.uniPortUp(port) })
		return runParked
	}

	obj := flows.DefaultEapolTrap(port, r.cfg.DefaultTechProfileID, meterID, flows.VerbAdd)
	if err := r.store.UpdateField(ctx, key, model.FieldDefaultEapol, model.StatusPendingAdd); err != nil {
		return runRetry()
	}
	r.driver.Filter(port.DeviceID, obj, southbound.Callback{
		OnSuccess: func() {
			_ = r.store.UpdateField(context.Background(), key, model.FieldDefaultEapol, model.StatusAdded)
		},
		OnError: func(objErr *southbound.ObjectiveError) {
			_ = r.store.UpdateField(context.Background(), key, model.FieldDefaultEapol, model.StatusError)
			r.sink.Emit(deviceEvent(events.SubscriberUniTagRegistrationFailed, port, model.DefaultEapolUniTag(), 0))
		},
	})
	return runDone
}

func (r *Reconciler) uniPortUp(port *model.Port) {
	r.submit(fmt.Sprintf("port-up-resume:%s/%d", port.DeviceID, port.Number), func(ctx context.Context) runResult {
		return r.uniPortUpTask(ctx, port)
	})
}

// nniPortUp implements spec.md §4.5's "NNI port handling": LLDP
// unconditionally, the rest gated by config.
func (r *Reconciler) nniPortUp(port *model.Port) {
	label := fmt.Sprintf("nni-port-up:%s/%d", port.DeviceID, port.Number)
	r.submit(label, func(ctx context.Context) runResult {
		key := model.NewServiceKey(port, model.NniUniTag())

		lldp := flows.LldpTrap(port, flows.VerbAdd)
		_ = r.store.UpdateField(ctx, key, model.FieldSubscriberFlows, model.StatusPendingAdd)
		r.driver.Filter(port.DeviceID, lldp, southbound.Callback{
			OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, model.StatusAdded) },
			OnError:   func(*southbound.ObjectiveError) { _ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, model.StatusError) },
		})

		if r.cfg.EnableDhcpOnNni {
			if r.cfg.EnableDhcpV4 {
				r.installNniDhcp(port, key, flows.IPv4)
			}
			if r.cfg.EnableDhcpV6 {
				r.installNniDhcp(port, key, flows.IPv6)
			}
		}
		if r.cfg.EnableIgmpOnNni {
			igmp := flows.IgmpTrap(port, model.NniUniTag(), flows.Downstream, 0, flows.VerbAdd)
			r.driver.Filter(port.DeviceID, igmp, southbound.Callback{})
		}
		if r.cfg.EnablePppoe {
			pppoed := flows.PppoedTrap(port, model.NniUniTag(), flows.Downstream, 0, flows.VerbAdd)
			r.driver.Filter(port.DeviceID, pppoed, southbound.Callback{})
		}
		return runDone
	})
}

func (r *Reconciler) installNniDhcp(port *model.Port, key model.ServiceKey, ipVersion flows.IPVersion) {
	obj := flows.DhcpTrap(port, model.NniUniTag(), flows.Downstream, ipVersion, 0, flows.VerbAdd)
	_ = r.store.UpdateField(context.Background(), key, model.FieldDhcp, model.StatusPendingAdd)
	r.driver.Filter(port.DeviceID, obj, southbound.Callback{
		OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldDhcp, model.StatusAdded) },
		OnError:   func(*southbound.ObjectiveError) { _ = r.store.UpdateField(context.Background(), key, model.FieldDhcp, model.StatusError) },
	})
}

// PortDown implements spec.md §4.5's "Port-down / port-removed": remove
// every flow keyed to this port, keeping provisioned-subscriber entries so
// the port can be re-provisioned on reconnection.
func (r *Reconciler) PortDown(port *model.Port) {
	r.submit(fmt.Sprintf("port-down:%s/%d", port.DeviceID, port.Number), func(ctx context.Context) runResult {
		keys, err := r.store.StatusKeysForDevice(ctx, port.DeviceID)
		if err != nil {
			return runRetry()
		}
		for _, key := range keys {
			if key.PortNumber != port.Number {
				continue
			}
			r.removeAllTracks(ctx, port, key)
		}
		return runDone
	})
}

// removeAllTracks rebuilds and issues a southbound VerbRemove for every
// track present on key, the same directive shapes removeSubscriberTask
// installs for an operator-driven removal (spec.md §4.5 "Port-down": "issue
// removes for every flow whose ServiceKey is associated with this port").
func (r *Reconciler) removeAllTracks(ctx context.Context, port *model.Port, key model.ServiceKey) {
	st, err := r.store.Get(ctx, key)
	if err != nil {
		return
	}

	if st.DefaultEapolStatus.Present() {
		_ = r.store.UpdateField(ctx, key, model.FieldDefaultEapol, model.StatusPendingRemove)
		obj := flows.DefaultEapolTrap(port, r.cfg.DefaultTechProfileID, 0, flows.VerbRemove)
		r.driver.Filter(port.DeviceID, obj, southbound.Callback{
			OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldDefaultEapol, model.StatusRemoved) },
			OnError:   func(*southbound.ObjectiveError) { _ = r.store.UpdateField(context.Background(), key, model.FieldDefaultEapol, model.StatusError) },
		})
	}

	isNNI := port.IsNNI(r.uplinkPort(port.DeviceID))

	if st.SubscriberFlowsStatus.Present() {
		_ = r.store.UpdateField(ctx, key, model.FieldSubscriberFlows, model.StatusPendingRemove)
		switch {
		case isNNI:
			lldp := flows.LldpTrap(port, flows.VerbRemove)
			r.driver.Filter(port.DeviceID, lldp, southbound.Callback{
				OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, model.StatusRemoved) },
				OnError:   func(*southbound.ObjectiveError) { _ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, model.StatusError) },
			})
		default:
			if uti := r.matchingService(ctx, port, key); uti != nil {
				eapol := flows.TaggedEapolTrap(port, uti, r.cfg.DefaultTechProfileID, 0, 0, flows.VerbRemove)
				r.driver.Filter(port.DeviceID, eapol, southbound.Callback{})
				up := flows.UpstreamDataForward(port, r.uplinkPort(port.DeviceID), uti, r.cfg.DefaultTechProfileID, 0, 0, flows.VerbRemove)
				r.driver.Forward(port.DeviceID, up, southbound.Callback{})
				down := flows.DownstreamDataForward(port, r.uplinkPort(port.DeviceID), uti, r.cfg.DefaultTechProfileID, 0, 0, nil, flows.VerbRemove)
				r.driver.Forward(port.DeviceID, down, southbound.Callback{
					OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, model.StatusRemoved) },
					OnError:   func(*southbound.ObjectiveError) { _ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, model.StatusError) },
				})
			} else {
				// Subscriber info no longer available (e.g. config removed
				// alongside the device); still advance the status so the
				// key doesn't linger as PENDING_REMOVE forever.
				_ = r.store.UpdateField(context.Background(), key, model.FieldSubscriberFlows, model.StatusRemoved)
			}
		}
	}

	if st.DhcpStatus.Present() {
		_ = r.store.UpdateField(ctx, key, model.FieldDhcp, model.StatusPendingRemove)
		switch {
		case isNNI:
			if r.cfg.EnableDhcpV4 {
				r.driver.Filter(port.DeviceID, flows.DhcpTrap(port, model.NniUniTag(), flows.Downstream, flows.IPv4, 0, flows.VerbRemove), southbound.Callback{})
			}
			if r.cfg.EnableDhcpV6 {
				r.driver.Filter(port.DeviceID, flows.DhcpTrap(port, model.NniUniTag(), flows.Downstream, flows.IPv6, 0, flows.VerbRemove), southbound.Callback{})
			}
			_ = r.store.UpdateField(context.Background(), key, model.FieldDhcp, model.StatusRemoved)
		default:
			if uti := r.matchingService(ctx, port, key); uti != nil {
				r.driver.Filter(port.DeviceID, flows.DhcpTrap(port, uti, flows.Upstream, flows.IPv4, 0, flows.VerbRemove), southbound.Callback{
					OnSuccess: func() { _ = r.store.UpdateField(context.Background(), key, model.FieldDhcp, model.StatusRemoved) },
				})
				r.driver.Filter(port.DeviceID, flows.DhcpTrap(port, uti, flows.Downstream, flows.IPv4, 0, flows.VerbRemove), southbound.Callback{})
			} else {
				_ = r.store.UpdateField(context.Background(), key, model.FieldDhcp, model.StatusRemoved)
			}
		}
	}
}

// matchingService locates the UniTagInformation that produced key, matching
// on (ponCTag, ponSTag, technologyProfileId) — the same fields
// model.NewServiceKey derives a ServiceKey from — so port-down/purge can
// rebuild the exact directives that were installed, for removal.
func (r *Reconciler) matchingService(ctx context.Context, port *model.Port, key model.ServiceKey) *model.UniTagInformation {
	sub, err := r.subscribers.SubscriberByPortName(ctx, port.Name)
	if err != nil || sub == nil {
		return nil
	}
	for _, uti := range sub.UniTagList {
		if uti.PonCTag == key.PonCTag && uti.PonSTag == key.PonSTag && uti.TechnologyProfileId == key.TechnologyProfileId {
			return uti
		}
	}
	return nil
}
