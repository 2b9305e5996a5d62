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

// Package service is the Public Service (spec.md §4.8): the operator-facing
// surface over the Reconciler and Status Store — provision/remove a
// subscriber by connect point or by subscriber id plus service tags, and
// read-only queries over programmed subscribers, connect-point status and
// known OLTs.
package service

import (
	"context"
	"fmt"

	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/core/ownership"
	"github.com/opencord/olt-edge-core/internal/core/reconciler"
	"github.com/opencord/olt-edge-core/internal/core/statestore"
	"github.com/opencord/olt-edge-core/internal/coreerr"
)

// PortLookup resolves a subscriber id (portName) to the connect point it
// lives on. Implemented by the Device Event Pump's registry.
type PortLookup interface {
	PortByName(name string) (*model.Port, bool)
}

// DeviceLister enumerates every device this instance currently tracks, used
// by ListOlts. Implemented by the Device Event Pump's registry.
type DeviceLister interface {
	AllDevices() []*model.Device
}

// ConnectPointStatus is one row of the ListConnectPointStatus query.
type ConnectPointStatus struct {
	Key    model.ServiceKey
	Status model.OltPortStatus
}

// OltService is the Public Service contract (spec.md §4.8), exposed
// in-process; cmd/oltctl is a thin CLI wrapper over this interface.
type OltService interface {
	ProvisionSubscriberAtConnectPoint(ctx context.Context, cp model.ConnectPoint) error
	ProvisionSubscriberService(ctx context.Context, subscriberID string, sTag, cTag model.VlanID, tpID int32) error

	RemoveSubscriberAtConnectPoint(ctx context.Context, cp model.ConnectPoint) error
	RemoveSubscriberService(ctx context.Context, subscriberID string, sTag, cTag model.VlanID) error

	ListProgrammedSubscribers(ctx context.Context) ([]model.ServiceKey, error)
	ListConnectPointStatus(ctx context.Context) ([]ConnectPointStatus, error)
	ListOlts() []*model.Device

	PurgeDevice(deviceID model.DeviceID) error
}

// Service implements OltService.
type Service struct {
	reconciler *reconciler.Reconciler
	store      *statestore.Store
	ownership  *ownership.Hasher
	ports      PortLookup
	devices    DeviceLister
}

// New builds a Service.
func New(rec *reconciler.Reconciler, store *statestore.Store, own *ownership.Hasher, ports PortLookup, devices DeviceLister) *Service {
	return &Service{reconciler: rec, store: store, ownership: own, ports: ports, devices: devices}
}

func (s *Service) ownedPort(cp model.ConnectPoint) (*model.Port, error) {
	if !s.ownership.Owns(cp.DeviceID) {
		return nil, coreerr.ErrNotOwned
	}
	d := s.findDevice(cp.DeviceID)
	if d == nil {
		return nil, coreerr.ErrNotConfigured
	}
	port := d.Port(cp.PortNumber)
	if port == nil {
		return nil, coreerr.ErrNotConfigured
	}
	return port, nil
}

func (s *Service) findDevice(id model.DeviceID) *model.Device {
	for _, d := range s.devices.AllDevices() {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// ProvisionSubscriberAtConnectPoint provisions every service configured for
// the subscriber on cp (spec.md §4.8's by-connectPoint overload).
func (s *Service) ProvisionSubscriberAtConnectPoint(_ context.Context, cp model.ConnectPoint) error {
	port, err := s.ownedPort(cp)
	if err != nil {
		return err
	}
	s.reconciler.ProvisionSubscriber(reconciler.ProvisionRequest{Port: port})
	return nil
}

// ProvisionSubscriberService provisions only the one service matching
// (sTag, cTag) on the subscriberID's port — the transparent-only
// overload (spec.md §4.8). tpID is carried on the request but does not
// take part in the match.
func (s *Service) ProvisionSubscriberService(_ context.Context, subscriberID string, sTag, cTag model.VlanID, tpID int32) error {
	port, ok := s.ports.PortByName(subscriberID)
	if !ok {
		return fmt.Errorf("%w: subscriber %q", coreerr.ErrNotConfigured, subscriberID)
	}
	if !s.ownership.Owns(port.DeviceID) {
		return coreerr.ErrNotOwned
	}
	s.reconciler.ProvisionSubscriber(reconciler.ProvisionRequest{
		Port:            port,
		TransparentOnly: true,
		STag:            sTag,
		CTag:            cTag,
		TpID:            tpID,
	})
	return nil
}

// RemoveSubscriberAtConnectPoint removes every service on cp.
func (s *Service) RemoveSubscriberAtConnectPoint(_ context.Context, cp model.ConnectPoint) error {
	port, err := s.ownedPort(cp)
	if err != nil {
		return err
	}
	s.reconciler.RemoveSubscriber(port, true)
	return nil
}

// RemoveSubscriberService removes only the one service matching (sTag,
// cTag) on the subscriberID's port.
func (s *Service) RemoveSubscriberService(_ context.Context, subscriberID string, sTag, cTag model.VlanID) error {
	port, ok := s.ports.PortByName(subscriberID)
	if !ok {
		return fmt.Errorf("%w: subscriber %q", coreerr.ErrNotConfigured, subscriberID)
	}
	if !s.ownership.Owns(port.DeviceID) {
		return coreerr.ErrNotOwned
	}
	s.reconciler.RemoveSubscriberService(reconciler.RemoveRequest{
		Port:            port,
		StillEnabled:    true,
		TransparentOnly: true,
		STag:            sTag,
		CTag:            cTag,
	})
	return nil
}

// ListProgrammedSubscribers lists every provisioned ServiceKey cluster-wide.
func (s *Service) ListProgrammedSubscribers(ctx context.Context) ([]model.ServiceKey, error) {
	return s.store.AllProvisionedKeys(ctx)
}

// ListConnectPointStatus lists every ServiceKey with status present, along
// with its current three-track status.
func (s *Service) ListConnectPointStatus(ctx context.Context) ([]ConnectPointStatus, error) {
	keys, err := s.store.AllStatusKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ConnectPointStatus, 0, len(keys))
	for _, key := range keys {
		st, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, ConnectPointStatus{Key: key, Status: st})
	}
	return out, nil
}

// ListOlts lists every device this instance currently tracks.
func (s *Service) ListOlts() []*model.Device {
	return s.devices.AllDevices()
}

// PurgeDevice drops every flow and provisioned entry for deviceID.
func (s *Service) PurgeDevice(deviceID model.DeviceID) error {
	if !s.ownership.Owns(deviceID) {
		return coreerr.ErrNotOwned
	}
	s.reconciler.PurgeDevice(deviceID)
	return nil
}
