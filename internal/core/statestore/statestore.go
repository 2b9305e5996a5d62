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

// Package statestore is the Status Store (spec.md §4.3): a
// cluster-replicated mapping from ServiceKey to OltPortStatus, plus the
// provisioned-subscribers intent set, both built on the generic
// clustermap.Map contract.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/platform/clustermap"
)

const (
	statusField      = "status"
	provisionedField = "provisioned"
	keyField         = "key"
)

// Store is the Status Store.
type Store struct {
	status      clustermap.Map
	provisioned clustermap.Map
}

// New builds a Store over the given cluster maps (one for volt-cp-status,
// one for volt-provisioned-subscriber per spec.md §6's persisted-state
// layout).
func New(status, provisioned clustermap.Map) *Store {
	return &Store{status: status, provisioned: provisioned}
}

func keyOf(k model.ServiceKey) string { return k.String() }

// Get returns the current OltPortStatus for key, zero-value if absent.
func (s *Store) Get(ctx context.Context, key model.ServiceKey) (model.OltPortStatus, error) {
	fields, ok, err := s.status.Get(ctx, keyOf(key))
	if err != nil {
		return model.OltPortStatus{}, err
	}
	if !ok {
		return model.OltPortStatus{}, nil
	}
	return decodeStatus(fields[statusField])
}

// UpdateField applies the merge contract from spec.md §4.3 ("for each
// field, null means leave as is; otherwise overwrite") to a single status
// track, via the underlying map's atomic compare-and-update.
func (s *Store) UpdateField(ctx context.Context, key model.ServiceKey, field model.StatusField, next model.OltFlowsStatus) error {
	return s.status.CompareAndUpdate(ctx, keyOf(key), func(current map[string]string) (map[string]string, error) {
		var cur model.OltPortStatus
		var err error
		if current != nil {
			cur, err = decodeStatus(current[statusField])
			if err != nil {
				return nil, err
			}
		}
		updated, err := cur.WithField(field, next)
		if err != nil {
			return nil, err
		}
		if !updated.AnyPresent() {
			// NONE/REMOVED on every track: the ServiceKey invariant (spec.md
			// §3 invariant 3) says it must not remain in the store.
			return nil, nil
		}
		encoded, err := encodeStatus(updated)
		if err != nil {
			return nil, err
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		return map[string]string{statusField: encoded, keyField: string(keyJSON)}, nil
	})
}

func encodeStatus(s model.OltPortStatus) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeStatus(raw string) (model.OltPortStatus, error) {
	if raw == "" {
		return model.OltPortStatus{}, nil
	}
	var s model.OltPortStatus
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return model.OltPortStatus{}, fmt.Errorf("decoding status: %w", err)
	}
	return s, nil
}

// HasDefaultEapol implements spec.md §4.3's hasDefaultEapol(port) query.
// Since the store is keyed by ServiceKey, callers pass the canonical
// defaultEapolUniTag-derived key for the port.
func (s *Store) HasDefaultEapol(ctx context.Context, key model.ServiceKey) (bool, error) {
	st, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return st.HasDefaultEapol(), nil
}

// IsDefaultEapolPendingRemoval implements spec.md §4.3's query.
func (s *Store) IsDefaultEapolPendingRemoval(ctx context.Context, key model.ServiceKey) (bool, error) {
	st, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return st.IsDefaultEapolPendingRemoval(), nil
}

// HasDhcpFlows implements spec.md §4.3's query.
func (s *Store) HasDhcpFlows(ctx context.Context, key model.ServiceKey) (bool, error) {
	st, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return st.HasDhcpFlows(), nil
}

// HasSubscriberFlows implements spec.md §4.3's query.
func (s *Store) HasSubscriberFlows(ctx context.Context, key model.ServiceKey) (bool, error) {
	st, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return st.HasSubscriberFlows(), nil
}

// SetProvisioned records operator intent in the provisioned-subscribers
// set (spec.md §4.3), independent of actual flow status.
func (s *Store) SetProvisioned(ctx context.Context, key model.ServiceKey, provisioned bool) error {
	if !provisioned {
		return s.provisioned.Delete(ctx, keyOf(key))
	}
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return err
	}
	return s.provisioned.Set(ctx, keyOf(key), map[string]string{
		provisionedField: strconv.FormatBool(true),
		keyField:         string(keyJSON),
	})
}

// IsProvisioned reports operator intent for key.
func (s *Store) IsProvisioned(ctx context.Context, key model.ServiceKey) (bool, error) {
	fields, ok, err := s.provisioned.Get(ctx, keyOf(key))
	if err != nil || !ok {
		return false, err
	}
	return fields[provisionedField] == "true", nil
}

// ProvisionedKeysForDevice lists every provisioned ServiceKey whose port
// belongs to deviceID, used by device-purge (spec.md §4.5).
func (s *Store) ProvisionedKeysForDevice(ctx context.Context, deviceID model.DeviceID) ([]model.ServiceKey, error) {
	return s.keysForDevice(ctx, s.provisioned, deviceID)
}

// AllProvisionedKeys lists every provisioned ServiceKey cluster-wide, used
// by the Public Service's list-programmed-subscribers query (spec.md §4.8).
func (s *Store) AllProvisionedKeys(ctx context.Context) ([]model.ServiceKey, error) {
	return s.allKeys(ctx, s.provisioned)
}

// AllStatusKeys lists every ServiceKey with status present, cluster-wide.
func (s *Store) AllStatusKeys(ctx context.Context) ([]model.ServiceKey, error) {
	return s.allKeys(ctx, s.status)
}

func (s *Store) allKeys(ctx context.Context, m clustermap.Map) ([]model.ServiceKey, error) {
	raw, err := m.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.ServiceKey
	for _, k := range raw {
		fields, ok, err := m.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var sk model.ServiceKey
		if err := json.Unmarshal([]byte(fields[keyField]), &sk); err != nil {
			continue
		}
		out = append(out, sk)
	}
	return out, nil
}

// StatusKeysForDevice lists every ServiceKey with status present whose
// port belongs to deviceID.
func (s *Store) StatusKeysForDevice(ctx context.Context, deviceID model.DeviceID) ([]model.ServiceKey, error) {
	return s.keysForDevice(ctx, s.status, deviceID)
}

func (s *Store) keysForDevice(ctx context.Context, m clustermap.Map, deviceID model.DeviceID) ([]model.ServiceKey, error) {
	raw, err := m.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.ServiceKey
	for _, k := range raw {
		fields, ok, err := m.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var sk model.ServiceKey
		if err := json.Unmarshal([]byte(fields[keyField]), &sk); err != nil {
			continue
		}
		if sk.PortDeviceID == deviceID {
			out = append(out, sk)
		}
	}
	return out, nil
}
