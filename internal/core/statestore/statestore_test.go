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

package statestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/platform/clustermap"
)

func testKey() model.ServiceKey {
	return model.ServiceKey{PortDeviceID: "OLT-001", PortNumber: 16, PortName: "BBSM0001-1", PonCTag: 101, PonSTag: 7, TechnologyProfileId: 64}
}

func TestUpdateField_MergeContract(t *testing.T) {
	ctx := context.Background()
	store := New(clustermap.NewMemory(), clustermap.NewMemory())
	key := testKey()

	require.NoError(t, store.UpdateField(ctx, key, model.FieldDefaultEapol, model.StatusPendingAdd))

	st, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingAdd, st.DefaultEapolStatus)
	assert.Equal(t, model.StatusNone, st.SubscriberFlowsStatus)

	// Updating a different field must leave defaultEapolStatus untouched
	// (spec.md §4.3: "null means leave as is").
	require.NoError(t, store.UpdateField(ctx, key, model.FieldDhcp, model.StatusPendingAdd))
	st, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingAdd, st.DefaultEapolStatus)
	assert.Equal(t, model.StatusPendingAdd, st.DhcpStatus)
}

func TestUpdateField_IllegalTransitionRejected(t *testing.T) {
	ctx := context.Background()
	store := New(clustermap.NewMemory(), clustermap.NewMemory())
	key := testKey()

	require.NoError(t, store.UpdateField(ctx, key, model.FieldSubscriberFlows, model.StatusPendingAdd))
	require.NoError(t, store.UpdateField(ctx, key, model.FieldSubscriberFlows, model.StatusAdded))
	err := store.UpdateField(ctx, key, model.FieldSubscriberFlows, model.StatusPendingAdd)
	assert.Error(t, err)
}

func TestUpdateField_RemovesKeyWhenNoTrackPresent(t *testing.T) {
	ctx := context.Background()
	store := New(clustermap.NewMemory(), clustermap.NewMemory())
	key := testKey()

	require.NoError(t, store.UpdateField(ctx, key, model.FieldDefaultEapol, model.StatusPendingAdd))
	require.NoError(t, store.UpdateField(ctx, key, model.FieldDefaultEapol, model.StatusPendingRemove))
	require.NoError(t, store.UpdateField(ctx, key, model.FieldDefaultEapol, model.StatusRemoved))

	st, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, st.AnyPresent())
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	store := New(clustermap.NewMemory(), clustermap.NewMemory())
	key := testKey()

	require.NoError(t, store.UpdateField(ctx, key, model.FieldDefaultEapol, model.StatusPendingAdd))

	has, err := store.HasDefaultEapol(ctx, key)
	require.NoError(t, err)
	assert.True(t, has)

	pendingRemoval, err := store.IsDefaultEapolPendingRemoval(ctx, key)
	require.NoError(t, err)
	assert.False(t, pendingRemoval)
}

func TestProvisionedSet(t *testing.T) {
	ctx := context.Background()
	store := New(clustermap.NewMemory(), clustermap.NewMemory())
	key := testKey()

	ok, err := store.IsProvisioned(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetProvisioned(ctx, key, true))
	ok, err = store.IsProvisioned(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := store.ProvisionedKeysForDevice(ctx, "OLT-001")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	assert.Equal(t, key, keys[0])

	require.NoError(t, store.SetProvisioned(ctx, key, false))
	ok, err = store.IsProvisioned(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusKeysForDevice(t *testing.T) {
	ctx := context.Background()
	store := New(clustermap.NewMemory(), clustermap.NewMemory())
	k1 := testKey()
	k2 := testKey()
	k2.PortNumber = 17
	k2.PonCTag = 102

	require.NoError(t, store.UpdateField(ctx, k1, model.FieldDefaultEapol, model.StatusPendingAdd))
	require.NoError(t, store.UpdateField(ctx, k2, model.FieldDefaultEapol, model.StatusPendingAdd))

	keys, err := store.StatusKeysForDevice(ctx, "OLT-001")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
