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

package meters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencord/olt-edge-core/internal/core/model"
	"github.com/opencord/olt-edge-core/internal/platform/clustermap"
)

func TestEnsureMeter_FirstCallParksAndSubsequentCallsDoNotDuplicate(t *testing.T) {
	ctx := context.Background()
	cache := New(clustermap.NewMemory(), time.Minute)
	bp := &model.BandwidthProfileInformation{ID: "HSIA-US", CommittedInformationRate: 1000}

	id1, ready, req, err := cache.EnsureMeter(ctx, "OLT-001", bp)
	require.NoError(t, err)
	assert.False(t, ready)
	require.NotNil(t, req)
	assert.Equal(t, id1, req.MeterID)

	// A second call before install completes must not synthesise a second
	// install request (spec.md §8 invariant 1: meter uniqueness).
	id2, ready2, req2, err := cache.EnsureMeter(ctx, "OLT-001", bp)
	require.NoError(t, err)
	assert.False(t, ready2)
	assert.Nil(t, req2)
	assert.Equal(t, id1, id2)
}

func TestEnsureMeter_ReadyAfterInstall(t *testing.T) {
	ctx := context.Background()
	cache := New(clustermap.NewMemory(), time.Minute)
	bp := &model.BandwidthProfileInformation{ID: "HSIA-DS"}

	meterID, _, req, err := cache.EnsureMeter(ctx, "OLT-001", bp)
	require.NoError(t, err)
	require.NotNil(t, req)

	require.NoError(t, cache.OnMeterInstalled(ctx, "OLT-001", bp.ID, meterID))

	id, ready, req2, err := cache.EnsureMeter(ctx, "OLT-001", bp)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Nil(t, req2)
	assert.Equal(t, meterID, id)

	bound, ok, err := cache.MeterFor(ctx, "OLT-001", bp.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, meterID, bound)
}

func TestPark_DrainsOnMeterInstalled(t *testing.T) {
	ctx := context.Background()
	cache := New(clustermap.NewMemory(), time.Minute)
	bp := &model.BandwidthProfileInformation{ID: "HSIA-US"}

	meterID, _, _, err := cache.EnsureMeter(ctx, "OLT-001", bp)
	require.NoError(t, err)

	resumed := false
	cache.Park("OLT-001", meterID, func() { resumed = true })

	require.NoError(t, cache.OnMeterInstalled(ctx, "OLT-001", bp.ID, meterID))
	assert.True(t, resumed)
}

func TestPark_DrainsOnMeterFailed(t *testing.T) {
	cache := New(clustermap.NewMemory(), time.Minute)
	resumed := false
	cache.Park("OLT-001", 42, func() { resumed = true })
	cache.OnMeterFailed("OLT-001", "HSIA-US")
	assert.True(t, resumed)
}

func TestOnMeterReferenceCountZero(t *testing.T) {
	ctx := context.Background()
	cache := New(clustermap.NewMemory(), time.Minute)
	bp := &model.BandwidthProfileInformation{ID: "HSIA-US"}

	meterID, _, _, err := cache.EnsureMeter(ctx, "OLT-001", bp)
	require.NoError(t, err)
	require.NoError(t, cache.OnMeterInstalled(ctx, "OLT-001", bp.ID, meterID))

	// Still programmed: must not withdraw.
	withdraw, err := cache.OnMeterReferenceCountZero(ctx, "OLT-001", bp.ID, meterID, map[uint64]bool{meterID: true})
	require.NoError(t, err)
	assert.False(t, withdraw)

	// No longer programmed: withdraw.
	withdraw, err = cache.OnMeterReferenceCountZero(ctx, "OLT-001", bp.ID, meterID, map[uint64]bool{})
	require.NoError(t, err)
	assert.True(t, withdraw)

	_, ok, err := cache.MeterFor(ctx, "OLT-001", bp.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	cache := New(clustermap.NewMemory(), time.Minute)
	bp := &model.BandwidthProfileInformation{ID: "HSIA-US"}

	meterID, _, _, err := cache.EnsureMeter(ctx, "OLT-001", bp)
	require.NoError(t, err)
	require.NoError(t, cache.OnMeterInstalled(ctx, "OLT-001", bp.ID, meterID))

	require.NoError(t, cache.Clear(ctx, "OLT-001", []string{bp.ID}))

	_, ok, err := cache.MeterFor(ctx, "OLT-001", bp.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
