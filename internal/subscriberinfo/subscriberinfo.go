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

// Package subscriberinfo is the consumed subscriber-information-service
// contract (spec.md §6): synchronous, side-effect-free lookups of
// subscriber and bandwidth-profile records.
package subscriberinfo

import (
	"context"

	"github.com/opencord/olt-edge-core/internal/core/model"
)

// Lookup is the subscriber-information-service contract. Absent entries
// return (nil, nil) — "not found" is not an error.
type Lookup interface {
	// SubscriberByPortName resolves a UNI's subscriber record. Also used
	// with a device's serial number (passed as portName) to resolve
	// OLT-level info including uplinkPort.
	SubscriberByPortName(ctx context.Context, portName string) (*model.SubscriberInfo, error)

	BandwidthProfileByID(ctx context.Context, bpID string) (*model.BandwidthProfileInformation, error)
}

// Fake is an in-memory Lookup for tests.
type Fake struct {
	Subscribers map[string]*model.SubscriberInfo
	Profiles    map[string]*model.BandwidthProfileInformation
}

// NewFake builds an empty Fake ready for tests to populate.
func NewFake() *Fake {
	return &Fake{
		Subscribers: make(map[string]*model.SubscriberInfo),
		Profiles:    make(map[string]*model.BandwidthProfileInformation),
	}
}

func (f *Fake) SubscriberByPortName(_ context.Context, portName string) (*model.SubscriberInfo, error) {
	return f.Subscribers[portName], nil
}

func (f *Fake) BandwidthProfileByID(_ context.Context, bpID string) (*model.BandwidthProfileInformation, error) {
	return f.Profiles[bpID], nil
}
