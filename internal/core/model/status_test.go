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

package model

import "testing"

func TestOltFlowsStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to OltFlowsStatus
		want     bool
	}{
		{StatusNone, StatusPendingAdd, true},
		{StatusPendingAdd, StatusAdded, true},
		{StatusAdded, StatusPendingRemove, true},
		{StatusPendingRemove, StatusRemoved, true},
		{StatusPendingAdd, StatusPendingRemove, true},
		{StatusPendingRemove, StatusPendingAdd, false}, // no skipping to the opposite pending
		{StatusAdded, StatusPendingAdd, false},
		{StatusNone, StatusAdded, false},
		{StatusError, StatusPendingAdd, true},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestOltPortStatus_WithField(t *testing.T) {
	s := OltPortStatus{}
	s2, err := s.WithField(FieldDefaultEapol, StatusPendingAdd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s2.HasDefaultEapol() {
		t.Fatalf("expected default eapol present")
	}

	if _, err := s2.WithField(FieldDefaultEapol, StatusPendingRemove); err != nil {
		t.Fatalf("pending_add -> pending_remove should be legal: %v", err)
	}

	s3 := OltPortStatus{SubscriberFlowsStatus: StatusAdded}
	if _, err := s3.WithField(FieldSubscriberFlows, StatusPendingAdd); err == nil {
		t.Fatalf("expected illegal transition ADDED -> PENDING_ADD to fail")
	}
}

func TestOltPortStatus_AnyPresent(t *testing.T) {
	s := OltPortStatus{}
	if s.AnyPresent() {
		t.Fatalf("zero-value status should not be present")
	}
	s.DhcpStatus = StatusPendingAdd
	if !s.AnyPresent() {
		t.Fatalf("expected present once one track is PENDING_ADD")
	}
}
