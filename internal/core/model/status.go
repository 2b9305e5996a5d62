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

// OltFlowsStatus is the lifecycle state of one flow-status track
// (spec.md §3, §4.5):
//
//	NONE -> PENDING_ADD -> ADDED -> PENDING_REMOVE -> REMOVED
//
// ERROR is reachable from PENDING_ADD, ADDED and PENDING_REMOVE, and is
// retryable (ERROR -> PENDING_ADD or PENDING_REMOVE).
type OltFlowsStatus int

const (
	StatusNone OltFlowsStatus = iota
	StatusPendingAdd
	StatusAdded
	StatusPendingRemove
	StatusRemoved
	StatusError
)

func (s OltFlowsStatus) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusPendingAdd:
		return "PENDING_ADD"
	case StatusAdded:
		return "ADDED"
	case StatusPendingRemove:
		return "PENDING_REMOVE"
	case StatusRemoved:
		return "REMOVED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// legalTransitions enumerates every allowed (from, to) edge, enforcing
// spec.md §8 property 3: "PENDING->ADDED/REMOVED cannot skip to the opposite
// PENDING without an intervening terminal state".
var legalTransitions = map[OltFlowsStatus]map[OltFlowsStatus]bool{
	StatusNone: {
		StatusPendingAdd: true,
	},
	StatusPendingAdd: {
		StatusAdded:         true,
		StatusError:         true,
		StatusPendingRemove: true, // an add can be aborted before confirmation
	},
	StatusAdded: {
		StatusPendingRemove: true,
		StatusError:         true,
		StatusAdded:         true, // idempotent re-add
	},
	StatusPendingRemove: {
		StatusRemoved: true,
		StatusError:   true,
	},
	StatusRemoved: {
		StatusPendingAdd: true,
		StatusNone:       true,
	},
	StatusError: {
		StatusPendingAdd:    true,
		StatusPendingRemove: true,
	},
}

// CanTransition reports whether moving from s to next is a legal edge.
// A no-op transition (s == next) is always legal.
func (s OltFlowsStatus) CanTransition(next OltFlowsStatus) bool {
	if s == next {
		return true
	}
	return legalTransitions[s][next]
}

// Present reports whether the status counts as "present" for the Status
// Store's ServiceKey-presence invariant (spec.md §3 invariant 3): anything
// other than NONE/REMOVED.
func (s OltFlowsStatus) Present() bool {
	return s != StatusNone && s != StatusRemoved
}

// OltPortStatus is the three parallel status tracks the Status Store keeps
// per ServiceKey (spec.md §3).
type OltPortStatus struct {
	DefaultEapolStatus    OltFlowsStatus
	SubscriberFlowsStatus OltFlowsStatus
	DhcpStatus            OltFlowsStatus
}

// AnyPresent reports whether any of the three tracks is non-NONE/REMOVED,
// the condition under which the ServiceKey must remain in the Status Store
// (spec.md §3 invariant 3).
func (s OltPortStatus) AnyPresent() bool {
	return s.DefaultEapolStatus.Present() || s.SubscriberFlowsStatus.Present() || s.DhcpStatus.Present()
}

// HasDefaultEapol implements the query from spec.md §4.3: true when
// defaultEapolStatus is ADDED, PENDING_ADD or ERROR — ERROR counts as
// present because the southbound keeps retrying.
func (s OltPortStatus) HasDefaultEapol() bool {
	switch s.DefaultEapolStatus {
	case StatusAdded, StatusPendingAdd, StatusError:
		return true
	default:
		return false
	}
}

// IsDefaultEapolPendingRemoval implements the spec.md §4.3 query.
func (s OltPortStatus) IsDefaultEapolPendingRemoval() bool {
	return s.DefaultEapolStatus == StatusPendingRemove
}

// HasDhcpFlows implements the spec.md §4.3 query: true when ADDED or
// PENDING_ADD.
func (s OltPortStatus) HasDhcpFlows() bool {
	return s.DhcpStatus == StatusAdded || s.DhcpStatus == StatusPendingAdd
}

// HasSubscriberFlows implements the spec.md §4.3 query: true when ADDED or
// PENDING_ADD.
func (s OltPortStatus) HasSubscriberFlows() bool {
	return s.SubscriberFlowsStatus == StatusAdded || s.SubscriberFlowsStatus == StatusPendingAdd
}

// StatusField identifies which of the three tracks a merge touches.
type StatusField int

const (
	FieldDefaultEapol StatusField = iota
	FieldSubscriberFlows
	FieldDhcp
)

// WithField returns a copy of s with the given field moved to next, used by
// the Status Store's merge contract ("null means leave as is; otherwise
// overwrite", spec.md §4.3). Returns an error if the transition is illegal.
func (s OltPortStatus) WithField(field StatusField, next OltFlowsStatus) (OltPortStatus, error) {
	out := s
	var cur OltFlowsStatus
	switch field {
	case FieldDefaultEapol:
		cur = s.DefaultEapolStatus
	case FieldSubscriberFlows:
		cur = s.SubscriberFlowsStatus
	case FieldDhcp:
		cur = s.DhcpStatus
	}
	if !cur.CanTransition(next) {
		return s, illegalTransitionError{from: cur, to: next}
	}
	switch field {
	case FieldDefaultEapol:
		out.DefaultEapolStatus = next
	case FieldSubscriberFlows:
		out.SubscriberFlowsStatus = next
	case FieldDhcp:
		out.DhcpStatus = next
	}
	return out, nil
}

type illegalTransitionError struct {
	from, to OltFlowsStatus
}

func (e illegalTransitionError) Error() string {
	return "illegal status transition from " + e.from.String() + " to " + e.to.String()
}
