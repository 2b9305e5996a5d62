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

// Package coreerr defines the domain error taxonomy (spec.md §4.6 /
// "Error kinds"): sentinel values carrying a Kind, wrapped with %w and
// inspected with errors.Is/errors.As at call sites, rather than a class
// hierarchy.
package coreerr

import "errors"

// Kind is the domain error taxonomy.
type Kind int

const (
	// KindUnknown is the zero value; Kind() on a non-coreerr error returns this.
	KindUnknown Kind = iota
	// KindNotOwned: request concerns a device this instance does not own.
	KindNotOwned
	// KindNotConfigured: subscriber or OLT absent in the subscriber-information service.
	KindNotConfigured
	// KindMeterUnavailable: required meter not yet installed (transient).
	KindMeterUnavailable
	// KindMacPending: MAC learning enabled but not yet observed.
	KindMacPending
	// KindSouthboundError: install/remove failed at the driver.
	KindSouthboundError
	// KindBadRequest: malformed operator input.
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotOwned:
		return "NotOwned"
	case KindNotConfigured:
		return "NotConfigured"
	case KindMeterUnavailable:
		return "MeterUnavailable"
	case KindMacPending:
		return "MacPending"
	case KindSouthboundError:
		return "SouthboundError"
	case KindBadRequest:
		return "BadRequest"
	default:
		return "Unknown"
	}
}

// domainError is the concrete type behind every sentinel below.
type domainError struct {
	kind Kind
	msg  string
}

func (e *domainError) Error() string { return e.msg }

func new(kind Kind, msg string) error {
	return &domainError{kind: kind, msg: msg}
}

var (
	ErrNotOwned         = new(KindNotOwned, "device not owned by this instance")
	ErrNotConfigured    = new(KindNotConfigured, "subscriber or device not configured")
	ErrMeterUnavailable = new(KindMeterUnavailable, "meter not yet installed")
	ErrMacPending       = new(KindMacPending, "mac address not yet learned")
	ErrSouthboundError  = new(KindSouthboundError, "southbound install/remove failed")
	ErrBadRequest       = new(KindBadRequest, "malformed request")
)

// KindOf extracts the domain error kind from err, looking through any %w
// wrapping. Returns KindUnknown if err is nil or not one of ours.
func KindOf(err error) Kind {
	var de *domainError
	if errors.As(err, &de) {
		return de.kind
	}
	return KindUnknown
}

// Is reports whether err (or anything it wraps) is the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
