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

// VlanID is a PON/UNI VLAN tag value. Beyond the 0-4095 range used on the
// wire it also carries the two sentinel values the spec calls out.
type VlanID int32

const (
	// NoVID is the sentinel "no VLAN" value, one past the last valid
	// 12-bit VLAN id (4095) — the same sentinel ONOS-family VLAN types use.
	NoVID VlanID = 4096
	// VlanAny matches any tag (or the absence of one) on the wire.
	VlanAny VlanID = -1
	// VlanNone means "match only untagged traffic" / "do not rewrite".
	VlanNone VlanID = -2
)

// Present reports whether the tag is a concrete VLAN id rather than one of
// the ANY/NONE/NoVID sentinels.
func (v VlanID) Present() bool {
	return v >= 0 && v < NoVID
}

// Priority is an 802.1p PCP value; -1 means "unset" per spec.md §3.
type Priority int8

const (
	// PriorityUnset is the spec's "-1 means unset" sentinel.
	PriorityUnset Priority = -1
)

func (p Priority) IsSet() bool {
	return p != PriorityUnset
}

// NoneTechProfileID is the distinguished "not set" technology-profile id
// (spec.md §3: NONE_TP_ID = -1).
const NoneTechProfileID int32 = -1
