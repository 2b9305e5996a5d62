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

package flows

import "github.com/opencord/olt-edge-core/internal/core/model"

// EncodeMetadata implements the write-metadata encoding from spec.md §4.1:
//
//	64-bit, MSB-first: bytes [0..1] = inner VLAN id; bytes [2..3] =
//	technology-profile id; bytes [4..7] = egress port. When there is no
//	inner VLAN, bytes [0..1] are zero. When technologyProfileId =
//	NONE_TP_ID, substitute defaultTechProfileID. The low bits optionally
//	carry an upstream OLT meter id, OR-ed in, when oltMeterID is non-zero.
func EncodeMetadata(innerVlan model.VlanID, techProfileID int32, egressPort uint32, defaultTechProfileID int32, oltMeterID uint64) uint64 {
	if techProfileID == model.NoneTechProfileID {
		techProfileID = defaultTechProfileID
	}

	var innerVlanBits uint64
	if innerVlan.Present() {
		innerVlanBits = uint64(uint16(innerVlan))
	}

	metadata := innerVlanBits<<48 | uint64(uint16(techProfileID))<<32 | uint64(egressPort)

	if oltMeterID != 0 {
		metadata |= oltMeterID
	}

	return metadata
}
