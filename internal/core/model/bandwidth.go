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

// BandwidthProfileInformation is the external bandwidth-profile record
// (spec.md §3): committed/exceeded/assured rate + burst, which the Meter
// Cache turns into a three-band meter.
type BandwidthProfileInformation struct {
	ID string

	CommittedInformationRate uint64
	CommittedBurstSize       uint64

	ExceededInformationRate uint64
	ExceededBurstSize       uint64

	AssuredInformationRate uint64
	AssuredBurstSize       uint64
}

// MeterBand is one band of a three-band meter (committed/exceeded/assured),
// each dropping on overflow per spec.md §4.2.
type MeterBand struct {
	Name      string
	Rate      uint64
	BurstSize uint64
	DropOnOverflow bool
}

// Bands synthesises the three meter bands a bandwidth profile becomes,
// always dropping on overflow as spec.md §4.2 requires.
func (b *BandwidthProfileInformation) Bands() []MeterBand {
	return []MeterBand{
		{Name: "committed", Rate: b.CommittedInformationRate, BurstSize: b.CommittedBurstSize, DropOnOverflow: true},
		{Name: "exceeded", Rate: b.ExceededInformationRate, BurstSize: b.ExceededBurstSize, DropOnOverflow: true},
		{Name: "assured", Rate: b.AssuredInformationRate, BurstSize: b.AssuredBurstSize, DropOnOverflow: true},
	}
}
