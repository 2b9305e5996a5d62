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

// Package clustermap is the cluster-replicated map abstraction spec.md §9
// calls for ("cluster-replicated maps as an abstract contract"): every
// component that needs shared state across instances (Status Store,
// provisioned-subscribers set, Meter Cache bindings, ownership-ring
// membership) goes through this interface rather than talking to Redis
// directly, grounded on the newtron "TABLE|key" hash convention
// (internal/testutil/redis.go in the pack).
package clustermap

import "context"

// Map is a cluster-replicated string->string-fields hash map, scoped to one
// logical table. Every key is a hash of fields; callers encode/decode their
// own structs into field maps.
type Map interface {
	// Get returns the fields stored at key, or ok=false if the key is absent.
	Get(ctx context.Context, key string) (fields map[string]string, ok bool, err error)

	// Set replaces the fields stored at key.
	Set(ctx context.Context, key string, fields map[string]string) error

	// CompareAndUpdate atomically applies mutate to the current fields (nil
	// if the key is absent) and stores the result, retrying on conflicting
	// concurrent writers. This is the primitive the Status Store's
	// null-means-leave-as-is merge contract is built on (spec.md §4.3).
	CompareAndUpdate(ctx context.Context, key string, mutate func(current map[string]string) (map[string]string, error)) error

	// Delete removes key entirely.
	Delete(ctx context.Context, key string) error

	// Keys returns every key currently stored in the table.
	Keys(ctx context.Context) ([]string, error)
}
