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

package clustermap

import (
	"context"
	"sync"
)

// memMap is an in-process Map, used by tests and by single-instance
// deployments that opt out of Redis.
type memMap struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

// NewMemory builds an in-memory Map.
func NewMemory() Map {
	return &memMap{data: make(map[string]map[string]string)}
}

func clone(fields map[string]string) map[string]string {
	if fields == nil {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (m *memMap) Get(_ context.Context, key string) (map[string]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.data[key]
	return clone(fields), ok, nil
}

func (m *memMap) Set(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(fields) == 0 {
		delete(m.data, key)
		return nil
	}
	m.data[key] = clone(fields)
	return nil
}

func (m *memMap) CompareAndUpdate(_ context.Context, key string, mutate func(map[string]string) (map[string]string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := mutate(clone(m.data[key]))
	if err != nil {
		return err
	}
	if len(next) == 0 {
		delete(m.data, key)
		return nil
	}
	m.data[key] = clone(next)
	return nil
}

func (m *memMap) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memMap) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out, nil
}
