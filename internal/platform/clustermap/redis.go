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
	"fmt"

	"github.com/go-redis/redis/v8"
)

// redisMap backs a Map with a Redis hash per key, namespaced "TABLE|key"
// (grounded on the newtron SONiC APPL_DB/CONFIG_DB/STATE_DB convention).
type redisMap struct {
	client *redis.Client
	table  string
}

// NewRedis builds a Map backed by client, with every key namespaced under
// table.
func NewRedis(client *redis.Client, table string) Map {
	return &redisMap{client: client, table: table}
}

func (m *redisMap) redisKey(key string) string {
	return fmt.Sprintf("%s|%s", m.table, key)
}

func (m *redisMap) Get(ctx context.Context, key string) (map[string]string, bool, error) {
	fields, err := m.client.HGetAll(ctx, m.redisKey(key)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return fields, true, nil
}

func (m *redisMap) Set(ctx context.Context, key string, fields map[string]string) error {
	redisKey := m.redisKey(key)
	if len(fields) == 0 {
		return m.client.Del(ctx, redisKey).Err()
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, redisKey)
	pipe.HSet(ctx, redisKey, args...)
	_, err := pipe.Exec(ctx)
	return err
}

// CompareAndUpdate uses Redis WATCH/MULTI (optimistic locking) so concurrent
// writers retry instead of clobbering each other, per the Status Store's
// merge contract (spec.md §4.3).
func (m *redisMap) CompareAndUpdate(ctx context.Context, key string, mutate func(map[string]string) (map[string]string, error)) error {
	redisKey := m.redisKey(key)
	return m.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGetAll(ctx, redisKey).Result()
		if err != nil {
			return err
		}
		if len(current) == 0 {
			current = nil
		}
		next, err := mutate(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, redisKey)
			if len(next) > 0 {
				args := make([]interface{}, 0, len(next)*2)
				for k, v := range next {
					args = append(args, k, v)
				}
				pipe.HSet(ctx, redisKey, args...)
			}
			return nil
		})
		return err
	}, redisKey)
}

func (m *redisMap) Delete(ctx context.Context, key string) error {
	return m.client.Del(ctx, m.redisKey(key)).Err()
}

func (m *redisMap) Keys(ctx context.Context) ([]string, error) {
	prefix := m.table + "|"
	var out []string
	iter := m.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
