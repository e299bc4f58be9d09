// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package promptassembly

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/queryforge/sqlbeam/internal/transform"
)

// GoldCache fronts the gold example store of spec.md §6 ("JSON documents,
// one per example") with a Redis cache keyed by transform name, so repeated
// prompt assembly for the same query/dialect doesn't re-scan the store.
type GoldCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGoldCache wraps an already-configured Redis client. A nil client makes
// every Get a cache miss, which is a valid deployment (the store is always
// consulted directly as a fallback by the caller).
func NewGoldCache(rdb *redis.Client, ttl time.Duration) *GoldCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &GoldCache{rdb: rdb, ttl: ttl}
}

func cacheKey(transformName string) string {
	return "sqlbeam:gold:" + transformName
}

// Get returns the cached gold examples for a transform, if present.
func (c *GoldCache) Get(ctx context.Context, transformName string) ([]transform.GoldExample, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(transformName)).Bytes()
	if err != nil {
		return nil, false
	}
	var examples []transform.GoldExample
	if err := json.Unmarshal(raw, &examples); err != nil {
		return nil, false
	}
	return examples, true
}

// Put stores gold examples for a transform with the cache's configured TTL.
func (c *GoldCache) Put(ctx context.Context, transformName string, examples []transform.GoldExample) error {
	if c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(examples)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(transformName), raw, c.ttl).Err()
}
