// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is the maximum number of entries a Cache holds unless
// specified otherwise using WithCapacity.
const DefaultCapacity = 256

// ErrNotEmpty is returned when hydrating a cache that already has been used.
var ErrNotEmpty = errors.New("query cache already in use")

// ErrUnknownKey is returned when awaiting a key without a cache entry.
var ErrUnknownKey = errors.New("unknown query key")

// ErrFull is returned when a new entry would exceed the cache's capacity.
// Entries are never evicted, as an evicted entry would be loaded again.
var ErrFull = errors.New("query cache full")

// Loader produces the value for a query. Loaders might block, so they get
// passed a context.
type Loader func(ctx context.Context) (any, error)

// Cache maps query keys to query results. On the server side a fresh Cache is
// used for each render, getting its entries from prefetching; on the client
// side a Cache gets hydrated from a server snapshot and then loads any missing
// entries in the background when read.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *CacheEntry]
	loads   singleflight.Group
	touched bool // true after first read or write, blocking hydration.

	capacity   int
	background context.Context // non-nil enables background loads on read.
	now        func() time.Time
}

// Option configures a Cache when creating it.
type Option func(*Cache)

// WithCapacity sets the maximum number of entries created by prefetching or
// reading. Hydrating grows the capacity to fit the snapshot, if necessary.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithBackgroundFetch turns on loading missing entries in the background when
// reading them, as done on the client side. Background loads use the specified
// context.
func WithBackgroundFetch(ctx context.Context) Option {
	return func(c *Cache) {
		c.background = ctx
	}
}

// WithClock sets the clock used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache returns a new and empty Cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	// lru.New only fails for non-positive sizes, which WithCapacity rules out.
	c.entries, _ = lru.New[string, *CacheEntry](c.capacity)
	return c
}

// Len returns the number of entries in this cache, regardless of their status.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Prefetch loads the value for key using loader and stores it, unless the
// cache already has an entry for the key, in which case Prefetch does nothing.
// Prefetch blocks until loader returns. Concurrent prefetches of the same key
// share a single loader call. If the loader fails, an error entry is stored
// and the error returned.
func (c *Cache) Prefetch(ctx context.Context, key Key, loader Loader) error {
	hash := key.Hash()
	if c.has(hash) {
		return nil
	}
	_, err, _ := c.loads.Do(hash, func() (any, error) {
		// A flight that just finished might have settled the entry after we
		// checked above; its outcome might also get shared with a background
		// load of a pending entry, so hand out the settled outcome.
		if value, err, settled := c.settled(hash); settled {
			return value, err
		}
		if c.full(hash) {
			return nil, ErrFull
		}
		value, err := loader(ctx)
		c.mu.Lock()
		defer c.mu.Unlock()
		e, ok := c.entries.Peek(hash)
		if !ok {
			if c.entries.Len() >= c.capacity {
				return nil, ErrFull
			}
			e = c.newEntry(key)
			c.entries.Add(hash, e)
		} else if e.Status != StatusPending {
			return e.Value, e.Err
		}
		c.settle(e, value, err)
		return value, err
	})
	if err != nil {
		return fmt.Errorf("prefetching query %s failed: %w", hash, err)
	}
	return nil
}

// has returns true if there is an entry for the specified key hash, marking
// the cache as used.
func (c *Cache) has(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = true
	return c.entries.Contains(hash)
}

// settled returns the outcome of the entry for the specified key hash, if the
// entry exists and isn't pending anymore.
func (c *Cache) settled(hash string) (value any, err error, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries.Peek(hash)
	if !found || e.Status == StatusPending {
		return nil, nil, false
	}
	return e.Value, e.Err, true
}

// full returns true if there is no room for an entry for the specified key
// hash.
func (c *Cache) full(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.entries.Contains(hash) && c.entries.Len() >= c.capacity
}

// Read returns the current status and value of the query identified by key,
// without blocking. If the cache has no entry for the key it reports
// StatusPending. Additionally, if background fetching is enabled and a loader
// is given, Read starts loading the missing entry in the background; use
// Await to wait for the outcome. If the cache is full, Read reports an error
// result carrying ErrFull instead of loading.
func (c *Cache) Read(key Key, loader Loader) Result {
	hash := key.Hash()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = true
	if e, ok := c.entries.Get(hash); ok {
		return e.result()
	}
	if c.background == nil || loader == nil {
		return Result{Status: StatusPending}
	}
	if c.entries.Len() >= c.capacity {
		return Result{Status: StatusError, Err: ErrFull}
	}
	e := c.newEntry(key)
	c.entries.Add(hash, e)
	go c.load(hash, e, loader)
	return e.result()
}

// load runs loader for a pending entry and settles it.
func (c *Cache) load(hash string, e *CacheEntry, loader Loader) {
	value, err, _ := c.loads.Do(hash, func() (any, error) {
		if value, err, settled := c.settled(hash); settled {
			return value, err
		}
		return loader(c.background)
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle(e, value, err)
}

// Await waits for the entry of the specified key to settle and then returns
// its result. It returns ErrUnknownKey if there's no entry for key.
func (c *Cache) Await(ctx context.Context, key Key) (Result, error) {
	c.mu.Lock()
	e, ok := c.entries.Peek(key.Hash())
	if !ok {
		c.mu.Unlock()
		return Result{}, ErrUnknownKey
	}
	if e.Status != StatusPending {
		r := e.result()
		c.mu.Unlock()
		return r, nil
	}
	done := e.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return Result{Status: StatusPending}, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return e.result(), nil
}

// Dehydrate returns a snapshot of all successful entries in this cache.
func (c *Cache) Dehydrate() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{Queries: []DehydratedQuery{}}
	for _, hash := range c.entries.Keys() {
		e, ok := c.entries.Peek(hash)
		if !ok || e.Status != StatusSuccess {
			continue
		}
		data, ok := e.Value.(json.RawMessage)
		if !ok {
			var err error
			data, err = json.Marshal(e.Value)
			if err != nil {
				return Snapshot{}, fmt.Errorf("cannot dehydrate query %s: %w", hash, err)
			}
		}
		snap.Queries = append(snap.Queries, DehydratedQuery{
			QueryKey:  e.Key,
			QueryHash: hash,
			State: QueryState{
				Data:          data,
				Status:        e.Status,
				DataUpdatedAt: e.UpdatedAt.UnixMilli(),
			},
		})
	}
	return snap, nil
}

// Hydrate seeds this cache from the successful queries of the specified
// snapshot; other queries are skipped so that reading them loads them anew.
// Hydrate must be called before any other use of the cache, otherwise it fails
// with ErrNotEmpty. The capacity grows to fit the snapshot if necessary.
// Reading a hydrated key never invokes a loader.
func (c *Cache) Hydrate(snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.touched || c.entries.Len() > 0 {
		return ErrNotEmpty
	}
	c.touched = true
	if n := snap.Len(); n > c.capacity {
		c.capacity = n
		c.entries.Resize(n)
	}
	for _, q := range snap.Queries {
		if q.State.Status != StatusSuccess {
			continue
		}
		hash := q.QueryKey.Hash()
		updated := time.UnixMilli(q.State.DataUpdatedAt)
		c.entries.Add(hash, &CacheEntry{
			Key:       q.QueryKey,
			Value:     q.State.Data,
			Status:    q.State.Status,
			CreatedAt: updated,
			UpdatedAt: updated,
		})
	}
	return nil
}

// newEntry returns a new pending entry; the caller must hold the lock.
func (c *Cache) newEntry(key Key) *CacheEntry {
	now := c.now()
	return &CacheEntry{
		Key:       key,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		done:      make(chan struct{}),
	}
}

// settle stores the outcome of loading a pending entry and wakes up any
// waiters; the caller must hold the lock.
func (c *Cache) settle(e *CacheEntry, value any, err error) {
	e.UpdatedAt = c.now()
	if err != nil {
		e.Status = StatusError
		e.Err = err
		e.Value = nil
	} else {
		e.Status = StatusSuccess
		e.Err = nil
		e.Value = value
	}
	if e.done != nil {
		select {
		case <-e.done:
		default:
			close(e.done)
		}
	}
}
