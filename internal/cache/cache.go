// Watchdeck - Personal Media History Dashboard
// Copyright 2026 Watchdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/watchdeck/watchdeck

// Package cache implements the two-tier client cache: a thread-safe
// in-memory map in front of a durable BadgerDB store, both governed by a
// single TTL (24 hours by default).
//
// Read path: memory first; on a memory miss the durable tier is consulted,
// and a fresh durable entry is promoted into memory. An expired durable
// entry is deleted on read and reported as a miss. Set writes both tiers
// unconditionally (last-write-wins); Clear empties both tiers entirely,
// which is how ranking saves force dependent views to refetch.
package cache

import (
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/watchdeck/watchdeck/internal/metrics"
)

// Entry is one cached dataset with its write timestamp.
type Entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// expired reports whether the entry is older than the TTL.
func (e *Entry) expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.Timestamp) > ttl
}

// Stats tracks cache performance metrics.
type Stats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Evictions int64     `json:"evictions"`
	TotalKeys int64     `json:"total_keys"`
	LastClear time.Time `json:"last_clear"`
}

// Cache is the two-tier TTL cache.
//
// Thread Safety: safe for concurrent access. Set is last-write-wins if two
// writers ever race on the same key.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	store   *Store
	ttl     time.Duration

	statsMu sync.Mutex
	stats   Stats
}

// New creates a two-tier cache over the given durable store. A nil store
// degrades to memory-only operation (durable failures are never surfaced
// to callers).
func New(store *Store, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		store:   store,
		ttl:     ttl,
	}
}

// Get retrieves a cached value by key. Returns the raw JSON value and true
// on a hit. An entry older than the TTL in either tier is treated as absent;
// an expired durable entry is deleted on read.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	now := time.Now()

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if exists {
		if !entry.expired(c.ttl, now) {
			c.recordHit()
			metrics.CacheHits.WithLabelValues("memory").Inc()
			return entry.Value, true
		}
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.recordEviction()
	}

	if c.store == nil {
		c.recordMiss()
		return nil, false
	}

	stored, err := c.store.Get(key)
	if err != nil || stored == nil {
		// Durable-tier failures are swallowed; the caller refetches
		c.recordMiss()
		return nil, false
	}

	if stored.expired(c.ttl, now) {
		_ = c.store.Delete(key)
		c.recordMiss()
		c.recordEviction()
		metrics.CacheEvictions.Inc()
		return nil, false
	}

	// Promote to the memory tier
	c.mu.Lock()
	c.entries[key] = *stored
	c.mu.Unlock()

	c.recordHit()
	metrics.CacheHits.WithLabelValues("durable").Inc()
	return stored.Value, true
}

// Set stores a value in both tiers with the current timestamp,
// unconditionally overwriting any existing entry.
func (c *Cache) Set(key string, value json.RawMessage) {
	entry := Entry{
		Key:       key,
		Value:     value,
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	c.entries[key] = entry
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.TotalKeys = total
	c.statsMu.Unlock()

	if c.store != nil {
		// Durable-tier write failures degrade to memory-only caching
		_ = c.store.Set(&entry)
	}
}

// SetJSON marshals a value and stores it. Marshal failures are swallowed;
// the cache is an optimization, never a source of truth.
func (c *Cache) SetJSON(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.Set(key, data)
}

// GetJSON retrieves a cached value and unmarshals it into out.
func (c *Cache) GetJSON(key string, out interface{}) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// Delete removes a key from both tiers.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.store != nil {
		_ = c.store.Delete(key)
	}

	c.recordEviction()
}

// Clear empties both tiers entirely. Used after a ranking save to force
// re-fetch of ranking-dependent views.
func (c *Cache) Clear() {
	c.mu.Lock()
	evictions := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	if c.store != nil {
		_ = c.store.Clear()
	}

	c.statsMu.Lock()
	c.stats.Evictions += evictions
	c.stats.TotalKeys = 0
	c.stats.LastClear = time.Now()
	c.statsMu.Unlock()
}

// GetStats returns a snapshot of current cache statistics.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns the cache hit rate as a percentage.
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

func (c *Cache) recordHit() {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
	metrics.CacheMisses.Inc()
}

func (c *Cache) recordEviction() {
	c.statsMu.Lock()
	c.stats.Evictions++
	c.statsMu.Unlock()
}
