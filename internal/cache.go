package internal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs. Category judgements drift faster than content semantics, but
// the combined AnalysisResult keeps them together, so matches ride along on
// the insight schedule.
const (
	InsightTTL     = 7 * 24 * time.Hour
	searchCacheTTL = 5 * time.Minute
)

// CacheEntry wraps a cached analysis result with its lifecycle metadata.
// Hits increments on read; Timestamp is never refreshed.
type CacheEntry struct {
	Data      *AnalysisResult `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Expiry    time.Time       `json:"expiry"`
	Hits      int             `json:"hits"`
}

// Expired reports whether the entry is past its expiry.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.Expiry)
}

// CacheTier is one storage level of the analysis cache. Tiers must tolerate
// their backing store being unavailable by returning errors, which the tiered
// cache treats as misses.
type CacheTier interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// GenerateCacheKey derives the content address of one analysis: video ID,
// the sorted category IDs and the depth. Sorting makes the key independent of
// category order, so re-analysis with a reordered but identical category set
// hits cache.
func GenerateCacheKey(videoID VideoID, categoryIDs []CategoryID, depth Depth) string {
	ids := make([]string, len(categoryIDs))
	for i, id := range categoryIDs {
		ids[i] = string(id)
	}
	sort.Strings(ids)

	sum := sha256.Sum256([]byte(string(videoID) + "|" + strings.Join(ids, ",") + "|" + string(depth)))
	return hex.EncodeToString(sum[:16])
}

// MemoryTier is the fast in-process tier.
type MemoryTier struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
}

// NewMemoryTier creates an empty in-memory cache tier.
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{entries: make(map[string]*CacheEntry)}
}

func (m *MemoryTier) Get(_ context.Context, key string) (*CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return entry, nil
}

func (m *MemoryTier) Set(_ context.Context, key string, entry *CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
	return nil
}

func (m *MemoryTier) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryTier) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*CacheEntry)
	return nil
}

// Len returns the number of entries currently held.
func (m *MemoryTier) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// sweep removes expired entries.
func (m *MemoryTier) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
		}
	}
}

// recordHit bumps the hit counter without refreshing the timestamp.
func (m *MemoryTier) recordHit(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[key]; ok {
		entry.Hits++
	}
}

// FileTier is the durable on-disk tier: one JSON file per entry under the
// cache directory, the same idiom as the transcript cache.
type FileTier struct {
	dir string
}

// NewFileTier creates a file-backed cache tier rooted at dir.
func NewFileTier(dir string) *FileTier {
	return &FileTier{dir: dir}
}

func (f *FileTier) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileTier) Get(_ context.Context, key string) (*CacheEntry, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parsing cache entry: %w", err)
	}
	return &entry, nil
}

func (f *FileTier) Set(_ context.Context, key string, entry *CacheEntry) error {
	if err := EnsureDirs(f.dir); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	if err := os.WriteFile(f.path(key), data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (f *FileTier) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache entry: %w", err)
	}
	return nil
}

func (f *FileTier) Clear(_ context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to remove cache file %s: %v\n", e.Name(), err)
			}
		}
	}
	return nil
}

// redisKeyPrefix namespaces this tool's keys on a shared Redis.
const redisKeyPrefix = "ytcurate:analysis:"

// RedisTier is an optional durable tier backed by Redis, enabled via config
// when an address is set.
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier creates a Redis-backed cache tier.
func NewRedisTier(addr string) *RedisTier {
	return &RedisTier{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *RedisTier) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parsing redis cache entry: %w", err)
	}
	return &entry, nil
}

func (r *RedisTier) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling redis cache entry: %w", err)
	}
	ttl := time.Until(entry.Expiry)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisTier) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (r *RedisTier) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// CacheStats summarize cache effectiveness.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// TieredCache composes cache tiers, fastest first. Gets try tiers in order
// and back-fill faster tiers on a hit; Sets write through to every tier. A
// tier failing (e.g. Redis down) silently degrades to the remaining tiers.
type TieredCache struct {
	fast   *MemoryTier
	slower []CacheTier

	mu     sync.Mutex
	hits   int64
	misses int64
}

// NewTieredCache creates a cache with the given durable tiers behind the
// in-process fast tier.
func NewTieredCache(slower ...CacheTier) *TieredCache {
	return &TieredCache{fast: NewMemoryTier(), slower: slower}
}

// Get looks a key up: fast tier first, then each durable tier, promoting on
// hit. Expired entries are evicted lazily wherever they are found.
func (c *TieredCache) Get(ctx context.Context, key string) *AnalysisResult {
	now := time.Now()

	if entry, _ := c.fast.Get(ctx, key); entry != nil {
		if entry.Expired(now) {
			_ = c.fast.Delete(ctx, key)
		} else {
			c.fast.recordHit(key)
			c.recordHit()
			return entry.Data
		}
	}

	for _, tier := range c.slower {
		entry, err := tier.Get(ctx, key)
		if err != nil || entry == nil {
			continue
		}
		if entry.Expired(now) {
			_ = tier.Delete(ctx, key)
			continue
		}
		entry.Hits++
		_ = c.fast.Set(ctx, key, entry)
		c.recordHit()
		return entry.Data
	}

	c.recordMiss()
	return nil
}

// Set writes an entry through every tier with the given TTL. Roughly one in
// ten Sets also sweeps expired fast-tier entries.
func (c *TieredCache) Set(ctx context.Context, key string, result *AnalysisResult, ttl time.Duration) {
	now := time.Now()
	entry := &CacheEntry{
		Data:      result,
		Timestamp: now,
		Expiry:    now.Add(ttl),
	}

	_ = c.fast.Set(ctx, key, entry)
	for _, tier := range c.slower {
		if err := tier.Set(ctx, key, entry); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache tier write failed: %v\n", err)
		}
	}

	if rand.Intn(10) == 0 {
		c.fast.sweep(now)
	}
}

// Invalidate removes a key from every tier.
func (c *TieredCache) Invalidate(ctx context.Context, key string) {
	_ = c.fast.Delete(ctx, key)
	for _, tier := range c.slower {
		_ = tier.Delete(ctx, key)
	}
}

// Clear empties every tier.
func (c *TieredCache) Clear(ctx context.Context) error {
	if err := c.fast.Clear(ctx); err != nil {
		return err
	}
	for _, tier := range c.slower {
		if err := tier.Clear(ctx); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
	return nil
}

// Stats reports hit/miss counts and the fast-tier entry count.
func (c *TieredCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: c.fast.Len()}
}

func (c *TieredCache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *TieredCache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}
