package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ctenarsky-denik/journal/internal/pkg/redis"
)

// Cache stores completions by fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, bool, error)
	Put(ctx context.Context, key string, entry CacheEntry, ttl time.Duration) error
}

// TTLs holds the entry lifetime per subject kind.
type TTLs struct {
	Book   time.Duration
	Author time.Duration
}

func (t TTLs) For(kind SubjectKind) time.Duration {
	if kind == KindAuthor {
		return t.Author
	}
	return t.Book
}

// Fingerprint hashes the subject identity and every preference that changes
// the output. Titles and names are compared case- and space-insensitively.
func Fingerprint(subject Subject, prefs Preferences) string {
	prefs = prefs.WithDefaults()
	parts := []string{
		string(subject.Kind),
		normalizeIdentity(subject.Title),
		normalizeIdentity(subject.Author),
		string(prefs.Style),
		string(prefs.Length),
		string(prefs.Focus),
		string(prefs.Language),
		flags(prefs.ExamFocus, prefs.LiteraryContext, prefs.StudyGuide,
			prefs.IncludeTimeline, prefs.IncludeAwards, prefs.IncludeInfluences),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func normalizeIdentity(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func flags(values ...bool) string {
	b := make([]byte, len(values))
	for i, v := range values {
		b[i] = '0'
		if v {
			b[i] = '1'
		}
	}
	return string(b)
}

type memoryItem struct {
	entry CacheEntry
	ttl   time.Duration
}

// MemoryCache is a process-local cache. Expired entries are reported as
// misses but stay in the map; there is no eviction.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*CacheEntry, bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(item.entry.CreatedAt) >= item.ttl {
		return nil, false, nil
	}
	entry := item.entry
	return &entry, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, entry CacheEntry, ttl time.Duration) error {
	c.mu.Lock()
	c.items[key] = memoryItem{entry: entry, ttl: ttl}
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

const redisCachePrefix = "journal:ai:cache:"

// RedisCache shares completions between instances. Redis expires keys at
// the entry TTL; reads also check the stored timestamp.
type RedisCache struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, now: time.Now}
}

type redisEntry struct {
	CacheEntry
	TTL time.Duration `json:"ttl"`
}

func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, bool, error) {
	raw, ok, err := c.client.Get(ctx, redisCachePrefix+key)
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var stored redisEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if c.now().Sub(stored.CreatedAt) >= stored.TTL {
		return nil, false, nil
	}
	return &stored.CacheEntry, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, entry CacheEntry, ttl time.Duration) error {
	data, err := json.Marshal(redisEntry{CacheEntry: entry, TTL: ttl})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, redisCachePrefix+key, data, ttl); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}
