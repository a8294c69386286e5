package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/mikey/link-joiner/internal/core"
)

// Fingerprint is the SHA-256 hex digest of NFC-normalized, trimmed content
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(norm.NFC.String(strings.TrimSpace(content))))
	return hex.EncodeToString(sum[:])
}

func identity(content string) string {
	return content
}

// ContentCache is an insertion-ordered dedup set backed by a CacheStore.
// Eviction is FIFO: re-adding a present entry never moves it.
type ContentCache struct {
	name      string
	mu        sync.Mutex
	order     *list.List
	index     map[string]*list.Element
	maxSize   int
	saveEvery int
	pending   int
	keyFn     func(string) string
	store     core.CacheStore
	logger    *zap.Logger
}

// NewMessageCache creates the bounded message cache keyed by Fingerprint.
// saveInterval <= 1 persists on every insertion.
func NewMessageCache(ctx context.Context, store core.CacheStore, maxSize, saveInterval int, logger *zap.Logger) *ContentCache {
	return newContentCache(ctx, "messages", store, maxSize, saveInterval, Fingerprint, logger)
}

// NewLinkCache creates the unbounded link cache keyed by the raw URL
func NewLinkCache(ctx context.Context, store core.CacheStore, saveInterval int, logger *zap.Logger) *ContentCache {
	return newContentCache(ctx, "links", store, 0, saveInterval, identity, logger)
}

func newContentCache(ctx context.Context, name string, store core.CacheStore, maxSize, saveInterval int, keyFn func(string) string, logger *zap.Logger) *ContentCache {
	c := &ContentCache{
		name:      name,
		order:     list.New(),
		index:     make(map[string]*list.Element),
		maxSize:   maxSize,
		saveEvery: saveInterval,
		keyFn:     keyFn,
		store:     store,
		logger:    logger,
	}
	c.load(ctx)
	return c
}

// load restores persisted entries. A missing or unreadable store yields an
// empty cache.
func (c *ContentCache) load(ctx context.Context) {
	if c.store == nil {
		return
	}
	records, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("Failed to load cache, starting empty",
			zap.String("cache", c.name),
			zap.Error(err))
		return
	}

	for _, r := range records {
		key := r.Fingerprint
		if key == "" {
			if r.Content == "" {
				continue
			}
			key = c.keyFn(r.Content)
		}
		if _, ok := c.index[key]; ok {
			continue
		}
		c.index[key] = c.order.PushBack(core.CacheRecord{Fingerprint: key, Content: r.Content})
	}
	// keep the newest entries when the store holds more than fits
	for c.maxSize > 0 && c.order.Len() > c.maxSize {
		c.evictOldest()
	}

	c.logger.Info("Loaded cache",
		zap.String("cache", c.name),
		zap.Int("entries", c.order.Len()))
}

// IsDuplicate reports whether key is present without changing anything
func (c *ContentCache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[key]
	return ok
}

// Contains reports whether content has already been added
func (c *ContentCache) Contains(content string) bool {
	return c.IsDuplicate(c.keyFn(content))
}

// Add inserts content and returns true, or returns false if it is already present
func (c *ContentCache) Add(content string) bool {
	key := c.keyFn(content)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[key]; ok {
		return false
	}
	if c.maxSize > 0 && c.order.Len() >= c.maxSize {
		c.evictOldest()
	}
	c.index[key] = c.order.PushBack(core.CacheRecord{Fingerprint: key, Content: content})

	c.pending++
	if c.saveEvery <= 1 || c.pending >= c.saveEvery {
		c.persistLocked(context.Background())
	}
	return true
}

// Flush writes any insertions not yet persisted
func (c *ContentCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == 0 {
		return nil
	}
	return c.persistLocked(ctx)
}

// Len returns the number of entries
func (c *ContentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Records returns the entries oldest first
func (c *ContentCache) Records() []core.CacheRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *ContentCache) evictOldest() {
	oldest := c.order.Front()
	if oldest == nil {
		return
	}
	rec := c.order.Remove(oldest).(core.CacheRecord)
	delete(c.index, rec.Fingerprint)
}

func (c *ContentCache) snapshotLocked() []core.CacheRecord {
	records := make([]core.CacheRecord, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		records = append(records, e.Value.(core.CacheRecord))
	}
	return records
}

// persistLocked saves the whole cache. On failure pending is kept so the
// next insertion or Flush retries.
func (c *ContentCache) persistLocked(ctx context.Context) error {
	if c.store == nil {
		c.pending = 0
		return nil
	}
	if err := c.store.Save(ctx, c.snapshotLocked()); err != nil {
		c.logger.Error("Failed to persist cache",
			zap.String("cache", c.name),
			zap.Int("pending", c.pending),
			zap.Error(err))
		return err
	}
	c.logger.Debug("Persisted cache",
		zap.String("cache", c.name),
		zap.Int("entries", c.order.Len()),
		zap.Int("flushed", c.pending))
	c.pending = 0
	return nil
}
