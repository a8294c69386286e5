package cache_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/link-joiner/internal/adapters/store"
	"github.com/mikey/link-joiner/internal/cache"
	"github.com/mikey/link-joiner/internal/core"
)

func TestAddReturnsTrueThenFalse(t *testing.T) {
	c := cache.NewMessageCache(context.Background(), store.NewMemoryStore(), 10, 1, zaptest.NewLogger(t))

	require.True(t, c.Add("hello"))
	require.False(t, c.Add("hello"))
	require.False(t, c.Add("  hello \n"))
	require.Equal(t, 1, c.Len())
	require.True(t, c.IsDuplicate(cache.Fingerprint("hello")))
	require.True(t, c.Contains("hello"))
}

func TestFingerprintNormalizesUnicode(t *testing.T) {
	require.Equal(t, cache.Fingerprint("caf\u00e9"), cache.Fingerprint("cafe\u0301"))
	require.Equal(t, cache.Fingerprint("hello"), cache.Fingerprint("\thello  "))
	require.Len(t, cache.Fingerprint("x"), 64)
}

func TestFIFOEvictionNeverPromotes(t *testing.T) {
	c := cache.NewMessageCache(context.Background(), store.NewMemoryStore(), 3, 1, zaptest.NewLogger(t))

	for _, s := range []string{"a", "b", "c"} {
		require.True(t, c.Add(s))
	}
	// re-adding "a" must not refresh it
	require.False(t, c.Add("a"))
	require.True(t, c.Add("d"))

	require.False(t, c.Contains("a"))
	require.True(t, c.Contains("b"))
	require.True(t, c.Contains("d"))
	require.Equal(t, 3, c.Len())

	var contents []string
	for _, r := range c.Records() {
		contents = append(contents, r.Content)
	}
	require.Equal(t, []string{"b", "c", "d"}, contents)
}

func TestNeverExceedsMaxSize(t *testing.T) {
	c := cache.NewMessageCache(context.Background(), store.NewMemoryStore(), 5, 100, zaptest.NewLogger(t))
	for i := 0; i < 50; i++ {
		c.Add(fmt.Sprintf("message %d", i%17))
		require.LessOrEqual(t, c.Len(), 5)
	}
}

func TestPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message_cache.json")
	logger := zaptest.NewLogger(t)

	s, err := store.NewJSONStore(path, store.LayoutPairs, logger)
	require.NoError(t, err)
	c := cache.NewMessageCache(context.Background(), s, 3, 1, logger)
	for _, m := range []string{"one", "two", "three", "four"} {
		c.Add(m)
	}
	want := c.Records()
	require.NoError(t, s.Close())

	s2, err := store.NewJSONStore(path, store.LayoutPairs, logger)
	require.NoError(t, err)
	defer s2.Close()
	reloaded := cache.NewMessageCache(context.Background(), s2, 3, 1, logger)

	require.Equal(t, want, reloaded.Records())
	require.False(t, reloaded.Add("four"))
	require.True(t, reloaded.Add("one"))
}

func TestBatchedWritesAndFlush(t *testing.T) {
	mem := store.NewMemoryStore()
	c := cache.NewMessageCache(context.Background(), mem, 100, 3, zaptest.NewLogger(t))

	c.Add("a")
	c.Add("b")
	require.Equal(t, 0, mem.Saves())
	c.Add("c")
	require.Equal(t, 1, mem.Saves())

	c.Add("d")
	require.NoError(t, c.Flush(context.Background()))
	require.Equal(t, 2, mem.Saves())

	records, err := mem.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)

	// nothing pending, nothing written
	require.NoError(t, c.Flush(context.Background()))
	require.Equal(t, 2, mem.Saves())
}

func TestCorruptStoreStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	s, err := store.NewJSONStore(path, store.LayoutPairs, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	c := cache.NewMessageCache(context.Background(), s, 10, 1, zaptest.NewLogger(t))
	require.Equal(t, 0, c.Len())
	require.True(t, c.Add("fresh"))
}

func TestLoadKeepsNewestWhenOversized(t *testing.T) {
	mem := store.NewMemoryStore(
		core.CacheRecord{Content: "a"},
		core.CacheRecord{Content: "b"},
		core.CacheRecord{Content: "c"},
	)
	c := cache.NewMessageCache(context.Background(), mem, 2, 1, zaptest.NewLogger(t))
	require.False(t, c.Contains("a"))
	require.True(t, c.Contains("b"))
	require.True(t, c.Contains("c"))
}

type failingStore struct {
	fail bool
	n    int
}

func (s *failingStore) Load(ctx context.Context) ([]core.CacheRecord, error) { return nil, nil }

func (s *failingStore) Save(ctx context.Context, records []core.CacheRecord) error {
	s.n++
	if s.fail {
		return errors.New("disk full")
	}
	return nil
}

func TestFailedSaveIsRetriedOnFlush(t *testing.T) {
	fs := &failingStore{fail: true}
	c := cache.NewMessageCache(context.Background(), fs, 10, 1, zaptest.NewLogger(t))

	require.True(t, c.Add("x"))
	require.Error(t, c.Flush(context.Background()))

	fs.fail = false
	require.NoError(t, c.Flush(context.Background()))
	require.NoError(t, c.Flush(context.Background()))
	require.Equal(t, 3, fs.n)
}

func TestLinkCacheIsUnbounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link_cache.json")
	s, err := store.NewJSONStore(path, store.LayoutKeys, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	c := cache.NewLinkCache(context.Background(), s, 1, zaptest.NewLogger(t))
	for i := 0; i < 1000; i++ {
		require.True(t, c.Add(fmt.Sprintf("https://open.kakao.com/o/%d", i)))
	}
	require.Equal(t, 1000, c.Len())
	require.True(t, c.IsDuplicate("https://open.kakao.com/o/0"))
	require.False(t, c.Add("https://open.kakao.com/o/0"))
}
