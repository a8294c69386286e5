package core

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
)

type fakeSettings struct {
	keyword    string
	imageDir   string
	maxRetries int
	retryDelay time.Duration
	urlTimeout time.Duration
}

func (s *fakeSettings) Keyword() string           { return s.keyword }
func (s *fakeSettings) ImageDir() string          { return s.imageDir }
func (s *fakeSettings) MaxRetries() int           { return s.maxRetries }
func (s *fakeSettings) RetryDelay() time.Duration { return s.retryDelay }
func (s *fakeSettings) URLTimeout() time.Duration { return s.urlTimeout }

func newFakeSettings() *fakeSettings {
	return &fakeSettings{
		keyword:    "open.kakao.com",
		maxRetries: 3,
		retryDelay: time.Millisecond,
		urlTimeout: time.Second,
	}
}

// fakeSession runs a scripted behaviour per URL and tracks concurrency
type fakeSession struct {
	pool *fakePool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	return s.pool.navigate(ctx, url)
}

func (s *fakeSession) ClickPrimaryButton(ctx context.Context) error { return nil }

func (s *fakeSession) PerformJoinClicks(ctx context.Context, password string) error {
	s.pool.mu.Lock()
	s.pool.passwords = append(s.pool.passwords, password)
	s.pool.mu.Unlock()
	return nil
}

type fakePool struct {
	size     int
	sessions chan Automation

	mu        sync.Mutex
	calls     map[string]int
	passwords []string
	behaviour func(ctx context.Context, url string, call int) error

	running    atomic.Int32
	maxRunning atomic.Int32
	navigated  atomic.Int32
}

func newFakePool(size int) *fakePool {
	p := &fakePool{
		size:     size,
		sessions: make(chan Automation, size),
		calls:    make(map[string]int),
	}
	for i := 0; i < size; i++ {
		p.sessions <- &fakeSession{pool: p}
	}
	return p
}

func (p *fakePool) navigate(ctx context.Context, url string) error {
	n := p.running.Add(1)
	defer p.running.Add(-1)
	for {
		max := p.maxRunning.Load()
		if n <= max || p.maxRunning.CompareAndSwap(max, n) {
			break
		}
	}
	p.navigated.Add(1)

	p.mu.Lock()
	p.calls[url]++
	call := p.calls[url]
	p.mu.Unlock()

	if p.behaviour != nil {
		return p.behaviour(ctx, url, call)
	}
	return nil
}

func (p *fakePool) Acquire(ctx context.Context) (Automation, error) {
	select {
	case s := <-p.sessions:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *fakePool) Release(s Automation) { p.sessions <- s }
func (p *fakePool) Size() int            { return p.size }
func (p *fakePool) Close() error         { return nil }

// setCache is an unbounded in-memory DedupCache
type setCache struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newSetCache() *setCache { return &setCache{keys: make(map[string]struct{})} }

func (c *setCache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.keys[key]
	return ok
}

func (c *setCache) Add(content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[content]; ok {
		return false
	}
	c.keys[content] = struct{}{}
	return true
}

func (c *setCache) Flush(ctx context.Context) error { return nil }

func (c *setCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n *Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type filterFunc func(msg *InboundMessage) (string, bool)

func (f filterFunc) ShouldIgnore(msg *InboundMessage) (string, bool) { return f(msg) }

func allowAll() MessageFilter {
	return filterFunc(func(*InboundMessage) (string, bool) { return "", false })
}

type textExtractorFunc func(text string) (string, bool)

func (f textExtractorFunc) ExtractFromText(text string) (string, bool) { return f(text) }

type imageExtractorFunc func(ctx context.Context, path string) (string, bool)

func (f imageExtractorFunc) ExtractFromImage(ctx context.Context, path string) (string, bool) {
	return f(ctx, path)
}

// fileFetcher writes a small file into dir to stand in for a downloaded photo
type fileFetcher struct {
	paths []string
}

func (f *fileFetcher) Fetch(ctx context.Context, ref MediaRef, dir string) (string, error) {
	path := filepath.Join(dir, ref.FileID+".jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		return "", err
	}
	f.paths = append(f.paths, path)
	return path, nil
}

type previewFunc func(ctx context.Context, url string) (string, error)

func (f previewFunc) Resolve(ctx context.Context, url string) (string, error) { return f(ctx, url) }
