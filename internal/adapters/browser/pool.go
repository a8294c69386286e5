package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/core"
)

// ErrPoolClosed is returned by Acquire after Close
var ErrPoolClosed = errors.New("browser pool closed")

// Opener starts the session for slot i
type Opener func(i int) (core.Automation, error)

// Pool hands out one session per worker. A session serves a single task
// at a time.
type Pool struct {
	idle     chan core.Automation
	sessions []core.Automation
	active   atomic.Int32
	closed   chan struct{}
	once     sync.Once
	logger   *zap.Logger
}

// NewPool opens size sessions up front. If any fails the ones already
// opened are closed.
func NewPool(size int, open Opener, logger *zap.Logger) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		idle:   make(chan core.Automation, size),
		closed: make(chan struct{}),
		logger: logger,
	}
	for i := 0; i < size; i++ {
		s, err := open(i)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to open browser session %d: %w", i, err)
		}
		p.sessions = append(p.sessions, s)
		p.idle <- s
	}
	logger.Info("Browser pool ready", zap.Int("sessions", size))
	return p, nil
}

// Acquire blocks until a session is free
func (p *Pool) Acquire(ctx context.Context) (core.Automation, error) {
	select {
	case <-p.closed:
		return nil, ErrPoolClosed
	default:
	}
	select {
	case s := <-p.idle:
		p.active.Add(1)
		return s, nil
	case <-p.closed:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a session to the pool
func (p *Pool) Release(s core.Automation) {
	if s == nil {
		return
	}
	p.active.Add(-1)
	select {
	case p.idle <- s:
	default:
		p.logger.Warn("Released a session the pool does not own")
	}
}

// Size is the number of sessions
func (p *Pool) Size() int {
	return cap(p.idle)
}

// Active is the number of sessions currently in use
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Close shuts every session down
func (p *Pool) Close() error {
	var errs []error
	p.once.Do(func() {
		close(p.closed)
		for _, s := range p.sessions {
			if c, ok := s.(io.Closer); ok {
				if err := c.Close(); err != nil {
					errs = append(errs, err)
				}
			}
		}
	})
	return errors.Join(errs...)
}
