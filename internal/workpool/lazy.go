package workpool

import (
	"context"
	"sync"
)

// Lazy creates its Pool on the first Submit. It is safe for concurrent use.
type Lazy struct {
	workers int
	mu      sync.Mutex
	pool    *Pool
	closed  bool
}

// NewLazy returns a Lazy that will start a pool of the given size.
func NewLazy(workers int) *Lazy {
	return &Lazy{workers: workers}
}

func (l *Lazy) get() (*Pool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, &Error{Op: "submit", Err: ErrClosed}
	}
	if l.pool == nil {
		l.pool = New(l.workers)
	}
	return l.pool, nil
}

// Submit starts the pool if needed and runs task on it.
func (l *Lazy) Submit(ctx context.Context, task Task) (string, error) {
	p, err := l.get()
	if err != nil {
		return "", err
	}
	return p.Submit(ctx, task)
}

// Started reports whether the underlying pool has been created.
func (l *Lazy) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool != nil
}

// Close shuts the pool down if it was started. Later submits fail with ErrClosed.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.pool != nil {
		return l.pool.Close()
	}
	return nil
}

var defaultPool = NewLazy(0)

// Default returns the process-wide pool, sized to runtime.NumCPU() and
// started on first use.
func Default() *Lazy {
	return defaultPool
}

// Shutdown closes the process-wide pool. Call it once at process exit.
func Shutdown() {
	_ = defaultPool.Close()
}
