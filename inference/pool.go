package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Pool manages a fixed set of engines for concurrent inference. ONNX
// sessions serialise their own Run calls, so throughput scales with the
// number of sessions rather than the number of callers.
type Pool struct {
	engines chan Engine
	size    int
	mu      sync.Mutex
	closed  bool
}

var _ Engine = (*Pool)(nil)

// NewPool creates a pool of size engines from factory.
func NewPool(factory Factory, size int) (*Pool, error) {
	if size <= 0 {
		size = 1
	}

	pool := &Pool{
		engines: make(chan Engine, size),
		size:    size,
	}

	for i := 0; i < size; i++ {
		engine, err := factory()
		if err != nil {
			_ = pool.Close() // Best-effort cleanup; original error takes precedence
			return nil, fmt.Errorf("creating session %d: %w", i, err)
		}
		pool.engines <- engine
	}

	return pool, nil
}

// Acquire gets an engine from the pool, blocking if none available.
// Respects context cancellation. Returns ErrPoolClosed if the pool is closed.
func (p *Pool) Acquire(ctx context.Context) (Engine, error) {
	select {
	case engine, ok := <-p.engines:
		if !ok {
			return nil, ErrPoolClosed
		}
		return engine, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns an engine to the pool. Engines released after Close are
// closed instead.
func (p *Pool) Release(e Engine) {
	if e == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = e.Close()
		return
	}

	select {
	case p.engines <- e:
	default:
		_ = e.Close() // Pool full; clean up excess engine
	}
}

// Infer runs in on the next free engine.
func (p *Pool) Infer(ctx context.Context, in Inputs) ([]float32, error) {
	e, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(e)

	return e.Infer(ctx, in)
}

// Close closes every idle engine. Engines in use are closed when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.engines)
	p.mu.Unlock()

	var errs []error
	for engine := range p.engines {
		if err := engine.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Size returns the pool size.
func (p *Pool) Size() int {
	return p.size
}

// Available returns the number of idle engines.
func (p *Pool) Available() int {
	return len(p.engines)
}
