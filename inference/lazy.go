package inference

import (
	"context"
	"sync"
)

// Lazy is an Engine built on first use. Concurrent first callers share a
// single construction. A failed construction is not cached: the error is
// returned to the callers that waited on it and the next call tries again.
type Lazy struct {
	factory Factory

	mu     sync.Mutex
	engine Engine
	closed bool
}

var _ Engine = (*Lazy)(nil)

// NewLazy returns an engine that calls factory on first use.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Get returns the engine, constructing it if needed.
func (l *Lazy) Get() (Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrSessionClosed
	}
	if l.engine != nil {
		return l.engine, nil
	}

	e, err := l.factory()
	if err != nil {
		return nil, err
	}
	l.engine = e
	return e, nil
}

// Ready reports whether the engine has been constructed.
func (l *Lazy) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine != nil
}

// Infer constructs the engine if needed and runs it.
func (l *Lazy) Infer(ctx context.Context, in Inputs) ([]float32, error) {
	e, err := l.Get()
	if err != nil {
		return nil, err
	}
	return e.Infer(ctx, in)
}

// Close releases the engine if it was constructed. Later calls to Infer
// return ErrSessionClosed.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.engine == nil {
		return nil
	}
	err := l.engine.Close()
	l.engine = nil
	return err
}
