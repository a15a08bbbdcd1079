package inference

import (
	"context"
	"sync"
	"sync/atomic"
)

// fakeEngine returns fixed logits and records calls.
type fakeEngine struct {
	logits []float32
	err    error
	block  chan struct{}

	calls  atomic.Int64
	mu     sync.Mutex
	last   Inputs
	closed bool
}

func (f *fakeEngine) Infer(ctx context.Context, in Inputs) ([]float32, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrSessionClosed
	}
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float32, len(f.logits))
	copy(out, f.logits)
	return out, nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeEngine) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
