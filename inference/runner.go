package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/usaproje/go-smsbert/tokenizer"
)

// Result is the classifier output for one sequence.
type Result struct {
	Logits    []float32
	Probs     []float64
	Predicted int
}

// Confidence returns the probability of the predicted class.
func (r *Result) Confidence() float64 {
	if r.Predicted < 0 || r.Predicted >= len(r.Probs) {
		return 0
	}
	return r.Probs[r.Predicted]
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTimeout bounds each engine call. Zero disables the bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// Runner turns encodings into class probabilities. It is safe for
// concurrent use when its engine is.
type Runner struct {
	engine  Engine
	timeout time.Duration
}

// NewRunner returns a Runner that executes on engine.
func NewRunner(engine Engine, opts ...RunnerOption) *Runner {
	r := &Runner{engine: engine}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine returns the underlying engine.
func (r *Runner) Engine() Engine {
	return r.engine
}

// Run classifies one encoding. Every failure wraps ErrInference.
func (r *Runner) Run(ctx context.Context, enc *tokenizer.Encoding) (*Result, error) {
	if enc == nil {
		return nil, fmt.Errorf("%w: nil encoding", ErrInference)
	}
	in := Inputs{
		InputIDs:      enc.InputIDs,
		AttentionMask: enc.AttentionMask,
		TokenTypeIDs:  enc.TokenTypeIDs,
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	logits, err := r.infer(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	if len(logits) == 0 {
		return nil, fmt.Errorf("%w: empty logits", ErrInference)
	}
	if !finite(logits) {
		return nil, fmt.Errorf("%w: non-finite logits %v", ErrInference, logits)
	}

	probs := Softmax(logits)
	return &Result{
		Logits:    logits,
		Probs:     probs,
		Predicted: Argmax(probs),
	}, nil
}

// infer calls the engine, giving up once ctx is done. Native engines cannot
// be interrupted mid-run, so an abandoned call finishes in the background.
func (r *Runner) infer(ctx context.Context, in Inputs) ([]float32, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type outcome struct {
		logits []float32
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("engine panic: %v", p)}
			}
		}()
		logits, err := r.engine.Infer(ctx, in)
		done <- outcome{logits, err}
	}()

	select {
	case o := <-done:
		return o.logits, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
