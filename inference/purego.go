package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// PuregoSession runs a classifier through onnxruntime loaded with purego, so
// binaries built with CGO_ENABLED=0 can still classify. Thread settings in
// SessionConfig are not applied by this backend.
type PuregoSession struct {
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session

	names  []string
	roles  []InputRole
	output string

	mu     sync.Mutex
	closed bool
}

var _ Engine = (*PuregoSession)(nil)

// NewPuregoSession loads the runtime library and creates a session for the
// model in cfg.
func NewPuregoSession(cfg SessionConfig) (*PuregoSession, error) {
	cfg = cfg.withDefaults()

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	runtime, err := ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("ort runtime: %w", err)
	}

	env, err := runtime.NewEnv("smsbert", ort.LoggingLevelWarning)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("ort env: %w", err)
	}

	session, err := runtime.NewSession(env, cfg.ModelPath, nil)
	if err != nil {
		env.Close()
		_ = runtime.Close()
		return nil, fmt.Errorf("ort session (%s): %w", cfg.ModelPath, err)
	}

	return &PuregoSession{
		runtime: runtime,
		env:     env,
		session: session,
		names:   cfg.InputNames,
		roles:   cfg.roles(),
		output:  cfg.OutputName,
	}, nil
}

// Infer runs the model on one encoded sequence and returns its logits.
func (s *PuregoSession) Infer(ctx context.Context, in Inputs) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	shape := []int64{1, int64(in.Len())}
	inputs := make(map[string]*ort.Value, len(s.names))
	defer closeValues(inputs)

	for i, name := range s.names {
		v, err := ort.NewTensorValue(s.runtime, in.slice(s.roles[i]), shape)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		inputs[name] = v
	}

	outputs, err := s.session.Run(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	defer closeValues(outputs)

	v, ok := outputs[s.output]
	if !ok {
		return nil, fmt.Errorf("model produced no %q output", s.output)
	}

	data, dims, err := ort.GetTensorData[float32](v)
	if err != nil {
		return nil, fmt.Errorf("output %q: %w", s.output, err)
	}
	if len(dims) != 2 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected logits shape %v, want [1, C]", dims)
	}

	logits := make([]float32, len(data))
	copy(logits, data)
	return logits, nil
}

// Close releases the session, environment, and runtime. Safe to call
// multiple times.
func (s *PuregoSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
	if s.env != nil {
		s.env.Close()
		s.env = nil
	}
	if s.runtime != nil {
		err := s.runtime.Close()
		s.runtime = nil
		return err
	}
	return nil
}

func closeValues(vals map[string]*ort.Value) {
	for _, v := range vals {
		if v != nil {
			v.Close()
		}
	}
}
