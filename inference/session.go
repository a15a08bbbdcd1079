package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnvMu serialises environment setup. A failed initialisation is not
// remembered, so a later call with a corrected library path can succeed.
var ortEnvMu sync.Mutex

// initORT initializes the ONNX Runtime environment if it is not already.
func initORT(libraryPath string) error {
	ortEnvMu.Lock()
	defer ortEnvMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	return ort.InitializeEnvironment()
}

// Shutdown destroys the ONNX Runtime environment created by NewSession.
// Sessions must be closed first. It is a no-op when no environment exists.
func Shutdown() error {
	ortEnvMu.Lock()
	defer ortEnvMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// SessionConfig describes a classifier model and how to run it.
type SessionConfig struct {
	ModelPath string

	// LibraryPath is the onnxruntime shared library. Empty uses the
	// backend's default lookup.
	LibraryPath string

	// APIVersion is the ORT C API version requested by the purego backend.
	// Zero selects 23.
	APIVersion uint32

	// InputNames lists the model inputs to feed. Each name is bound to an
	// encoded slice with RoleOf. Empty selects DefaultInputNames.
	InputNames []string

	// OutputName is the logits output. Empty selects DefaultOutputName.
	OutputName string

	IntraOpThreads int
	InterOpThreads int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if len(c.InputNames) == 0 {
		c.InputNames = DefaultInputNames()
	}
	if c.OutputName == "" {
		c.OutputName = DefaultOutputName
	}
	if c.APIVersion == 0 {
		c.APIVersion = 23
	}
	return c
}

func (c SessionConfig) roles() []InputRole {
	roles := make([]InputRole, len(c.InputNames))
	for i, name := range c.InputNames {
		roles[i] = RoleOf(name)
	}
	return roles
}

// Session runs a classifier through the cgo onnxruntime binding.
type Session struct {
	session *ort.DynamicAdvancedSession
	roles   []InputRole
	mu      sync.Mutex
	closed  bool
}

var _ Engine = (*Session)(nil)

// NewSession creates a new ONNX session from a model file.
func NewSession(cfg SessionConfig) (*Session, error) {
	cfg = cfg.withDefaults()

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("setting intra-op threads: %w", err)
		}
	}
	if cfg.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
			return nil, fmt.Errorf("setting inter-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		cfg.InputNames,
		[]string{cfg.OutputName},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session, roles: cfg.roles()}, nil
}

// Infer runs the model on one encoded sequence and returns its logits.
func (s *Session) Infer(ctx context.Context, in Inputs) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	shape := ort.NewShape(1, int64(in.Len()))
	inputs := make([]ort.Value, 0, len(s.roles))
	defer func() {
		for _, v := range inputs {
			_ = v.Destroy()
		}
	}()
	for _, role := range s.roles {
		tensor, err := ort.NewTensor(shape, in.slice(role))
		if err != nil {
			return nil, fmt.Errorf("creating %s tensor: %w", role, err)
		}
		inputs = append(inputs, tensor)
	}

	// nil entries are allocated by Run
	outputs := []ort.Value{nil}

	if err := s.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}

	if outputs[0] == nil {
		return nil, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}

	dims := logitsTensor.GetShape()
	if len(dims) != 2 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected logits shape %v, want [1, C]", dims)
	}

	data := logitsTensor.GetData()
	logits := make([]float32, len(data))
	copy(logits, data)

	return logits, nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
