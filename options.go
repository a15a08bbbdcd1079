package smsbert

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/usaproje/go-smsbert/inference"
	"github.com/usaproje/go-smsbert/tokenizer"
)

// Backend selects the onnxruntime binding.
type Backend string

const (
	// BackendCGO uses github.com/yalue/onnxruntime_go.
	BackendCGO Backend = "cgo"
	// BackendPurego loads onnxruntime without cgo.
	BackendPurego Backend = "purego"
)

// Masker rewrites a message body before it is encoded, typically to hide
// personal data. It must be safe for concurrent use.
type Masker func(string) string

// Option configures a Classifier.
type Option func(*config)

type config struct {
	tokenizer   tokenizer.Config
	session     inference.SessionConfig
	backend     Backend
	poolSize    int
	concurrency int
	timeout     time.Duration
	engine      inference.Engine
	masker      Masker
	labels      *LabelTable
	logger      *slog.Logger
}

func defaultConfig() config {
	return config{
		tokenizer:   tokenizer.DefaultConfig(),
		backend:     BackendCGO,
		poolSize:    1,
		concurrency: 1,
		masker:      func(s string) string { return s },
		labels:      DefaultLabels(),
		logger:      slog.Default(),
	}
}

// WithMaxSeqLen sets the encoded sequence length (default: 512).
func WithMaxSeqLen(n int) Option {
	return func(c *config) {
		c.tokenizer.MaxSeqLen = n
	}
}

// WithLowerCase controls lowercasing before tokenization (default: true).
func WithLowerCase(lower bool) Option {
	return func(c *config) {
		c.tokenizer.DoLowerCase = lower
	}
}

// WithSpecialTokens overrides the [CLS], [SEP], [PAD] and [UNK] tokens.
// Empty arguments keep the current value.
func WithSpecialTokens(cls, sep, pad, unk string) Option {
	return func(c *config) {
		if cls != "" {
			c.tokenizer.CLSToken = cls
		}
		if sep != "" {
			c.tokenizer.SEPToken = sep
		}
		if pad != "" {
			c.tokenizer.PADToken = pad
		}
		if unk != "" {
			c.tokenizer.UNKToken = unk
		}
	}
}

// WithPoolSize sets the ONNX session pool size (default: 1).
func WithPoolSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

// WithConcurrency sets how many messages Classify processes at once
// (default: 1, sequential). Values above the pool size only queue.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout bounds each forward pass (default: no bound).
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithBackend selects the onnxruntime binding (default: BackendCGO).
func WithBackend(b Backend) Option {
	return func(c *config) {
		if b != "" {
			c.backend = b
		}
	}
}

// WithORTLibrary sets the onnxruntime shared library path.
func WithORTLibrary(path string) Option {
	return func(c *config) {
		c.session.LibraryPath = path
	}
}

// WithORTAPIVersion sets the C API version requested by BackendPurego.
func WithORTAPIVersion(v uint32) Option {
	return func(c *config) {
		c.session.APIVersion = v
	}
}

// WithThreads sets onnxruntime intra- and inter-op thread counts. Zero keeps
// the runtime default.
func WithThreads(intra, inter int) Option {
	return func(c *config) {
		c.session.IntraOpThreads = intra
		c.session.InterOpThreads = inter
	}
}

// WithModelIO names the model inputs and logits output instead of reading
// them from the model file.
func WithModelIO(inputs []string, output string) Option {
	return func(c *config) {
		c.session.InputNames = inputs
		c.session.OutputName = output
	}
}

// WithEngine runs inference on e instead of onnxruntime. The model path
// passed to New is ignored. The Classifier closes e on Close.
func WithEngine(e inference.Engine) Option {
	return func(c *config) {
		c.engine = e
	}
}

// WithMasker sets the function applied to each body before encoding
// (default: identity).
func WithMasker(m Masker) Option {
	return func(c *config) {
		if m != nil {
			c.masker = m
		}
	}
}

// WithLabels sets the label table (default: DefaultLabels()).
func WithLabels(t *LabelTable) Option {
	return func(c *config) {
		if t != nil {
			c.labels = t
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// DefaultPoolSize is a reasonable pool size for servers.
func DefaultPoolSize() int {
	return runtime.NumCPU()
}
