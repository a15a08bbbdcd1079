package smsbert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/usaproje/go-smsbert/inference"
	"github.com/usaproje/go-smsbert/internal/message"
	"github.com/usaproje/go-smsbert/internal/onnxmeta"
	"github.com/usaproje/go-smsbert/tokenizer"
)

// Message is the canonical message record accepted by Classify.
type Message = message.Message

// Prediction is the classification of one text.
type Prediction struct {
	Label      string    `json:"label"`
	Color      string    `json:"color"`
	Index      int       `json:"index"`
	Confidence float64   `json:"confidence"`
	Logits     []float32 `json:"logits,omitempty"`
	Probs      []float64 `json:"probs,omitempty"`
}

// Classified pairs a message with its prediction. Exactly one of Prediction
// and Err is meaningful: when Err is non-nil the message was not classified.
type Classified struct {
	Message
	Prediction
	Err error `json:"-"`
}

// Classifier labels SMS messages with a BERT sequence classifier.
// It is safe for concurrent use.
type Classifier struct {
	encoder     *tokenizer.Encoder
	runner      *inference.Runner
	engine      inference.Engine
	masker      Masker
	labels      *LabelTable
	concurrency int
	logger      *slog.Logger
	closed      atomic.Bool
}

// New creates a Classifier from an ONNX model and its WordPiece vocabulary.
// The vocabulary and encoder configuration are validated immediately. ONNX
// sessions are created on first use, so a missing runtime library surfaces
// as a per-message ErrInference rather than here.
func New(modelPath, vocabPath string, opts ...Option) (*Classifier, error) {
	vocab, err := tokenizer.LoadVocab(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("loading vocabulary: %w", err)
	}
	return NewWithVocab(modelPath, vocab, opts...)
}

// NewWithVocab is New with an already loaded vocabulary.
func NewWithVocab(modelPath string, vocab *tokenizer.Vocab, opts ...Option) (*Classifier, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	encoder, err := tokenizer.NewEncoder(vocab, cfg.tokenizer)
	if err != nil {
		return nil, err
	}

	engine := cfg.engine
	if engine == nil {
		engine, err = newLazyEngine(modelPath, cfg)
		if err != nil {
			return nil, err
		}
	}

	cfg.logger.Debug("classifier ready",
		"vocab_size", vocab.Size(),
		"max_seq_len", cfg.tokenizer.MaxSeqLen,
		"labels", cfg.labels.Len(),
		"concurrency", cfg.concurrency,
	)

	return &Classifier{
		encoder:     encoder,
		runner:      inference.NewRunner(engine, inference.WithTimeout(cfg.timeout)),
		engine:      engine,
		masker:      cfg.masker,
		labels:      cfg.labels,
		concurrency: cfg.concurrency,
		logger:      cfg.logger,
	}, nil
}

// newLazyEngine checks the model file and returns a pool of sessions that is
// built on first use.
func newLazyEngine(modelPath string, cfg config) (inference.Engine, error) {
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("checking model file: %w", err)
	}

	sc := cfg.session
	sc.ModelPath = modelPath
	if len(sc.InputNames) == 0 || sc.OutputName == "" {
		inputs, output := modelIO(modelPath, cfg.logger)
		if len(sc.InputNames) == 0 {
			sc.InputNames = inputs
		}
		if sc.OutputName == "" {
			sc.OutputName = output
		}
	}

	var session inference.Factory
	switch cfg.backend {
	case BackendCGO:
		session = func() (inference.Engine, error) {
			s, err := inference.NewSession(sc)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	case BackendPurego:
		session = func() (inference.Engine, error) {
			s, err := inference.NewPuregoSession(sc)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConfig, cfg.backend)
	}

	size := cfg.poolSize
	logger := cfg.logger
	return inference.NewLazy(func() (inference.Engine, error) {
		start := time.Now()
		p, err := inference.NewPool(session, size)
		if err != nil {
			logger.Error("creating onnx sessions", "model", modelPath, "backend", cfg.backend, "error", err)
			return nil, err
		}
		logger.Info("onnx sessions ready",
			"model", modelPath,
			"backend", cfg.backend,
			"pool_size", size,
			"inputs", sc.InputNames,
			"output", sc.OutputName,
			"duration", time.Since(start),
		)
		return p, nil
	}), nil
}

// modelIO reads input and output names from the model, falling back to the
// standard BERT names.
func modelIO(modelPath string, logger *slog.Logger) ([]string, string) {
	m, err := onnxmeta.Inspect(modelPath)
	if err == nil {
		var inputs []string
		var output string
		inputs, output, err = m.ClassifierIO()
		if err == nil {
			return inputs, output
		}
	}
	logger.Warn("could not read model inputs, using defaults", "model", modelPath, "error", err)
	return inference.DefaultInputNames(), inference.DefaultOutputName
}

// ClassifyText masks, encodes, and classifies one text.
func (c *Classifier) ClassifyText(ctx context.Context, text string) (Prediction, error) {
	if c.closed.Load() {
		return Prediction{}, ErrClosed
	}

	enc := c.encoder.Encode(c.masker(text))
	res, err := c.runner.Run(ctx, enc)
	if err != nil {
		return Prediction{}, err
	}

	label := c.labels.Lookup(res.Predicted)
	return Prediction{
		Label:      label.Name,
		Color:      label.Color,
		Index:      res.Predicted,
		Confidence: res.Confidence(),
		Logits:     res.Logits,
		Probs:      res.Probs,
	}, nil
}

// Classify classifies each message independently. The result has one entry
// per message, in input order. A message that fails carries its error in
// Err and does not affect the others.
func (c *Classifier) Classify(ctx context.Context, msgs []Message) []Classified {
	out := make([]Classified, len(msgs))
	if len(msgs) == 0 {
		return out
	}

	if c.concurrency <= 1 || len(msgs) == 1 {
		for i := range msgs {
			out[i] = c.classifyOne(ctx, i, msgs[i])
		}
		return out
	}

	p := pool.New().WithMaxGoroutines(min(c.concurrency, len(msgs)))
	for i := range msgs {
		p.Go(func() {
			out[i] = c.classifyOne(ctx, i, msgs[i])
		})
	}
	p.Wait()

	return out
}

// ClassifyTexts is Classify for bare bodies.
func (c *Classifier) ClassifyTexts(ctx context.Context, texts []string) []Classified {
	now := time.Now()
	msgs := make([]Message, len(texts))
	for i, text := range texts {
		msgs[i] = message.New(text, now)
	}
	return c.Classify(ctx, msgs)
}

func (c *Classifier) classifyOne(ctx context.Context, i int, msg Message) (res Classified) {
	res.Message = msg
	defer func() {
		if r := recover(); r != nil {
			res.Prediction = Prediction{}
			res.Err = fmt.Errorf("%w: panic: %v", ErrInference, r)
			c.logger.Error("classification panicked", "index", i, "id", msg.ID, "panic", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	pred, err := c.ClassifyText(ctx, msg.Body)
	if err != nil {
		c.logger.Warn("message classification failed", "index", i, "id", msg.ID, "error", err)
		res.Err = err
		return res
	}
	res.Prediction = pred
	return res
}

// Encode returns the encoding of text after masking, without running the
// model.
func (c *Classifier) Encode(text string) *tokenizer.Encoding {
	return c.encoder.Encode(c.masker(text))
}

// Encoder returns the classifier's encoder.
func (c *Classifier) Encoder() *tokenizer.Encoder {
	return c.encoder
}

// Labels returns the label table.
func (c *Classifier) Labels() *LabelTable {
	return c.labels
}

// Warm creates the ONNX sessions now instead of on first use.
func (c *Classifier) Warm() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if lazy, ok := c.engine.(*inference.Lazy); ok {
		_, err := lazy.Get()
		return err
	}
	return nil
}

// Close releases ONNX resources. It is safe to call more than once.
func (c *Classifier) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if c.engine != nil {
		if err := c.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing engine: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns the indexes of results that carry an error.
func Failed(results []Classified) []int {
	var idx []int
	for i, r := range results {
		if r.Err != nil {
			idx = append(idx, i)
		}
	}
	return idx
}
