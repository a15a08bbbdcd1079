// Package server exposes a Classifier over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	smsbert "github.com/usaproje/go-smsbert"
	"github.com/usaproje/go-smsbert/internal/message"
	"github.com/usaproje/go-smsbert/tokenizer"
)

// Classifier is the part of smsbert.Classifier the server needs.
type Classifier interface {
	Classify(ctx context.Context, msgs []smsbert.Message) []smsbert.Classified
	Encode(text string) *tokenizer.Encoding
	Labels() *smsbert.LabelTable
}

var _ Classifier = (*smsbert.Classifier)(nil)

type options struct {
	maxBodyBytes    int64
	maxMessages     int
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

func defaultOptions() options {
	return options{
		maxBodyBytes:    1 << 20,
		maxMessages:     1000,
		requestTimeout:  60 * time.Second,
		shutdownTimeout: 10 * time.Second,
		logger:          slog.Default(),
		now:             time.Now,
	}
}

// Option configures the Server.
type Option func(*options)

// WithMaxBodyBytes limits request bodies. Zero disables the limit.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithMaxMessages limits the messages accepted by one classify request.
func WithMaxMessages(n int) Option {
	return func(o *options) { o.maxMessages = n }
}

// WithRequestTimeout sets the per-request classification deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithShutdownTimeout bounds graceful shutdown in Serve.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) { o.shutdownTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Server serves /api/health, /api/labels, /api/classify and /api/encode.
type Server struct {
	clf    Classifier
	opts   options
	log    *slog.Logger
	engine *gin.Engine
}

func New(clf Classifier, optFns ...Option) *Server {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		clf:  clf,
		opts: opts,
		log:  opts.logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/labels", s.handleLabels)
	r.POST("/api/classify", s.handleClassify)
	r.POST("/api/encode", s.handleEncode)
	s.engine = r

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr and serves until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	s.log.Info("listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http serve: %w", err)
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()

	level := slog.LevelInfo
	if c.Writer.Status() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.log.Log(c.Request.Context(), level, "request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type labelResponse struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Default bool   `json:"default,omitempty"`
}

func (s *Server) handleLabels(c *gin.Context) {
	labels := s.clf.Labels()
	out := make([]labelResponse, 0, labels.Len())
	for _, i := range labels.Indexes() {
		l := labels.Lookup(i)
		out = append(out, labelResponse{
			Index:   i,
			Name:    l.Name,
			Color:   l.Color,
			Default: i == labels.DefaultIndex(),
		})
	}
	c.JSON(http.StatusOK, out)
}

// ClassifyRequest carries either a batch of messages, each a bare string or
// a message object, or a single text.
type ClassifyRequest struct {
	Messages []json.RawMessage `json:"messages"`
	Text     *string           `json:"text"`
}

// ClassifyResult is one entry of a classify response. Error is set instead
// of the prediction fields when the message could not be classified.
type ClassifyResult struct {
	ID         string    `json:"id"`
	Address    string    `json:"address"`
	Body       string    `json:"body"`
	Timestamp  time.Time `json:"timestamp"`
	Label      string    `json:"label,omitempty"`
	Color      string    `json:"color,omitempty"`
	Index      *int      `json:"index,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Probs      []float64 `json:"probs,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// ClassifyResponse lists results in request order.
type ClassifyResponse struct {
	Results []ClassifyResult `json:"results"`
	Failed  int              `json:"failed"`
}

func (s *Server) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if !s.bind(c, &req) {
		return
	}

	now := s.opts.now()
	var msgs []smsbert.Message
	switch {
	case len(req.Messages) > 0:
		if s.opts.maxMessages > 0 && len(req.Messages) > s.opts.maxMessages {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("at most %d messages per request", s.opts.maxMessages),
			})
			return
		}
		msgs = make([]smsbert.Message, len(req.Messages))
		for i, raw := range req.Messages {
			m, err := message.Normalize(raw, now)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("messages[%d]: %v", i, err)})
				return
			}
			msgs[i] = m
		}
	case req.Text != nil:
		msgs = []smsbert.Message{message.New(*req.Text, now)}
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "messages or text is required"})
		return
	}

	ctx := c.Request.Context()
	if s.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.requestTimeout)
		defer cancel()
	}

	resp := NewClassifyResponse(s.clf.Classify(ctx, msgs))
	c.JSON(http.StatusOK, resp)
}

// NewClassifyResponse converts classifier output to its wire form.
func NewClassifyResponse(results []smsbert.Classified) ClassifyResponse {
	resp := ClassifyResponse{Results: make([]ClassifyResult, len(results))}
	for i, r := range results {
		out := ClassifyResult{
			ID:        r.ID,
			Address:   r.Address,
			Body:      r.Body,
			Timestamp: r.Timestamp,
		}
		if r.Err != nil {
			out.Error = r.Err.Error()
			resp.Failed++
		} else {
			out.Label = r.Label
			out.Color = r.Color
			out.Index = &r.Index
			out.Confidence = r.Confidence
			out.Probs = r.Probs
		}
		resp.Results[i] = out
	}
	return resp
}

type encodeRequest struct {
	Text *string `json:"text"`
}

// EncodeResponse is the encoder output for one text.
type EncodeResponse struct {
	Tokens        []string `json:"tokens"`
	InputIDs      []int64  `json:"input_ids"`
	AttentionMask []int64  `json:"attention_mask"`
	TokenTypeIDs  []int64  `json:"token_type_ids"`
}

func (s *Server) handleEncode(c *gin.Context) {
	var req encodeRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Text == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	c.JSON(http.StatusOK, NewEncodeResponse(s.clf.Encode(*req.Text)))
}

// NewEncodeResponse converts an encoding to its wire form.
func NewEncodeResponse(enc *tokenizer.Encoding) EncodeResponse {
	return EncodeResponse{
		Tokens:        enc.Tokens,
		InputIDs:      enc.InputIDs,
		AttentionMask: enc.AttentionMask,
		TokenTypeIDs:  enc.TokenTypeIDs,
	}
}

// bind decodes the JSON body into v, writing the error response itself.
func (s *Server) bind(c *gin.Context, v any) bool {
	if s.opts.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.maxBodyBytes)
	}

	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
	case errors.As(err, &tooLarge):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
	return false
}
