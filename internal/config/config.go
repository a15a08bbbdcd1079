// Package config loads smsbert settings from defaults, an optional config
// file, SMSBERT_* environment variables and command line flags, in rising
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	smsbert "github.com/usaproje/go-smsbert"
)

type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Classify  ClassifyConfig  `mapstructure:"classify"`
	Server    ServerConfig    `mapstructure:"server"`
	LogLevel  string          `mapstructure:"log_level"`
}

type PathsConfig struct {
	ModelPath  string `mapstructure:"model_path"`
	VocabPath  string `mapstructure:"vocab_path"`
	LabelsPath string `mapstructure:"labels_path"`
}

type TokenizerConfig struct {
	MaxSeqLen   int  `mapstructure:"max_seq_len"`
	DoLowerCase bool `mapstructure:"do_lower_case"`
}

type RuntimeConfig struct {
	Backend        string        `mapstructure:"backend"`
	ORTLibraryPath string        `mapstructure:"ort_library_path"`
	ORTAPIVersion  uint32        `mapstructure:"ort_api_version"`
	IntraOpThreads int           `mapstructure:"intra_op_threads"`
	InterOpThreads int           `mapstructure:"inter_op_threads"`
	PoolSize       int           `mapstructure:"pool_size"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type ClassifyConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ModelPath: "models/model.onnx",
			VocabPath: "models/vocab.txt",
		},
		Tokenizer: TokenizerConfig{
			MaxSeqLen:   512,
			DoLowerCase: true,
		},
		Runtime: RuntimeConfig{
			Backend:       string(smsbert.BackendCGO),
			ORTAPIVersion: 23,
			PoolSize:      1,
			Timeout:       30 * time.Second,
		},
		Classify: ClassifyConfig{
			Concurrency: 1,
		},
		Server: ServerConfig{
			ListenAddr:     ":8080",
			RequestTimeout: 60 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		LogLevel: "info",
	}
}

// binding ties a config key to its flag.
type binding struct {
	key  string
	flag string
}

var bindings = []binding{
	{"paths.model_path", "model"},
	{"paths.vocab_path", "vocab"},
	{"paths.labels_path", "labels"},
	{"tokenizer.max_seq_len", "max-seq-len"},
	{"tokenizer.do_lower_case", "lowercase"},
	{"runtime.backend", "backend"},
	{"runtime.ort_library_path", "ort-lib"},
	{"runtime.ort_api_version", "ort-api-version"},
	{"runtime.intra_op_threads", "threads"},
	{"runtime.inter_op_threads", "inter-op-threads"},
	{"runtime.pool_size", "pool-size"},
	{"runtime.timeout", "timeout"},
	{"classify.concurrency", "concurrency"},
	{"server.listen_addr", "listen"},
	{"server.request_timeout", "request-timeout"},
	{"server.max_body_bytes", "max-body-bytes"},
	{"log_level", "log-level"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("model", defaults.Paths.ModelPath, "Path to ONNX model")
	fs.String("vocab", defaults.Paths.VocabPath, "Path to WordPiece vocab.txt")
	fs.String("labels", defaults.Paths.LabelsPath, "Path to labels JSON (default: fraud, promotion, normal)")
	fs.Int("max-seq-len", defaults.Tokenizer.MaxSeqLen, "Encoded sequence length")
	fs.Bool("lowercase", defaults.Tokenizer.DoLowerCase, "Lowercase text before tokenization")
	fs.String("backend", defaults.Runtime.Backend, "ONNX Runtime binding (cgo|purego)")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.Uint32("ort-api-version", defaults.Runtime.ORTAPIVersion, "ONNX Runtime C API version (purego backend)")
	fs.Int("threads", defaults.Runtime.IntraOpThreads, "ONNX Runtime intra-op thread count (0 = runtime default)")
	fs.Int("inter-op-threads", defaults.Runtime.InterOpThreads, "ONNX Runtime inter-op thread count (0 = runtime default)")
	fs.Int("pool-size", defaults.Runtime.PoolSize, "Number of ONNX sessions")
	fs.Duration("timeout", defaults.Runtime.Timeout, "Per-message inference timeout (0 = none)")
	fs.Int("concurrency", defaults.Classify.Concurrency, "Messages classified at once")
	fs.String("listen", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Duration("request-timeout", defaults.Server.RequestTimeout, "HTTP request timeout")
	fs.Int64("max-body-bytes", defaults.Server.MaxBodyBytes, "Maximum HTTP request body size")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		fs := opts.Cmd.Flags()
		for _, b := range bindings {
			f := fs.Lookup(b.flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(b.key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", b.flag, err)
			}
		}
	}

	v.SetEnvPrefix("SMSBERT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	if err := v.BindEnv("runtime.ort_library_path", "SMSBERT_ORT_LIB", "SMSBERT_RUNTIME_ORT_LIBRARY_PATH", "ONNXRUNTIME_SHARED_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("smsbert")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.model_path", c.Paths.ModelPath)
	v.SetDefault("paths.vocab_path", c.Paths.VocabPath)
	v.SetDefault("paths.labels_path", c.Paths.LabelsPath)
	v.SetDefault("tokenizer.max_seq_len", c.Tokenizer.MaxSeqLen)
	v.SetDefault("tokenizer.do_lower_case", c.Tokenizer.DoLowerCase)
	v.SetDefault("runtime.backend", c.Runtime.Backend)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_api_version", c.Runtime.ORTAPIVersion)
	v.SetDefault("runtime.intra_op_threads", c.Runtime.IntraOpThreads)
	v.SetDefault("runtime.inter_op_threads", c.Runtime.InterOpThreads)
	v.SetDefault("runtime.pool_size", c.Runtime.PoolSize)
	v.SetDefault("runtime.timeout", c.Runtime.Timeout)
	v.SetDefault("classify.concurrency", c.Classify.Concurrency)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.max_body_bytes", c.Server.MaxBodyBytes)
	v.SetDefault("log_level", c.LogLevel)
}

// Validate checks values that cannot be checked by type alone.
func (c Config) Validate() error {
	if _, err := NormalizeBackend(c.Runtime.Backend); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Tokenizer.MaxSeqLen < 2 {
		return fmt.Errorf("tokenizer.max_seq_len must be at least 2, got %d", c.Tokenizer.MaxSeqLen)
	}
	if c.Runtime.PoolSize < 1 {
		return fmt.Errorf("runtime.pool_size must be positive, got %d", c.Runtime.PoolSize)
	}
	if c.Classify.Concurrency < 1 {
		return fmt.Errorf("classify.concurrency must be positive, got %d", c.Classify.Concurrency)
	}
	return nil
}

func NormalizeBackend(raw string) (smsbert.Backend, error) {
	backend := smsbert.Backend(strings.ToLower(strings.TrimSpace(raw)))
	switch backend {
	case "":
		return smsbert.BackendCGO, nil
	case smsbert.BackendCGO, smsbert.BackendPurego:
		return backend, nil
	default:
		return "", fmt.Errorf("invalid backend %q (expected %s|%s)", raw, smsbert.BackendCGO, smsbert.BackendPurego)
	}
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// ClassifierOptions translates the config into classifier options. It loads
// the labels file when one is configured.
func (c Config) ClassifierOptions(logger *slog.Logger) ([]smsbert.Option, error) {
	backend, err := NormalizeBackend(c.Runtime.Backend)
	if err != nil {
		return nil, err
	}

	opts := []smsbert.Option{
		smsbert.WithMaxSeqLen(c.Tokenizer.MaxSeqLen),
		smsbert.WithLowerCase(c.Tokenizer.DoLowerCase),
		smsbert.WithBackend(backend),
		smsbert.WithORTLibrary(c.Runtime.ORTLibraryPath),
		smsbert.WithORTAPIVersion(c.Runtime.ORTAPIVersion),
		smsbert.WithThreads(c.Runtime.IntraOpThreads, c.Runtime.InterOpThreads),
		smsbert.WithPoolSize(c.Runtime.PoolSize),
		smsbert.WithTimeout(c.Runtime.Timeout),
		smsbert.WithConcurrency(c.Classify.Concurrency),
		smsbert.WithLogger(logger),
	}

	if c.Paths.LabelsPath != "" {
		labels, err := smsbert.LoadLabels(c.Paths.LabelsPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, smsbert.WithLabels(labels))
	}

	return opts, nil
}
