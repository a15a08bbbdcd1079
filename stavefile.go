//go:build stave

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
	"github.com/yaklabco/stave/pkg/target"
)

const binary = "smsbert"

var Default = All

var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"s": Serve,
}

// All lints, tests and builds.
func All() error {
	st.Deps(Tidy)
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.Run("go", "mod", "tidy")
}

// Build compiles the smsbert binary with version information.
func Build() error {
	st.Deps(Tidy)

	rebuild, err := target.Glob("bin/"+binary, "**/*.go", "go.mod", "go.sum")
	if err != nil {
		return fmt.Errorf("checking rebuild: %w", err)
	}
	if !rebuild {
		return nil
	}

	return sh.RunV("go", "build", "-ldflags", buildLdflags(), "-o", "bin/"+binary, "./cmd/smsbert")
}

// buildLdflags stamps main.version, main.commit and main.date.
func buildLdflags() string {
	git := func(args ...string) string {
		out, _ := sh.Output("git", args...)
		return strings.TrimSpace(out)
	}
	return strings.Join([]string{
		"-X main.version=" + git("describe", "--tags", "--always", "--dirty"),
		"-X main.commit=" + git("rev-parse", "--short", "HEAD"),
		"-X main.date=" + time.Now().UTC().Format(time.RFC3339),
	}, " ")
}

// Test runs every package's tests with -race.
func Test() error {
	st.Deps(Tidy)
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// TestShort skips the slow tests.
func TestShort() error {
	st.Deps(Tidy)
	return sh.RunV("go", "test", "-short", "-race", "./...")
}

// TestModel runs the onnxruntime-backed tests against a real model.
// Requires SMSBERT_TEST_MODEL and ONNXRUNTIME_SHARED_LIBRARY_PATH.
func TestModel() error {
	for _, v := range []string{"SMSBERT_TEST_MODEL", "ONNXRUNTIME_SHARED_LIBRARY_PATH"} {
		if os.Getenv(v) == "" {
			return fmt.Errorf("%s is not set", v)
		}
	}
	return sh.RunV("go", "test", "-v", "-run", "Session", "./inference/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes bin/.
func Clean() error {
	return sh.Rm("bin/")
}

// Bench namespace for evaluation targets.
type Bench st.Namespace

// benchArgs returns the model, vocab and corpus arguments, read from
// SMSBERT_MODEL, SMSBERT_VOCAB and SMSBERT_CORPUS.
func benchArgs() []string {
	get := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return []string{
		"--model", get("SMSBERT_MODEL", "models/model.onnx"),
		"--vocab", get("SMSBERT_VOCAB", "models/vocab.txt"),
		"bench",
		"--corpus", get("SMSBERT_CORPUS", "testdata/corpus.jsonl"),
	}
}

// Run evaluates the model on the labelled corpus.
func (Bench) Run() error {
	st.Deps(Build)
	return sh.RunV("./bin/"+binary, benchArgs()...)
}

// Sweep evaluates the corpus at sequence lengths from 32 to 512.
func (Bench) Sweep() error {
	st.Deps(Build)
	args := append(benchArgs(), "--sweep-min", "32", "--sweep-max", "512")
	return sh.RunV("./bin/"+binary, args...)
}

// Serve builds and runs the HTTP server with the local config.
func Serve() error {
	st.Deps(Build)
	return sh.RunV("./bin/"+binary, "serve")
}

// CI runs lint, test and build one after another.
func CI() error {
	st.Deps(Tidy)
	st.SerialDeps(Lint, Test, Build)
	return nil
}

// Check runs lint and the short tests.
func Check() error {
	st.Deps(Lint, TestShort)
	return nil
}
