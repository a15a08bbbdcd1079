package inference

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// testModelPath returns a BERT classifier export to run against, or skips.
func testModelPath(t *testing.T) string {
	t.Helper()
	modelPath := os.Getenv("SMSBERT_TEST_MODEL")
	if modelPath == "" {
		modelPath = "../testdata/model.onnx"
	}
	if _, err := os.Stat(modelPath); err != nil {
		t.Skipf("Skipping: model not available at %s", modelPath)
	}
	return modelPath
}

func testSessionConfig(t *testing.T) SessionConfig {
	return SessionConfig{
		ModelPath:   testModelPath(t),
		LibraryPath: os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"),
	}
}

func sampleInputs() Inputs {
	// [CLS] hello world [SEP] [PAD] [PAD] in the bert-base-uncased vocabulary
	return Inputs{
		InputIDs:      []int64{101, 7592, 2088, 102, 0, 0},
		AttentionMask: []int64{1, 1, 1, 1, 0, 0},
		TokenTypeIDs:  []int64{0, 0, 0, 0, 0, 0},
	}
}

func TestNewSession_FileNotFound(t *testing.T) {
	_, err := NewSession(SessionConfig{ModelPath: "../testdata/nonexistent.onnx"})
	if err == nil {
		t.Error("expected error for non-existent file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got: %v", err)
	}
}

func TestSessionConfig_Defaults(t *testing.T) {
	cfg := SessionConfig{ModelPath: "m.onnx"}.withDefaults()
	if strings.Join(cfg.InputNames, ",") != "input_ids,attention_mask,token_type_ids" {
		t.Errorf("unexpected default inputs %v", cfg.InputNames)
	}
	if cfg.OutputName != "logits" {
		t.Errorf("expected default output logits, got %q", cfg.OutputName)
	}
	if cfg.APIVersion != 23 {
		t.Errorf("expected API version 23, got %d", cfg.APIVersion)
	}

	custom := SessionConfig{InputNames: []string{"ids", "input_mask", "segment_ids"}, OutputName: "output_0"}.withDefaults()
	roles := custom.roles()
	want := []InputRole{RoleInputIDs, RoleAttentionMask, RoleTokenTypeIDs}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("input %q: role %v, want %v", custom.InputNames[i], roles[i], want[i])
		}
	}
	if custom.OutputName != "output_0" {
		t.Errorf("custom output name overwritten: %q", custom.OutputName)
	}
}

func TestRoleOf(t *testing.T) {
	tests := map[string]InputRole{
		"input_ids":      RoleInputIDs,
		"input.1":        RoleInputIDs,
		"attention_mask": RoleAttentionMask,
		"input_mask":     RoleAttentionMask,
		"token_type_ids": RoleTokenTypeIDs,
		"segment_ids":    RoleTokenTypeIDs,
		"Token_Type":     RoleTokenTypeIDs,
	}
	for name, want := range tests {
		if got := RoleOf(name); got != want {
			t.Errorf("RoleOf(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestInputs_Validate(t *testing.T) {
	if err := sampleInputs().Validate(); err != nil {
		t.Errorf("valid inputs rejected: %v", err)
	}
	if err := (Inputs{}).Validate(); err == nil {
		t.Error("expected error for empty inputs")
	}
	bad := sampleInputs()
	bad.TokenTypeIDs = bad.TokenTypeIDs[:2]
	if err := bad.Validate(); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestSession_Infer(t *testing.T) {
	session, err := NewSession(testSessionConfig(t))
	if err != nil {
		if isORTUnavailableError(err) {
			t.Skipf("Skipping: ONNX runtime not available: %v", err)
		}
		t.Fatalf("NewSession failed: %v", err)
	}
	defer func() { _ = session.Close() }()

	logits, err := session.Infer(context.Background(), sampleInputs())
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if len(logits) == 0 {
		t.Error("expected at least one logit")
	}
}

func TestSession_Infer_ContextCancellation(t *testing.T) {
	session, err := NewSession(testSessionConfig(t))
	if err != nil {
		if isORTUnavailableError(err) {
			t.Skipf("Skipping: ONNX runtime not available: %v", err)
		}
		t.Fatalf("NewSession failed: %v", err)
	}
	defer func() { _ = session.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = session.Infer(ctx, sampleInputs())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled error, got: %v", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	_, err = session.Infer(ctx, sampleInputs())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded error, got: %v", err)
	}
}

func TestSession_Close_Idempotent(t *testing.T) {
	session, err := NewSession(testSessionConfig(t))
	if err != nil {
		if isORTUnavailableError(err) {
			t.Skipf("Skipping: ONNX runtime not available: %v", err)
		}
		t.Fatalf("NewSession failed: %v", err)
	}

	if err := session.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	_, err = session.Infer(context.Background(), sampleInputs())
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	if err := Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := Shutdown(); err != nil {
		t.Errorf("second Shutdown failed: %v", err)
	}
}

func TestPuregoSession_FileNotFound(t *testing.T) {
	_, err := NewPuregoSession(SessionConfig{ModelPath: "../testdata/nonexistent.onnx"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got: %v", err)
	}
}

func TestPuregoSession_Infer(t *testing.T) {
	cfg := testSessionConfig(t)
	if cfg.LibraryPath == "" {
		t.Skip("Skipping: ONNXRUNTIME_SHARED_LIBRARY_PATH not set")
	}

	session, err := NewPuregoSession(cfg)
	if err != nil {
		if isORTUnavailableError(err) {
			t.Skipf("Skipping: ONNX runtime not available: %v", err)
		}
		t.Fatalf("NewPuregoSession failed: %v", err)
	}
	defer func() { _ = session.Close() }()

	logits, err := session.Infer(context.Background(), sampleInputs())
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if len(logits) == 0 {
		t.Error("expected at least one logit")
	}

	if err := session.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, err := session.Infer(context.Background(), sampleInputs()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

// isORTUnavailableError checks if the error indicates ONNX runtime is not available.
func isORTUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "onnxruntime") ||
		strings.Contains(errStr, "shared library") ||
		strings.Contains(errStr, "dylib") ||
		strings.Contains(errStr, ".so") ||
		strings.Contains(errStr, ".dll") ||
		strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "cannot open") ||
		strings.Contains(errStr, "initializing ONNX runtime") ||
		strings.Contains(errStr, "ort runtime")
}
