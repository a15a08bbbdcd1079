// Package inference runs BERT sequence classifiers through ONNX Runtime and
// reduces their logits to class probabilities.
package inference

import (
	"context"
	"fmt"
	"strings"
)

// Default tensor names of a Hugging Face BERT classifier export.
const (
	DefaultInputIDsName      = "input_ids"
	DefaultAttentionMaskName = "attention_mask"
	DefaultTokenTypeIDsName  = "token_type_ids"
	DefaultOutputName        = "logits"
)

// DefaultInputNames returns the three standard BERT input names.
func DefaultInputNames() []string {
	return []string{DefaultInputIDsName, DefaultAttentionMaskName, DefaultTokenTypeIDsName}
}

// Inputs holds one encoded sequence. All three slices share the sequence
// length L and are fed to the model as [1, L] int64 tensors.
type Inputs struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// Len returns the sequence length.
func (in Inputs) Len() int {
	return len(in.InputIDs)
}

// Validate checks that the inputs form a [1, L] batch with L > 0.
func (in Inputs) Validate() error {
	n := len(in.InputIDs)
	if n == 0 {
		return fmt.Errorf("empty input_ids")
	}
	if len(in.AttentionMask) != n || len(in.TokenTypeIDs) != n {
		return fmt.Errorf("shape mismatch: input_ids %d, attention_mask %d, token_type_ids %d",
			n, len(in.AttentionMask), len(in.TokenTypeIDs))
	}
	return nil
}

// Engine executes a classifier forward pass and returns the logits of the
// single sequence in the batch.
type Engine interface {
	Infer(ctx context.Context, in Inputs) ([]float32, error)
	Close() error
}

// Factory constructs an Engine.
type Factory func() (Engine, error)

// InputRole identifies which encoded slice feeds a model input.
type InputRole int

const (
	RoleInputIDs InputRole = iota
	RoleAttentionMask
	RoleTokenTypeIDs
)

func (r InputRole) String() string {
	switch r {
	case RoleAttentionMask:
		return "attention_mask"
	case RoleTokenTypeIDs:
		return "token_type_ids"
	default:
		return "input_ids"
	}
}

// RoleOf guesses the role of a model input from its name. Exports name
// these inconsistently ("attention_mask", "input_mask", "segment_ids",
// "token_type_ids"), so matching is by substring.
func RoleOf(name string) InputRole {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "mask"):
		return RoleAttentionMask
	case strings.Contains(n, "type"), strings.Contains(n, "segment"):
		return RoleTokenTypeIDs
	default:
		return RoleInputIDs
	}
}

func (in Inputs) slice(r InputRole) []int64 {
	switch r {
	case RoleAttentionMask:
		return in.AttentionMask
	case RoleTokenTypeIDs:
		return in.TokenTypeIDs
	default:
		return in.InputIDs
	}
}
