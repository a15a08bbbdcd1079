package bench

import (
	"context"
	"fmt"
	"sort"
)

// Builder creates a classifier that encodes at the given sequence length.
type Builder func(maxSeqLen int) (Classifier, error)

// SweepResult holds the report for one sequence length.
type SweepResult struct {
	MaxSeqLen int
	Report    *Report
}

// SweepLengths returns lengths from min to max doubling each step, always
// ending at max.
func SweepLengths(min, max int) []int {
	if min < 2 {
		min = 2
	}
	var lengths []int
	for n := min; n < max; n *= 2 {
		lengths = append(lengths, n)
	}
	if max >= min {
		lengths = append(lengths, max)
	}
	return lengths
}

// Sweep evaluates the corpus at each sequence length and returns results
// sorted by macro F1, best first. Ties keep the shorter length first.
func Sweep(ctx context.Context, samples []Sample, build Builder, lengths []int) ([]SweepResult, error) {
	var results []SweepResult

	for _, n := range lengths {
		c, err := build(n)
		if err != nil {
			return nil, fmt.Errorf("max_seq_len %d: %w", n, err)
		}
		rep, err := Evaluate(ctx, c, samples)
		if closer, ok := c.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("max_seq_len %d: %w", n, err)
		}

		results = append(results, SweepResult{
			MaxSeqLen: n,
			Report:    rep,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Report.MacroF1 > results[j].Report.MacroF1
	})

	return results, nil
}
