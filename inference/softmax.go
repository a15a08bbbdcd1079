package inference

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax converts logits to probabilities. The maximum logit is subtracted
// before exponentiating so large magnitudes cannot overflow.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = float64(l)
	}

	maxLogit := floats.Max(probs)
	for i, p := range probs {
		probs[i] = math.Exp(p - maxLogit)
	}
	floats.Scale(1/floats.Sum(probs), probs)

	return probs
}

// Argmax returns the index of the largest value, preferring the lowest index
// on ties, or -1 for an empty slice.
func Argmax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	return floats.MaxIdx(values)
}

func finite(logits []float32) bool {
	for _, l := range logits {
		f := float64(l)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
