package bench

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	smsbert "github.com/usaproje/go-smsbert"
)

// Classifier is the part of smsbert.Classifier the bench needs.
type Classifier interface {
	ClassifyTexts(ctx context.Context, texts []string) []smsbert.Classified
	Labels() *smsbert.LabelTable
}

// Metrics holds one-vs-rest results for a single class.
type Metrics struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	F1             float64
}

func computeMetrics(tp, fp, fn int) Metrics {
	m := Metrics{
		TruePositives:  tp,
		FalsePositives: fp,
		FalseNegatives: fn,
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// ClassMetrics is Metrics for a named class.
type ClassMetrics struct {
	Label   string
	Index   int
	Support int // samples whose true label is this class
	Metrics
}

// Report summarises an evaluation run.
type Report struct {
	Samples    int
	Evaluated  int // samples that produced a prediction
	Failures   int
	Accuracy   float64
	MacroF1    float64
	WeightedF1 float64
	PerClass   []ClassMetrics
	// Confusion[i][j] counts samples of class PerClass[i] predicted as
	// PerClass[j].
	Confusion [][]int
	Duration  time.Duration
}

// Evaluate classifies every sample and scores the predictions against the
// sample labels. A sample whose label is not in the classifier's label table
// is an error. Samples that fail to classify are counted in Failures and left
// out of every other figure.
func Evaluate(ctx context.Context, c Classifier, samples []Sample) (*Report, error) {
	labels := c.Labels()
	classes := labels.Indexes()
	slot := make(map[int]int, len(classes))
	for i, idx := range classes {
		slot[idx] = i
	}

	truth := make([]int, len(samples))
	texts := make([]string, len(samples))
	for i, s := range samples {
		idx, err := resolveLabel(labels, s.Label)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		truth[i] = slot[idx]
		texts[i] = s.Text
	}

	start := time.Now()
	results := c.ClassifyTexts(ctx, texts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(classes)
	confusion := make([][]int, n)
	for i := range confusion {
		confusion[i] = make([]int, n)
	}

	rep := &Report{Samples: len(samples)}
	correct := 0
	for i, r := range results {
		if r.Err != nil {
			rep.Failures++
			continue
		}
		idx, ok := labels.Index(r.Label)
		if !ok {
			idx = labels.DefaultIndex()
		}
		pred := slot[idx]
		confusion[truth[i]][pred]++
		if pred == truth[i] {
			correct++
		}
		rep.Evaluated++
	}
	rep.Duration = time.Since(start)
	rep.Confusion = confusion

	if rep.Evaluated > 0 {
		rep.Accuracy = float64(correct) / float64(rep.Evaluated)
	}

	var macro, weighted float64
	for i, idx := range classes {
		tp := confusion[i][i]
		var fp, fn int
		for j := range n {
			if j == i {
				continue
			}
			fp += confusion[j][i]
			fn += confusion[i][j]
		}
		cm := ClassMetrics{
			Label:   labels.Lookup(idx).Name,
			Index:   idx,
			Support: tp + fn,
			Metrics: computeMetrics(tp, fp, fn),
		}
		rep.PerClass = append(rep.PerClass, cm)
		macro += cm.F1
		weighted += cm.F1 * float64(cm.Support)
	}
	if n > 0 {
		rep.MacroF1 = macro / float64(n)
	}
	if rep.Evaluated > 0 {
		rep.WeightedF1 = weighted / float64(rep.Evaluated)
	}

	return rep, nil
}

// resolveLabel accepts a label name (case-insensitive) or a class index.
func resolveLabel(labels *smsbert.LabelTable, label string) (int, error) {
	label = strings.TrimSpace(label)
	if idx, ok := labels.Index(label); ok {
		return idx, nil
	}
	if idx, err := strconv.Atoi(label); err == nil && labels.Has(idx) {
		return idx, nil
	}
	return 0, fmt.Errorf("%w: unknown label %q", ErrCorpus, label)
}

var _ Classifier = (*smsbert.Classifier)(nil)
