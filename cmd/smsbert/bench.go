package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	smsbert "github.com/usaproje/go-smsbert"
	"github.com/usaproje/go-smsbert/internal/bench"
)

func newBenchCmd() *cobra.Command {
	var (
		corpus   string
		sweepMin int
		sweepMax int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Evaluate the classifier on a labelled corpus",
		Long: `Evaluate the classifier on a labelled corpus: a JSON lines file of
{"text","label"} objects, a CSV file with label and text columns, or a
directory of such files. With --sweep-max the corpus is evaluated at each
sequence length from --sweep-min doubling up to --sweep-max.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if corpus == "" {
				return errors.New("--corpus is required")
			}

			samples, err := bench.LoadCorpus(corpus)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Loaded %d samples from %s\n\n", len(samples), corpus)

			if sweepMax > 0 {
				build := func(n int) (bench.Classifier, error) {
					return newClassifier(cfg, smsbert.WithMaxSeqLen(n))
				}
				results, err := bench.Sweep(cmd.Context(), samples, build, bench.SweepLengths(sweepMin, sweepMax))
				if err != nil {
					return err
				}
				printSweep(out, results)
				return nil
			}

			clf, err := newClassifier(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = clf.Close() }()

			rep, err := bench.Evaluate(cmd.Context(), clf, samples)
			if err != nil {
				return err
			}
			printReport(out, rep)
			return nil
		},
	}

	cmd.Flags().StringVar(&corpus, "corpus", "", "Labelled corpus file or directory")
	cmd.Flags().IntVar(&sweepMin, "sweep-min", 32, "Smallest sequence length in a sweep")
	cmd.Flags().IntVar(&sweepMax, "sweep-max", 0, "Largest sequence length in a sweep (0 = no sweep)")

	return cmd
}

func printReport(w io.Writer, rep *bench.Report) {
	_, _ = fmt.Fprintf(w, "Accuracy: %.4f  Macro F1: %.4f  Weighted F1: %.4f\n",
		rep.Accuracy, rep.MacroF1, rep.WeightedF1)
	_, _ = fmt.Fprintf(w, "(evaluated: %d, failed: %d, took %s)\n\n",
		rep.Evaluated, rep.Failures, rep.Duration.Round(1e6))

	table := newTable(w, "LABEL", "PRECISION", "RECALL", "F1", "SUPPORT")
	for _, c := range rep.PerClass {
		table.Append([]string{
			c.Label,
			fmt.Sprintf("%.4f", c.Precision),
			fmt.Sprintf("%.4f", c.Recall),
			fmt.Sprintf("%.4f", c.F1),
			strconv.Itoa(c.Support),
		})
	}
	table.Render()

	_, _ = fmt.Fprintln(w, "\nConfusion (rows: true, columns: predicted)")
	header := []string{""}
	for _, c := range rep.PerClass {
		header = append(header, c.Label)
	}
	confusion := newTable(w, header...)
	for i, row := range rep.Confusion {
		line := []string{rep.PerClass[i].Label}
		for _, n := range row {
			line = append(line, strconv.Itoa(n))
		}
		confusion.Append(line)
	}
	confusion.Render()
}

func printSweep(w io.Writer, results []bench.SweepResult) {
	table := newTable(w, "MAX_SEQ_LEN", "ACCURACY", "MACRO_F1", "WEIGHTED_F1", "FAILED", "DURATION")
	for _, r := range results {
		table.Append([]string{
			strconv.Itoa(r.MaxSeqLen),
			fmt.Sprintf("%.4f", r.Report.Accuracy),
			fmt.Sprintf("%.4f", r.Report.MacroF1),
			fmt.Sprintf("%.4f", r.Report.WeightedF1),
			strconv.Itoa(r.Report.Failures),
			r.Report.Duration.Round(1e6).String(),
		})
	}
	table.Render()
	if len(results) > 0 {
		_, _ = fmt.Fprintf(w, "\nBest: max_seq_len=%d (macro F1 %.4f)\n", results[0].MaxSeqLen, results[0].Report.MacroF1)
	}
}
