package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	smsbert "github.com/usaproje/go-smsbert"
	"github.com/usaproje/go-smsbert/internal/message"
	"github.com/usaproje/go-smsbert/internal/server"
)

const bodyWidth = 48

func newClassifyCmd() *cobra.Command {
	var (
		fromStdin bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "classify [TEXT...]",
		Short: "Classify messages given as arguments or as JSON on stdin",
		Long: `Classify each argument as one message, or with --stdin read a JSON array
or JSON lines of messages. A message is a bare string or an object with
id, address, body and timestamp fields.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			msgs, err := readMessages(cmd.InOrStdin(), args, fromStdin, time.Now())
			if err != nil {
				return err
			}

			clf, err := newClassifier(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = clf.Close() }()

			results := clf.Classify(cmd.Context(), msgs)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(server.NewClassifyResponse(results)); err != nil {
					return err
				}
			} else {
				printResults(out, results)
			}

			if failed := smsbert.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d messages failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read messages as JSON or JSON lines from stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}

func readMessages(r io.Reader, args []string, fromStdin bool, now time.Time) ([]smsbert.Message, error) {
	if fromStdin {
		if len(args) > 0 {
			return nil, errors.New("--stdin cannot be combined with TEXT arguments")
		}
		msgs, err := message.Decode(r, now)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		if len(msgs) == 0 {
			return nil, errors.New("no messages on stdin")
		}
		return msgs, nil
	}

	if len(args) == 0 {
		return nil, errors.New("no text provided (pass TEXT arguments or --stdin)")
	}
	msgs := make([]smsbert.Message, len(args))
	for i, text := range args {
		msgs[i] = message.New(text, now)
	}
	return msgs, nil
}

func printResults(w io.Writer, results []smsbert.Classified) {
	table := newTable(w, "#", "LABEL", "CONFIDENCE", "ADDRESS", "BODY")
	for i, r := range results {
		label, confidence := r.Label, strconv.FormatFloat(r.Confidence, 'f', 4, 64)
		if r.Err != nil {
			label, confidence = "error", r.Err.Error()
		}
		table.Append([]string{strconv.Itoa(i + 1), label, confidence, r.Address, truncate(r.Body, bodyWidth)})
	}
	table.Render()
}

// truncate shortens s to at most n runes on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}
