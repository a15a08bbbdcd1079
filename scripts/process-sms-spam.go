//go:build ignore

// Process the UCI SMS Spam Collection (tab separated "ham|spam<TAB>text"
// lines) into the JSON lines corpus format read by `smsbert bench`.
// Usage: go run ./scripts/process-sms-spam.go [-in FILE] [-out DIR] [-spam LABEL]
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/usaproje/go-smsbert/internal/bench"
)

func main() {
	inFile := flag.String("in", "testdata/sms-spam/SMSSpamCollection", "UCI SMS Spam Collection file")
	outDir := flag.String("out", "testdata/sms-spam", "Output directory")
	spamLabel := flag.String("spam", "fraud", "Label assigned to spam messages")
	testEvery := flag.Int("test-every", 5, "Put every Nth message in the test split")
	flag.Parse()

	labels := map[string]string{
		"ham":  "normal",
		"spam": *spamLabel,
	}

	fmt.Printf("Processing %s...\n", *inFile)
	samples, err := processCollection(*inFile, labels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", *inFile, err)
		os.Exit(1)
	}

	var train, test []bench.Sample
	for i, s := range samples {
		if *testEvery > 0 && i%*testEvery == 0 {
			test = append(test, s)
		} else {
			train = append(train, s)
		}
	}

	for name, split := range map[string][]bench.Sample{"train": train, "test": test} {
		outFile := filepath.Join(*outDir, name+".jsonl")
		if err := writeCorpus(outFile, split); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outFile, err)
			os.Exit(1)
		}
		fmt.Printf("  -> %s (%d messages)\n", outFile, len(split))
	}

	counts := make(map[string]int)
	for _, s := range samples {
		counts[s.Label]++
	}
	fmt.Printf("\nDone! %d messages: %v\n", len(samples), counts)
}

func processCollection(path string, labels map[string]string) ([]bench.Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	var samples []bench.Sample
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimRight(scanner.Text(), "\r")
		if raw == "" {
			continue
		}

		tag, text, ok := strings.Cut(raw, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: missing tab", line)
		}
		label, ok := labels[strings.ToLower(tag)]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown tag %q", line, tag)
		}
		samples = append(samples, bench.Sample{Text: text, Label: label})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning file: %w", err)
	}
	return samples, nil
}

func writeCorpus(path string, samples []bench.Sample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	encoder := json.NewEncoder(w)
	for _, s := range samples {
		if err := encoder.Encode(s); err != nil {
			return err
		}
	}
	return w.Flush()
}
