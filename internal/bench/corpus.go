// Package bench evaluates a classifier against a labelled SMS corpus.
package bench

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrCorpus reports a malformed corpus file.
var ErrCorpus = errors.New("invalid corpus")

// Sample is one labelled message.
type Sample struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// ParseJSONL reads one {"text","label"} object per line. Blank lines are
// skipped.
func ParseJSONL(r io.Reader) ([]Sample, error) {
	var samples []Sample
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var s Sample
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCorpus, line, err)
		}
		if s.Label == "" {
			return nil, fmt.Errorf("%w: line %d: missing label", ErrCorpus, line)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}
	return samples, nil
}

// ParseCSV reads a CSV file whose header names a label column and a text
// column. Column order is free and extra columns are ignored.
func ParseCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", ErrCorpus)
		}
		return nil, fmt.Errorf("%w: %w", ErrCorpus, err)
	}
	labelCol, textCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "label":
			labelCol = i
		case "text", "body", "message":
			textCol = i
		}
	}
	if labelCol < 0 || textCol < 0 {
		return nil, fmt.Errorf("%w: csv header needs label and text columns, got %v", ErrCorpus, header)
	}

	var samples []Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorpus, err)
		}
		line, _ := cr.FieldPos(0)
		if labelCol >= len(rec) || textCol >= len(rec) {
			return nil, fmt.Errorf("%w: line %d: too few columns", ErrCorpus, line)
		}
		label := strings.TrimSpace(rec[labelCol])
		if label == "" {
			return nil, fmt.Errorf("%w: line %d: missing label", ErrCorpus, line)
		}
		samples = append(samples, Sample{Text: rec[textCol], Label: label})
	}
	return samples, nil
}

// LoadFile loads a .csv file, or JSON lines for any other extension.
func LoadFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ParseCSV(f)
	}
	return ParseJSONL(f)
}

// LoadCorpus loads a corpus file, or every .jsonl and .csv file in a
// directory in name order.
func LoadCorpus(path string) ([]Sample, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat corpus: %w", err)
	}
	if !info.IsDir() {
		return LoadFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var samples []Sample
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jsonl", ".csv":
		default:
			continue
		}

		s, err := LoadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", entry.Name(), err)
		}
		samples = append(samples, s...)
	}
	return samples, nil
}
