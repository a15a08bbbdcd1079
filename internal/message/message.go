// Package message normalises loosely shaped SMS payloads into one record
// type before they reach the classifier.
package message

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnknownAddress is used when a payload carries no sender.
const UnknownAddress = "unknown"

// ErrMalformed indicates a payload that is neither a string nor an object.
var ErrMalformed = errors.New("message: malformed payload")

// Message is the canonical message record.
type Message struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read,omitempty"`
	Type      int       `json:"type,omitempty"`
}

// New builds a message from a bare body.
func New(body string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Address:   UnknownAddress,
		Body:      body,
		Timestamp: now,
	}
}

// wire is the object form of a payload. Numeric fields are kept raw because
// device exports encode them as numbers, numeric strings, or booleans.
type wire struct {
	ID        json.RawMessage `json:"id"`
	Address   *string         `json:"address"`
	Body      *string         `json:"body"`
	Timestamp json.RawMessage `json:"timestamp"`
	Date      json.RawMessage `json:"date"`
	Read      json.RawMessage `json:"read"`
	Type      json.RawMessage `json:"type"`
}

// Normalize converts a JSON payload into a Message. A JSON string is taken as
// the body. An object may carry id, address, body, timestamp (or date), read
// and type. Missing or empty fields default to a random id, UnknownAddress,
// an empty body, and now.
func Normalize(raw json.RawMessage, now time.Time) (Message, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return New("", now), nil
	}

	switch raw[0] {
	case '"':
		var body string
		if err := json.Unmarshal(raw, &body); err != nil {
			return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return New(body, now), nil
	case '{':
	default:
		return Message{}, fmt.Errorf("%w: expected string or object, got %.20s", ErrMalformed, raw)
	}

	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	m := New("", now)
	if w.Body != nil {
		m.Body = *w.Body
	}
	if w.Address != nil && *w.Address != "" {
		m.Address = *w.Address
	}

	id, err := scalarString(w.ID)
	if err != nil {
		return Message{}, fmt.Errorf("%w: id: %w", ErrMalformed, err)
	}
	if id != "" {
		m.ID = id
	}

	tsRaw := w.Timestamp
	if len(tsRaw) == 0 {
		tsRaw = w.Date
	}
	ts, err := parseTimestamp(tsRaw)
	if err != nil {
		return Message{}, fmt.Errorf("%w: timestamp: %w", ErrMalformed, err)
	}
	if !ts.IsZero() {
		m.Timestamp = ts
	}

	if m.Read, err = parseBool(w.Read); err != nil {
		return Message{}, fmt.Errorf("%w: read: %w", ErrMalformed, err)
	}
	typ, err := scalarString(w.Type)
	if err != nil {
		return Message{}, fmt.Errorf("%w: type: %w", ErrMalformed, err)
	}
	if typ != "" {
		if m.Type, err = strconv.Atoi(typ); err != nil {
			return Message{}, fmt.Errorf("%w: type: %w", ErrMalformed, err)
		}
	}

	return m, nil
}

// Decode reads a JSON array of payloads or one payload per line (JSON
// lines). Blank lines are skipped.
func Decode(r io.Reader, now time.Time) ([]Message, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		var raws []json.RawMessage
		if err := json.NewDecoder(br).Decode(&raws); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		msgs := make([]Message, 0, len(raws))
		for i, raw := range raws {
			m, err := Normalize(raw, now)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			msgs = append(msgs, m)
		}
		return msgs, nil
	}

	var msgs []Message
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		m, err := Normalize(json.RawMessage(text), now)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return msgs, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

// scalarString returns a JSON string or number as text. Absent and null
// values return "".
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return strings.TrimSpace(s), err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// parseTimestamp accepts epoch milliseconds (as a number or numeric string)
// or an RFC 3339 string. Zero and absent values yield the zero time.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	s, err := scalarString(raw)
	if err != nil || s == "" {
		return time.Time{}, err
	}

	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		if ms == 0 {
			return time.Time{}, nil
		}
		return time.UnixMilli(int64(ms)), nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}
	return t, nil
}

func parseBool(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", "0", `"0"`, `""`:
		return false, nil
	case "true", "1", `"1"`:
		return true, nil
	}
	return false, fmt.Errorf("unrecognised boolean %s", raw)
}
