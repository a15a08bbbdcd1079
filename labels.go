package smsbert

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Label is the display form of a class.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// palette colours classes that a label file does not colour. The first three
// match the default table.
var palette = []string{"#e74c3c", "#f1c40f", "#2ecc71", "#3498db", "#9b59b6", "#e67e22", "#1abc9c", "#95a5a6"}

// LabelTable maps class indexes to labels. Indexes absent from the table
// resolve to the default label.
type LabelTable struct {
	labels       map[int]Label
	defaultIndex int
}

// DefaultLabels returns the three-class table: 0 fraud, 1 promotion,
// 2 normal. Unknown indexes resolve to normal.
func DefaultLabels() *LabelTable {
	return &LabelTable{
		labels: map[int]Label{
			0: {Name: "fraud", Color: "#e74c3c"},
			1: {Name: "promotion", Color: "#f1c40f"},
			2: {Name: "normal", Color: "#2ecc71"},
		},
		defaultIndex: 2,
	}
}

// NewLabelTable builds a table. defaultIndex must be one of the labels.
func NewLabelTable(labels map[int]Label, defaultIndex int) (*LabelTable, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no labels", ErrLabels)
	}
	if _, ok := labels[defaultIndex]; !ok {
		return nil, fmt.Errorf("%w: default index %d has no label", ErrLabels, defaultIndex)
	}

	t := &LabelTable{labels: make(map[int]Label, len(labels)), defaultIndex: defaultIndex}
	for i, l := range labels {
		if i < 0 {
			return nil, fmt.Errorf("%w: negative index %d", ErrLabels, i)
		}
		if l.Name == "" {
			return nil, fmt.Errorf("%w: index %d has no name", ErrLabels, i)
		}
		if l.Color == "" {
			l.Color = palette[i%len(palette)]
		}
		t.labels[i] = l
	}
	return t, nil
}

// Lookup returns the label for a class index, or the default label.
func (t *LabelTable) Lookup(index int) Label {
	if l, ok := t.labels[index]; ok {
		return l
	}
	return t.labels[t.defaultIndex]
}

// Has reports whether index has its own label.
func (t *LabelTable) Has(index int) bool {
	_, ok := t.labels[index]
	return ok
}

// DefaultIndex returns the index used for unknown classes.
func (t *LabelTable) DefaultIndex() int {
	return t.defaultIndex
}

// Indexes returns the labelled indexes in ascending order.
func (t *LabelTable) Indexes() []int {
	out := make([]int, 0, len(t.labels))
	for i := range t.labels {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Index returns the index of the label with the given name, ignoring case.
func (t *LabelTable) Index(name string) (int, bool) {
	for _, i := range t.Indexes() {
		if strings.EqualFold(t.labels[i].Name, name) {
			return i, true
		}
	}
	return 0, false
}

// Len returns the number of labelled classes.
func (t *LabelTable) Len() int {
	return len(t.labels)
}

// labelFile covers the accepted label file layouts.
type labelFile struct {
	Labels   []json.RawMessage `json:"labels"`
	Default  *int              `json:"default"`
	ID2Label map[string]string `json:"id2label"`
}

// LoadLabels reads a label table from a JSON file. Accepted layouts:
//
//	["fraud", "promotion", "normal"]
//	[{"name": "fraud", "color": "#e74c3c"}, ...]
//	{"labels": [...], "default": 2}
//	{"id2label": {"0": "fraud", ...}}    (Hugging Face config.json)
//
// Without an explicit default, a label named "normal" is the default, then
// index 2, then the lowest index.
func LoadLabels(path string) (*LabelTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}
	t, err := ParseLabels(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseLabels decodes a label table in any LoadLabels layout.
func ParseLabels(data []byte) (*LabelTable, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty label file", ErrLabels)
	}

	var f labelFile
	if trimmed[0] == '[' {
		if err := json.Unmarshal(data, &f.Labels); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLabels, err)
		}
	} else if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLabels, err)
	}

	labels := make(map[int]Label)
	switch {
	case len(f.Labels) > 0:
		for i, raw := range f.Labels {
			l, err := parseLabel(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: label %d: %w", ErrLabels, i, err)
			}
			labels[i] = l
		}
	case len(f.ID2Label) > 0:
		for k, name := range f.ID2Label {
			i, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("%w: id2label key %q: %w", ErrLabels, k, err)
			}
			labels[i] = Label{Name: name}
		}
	default:
		return nil, fmt.Errorf("%w: no labels found", ErrLabels)
	}

	def := pickDefault(labels)
	if f.Default != nil {
		def = *f.Default
	}
	return NewLabelTable(labels, def)
}

func parseLabel(raw json.RawMessage) (Label, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return Label{Name: name}, nil
	}
	var l Label
	if err := json.Unmarshal(raw, &l); err != nil {
		return Label{}, err
	}
	return l, nil
}

func pickDefault(labels map[int]Label) int {
	lowest := -1
	for i, l := range labels {
		if strings.EqualFold(l.Name, "normal") {
			return i
		}
		if lowest < 0 || i < lowest {
			lowest = i
		}
	}
	if _, ok := labels[2]; ok {
		return 2
	}
	return lowest
}
