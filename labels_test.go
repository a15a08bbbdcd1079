package smsbert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLabels(t *testing.T) {
	labels := DefaultLabels()

	assert.Equal(t, Label{Name: "fraud", Color: "#e74c3c"}, labels.Lookup(0))
	assert.Equal(t, Label{Name: "promotion", Color: "#f1c40f"}, labels.Lookup(1))
	assert.Equal(t, Label{Name: "normal", Color: "#2ecc71"}, labels.Lookup(2))

	// indexes outside the table resolve to normal
	assert.Equal(t, "normal", labels.Lookup(7).Name)
	assert.Equal(t, "normal", labels.Lookup(-1).Name)
	assert.False(t, labels.Has(7))

	assert.Equal(t, 2, labels.DefaultIndex())
	assert.Equal(t, []int{0, 1, 2}, labels.Indexes())
	assert.Equal(t, 3, labels.Len())

	i, ok := labels.Index("Promotion")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = labels.Index("spam")
	assert.False(t, ok)
}

func TestNewLabelTable_Errors(t *testing.T) {
	_, err := NewLabelTable(nil, 0)
	assert.ErrorIs(t, err, ErrLabels)

	_, err = NewLabelTable(map[int]Label{0: {Name: "a"}}, 1)
	assert.ErrorIs(t, err, ErrLabels)

	_, err = NewLabelTable(map[int]Label{0: {Name: "a"}, 1: {}}, 0)
	assert.ErrorIs(t, err, ErrLabels)

	_, err = NewLabelTable(map[int]Label{0: {Name: "a"}, -1: {Name: "b"}}, 0)
	assert.ErrorIs(t, err, ErrLabels)
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantNames   map[int]string
		wantDefault int
		wantColor0  string
	}{
		{
			name:        "string list",
			data:        `["fraud", "promotion", "normal"]`,
			wantNames:   map[int]string{0: "fraud", 1: "promotion", 2: "normal"},
			wantDefault: 2,
			wantColor0:  "#e74c3c",
		},
		{
			name:        "object list",
			data:        `[{"name":"spam","color":"#000000"},{"name":"ham"}]`,
			wantNames:   map[int]string{0: "spam", 1: "ham"},
			wantDefault: 0,
			wantColor0:  "#000000",
		},
		{
			name:        "explicit default",
			data:        `{"labels":["spam","ham"],"default":1}`,
			wantNames:   map[int]string{0: "spam", 1: "ham"},
			wantDefault: 1,
			wantColor0:  "#e74c3c",
		},
		{
			name:        "normal wins",
			data:        `["Normal","fraud","promotion"]`,
			wantNames:   map[int]string{0: "Normal", 1: "fraud", 2: "promotion"},
			wantDefault: 0,
			wantColor0:  "#e74c3c",
		},
		{
			name:        "hugging face config",
			data:        `{"architectures":["BertForSequenceClassification"],"id2label":{"0":"LABEL_0","1":"LABEL_1","2":"LABEL_2","3":"LABEL_3"},"label2id":{"LABEL_0":0}}`,
			wantNames:   map[int]string{0: "LABEL_0", 1: "LABEL_1", 2: "LABEL_2", 3: "LABEL_3"},
			wantDefault: 2,
			wantColor0:  "#e74c3c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, err := ParseLabels([]byte(tt.data))
			require.NoError(t, err)

			assert.Equal(t, len(tt.wantNames), labels.Len())
			for i, name := range tt.wantNames {
				assert.Equal(t, name, labels.Lookup(i).Name)
				assert.NotEmpty(t, labels.Lookup(i).Color)
			}
			assert.Equal(t, tt.wantDefault, labels.DefaultIndex())
			assert.Equal(t, tt.wantColor0, labels.Lookup(0).Color)
		})
	}
}

func TestParseLabels_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"not json":    "fraud,promotion",
		"no labels":   `{"architectures":[]}`,
		"bad id":      `{"id2label":{"zero":"fraud"}}`,
		"bad element": `[1, 2]`,
		"bad default": `{"labels":["a"],"default":4}`,
		"empty name":  `[""]`,
		"empty array": `[]`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLabels([]byte(data))
			assert.ErrorIs(t, err, ErrLabels)
		})
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, os.WriteFile(path, []byte(`["a","b"]`), 0o600))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, "b", labels.Lookup(1).Name)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
