package tokenizer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVocab(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadVocab_LineIndexIsID(t *testing.T) {
	path := writeVocab(t, "[PAD]\n[UNK]\n[CLS]\n[SEP]\nhello\n##lo\n")

	v, err := LoadVocab(path)
	require.NoError(t, err)

	assert.Equal(t, 6, v.Size())
	for want, tok := range []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "hello", "##lo"} {
		id, ok := v.ID(tok)
		require.True(t, ok, tok)
		assert.Equal(t, want, id, tok)

		back, ok := v.Token(want)
		require.True(t, ok)
		assert.Equal(t, tok, back)
	}
	assert.True(t, v.Contains("hello"))
	assert.False(t, v.Contains("world"))

	_, ok := v.Token(6)
	assert.False(t, ok)
	_, ok = v.Token(-1)
	assert.False(t, ok)
}

func TestLoadVocab_FileNotFound(t *testing.T) {
	_, err := LoadVocab(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVocabLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadVocab(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{
			name:  "no trailing newline",
			input: "a\nb\nc",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "crlf line endings",
			input: "a\r\nb\r\nc\r\n",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "trailing blank lines ignored",
			input: "a\nb\n\n\n",
			want:  []string{"a", "b"},
		},
		{
			name:  "tokens keep inner spaces",
			input: "a b\n c\n",
			want:  []string{"a b", " c"},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: "vocabulary is empty",
		},
		{
			name:    "only blank lines",
			input:   "\n\n",
			wantErr: "vocabulary is empty",
		},
		{
			name:    "interior blank line",
			input:   "a\n\nb\n",
			wantErr: "blank line 2 precedes token \"b\" on line 3",
		},
		{
			name:    "leading blank line",
			input:   "\na\n",
			wantErr: "blank line 1",
		},
		{
			name:    "duplicate token",
			input:   "a\nb\na\n",
			wantErr: "token \"a\" appears at ids 0 and 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ReadVocab(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrVocabLoad)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, len(tt.want), v.Size())
			for i, tok := range tt.want {
				got, ok := v.Token(i)
				require.True(t, ok)
				assert.Equal(t, tok, got)
			}
		})
	}
}

func TestReadVocab_LineTooLong(t *testing.T) {
	input := "a\n" + strings.Repeat("x", maxVocabLine+1) + "\n"
	_, err := ReadVocab(strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVocabLoad)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestReadVocab_ReadError(t *testing.T) {
	_, err := ReadVocab(failingReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVocabLoad)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestNewVocab_InvalidUTF8(t *testing.T) {
	v, err := NewVocab([]string{"ok", "bad\xff"})
	require.NoError(t, err)

	tok, ok := v.Token(1)
	require.True(t, ok)
	assert.Equal(t, "bad\uFFFD", tok)
	assert.True(t, v.Contains("bad\uFFFD"))
}

func TestVocab_LongestPrefix(t *testing.T) {
	v, err := NewVocab([]string{"a", "ab", "abc", "##b", "x"})
	require.NoError(t, err)

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"abcd", "abc", true},
		{"abx", "ab", true},
		{"a", "a", true},
		{"##bc", "##b", true},
		{"zzz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := v.longestPrefix(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
