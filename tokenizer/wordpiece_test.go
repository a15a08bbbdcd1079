package tokenizer

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWordPiece(t *testing.T, tokens ...string) *WordPiece {
	t.Helper()
	v, err := NewVocab(tokens)
	require.NoError(t, err)
	return NewWordPiece(v, "[UNK]")
}

func TestWordPiece_Split(t *testing.T) {
	wp := newTestWordPiece(t,
		"[UNK]", "hello", "hel", "##lo", "##l", "un", "##aff", "##able", "aff",
		"caf", "##é", "##s", "x", "日", "##本",
	)

	tests := []struct {
		name  string
		token string
		want  []string
	}{
		{"empty", "", nil},
		{"verbatim", "hello", []string{"hello"}},
		{"longest first piece", "hellos", []string{"hello", "##s"}},
		{"continuation chain", "unaffable", []string{"un", "##aff", "##able"}},
		{"continuation preferred longest", "hellolo", []string{"hello", "##lo"}},
		{"shorter continuation", "hell", []string{"hel", "##l"}},
		{"unknown word", "world", []string{"[UNK]"}},
		{"dead end collapses whole word", "helx", []string{"[UNK]"}},
		{"continuation cannot start a word", "lo", []string{"[UNK]"}},
		{"multibyte continuation", "café", []string{"caf", "##é"}},
		{"multibyte pieces", "日本", []string{"日", "##本"}},
		{"multibyte dead end", "日語", []string{"[UNK]"}},
		{"single char", "x", []string{"x"}},
		{"repeated single char needs continuation", "xx", []string{"[UNK]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wp.Split(tt.token))
		})
	}
}

func TestWordPiece_BareContinuationPrefixIgnored(t *testing.T) {
	wp := newTestWordPiece(t, "[UNK]", "a", "##")
	assert.Equal(t, []string{"[UNK]"}, wp.Split("ab"))
}

// naiveSplit is the shrinking-window reference segmentation.
func naiveSplit(v *Vocab, unk, token string) []string {
	if token == "" {
		return nil
	}
	if v.Contains(token) {
		return []string{token}
	}
	runes := []rune(token)
	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var cur string
		for start < end {
			sub := string(runes[start:end])
			if start > 0 {
				sub = ContinuationPrefix + sub
			}
			if v.Contains(sub) {
				cur = sub
				break
			}
			end--
		}
		if cur == "" {
			return []string{unk}
		}
		pieces = append(pieces, cur)
		start = end
	}
	return pieces
}

func TestWordPiece_MatchesShrinkingWindow(t *testing.T) {
	alphabet := []string{"a", "b", "c", "é", "日"}
	rng := rand.New(rand.NewSource(7))

	randWord := func(maxLen int) string {
		n := 1 + rng.Intn(maxLen)
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteString(alphabet[rng.Intn(len(alphabet))])
		}
		return sb.String()
	}

	seen := map[string]bool{"[UNK]": true}
	tokens := []string{"[UNK]"}
	for len(tokens) < 60 {
		w := randWord(4)
		if rng.Intn(2) == 0 {
			w = ContinuationPrefix + w
		}
		if !seen[w] {
			seen[w] = true
			tokens = append(tokens, w)
		}
	}
	v, err := NewVocab(tokens)
	require.NoError(t, err)
	wp := NewWordPiece(v, "[UNK]")

	for i := 0; i < 2000; i++ {
		word := randWord(8)
		require.True(t, utf8.ValidString(word))
		assert.Equal(t, naiveSplit(v, "[UNK]", word), wp.Split(word), "word %q", word)
	}
}
