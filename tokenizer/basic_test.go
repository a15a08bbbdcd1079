package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicTokenize(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		lowercase bool
		want      []string
	}{
		{"empty", "", true, nil},
		{"whitespace only", " \t\n ", true, nil},
		{"nul only", "\x00\x00", true, nil},
		{"simple", "hello world", true, []string{"hello", "world"}},
		{"lowercased", "Hello WORLD", true, []string{"hello", "world"}},
		{"case kept", "Hello WORLD", false, []string{"Hello", "WORLD"}},
		{"punctuation split", "Hello, World!", true, []string{"hello", ",", "world", "!"}},
		{"apostrophe", "don't", true, []string{"don", "'", "t"}},
		{"money", "$5.00 off", true, []string{"$", "5", ".", "00", "off"}},
		{"adjacent punctuation", "wait...?!", true, []string{"wait", ".", ".", ".", "?", "!"}},
		{"all ascii punctuation ranges", "a/b:c@d[e`f{g~h", true,
			[]string{"a", "/", "b", ":", "c", "@", "d", "[", "e", "`", "f", "{", "g", "~", "h"}},
		{"digits and letters are word chars", "r2d2 c3po", true, []string{"r2d2", "c3po"}},
		{"nul removed inside word", "he\x00llo", true, []string{"hello"}},
		{"surrounding whitespace", "  \thi\tthere\n", true, []string{"hi", "there"}},
		{"collapsed whitespace", "a \t\r\n  b", true, []string{"a", "b"}},
		{"no-break space separates", "a\u00A0b", true, []string{"a", "b"}},
		{"ideographic space separates", "a\u3000b", true, []string{"a", "b"}},
		{"byte order mark is whitespace", "\uFEFFhi\uFEFFthere", true, []string{"hi", "there"}},
		{"next line is a word char", "a\u0085b", true, []string{"a\u0085b"}},
		{"non-ascii punctuation is a word char", "hi\u3002there", true, []string{"hi\u3002there"}},
		{"unicode lowercase", "\u00C4BC Caf\u00C9", true, []string{"\u00E4bc", "caf\u00E9"}},
		{"accents kept", "na\u00EFve", true, []string{"na\u00EFve"}},
		{"invalid utf8 replaced", "ab\xffcd", true, []string{"ab\uFFFDcd"}},
		{"url", "visit http://x.co/a", true, []string{"visit", "http", ":", "/", "/", "x", ".", "co", "/", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BasicTokenize(tt.text, tt.lowercase)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBasicTokenize_NeverEmitsEmptyTokens(t *testing.T) {
	inputs := []string{
		",,, ,,,",
		" . ",
		"\x00 \x00",
		"a  ,  b",
		"\u2028x\u2029",
	}
	for _, in := range inputs {
		for _, tok := range BasicTokenize(in, true) {
			assert.NotEmpty(t, tok, "input %q", in)
		}
	}
}

func TestIsWhitespace(t *testing.T) {
	for _, r := range []rune{' ', '\t', '\n', '\v', '\f', '\r', '\u00A0', '\u1680', '\u2000', '\u2028', '\u2029', '\u202F', '\u205F', '\u3000', '\uFEFF'} {
		assert.True(t, isWhitespace(r), "%U", r)
	}
	for _, r := range []rune{'a', '0', '_', '\u0085', '\u200B', '\x00'} {
		assert.False(t, isWhitespace(r), "%U", r)
	}
}

func TestIsPunctuation(t *testing.T) {
	for r := rune(0); r < 128; r++ {
		want := (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126)
		assert.Equal(t, want, isPunctuation(r), "%q", r)
	}
	assert.False(t, isPunctuation('\u3002'))
	assert.False(t, isPunctuation('\u00BF'))
}
