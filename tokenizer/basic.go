package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const replacementChar = '\uFFFD'

// BasicTokenize splits text into word-level tokens.
//
// NUL characters are removed, surrounding whitespace is trimmed, and the
// text is optionally lowercased. Whitespace separates tokens and is
// dropped; every ASCII punctuation character becomes a token of its own.
// Non-ASCII punctuation is an ordinary word character.
func BasicTokenize(text string, lowercase bool) []string {
	text = strings.ToValidUTF8(text, string(replacementChar))
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.TrimFunc(text, isWhitespace)
	if text == "" {
		return nil
	}
	if lowercase {
		// Casers carry state, so one is built per call.
		text = cases.Lower(language.Und).String(text)
	}

	var (
		tokens []string
		start  = -1
	)
	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, text[start:end])
			start = -1
		}
	}

	for i, r := range text {
		switch {
		case isWhitespace(r):
			flush(i)
		case isPunctuation(r):
			flush(i)
			tokens = append(tokens, text[i:i+1])
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))

	return tokens
}

// isWhitespace matches the ECMAScript \s class: Unicode White_Space without
// U+0085, plus the byte order mark U+FEFF.
func isWhitespace(r rune) bool {
	switch r {
	case '\u0085':
		return false
	case '\uFEFF':
		return true
	}
	return unicode.IsSpace(r)
}

// isPunctuation reports ASCII punctuation: ! through /, : through @,
// [ through `, and { through ~.
func isPunctuation(r rune) bool {
	return (r >= '!' && r <= '/') ||
		(r >= ':' && r <= '@') ||
		(r >= '[' && r <= '`') ||
		(r >= '{' && r <= '~')
}
