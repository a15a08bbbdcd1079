package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/armon/go-radix"
)

// maxVocabLine bounds a single vocabulary line. BERT vocabularies hold
// short tokens, so this only guards against feeding a binary file.
const maxVocabLine = 1 << 20

// Vocab is an immutable token <-> id mapping where a token's id is its
// zero-based position in the source file. It is safe for concurrent use.
type Vocab struct {
	tokens []string
	ids    map[string]int
	prefix *radix.Tree // token -> id, for longest-prefix queries
}

// LoadVocab reads a vocab.txt style file: one token per line, UTF-8.
func LoadVocab(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVocabLoad, err)
	}
	defer func() { _ = f.Close() }()

	v, err := ReadVocab(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ReadVocab reads a vocabulary from r.
//
// Line n (zero-based) becomes token id n. Blank lines at the end of the
// input are ignored because they cannot move any id. A blank line followed
// by another token is an error: dropping it would shift every later id
// away from the ids the model was trained with, and keeping it would create
// an empty token.
func ReadVocab(r io.Reader) (*Vocab, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxVocabLine)

	var (
		tokens  []string
		lineNo  int
		blankAt int
	)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			if blankAt == 0 {
				blankAt = lineNo
			}
			continue
		}
		if blankAt != 0 {
			return nil, fmt.Errorf("%w: blank line %d precedes token %q on line %d",
				ErrVocabLoad, blankAt, line, lineNo)
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading line %d: %w", ErrVocabLoad, lineNo+1, err)
	}

	return NewVocab(tokens)
}

// NewVocab builds a vocabulary whose ids are the indexes of tokens. Invalid
// UTF-8 sequences in a token are replaced with U+FFFD.
func NewVocab(tokens []string) (*Vocab, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: vocabulary is empty", ErrVocabLoad)
	}

	v := &Vocab{
		tokens: make([]string, len(tokens)),
		ids:    make(map[string]int, len(tokens)),
		prefix: radix.New(),
	}
	for id, tok := range tokens {
		tok = strings.ToValidUTF8(tok, string(replacementChar))
		if tok == "" {
			return nil, fmt.Errorf("%w: empty token at id %d", ErrVocabLoad, id)
		}
		if prev, dup := v.ids[tok]; dup {
			return nil, fmt.Errorf("%w: token %q appears at ids %d and %d", ErrVocabLoad, tok, prev, id)
		}
		v.tokens[id] = tok
		v.ids[tok] = id
		v.prefix.Insert(tok, id)
	}
	return v, nil
}

// ID returns the id of token.
func (v *Vocab) ID(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Contains reports whether token is in the vocabulary.
func (v *Vocab) Contains(token string) bool {
	_, ok := v.ids[token]
	return ok
}

// Token returns the token with the given id.
func (v *Vocab) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Size returns the number of tokens.
func (v *Vocab) Size() int {
	return len(v.tokens)
}

// longestPrefix returns the longest vocabulary token that is a prefix of s.
func (v *Vocab) longestPrefix(s string) (string, bool) {
	match, _, ok := v.prefix.LongestPrefix(s)
	return match, ok
}
