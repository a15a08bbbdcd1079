package tokenizer

import "fmt"

// Config controls how text is encoded for a BERT classifier.
type Config struct {
	DoLowerCase bool
	MaxSeqLen   int
	CLSToken    string
	SEPToken    string
	PADToken    string
	UNKToken    string
}

// DefaultConfig returns the uncased BERT defaults with a 512 token window.
func DefaultConfig() Config {
	return Config{
		DoLowerCase: true,
		MaxSeqLen:   512,
		CLSToken:    "[CLS]",
		SEPToken:    "[SEP]",
		PADToken:    "[PAD]",
		UNKToken:    "[UNK]",
	}
}

// Encoding is the model-ready form of one text.
//
// Tokens holds the real tokens, [CLS] and [SEP] included. The three id
// slices all have length MaxSeqLen; positions past len(Tokens) hold the pad
// id with a zero attention mask. TokenTypeIDs is all zero because only
// single-segment input is encoded.
type Encoding struct {
	Tokens        []string
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// Len returns the number of non-padding positions.
func (e *Encoding) Len() int {
	return len(e.Tokens)
}

// Encoder turns text into fixed-length BERT inputs. It is immutable and
// safe for concurrent use.
type Encoder struct {
	vocab     *Vocab
	wordpiece *WordPiece
	cfg       Config

	clsID int64
	sepID int64
	padID int64
	unkID int64
}

// NewEncoder validates cfg against vocab. Every special token must be in the
// vocabulary and MaxSeqLen must leave room for [CLS] and [SEP].
func NewEncoder(vocab *Vocab, cfg Config) (*Encoder, error) {
	if vocab == nil {
		return nil, fmt.Errorf("%w: nil vocabulary", ErrConfig)
	}
	if cfg.MaxSeqLen < 2 {
		return nil, fmt.Errorf("%w: max sequence length %d leaves no room for special tokens", ErrConfig, cfg.MaxSeqLen)
	}

	e := &Encoder{
		vocab:     vocab,
		wordpiece: NewWordPiece(vocab, cfg.UNKToken),
		cfg:       cfg,
	}

	lookup := func(name, token string, dst *int64) error {
		id, ok := vocab.ID(token)
		if !ok {
			return fmt.Errorf("%w: %s token %q not in vocabulary", ErrConfig, name, token)
		}
		*dst = int64(id)
		return nil
	}
	if err := lookup("cls", cfg.CLSToken, &e.clsID); err != nil {
		return nil, err
	}
	if err := lookup("sep", cfg.SEPToken, &e.sepID); err != nil {
		return nil, err
	}
	if err := lookup("pad", cfg.PADToken, &e.padID); err != nil {
		return nil, err
	}
	if err := lookup("unk", cfg.UNKToken, &e.unkID); err != nil {
		return nil, err
	}

	return e, nil
}

// Tokenize returns the word pieces of text without special tokens and
// without truncation.
func (e *Encoder) Tokenize(text string) []string {
	return e.pieces(text, -1)
}

// Encode produces the fixed-length encoding of text.
//
// Word pieces beyond MaxSeqLen-2 are dropped from the end, [CLS] and [SEP]
// are added around the rest, and the result is right-padded. Pieces missing
// from the vocabulary map to the unknown id. Empty text yields [CLS] [SEP]
// followed by padding.
func (e *Encoder) Encode(text string) *Encoding {
	maxLen := e.cfg.MaxSeqLen
	pieces := e.pieces(text, maxLen-2)

	tokens := make([]string, 0, len(pieces)+2)
	tokens = append(tokens, e.cfg.CLSToken)
	tokens = append(tokens, pieces...)
	tokens = append(tokens, e.cfg.SEPToken)

	enc := &Encoding{
		Tokens:        tokens,
		InputIDs:      make([]int64, maxLen),
		AttentionMask: make([]int64, maxLen),
		TokenTypeIDs:  make([]int64, maxLen),
	}
	for i, tok := range tokens {
		enc.InputIDs[i] = e.id(tok)
		enc.AttentionMask[i] = 1
	}
	for i := len(tokens); i < maxLen; i++ {
		enc.InputIDs[i] = e.padID
	}

	return enc
}

// pieces runs basic and WordPiece tokenization, stopping once limit pieces
// are collected. A negative limit means no limit.
func (e *Encoder) pieces(text string, limit int) []string {
	var out []string
	for _, word := range BasicTokenize(text, e.cfg.DoLowerCase) {
		if limit >= 0 && len(out) >= limit {
			break
		}
		out = append(out, e.wordpiece.Split(word)...)
	}
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e *Encoder) id(token string) int64 {
	if id, ok := e.vocab.ID(token); ok {
		return int64(id)
	}
	return e.unkID
}

// Vocab returns the encoder's vocabulary.
func (e *Encoder) Vocab() *Vocab {
	return e.vocab
}

// Config returns the encoder's configuration.
func (e *Encoder) Config() Config {
	return e.cfg
}

// PadID returns the padding token id.
func (e *Encoder) PadID() int64 { return e.padID }

// UnkID returns the unknown token id.
func (e *Encoder) UnkID() int64 { return e.unkID }

// CLSID returns the sequence start token id.
func (e *Encoder) CLSID() int64 { return e.clsID }

// SEPID returns the sequence end token id.
func (e *Encoder) SEPID() int64 { return e.sepID }
