package tokenizer

// ContinuationPrefix marks a word piece that does not start its word.
const ContinuationPrefix = "##"

// WordPiece splits word-level tokens into vocabulary sub-words using greedy
// longest-match-first segmentation.
type WordPiece struct {
	vocab *Vocab
	unk   string
}

// NewWordPiece returns a WordPiece splitter that emits unk for words it
// cannot segment.
func NewWordPiece(vocab *Vocab, unk string) *WordPiece {
	return &WordPiece{vocab: vocab, unk: unk}
}

// Split segments token. A token found verbatim in the vocabulary is
// returned unchanged. Otherwise the longest vocabulary prefix is taken
// repeatedly, with pieces after the first looked up as "##"+piece. If some
// remainder has no matching prefix the whole token collapses to the single
// unknown marker; partial segmentations are never returned.
//
// Matching works on whole code points: vocabulary tokens are valid UTF-8, so
// a token that is a byte prefix of the remainder always ends on a rune
// boundary.
func (w *WordPiece) Split(token string) []string {
	if token == "" {
		return nil
	}
	if w.vocab.Contains(token) {
		return []string{token}
	}

	var pieces []string
	rest := token
	for first := true; rest != ""; first = false {
		key := rest
		if !first {
			key = ContinuationPrefix + rest
		}

		match, ok := w.vocab.longestPrefix(key)
		consumed := len(match)
		if !first {
			consumed -= len(ContinuationPrefix)
		}
		if !ok || consumed <= 0 {
			return []string{w.unk}
		}

		pieces = append(pieces, match)
		rest = rest[consumed:]
	}
	return pieces
}
