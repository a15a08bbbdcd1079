package tokenizer

import "errors"

var (
	// ErrVocabLoad indicates the vocabulary source is missing, unreadable,
	// empty, or laid out so that line numbers and token ids would disagree.
	ErrVocabLoad = errors.New("tokenizer: vocabulary load failed")

	// ErrConfig indicates an encoder configuration the vocabulary cannot
	// satisfy, such as a special token that is not in the vocabulary.
	ErrConfig = errors.New("tokenizer: invalid configuration")
)
