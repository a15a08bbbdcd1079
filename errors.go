package smsbert

import (
	"errors"

	"github.com/usaproje/go-smsbert/inference"
	"github.com/usaproje/go-smsbert/tokenizer"
)

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrModelNotFound indicates the model file does not exist.
	ErrModelNotFound = errors.New("smsbert: model file not found")

	// ErrClosed is returned by a Classifier after Close.
	ErrClosed = errors.New("smsbert: classifier is closed")

	// ErrLabels indicates a label table that cannot be used.
	ErrLabels = errors.New("smsbert: invalid label table")

	// ErrVocabLoad indicates the vocabulary file is missing or unusable.
	ErrVocabLoad = tokenizer.ErrVocabLoad

	// ErrConfig indicates a special token missing from the vocabulary or an
	// unusable sequence length.
	ErrConfig = tokenizer.ErrConfig

	// ErrInference indicates the engine failed on a message.
	ErrInference = inference.ErrInference
)
