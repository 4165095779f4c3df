package gop

import "errors"

// Fatal errors abort scoring for the whole utterance.
var (
	ErrEmptyAudio       = errors.New("gop: audio buffer is empty")
	ErrModelNotLoaded   = errors.New("gop: acoustic model not loaded")
	ErrAudioNotLoaded   = errors.New("gop: audio not preprocessed before inference")
	ErrVocabParseFailed = errors.New("gop: failed to parse vocabulary")
	ErrInferenceFailed  = errors.New("gop: acoustic model inference failed")
	ErrG2PUnavailable   = errors.New("gop: grapheme-to-phoneme backend unavailable")
	ErrNoValidTargets   = errors.New("gop: no reference phoneme is present in the vocabulary")
	ErrAlignmentBroken  = errors.New("gop: viterbi alignment has no finite-score terminal state")
)
