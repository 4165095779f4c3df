package gop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ReferenceBuilder turns a reference sentence into an ordered list of
// WordAnalysis records, ready for the aligner.
type ReferenceBuilder struct {
	phonemizer Phonemizer
	tokenizer  *IPATokenizer
	log        *slog.Logger
}

// NewReferenceBuilder binds a G2P backend and a tokenizer bound to the
// same vocabulary the aligner will score against.
func NewReferenceBuilder(phonemizer Phonemizer, tokenizer *IPATokenizer, log *slog.Logger) *ReferenceBuilder {
	if log == nil {
		log = slog.Default()
	}
	return &ReferenceBuilder{phonemizer: phonemizer, tokenizer: tokenizer, log: log}
}

// Build splits sentence on ASCII whitespace and, for each surface word,
// strips punctuation, phonemizes, and tokenizes into vocabulary phonemes.
func (b *ReferenceBuilder) Build(ctx context.Context, sentence string) ([]WordAnalysis, error) {
	fields := strings.FieldsFunc(sentence, isASCIIWhitespace)
	words := make([]WordAnalysis, 0, len(fields))

	for _, surface := range fields {
		clean := stripASCIIPunctuation(surface)

		rawIPA, err := b.phonemizer.IPA(ctx, clean)
		if err != nil {
			return nil, fmt.Errorf("phonemize %q: %w", surface, err)
		}

		phonemes := b.tokenizer.Tokenize(rawIPA)
		words = append(words, WordAnalysis{
			Word:     surface,
			RawIPA:   rawIPA,
			Phonemes: phonemes,
		})
	}
	return words, nil
}

func stripASCIIPunctuation(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if r < 0x80 && isASCIIPunct(byte(r)) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isASCIIWhitespace matches strings.Fields' own splitting predicate except
// restricted to ASCII, since Unicode spaces like U+00A0 are not word
// separators here.
func isASCIIWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

func isASCIIPunct(c byte) bool {
	switch {
	case c >= '!' && c <= '/':
		return true
	case c >= ':' && c <= '@':
		return true
	case c >= '[' && c <= '`':
		return true
	case c >= '{' && c <= '~':
		return true
	default:
		return false
	}
}
