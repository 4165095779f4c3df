package gop

import (
	"context"
	"fmt"
	"strings"

	"github.com/neurlang/goruut/lib"
	"github.com/neurlang/goruut/models/requests"
)

// goruutPhonemizer delegates to an embedded goruut phonemizer library
// call, for full-coverage multi-language IPA transcription.
type goruutPhonemizer struct {
	p        *lib.Phonemizer
	language string
}

// NewGoruutPhonemizer builds the embedded phonemizer backend for the given
// language (as goruut names it, e.g. "English").
func NewGoruutPhonemizer(language string) Phonemizer {
	if language == "" {
		language = "English"
	}
	return &goruutPhonemizer{p: lib.NewPhonemizer(nil), language: language}
}

func (g *goruutPhonemizer) IPA(_ context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	resp := g.p.Sentence(requests.PhonemizeSentence{
		Language: g.language,
		Sentence: text,
	})
	if len(resp.Words) == 0 {
		return "", fmt.Errorf("%w: goruut returned no words for %q", ErrG2PUnavailable, text)
	}

	var out strings.Builder
	for i, word := range resp.Words {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(word.Phonetic)
	}
	return out.String(), nil
}
