package gop

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fixedPhonemizer struct {
	byWord map[string]string
}

func (f *fixedPhonemizer) IPA(_ context.Context, text string) (string, error) {
	ipa, ok := f.byWord[text]
	if !ok {
		return "", errors.New("no mapping for " + text)
	}
	return ipa, nil
}

func TestReferenceBuilderSplitsAndStripsPunctuation(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"h":1,"ɛ":2,"l":3,"oʊ":4,"w":5,"ɜ":6,"d":7}`)
	tok := NewIPATokenizer(v, nil)
	phon := &fixedPhonemizer{byWord: map[string]string{
		"Hello": "hɛloʊ",
		"world": "wɜd",
	}}
	b := NewReferenceBuilder(phon, tok, nil)

	words, err := b.Build(context.Background(), "Hello, world!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].Word != "Hello," {
		t.Fatalf("expected surface form preserved, got %q", words[0].Word)
	}
	wantPhon0 := []string{"h", "ɛ", "l", "oʊ"}
	if !reflect.DeepEqual(words[0].Phonemes, wantPhon0) {
		t.Fatalf("got %v want %v", words[0].Phonemes, wantPhon0)
	}
	wantPhon1 := []string{"w", "ɜ", "d"}
	if !reflect.DeepEqual(words[1].Phonemes, wantPhon1) {
		t.Fatalf("got %v want %v", words[1].Phonemes, wantPhon1)
	}
}

func TestReferenceBuilderEmptySentence(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1}`)
	tok := NewIPATokenizer(v, nil)
	b := NewReferenceBuilder(&fixedPhonemizer{byWord: map[string]string{}}, tok, nil)

	words, err := b.Build(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(words) != 0 {
		t.Fatalf("expected no words, got %d", len(words))
	}
}

func TestReferenceBuilderPropagatesPhonemizerError(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1}`)
	tok := NewIPATokenizer(v, nil)
	b := NewReferenceBuilder(&fixedPhonemizer{byWord: map[string]string{}}, tok, nil)

	if _, err := b.Build(context.Background(), "unknown"); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestStripASCIIPunctuationPreservesIPA(t *testing.T) {
	got := stripASCIIPunctuation("héllo!")
	if got != "héllo" {
		t.Fatalf("expected non-ASCII runes preserved, got %q", got)
	}
}
