package gop

import (
	"reflect"
	"testing"
)

func vocabOrFail(t *testing.T, raw string) *Vocabulary {
	v, err := NewVocabulary([]byte(raw), 0)
	if err != nil {
		t.Fatalf("unexpected vocab error: %v", err)
	}
	return v
}

func TestTokenizerGreatestMatch(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"e":1,"eɪ":2,"ɪ":3}`)
	tok := NewIPATokenizer(v, nil)

	got := tok.Tokenize("eɪ")
	want := []string{"eɪ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected longer key to win: got %v want %v", got, want)
	}
}

func TestTokenizerStripsStressAndWhitespace(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"h":1,"ɛ":2,"l":3,"oʊ":4}`)
	tok := NewIPATokenizer(v, nil)

	got := tok.Tokenize("ˈhɛ_loʊ")
	want := []string{"h", "ɛ", "l", "oʊ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTokenizerSkipsUnknownCodepoints(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1,"b":2}`)
	tok := NewIPATokenizer(v, nil)

	// "q" is not in vocabulary and should be skipped, leaving a and b.
	got := tok.Tokenize("aqb")
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTokenizerRoundTrip(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"tʃʰ":1,"a":2,"b":3}`)
	tok := NewIPATokenizer(v, nil)

	ts := []string{"tʃʰ", "a", "b", "a"}
	joined := ""
	for _, s := range ts {
		joined += s
	}
	got := tok.Tokenize(joined)
	if !reflect.DeepEqual(got, ts) {
		t.Fatalf("round trip failed: got %v want %v", got, ts)
	}
}

func TestTokenizerEmptyInput(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1}`)
	tok := NewIPATokenizer(v, nil)
	if got := tok.Tokenize(""); len(got) != 0 {
		t.Fatalf("expected no tokens for empty input, got %v", got)
	}
}
