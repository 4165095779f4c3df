package gop

import "testing"

func TestVocabularyBasics(t *testing.T) {
	v, err := NewVocabulary([]byte(`{"<blank>":0,"a":1,"b":2}`), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Size() != 3 {
		t.Fatalf("expected size 3, got %d", v.Size())
	}
	if id, ok := v.TokenID("a"); !ok || id != 1 {
		t.Fatalf("expected a=1, got %d ok=%v", id, ok)
	}
	if s, ok := v.TokenStr(2); !ok || s != "b" {
		t.Fatalf("expected 2=b, got %q ok=%v", s, ok)
	}
	if v.BlankID() != 0 {
		t.Fatalf("expected blank id 0")
	}
	if v.Has("q") {
		t.Fatalf("did not expect q in vocabulary")
	}
}

func TestVocabularyNonContiguousIDs(t *testing.T) {
	v, err := NewVocabulary([]byte(`{"<blank>":0,"eɪ":5}`), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Size() != 6 {
		t.Fatalf("expected size 6 (max id + 1), got %d", v.Size())
	}
}

func TestVocabularyParseFailure(t *testing.T) {
	if _, err := NewVocabulary([]byte(`not json`), 0); err == nil {
		t.Fatal("expected parse error")
	}
}
