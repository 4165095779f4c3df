package gop

import (
	"testing"
)

func buildEmissionFromLogits(logits [][]float32) *EmissionMatrix {
	v := len(logits[0])
	m := newEmissionMatrix(len(logits), v)
	for t, row := range logits {
		logSoftmaxInto(row, m.LogProbs[t*v:(t+1)*v])
	}
	return m
}

// TestAlignerCanonical mirrors spec.md's canonical end-to-end scenario:
// vocab {blank:0, a:1, b:2}, reference [a, b]. The emission strongly
// favors a at frames 0-1 and b at frames 2-4, so the optimal path should
// assign a to [0,1] and b to [2,4] without ever visiting the trailing
// blank.
func TestAlignerCanonical(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1,"b":2}`)
	words := []WordAnalysis{{Word: "ab", Phonemes: []string{"a", "b"}}}

	logits := [][]float32{
		{-5, 5, -5},
		{-5, 5, -5},
		{-5, -5, 5},
		{-5, -5, 5},
		{-5, -5, 5},
	}
	emission := buildEmissionFromLogits(logits)

	aligner := NewGOPAligner(v, ThresholdExcellent, ThresholdGood, nil)
	ok, err := aligner.Score(emission, words)
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}

	details := words[0].Details
	if len(details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(details))
	}
	a, b := details[0], details[1]
	if a.StartFrame != 0 || a.EndFrame != 1 {
		t.Fatalf("expected a at [0,1], got [%d,%d]", a.StartFrame, a.EndFrame)
	}
	if b.StartFrame != 2 || b.EndFrame != 4 {
		t.Fatalf("expected b at [2,4], got [%d,%d]", b.StartFrame, b.EndFrame)
	}
	if a.EndFrame > b.StartFrame {
		t.Fatalf("adjacent targets overlap: a ends %d, b starts %d", a.EndFrame, b.StartFrame)
	}
	if !a.IsGood || !b.IsGood {
		t.Fatalf("expected both phonemes to be classified good, got a=%v b=%v", a.IsGood, b.IsGood)
	}
}

// TestAlignerRepeatedPhoneme mirrors the repeated-phoneme scenario: the
// skip-blank transition between two identical labels is forbidden, so the
// decoded path must visit the middle blank state.
func TestAlignerRepeatedPhoneme(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1}`)
	words := []WordAnalysis{{Word: "aa", Phonemes: []string{"a", "a"}}}

	logits := [][]float32{
		{-5, 5},
		{5, -5},
		{5, -5},
		{-5, 5},
		{-5, 5},
	}
	emission := buildEmissionFromLogits(logits)

	aligner := NewGOPAligner(v, ThresholdExcellent, ThresholdGood, nil)
	ok, err := aligner.Score(emission, words)
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}

	// states = [blank, a, blank, a, blank] -> middle blank is state index 2.
	states, blankID := buildStates(flattenForTest(v, words), v.BlankID())
	path, ok := viterbi(emission, states, blankID)
	if !ok {
		t.Fatalf("expected a valid path")
	}
	found := false
	for _, s := range path {
		if s == 2 {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected path to visit middle blank state 2, got %v", path)
	}
}

func flattenForTest(v *Vocabulary, words []WordAnalysis) []FlatTarget {
	var flat []FlatTarget
	for wi := range words {
		for pi, ph := range words[wi].Phonemes {
			id, ok := v.TokenID(ph)
			if !ok {
				continue
			}
			flat = append(flat, FlatTarget{WordIdx: wi, PhonemeIdx: pi, TokenID: id, Text: ph})
		}
	}
	return flat
}

// TestAlignerUnknownPhonemeDegradesLocally mirrors the unknown-phoneme
// scenario: a phoneme absent from the vocabulary is skipped with a
// warning rather than aborting, and a word made entirely of unknown
// phonemes is reported as missing, not dropped.
func TestAlignerUnknownPhonemeDegradesLocally(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1}`)
	words := []WordAnalysis{
		{Word: "good", Phonemes: []string{"a"}},
		{Word: "bad", Phonemes: []string{"q"}},
	}

	logits := [][]float32{{-5, 5}, {-5, 5}, {5, -5}}
	emission := buildEmissionFromLogits(logits)

	aligner := NewGOPAligner(v, ThresholdExcellent, ThresholdGood, nil)
	ok, err := aligner.Score(emission, words)
	if err != nil || !ok {
		t.Fatalf("expected success despite unknown phoneme, got ok=%v err=%v", ok, err)
	}

	if len(words[1].Details) != 0 {
		t.Fatalf("expected no details for word made entirely of unknown phonemes")
	}
	if words[1].WordScore != MissingScore {
		t.Fatalf("expected missing score for unscorable word, got %v", words[1].WordScore)
	}
}

// TestAlignerNoValidTargets covers the case where every reference
// phoneme is absent from the vocabulary.
func TestAlignerNoValidTargets(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1}`)
	words := []WordAnalysis{{Word: "q", Phonemes: []string{"q"}}}

	aligner := NewGOPAligner(v, ThresholdExcellent, ThresholdGood, nil)
	ok, err := aligner.Score(&EmissionMatrix{T: 1, V: 2, LogProbs: []float32{0, 0}}, words)
	if ok || err != ErrNoValidTargets {
		t.Fatalf("expected ErrNoValidTargets, got ok=%v err=%v", ok, err)
	}
}

// TestAlignerEmptyReferenceFails covers the empty-reference boundary.
func TestAlignerEmptyReferenceFails(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1}`)
	aligner := NewGOPAligner(v, ThresholdExcellent, ThresholdGood, nil)
	ok, err := aligner.Score(&EmissionMatrix{T: 1, V: 2, LogProbs: []float32{0, 0}}, nil)
	if ok || err != ErrNoValidTargets {
		t.Fatalf("expected ErrNoValidTargets, got ok=%v err=%v", ok, err)
	}
}

// TestAggregateDegenerateDuration exercises the zero-duration fallback in
// aggregate directly: a flat target whose state index never appears in
// the decoded path is reported with MissingScore and -1 frame bounds,
// rather than panicking on an empty frame set.
func TestAggregateDegenerateDuration(t *testing.T) {
	v := vocabOrFail(t, `{"<blank>":0,"a":1,"b":2}`)
	words := []WordAnalysis{{Word: "ab", Phonemes: []string{"a", "b"}}}
	aligner := NewGOPAligner(v, ThresholdExcellent, ThresholdGood, nil)

	flat := []FlatTarget{
		{WordIdx: 0, PhonemeIdx: 0, TokenID: 1, Text: "a"},
		{WordIdx: 0, PhonemeIdx: 1, TokenID: 2, Text: "b"},
	}
	// Path never visits state index 3 (b's target state).
	path := []int{0, 1, 1, 1, 4}
	emission := buildEmissionFromLogits([][]float32{
		{0, 0, 0}, {0, 0, 0}, {0, 0, 0}, {0, 0, 0}, {0, 0, 0},
	})

	aligner.aggregate(flat, path, emission, 5, words)

	if len(words[0].Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(words[0].Details))
	}
	b := words[0].Details[1]
	if b.Score != MissingScore || b.StartFrame != -1 || b.EndFrame != -1 {
		t.Fatalf("expected degenerate duration detail, got %+v", b)
	}
}

// TestAlignmentBroken covers the case where both candidate terminal
// states are unreachable.
func TestAlignmentBroken(t *testing.T) {
	states := []int{5, 6} // both ids are out of range for a V=1 emission matrix.
	emission := &EmissionMatrix{T: 1, V: 1, LogProbs: []float32{0}}

	_, ok := viterbi(emission, states, 0)
	if ok {
		t.Fatalf("expected alignment to be broken")
	}
}

func TestOverallScoreAllMissing(t *testing.T) {
	words := []WordAnalysis{{WordScore: MissingScore}, {WordScore: MissingScore}}
	if got := OverallScore(words); got != MissingScore {
		t.Fatalf("expected MissingScore, got %v", got)
	}
}

func TestOverallScoreMixed(t *testing.T) {
	words := []WordAnalysis{{WordScore: -1}, {WordScore: MissingScore}, {WordScore: -3}}
	got := OverallScore(words)
	want := float32(-2)
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
