package gop

import (
	"log/slog"
)

// GOPAligner performs CTC Viterbi forced alignment of a flattened
// reference phoneme sequence against an emission matrix, then scores and
// classifies each aligned phoneme.
type GOPAligner struct {
	vocab              *Vocabulary
	log                *slog.Logger
	thresholdExcellent float32
	thresholdGood      float32
}

// NewGOPAligner binds a vocabulary and the excellent/good score
// thresholds, which are policy constants exposed as configuration.
func NewGOPAligner(vocab *Vocabulary, thresholdExcellent, thresholdGood float32, log *slog.Logger) *GOPAligner {
	if log == nil {
		log = slog.Default()
	}
	return &GOPAligner{
		vocab:              vocab,
		log:                log,
		thresholdExcellent: thresholdExcellent,
		thresholdGood:      thresholdGood,
	}
}

// Score mutates words in place, populating Details and WordScore for each
// entry. It returns false on hard failure: no valid targets, or the
// Viterbi lattice has no finite-score terminal.
func (a *GOPAligner) Score(emission *EmissionMatrix, words []WordAnalysis) (bool, error) {
	flat := a.flattenTargets(words)
	if len(flat) == 0 {
		return false, ErrNoValidTargets
	}

	states, blankID := buildStates(flat, a.vocab.BlankID())
	s := len(states)

	path, ok := viterbi(emission, states, blankID)
	if !ok {
		return false, ErrAlignmentBroken
	}

	a.aggregate(flat, path, emission, s, words)
	return true, nil
}

// flattenTargets walks the word list in order, appending one FlatTarget per
// in-vocabulary phoneme; phonemes absent from the vocabulary are skipped
// with a warning. Each word's Details is cleared.
func (a *GOPAligner) flattenTargets(words []WordAnalysis) []FlatTarget {
	var flat []FlatTarget
	for wi := range words {
		words[wi].Details = nil
		for pi, ph := range words[wi].Phonemes {
			id, ok := a.vocab.TokenID(ph)
			if !ok {
				a.log.Warn("phoneme not in vocabulary", slog.String("phoneme", ph), slog.String("word", words[wi].Word))
				continue
			}
			flat = append(flat, FlatTarget{WordIdx: wi, PhonemeIdx: pi, TokenID: id, Text: ph})
		}
	}
	return flat
}

// buildStates interleaves blanks and targets: [blank, t0, blank, t1, ...,
// blank]. The target at flat index i lives at state index 2i+1.
func buildStates(flat []FlatTarget, blankID int) ([]int, int) {
	s := 2*len(flat) + 1
	states := make([]int, s)
	for i := range states {
		if i%2 == 0 {
			states[i] = blankID
		} else {
			states[i] = flat[(i-1)/2].TokenID
		}
	}
	return states, blankID
}

// viterbi runs the forward pass and backtrack described in spec.md 4.5.3,
// returning the per-frame decoded state path.
func viterbi(emission *EmissionMatrix, states []int, blankID int) ([]int, bool) {
	t := emission.T
	s := len(states)

	dp := make([]float32, t*s)
	back := make([]int, t*s)
	for i := range dp {
		dp[i] = NegInfSentinel
		back[i] = -1
	}

	dp[0] = emission.LogProb(0, states[0])
	if s > 1 {
		dp[1] = emission.LogProb(0, states[1])
	}

	for ti := 1; ti < t; ti++ {
		rowBase := ti * s
		prevBase := (ti - 1) * s
		for si := 0; si < s; si++ {
			e := emission.LogProb(ti, states[si])

			bestScore := float32(NegInfSentinel)
			bestPred := -1

			// stay
			if isFinite(dp[prevBase+si]) {
				bestScore = dp[prevBase+si]
				bestPred = si
			}
			// step
			if si >= 1 {
				cand := dp[prevBase+si-1]
				if isFinite(cand) && cand > bestScore {
					bestScore = cand
					bestPred = si - 1
				}
			}
			// skip-blank
			if si >= 2 && states[si] != blankID && states[si-1] == blankID && states[si-2] != states[si] {
				cand := dp[prevBase+si-2]
				if isFinite(cand) && cand > bestScore {
					bestScore = cand
					bestPred = si - 2
				}
			}

			if bestPred >= 0 {
				dp[rowBase+si] = bestScore + e
				back[rowBase+si] = bestPred
			}
		}
	}

	lastBase := (t - 1) * s
	terminal := s - 1
	if s >= 2 && dp[lastBase+s-2] > dp[lastBase+terminal] {
		terminal = s - 2
	}
	if !isFinite(dp[lastBase+terminal]) {
		return nil, false
	}

	path := make([]int, t)
	cur := terminal
	for ti := t - 1; ti >= 0; ti-- {
		path[ti] = cur
		if ti == 0 {
			break
		}
		cur = back[ti*s+cur]
		if cur < 0 {
			return nil, false
		}
	}
	return path, true
}

func isFinite(v float32) bool {
	return v > NegInfSentinel
}

// aggregate computes, for each flat target, the mean log-probability over
// the frames the decoded path assigns to its state, classifies it, and
// folds the resulting details into each word's WordScore.
func (a *GOPAligner) aggregate(flat []FlatTarget, path []int, emission *EmissionMatrix, _ int, words []WordAnalysis) {
	for i, target := range flat {
		stateIdx := 2*i + 1

		var frames []int
		for t, st := range path {
			if st == stateIdx {
				frames = append(frames, t)
			}
		}

		var detail PhonemeDetail
		detail.IPA = target.Text
		detail.TokenID = target.TokenID

		if len(frames) == 0 {
			detail.Score = MissingScore
			detail.StartFrame = -1
			detail.EndFrame = -1
		} else {
			var sum float64
			for _, t := range frames {
				sum += float64(emission.LogProb(t, target.TokenID))
			}
			detail.Score = float32(sum / float64(len(frames)))
			detail.StartFrame = frames[0]
			detail.EndFrame = frames[len(frames)-1]
		}
		detail.IsGood = detail.Score > a.thresholdGood

		words[target.WordIdx].Details = append(words[target.WordIdx].Details, detail)
	}

	for wi := range words {
		words[wi].WordScore = meanQualifyingScore(words[wi].Details)
	}
}

func meanQualifyingScore(details []PhonemeDetail) float32 {
	var sum float64
	var n int
	for _, d := range details {
		if d.Score > MinValidScore {
			sum += float64(d.Score)
			n++
		}
	}
	if n == 0 {
		return MissingScore
	}
	return float32(sum / float64(n))
}

// Classify buckets a phoneme score into a coaching-facing tier using the
// excellent/good thresholds. It is not part of the core alignment
// contract but is exposed for services layered on top; nothing in this
// repository calls it.
func (a *GOPAligner) Classify(score float32) string {
	switch {
	case score <= MinValidScore:
		return "missing"
	case score > a.thresholdExcellent:
		return "excellent"
	case score > a.thresholdGood:
		return "good"
	default:
		return "poor"
	}
}

// OverallScore is the arithmetic mean of word scores whose value is
// greater than MissingScore; if none, MissingScore.
func OverallScore(words []WordAnalysis) float32 {
	var sum float64
	var n int
	for _, w := range words {
		if w.WordScore > MissingScore {
			sum += float64(w.WordScore)
			n++
		}
	}
	if n == 0 {
		return MissingScore
	}
	return float32(sum / float64(n))
}
