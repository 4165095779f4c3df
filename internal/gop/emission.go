package gop

import (
	"context"
	"math"
)

// EmissionProvider owns the vocabulary and a loaded acoustic model. It
// converts raw per-frame logits from the model into a log-probability
// matrix using a numerically stable log-softmax.
type EmissionProvider struct {
	vocab *Vocabulary
	model AcousticModel
}

// NewEmissionProvider binds a vocabulary to a pluggable acoustic model.
func NewEmissionProvider(vocab *Vocabulary, model AcousticModel) *EmissionProvider {
	return &EmissionProvider{vocab: vocab, model: model}
}

// Infer runs the acoustic model and applies log-softmax per frame.
func (p *EmissionProvider) Infer(ctx context.Context, preprocessedAudio []float32) (*EmissionMatrix, error) {
	if p.model == nil {
		return nil, ErrModelNotLoaded
	}
	if len(preprocessedAudio) == 0 {
		return nil, ErrAudioNotLoaded
	}

	logits, err := p.model.Infer(ctx, preprocessedAudio)
	if err != nil {
		return nil, err
	}
	if len(logits) == 0 {
		return nil, ErrInferenceFailed
	}

	v := len(logits[0])
	if want := p.model.VocabSize(); want > 0 && v != want {
		return nil, ErrInferenceFailed
	}
	matrix := newEmissionMatrix(len(logits), v)
	for t, row := range logits {
		if len(row) != v {
			return nil, ErrInferenceFailed
		}
		logSoftmaxInto(row, matrix.LogProbs[t*v:(t+1)*v])
	}
	return matrix, nil
}

// logSoftmaxInto computes log_softmax(x)_i = (x_i - m) - log(sum_j exp(x_j - m))
// with m = max_j x_j, writing the result into dst. This shifted formulation
// avoids overflow on realistic logit magnitudes that a naive log(sum(exp))
// would not survive.
func logSoftmaxInto(x, dst []float32) {
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}

	var sumExp float64
	for _, v := range x {
		sumExp += math.Exp(float64(v - m))
	}
	logSumExp := math.Log(sumExp)

	for i, v := range x {
		dst[i] = v - m - float32(logSumExp)
	}
}

// TokenID looks up the integer ID for a phoneme string.
func (p *EmissionProvider) TokenID(s string) (int, bool) {
	return p.vocab.TokenID(s)
}

// TokenStr looks up the phoneme string for an integer ID.
func (p *EmissionProvider) TokenStr(id int) (string, bool) {
	return p.vocab.TokenStr(id)
}

// VocabSize returns V.
func (p *EmissionProvider) VocabSize() int {
	return p.vocab.Size()
}

// Vocabulary exposes the bound vocabulary for callers that need it
// directly (the tokenizer, the aligner).
func (p *EmissionProvider) Vocabulary() *Vocabulary {
	return p.vocab
}
