package gop

import "context"

// AcousticModel abstracts the phoneme-CTC backend that turns a preprocessed
// waveform into raw per-frame logits. The core never sees a model file or
// runtime session directly; it only consumes this interface.
type AcousticModel interface {
	// Infer returns raw logits shaped [T][V] for a mono, 16kHz, normalized
	// waveform. It does not apply softmax; EmissionProvider does that.
	Infer(ctx context.Context, monoNorm16k []float32) (logits [][]float32, err error)
	// VocabSize reports V, used to validate emitted rows.
	VocabSize() int
}
