package gop

import (
	"context"
	"fmt"
)

// Scorer composes the five leaf components into the public Score
// operation: audio in one path, reference text in the other, aligned by
// GOPAligner.
type Scorer struct {
	audio     *AudioPreprocessor
	emission  *EmissionProvider
	reference *ReferenceBuilder
	aligner   *GOPAligner
}

// NewScorer wires the leaf components together.
func NewScorer(audio *AudioPreprocessor, emission *EmissionProvider, reference *ReferenceBuilder, aligner *GOPAligner) *Scorer {
	return &Scorer{audio: audio, emission: emission, reference: reference, aligner: aligner}
}

// Score runs the full pipeline for one utterance: preprocess audio, infer
// emissions, build the reference, align, and aggregate. audio and text are
// independent until GOPAligner.Score joins them.
func (s *Scorer) Score(ctx context.Context, samples []float32, sampleRate, channels int, sentence string) (*Result, error) {
	prepared, err := s.audio.Prepare(samples, sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("preprocess audio: %w", err)
	}

	emission, err := s.emission.Infer(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("infer emissions: %w", err)
	}

	words, err := s.reference.Build(ctx, sentence)
	if err != nil {
		return nil, fmt.Errorf("build reference: %w", err)
	}

	if ok, err := s.aligner.Score(emission, words); !ok {
		return nil, fmt.Errorf("align: %w", err)
	}

	return &Result{
		Words:        words,
		OverallScore: OverallScore(words),
	}, nil
}

// ScoreWAV decodes a WAV file to float PCM via AudioPreprocessor.PrepareWAV
// and scores it against sentence.
func (s *Scorer) ScoreWAV(ctx context.Context, path, sentence string) (*Result, error) {
	samples, sampleRate, channels, err := s.audio.PrepareWAV(path)
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return s.Score(ctx, samples, sampleRate, channels, sentence)
}
