package gop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"
)

// execAcousticModel shells out to an external scorer process that reads a
// temporary WAV file and writes a JSON {t, v, logits} payload to stdout,
// for acoustic models without a native Go runtime binding.
type execAcousticModel struct {
	cmd       []string
	vocabSize int
	mu        sync.Mutex
}

type execInferenceResponse struct {
	T      int         `json:"t"`
	V      int         `json:"v"`
	Logits [][]float32 `json:"logits"`
}

// NewExecAcousticModel parses command into argv and returns a backend that
// invokes it once per utterance with "--audio <temp.wav>" appended.
func NewExecAcousticModel(command string, vocabSize int) (AcousticModel, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse acoustic command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("acoustic command is empty")
	}
	return &execAcousticModel{cmd: args, vocabSize: vocabSize}, nil
}

func (m *execAcousticModel) VocabSize() int {
	return m.vocabSize
}

func (m *execAcousticModel) Infer(ctx context.Context, monoNorm16k []float32) ([][]float32, error) {
	if len(monoNorm16k) == 0 {
		return nil, ErrAudioNotLoaded
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.CreateTemp("", "gop_acoustic_*.wav")
	if err != nil {
		return nil, fmt.Errorf("%w: temp file: %v", ErrInferenceFailed, err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writeFloatWAV(file, monoNorm16k, TargetSampleRate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}

	base := m.cmd[0]
	args := append(append([]string{}, m.cmd[1:]...), "--audio", file.Name())
	command := exec.CommandContext(ctx, base, args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("%w: acoustic command failed: %v: %s", ErrInferenceFailed, err, stderr.String())
	}

	var resp execInferenceResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%w: decode acoustic response: %v", ErrInferenceFailed, err)
	}
	if len(resp.Logits) != resp.T {
		return nil, fmt.Errorf("%w: declared T=%d but got %d rows", ErrInferenceFailed, resp.T, len(resp.Logits))
	}
	return resp.Logits, nil
}

func writeFloatWAV(file *os.File, samples []float32, sampleRate int) error {
	buffer := &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate}}
	ints := make([]int, len(samples))
	for i, s := range samples {
		v := s * 32767
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		ints[i] = int(v)
	}
	buffer.Data = ints

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}
