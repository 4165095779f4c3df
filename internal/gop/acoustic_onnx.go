package gop

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var onnxEnvOnce sync.Once
var onnxEnvErr error

// onnxAcousticModel loads a phoneme-CTC ONNX graph and runs inference
// in-process via ONNX Runtime, one utterance per call, shape [1, N].
type onnxAcousticModel struct {
	session   *ort.DynamicAdvancedSession
	vocabSize int
	mu        sync.Mutex
}

// NewONNXAcousticModel loads the graph at modelPath. sharedLibPath points
// at the ONNX Runtime shared library; vocabSize is the model's known
// output width, used to validate returned logits.
func NewONNXAcousticModel(sharedLibPath, modelPath, inputName, outputName string, vocabSize int) (AcousticModel, error) {
	onnxEnvOnce.Do(func() {
		if sharedLibPath != "" {
			ort.SetSharedLibraryPath(sharedLibPath)
		}
		onnxEnvErr = ort.InitializeEnvironment()
	})
	if onnxEnvErr != nil {
		return nil, fmt.Errorf("%w: initialize onnxruntime: %v", ErrModelNotLoaded, onnxEnvErr)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{inputName}, []string{outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: load onnx graph: %v", ErrModelNotLoaded, err)
	}

	return &onnxAcousticModel{session: session, vocabSize: vocabSize}, nil
}

func (m *onnxAcousticModel) VocabSize() int {
	return m.vocabSize
}

func (m *onnxAcousticModel) Infer(_ context.Context, monoNorm16k []float32) ([][]float32, error) {
	if len(monoNorm16k) == 0 {
		return nil, ErrAudioNotLoaded
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(monoNorm16k))), monoNorm16k)
	if err != nil {
		return nil, fmt.Errorf("%w: build input tensor: %v", ErrInferenceFailed, err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}
	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: unexpected output tensor type", ErrInferenceFailed)
	}
	defer logitsTensor.Destroy()

	shape := logitsTensor.GetShape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("%w: expected [1,T,V] output, got shape %v", ErrInferenceFailed, shape)
	}
	frames := int(shape[1])
	vocab := int(shape[2])
	flat := logitsTensor.GetData()

	logits := make([][]float32, frames)
	for t := 0; t < frames; t++ {
		row := make([]float32, vocab)
		copy(row, flat[t*vocab:(t+1)*vocab])
		logits[t] = row
	}
	return logits, nil
}

func (m *onnxAcousticModel) Close() error {
	if m.session == nil {
		return nil
	}
	return m.session.Destroy()
}
