package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Server owns an ONNX session with preallocated tensors. Run reuses the
// same tensors, so calls are serialised.
type Server struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewServer loads the metadata and the ONNX artifact. libPath may be empty,
// in which case onnxruntime_go falls back to its platform default.
func NewServer(modelPath, metadataPath, libPath string) (*Server, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Predict implements Predictor. The batch must match the artifact's fixed
// batch dimension.
func (s *Server) Predict(batch [][]float32) ([][]float32, error) {
	batchSize := s.Metadata.BatchSize()
	if len(batch) != batchSize {
		return nil, fmt.Errorf("%w: batch of %d, model expects %d", ErrShapeMismatch, len(batch), batchSize)
	}
	inSize, outSize := s.Metadata.InputSize(), s.Metadata.OutputSize()
	for i, item := range batch {
		if len(item) != inSize {
			return nil, fmt.Errorf("%w: item %d has %d values, expected %d", ErrShapeMismatch, i, len(item), inSize)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in := s.inputTensor.GetData()
	for i, item := range batch {
		copy(in[i*inSize:], item)
	}

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := s.outputTensor.GetData()
	scores := make([][]float32, batchSize)
	for i := range scores {
		scores[i] = append([]float32(nil), out[i*outSize:(i+1)*outSize]...)
	}
	return scores, nil
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}
