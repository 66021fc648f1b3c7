package model

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	defaultInputName  = "input"
	defaultOutputName = "output"
)

// LoadMetadata reads and validates the metadata file that ships next to the
// ONNX artifact.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	metadata.applyDefaults()
	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

func (m *Metadata) applyDefaults() {
	if m.InputName == "" {
		m.InputName = defaultInputName
	}
	if m.OutputName == "" {
		m.OutputName = defaultOutputName
	}
	if m.PixelScale == 0 {
		m.PixelScale = 1
	}
}

// Validate checks that the input shape holds exactly one size x size image
// per batch item and that the output vector has one score per class.
func (m Metadata) Validate() error {
	if m.ImageSize <= 0 {
		return fmt.Errorf("invalid image_size %d", m.ImageSize)
	}
	if len(m.Classes) == 0 {
		return fmt.Errorf("metadata lists no classes")
	}
	if len(m.InputShape) < 2 || len(m.OutputShape) < 2 {
		return fmt.Errorf("%w: input %v, output %v", ErrShapeMismatch, m.InputShape, m.OutputShape)
	}
	if m.InputShape[0] != m.OutputShape[0] || m.InputShape[0] <= 0 {
		return fmt.Errorf("%w: batch dimension %d vs %d", ErrShapeMismatch, m.InputShape[0], m.OutputShape[0])
	}

	if got, want := m.InputSize(), m.ImageSize*m.ImageSize; got != want {
		return fmt.Errorf("%w: input holds %d values per item, image_size implies %d", ErrShapeMismatch, got, want)
	}
	if got := m.OutputSize(); got != len(m.Classes) {
		return fmt.Errorf("%w: output holds %d scores per item, %d classes listed", ErrShapeMismatch, got, len(m.Classes))
	}
	return nil
}

// BatchSize is the leading dimension of the input shape.
func (m Metadata) BatchSize() int {
	if len(m.InputShape) == 0 {
		return 0
	}
	return int(m.InputShape[0])
}

// InputSize is the number of values for one batch item.
func (m Metadata) InputSize() int {
	return perItem(m.InputShape)
}

// OutputSize is the number of scores for one batch item.
func (m Metadata) OutputSize() int {
	return perItem(m.OutputShape)
}

func perItem(shape []int64) int {
	if len(shape) < 2 {
		return 0
	}
	size := 1
	for _, dim := range shape[1:] {
		size *= int(dim)
	}
	return size
}
