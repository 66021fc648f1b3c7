package model

import "errors"

var (
	ErrShapeMismatch = errors.New("input shape mismatch")
	ErrEmptyOutput   = errors.New("model returned no scores")
)

// Metadata describes the model artifact. PixelScale is the normalisation
// the network was trained with: 1.0 feeds raw 0-255 intensities, 1/255
// feeds values in [0,1].
type Metadata struct {
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	PixelScale  float32  `json:"pixel_scale"`
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

type PredictionResponse struct {
	Class       string             `json:"class"`
	Index       int                `json:"index"`
	Confidence  float32            `json:"confidence"`
	Predictions map[string]float32 `json:"predictions"`
}

// Predictor runs a batch through the network and returns one score vector
// per batch item.
type Predictor interface {
	Predict(batch [][]float32) ([][]float32, error)
}
