package model

import (
	"fmt"
)

const answerFormat = "これは %s です"

// Classifier turns a single preprocessed image into a labelled prediction.
type Classifier struct {
	predictor Predictor
	classes   []string
}

func NewClassifier(predictor Predictor, classes []string) *Classifier {
	return &Classifier{
		predictor: predictor,
		classes:   append([]string(nil), classes...),
	}
}

// Classify sends input as a batch of one and picks the highest score.
// Ties resolve to the lowest index.
func (c *Classifier) Classify(input []float32) (*PredictionResponse, error) {
	outputs, err := c.predictor.Predict([][]float32{input})
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 || len(outputs[0]) == 0 {
		return nil, ErrEmptyOutput
	}

	scores := outputs[0]
	if len(scores) != len(c.classes) {
		return nil, fmt.Errorf("%w: %d scores for %d classes", ErrShapeMismatch, len(scores), len(c.classes))
	}

	maxIdx := Argmax(scores)
	predictions := make(map[string]float32, len(scores))
	for i, val := range scores {
		predictions[c.classes[i]] = val
	}

	return &PredictionResponse{
		Class:       c.classes[maxIdx],
		Index:       maxIdx,
		Confidence:  scores[maxIdx],
		Predictions: predictions,
	}, nil
}

// Argmax returns the index of the largest value, or -1 for an empty slice.
func Argmax(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	maxIdx := 0
	for i, val := range values[1:] {
		if val > values[maxIdx] {
			maxIdx = i + 1
		}
	}
	return maxIdx
}

// Answer is the sentence shown to the user for a predicted label.
func Answer(label string) string {
	return fmt.Sprintf(answerFormat, label)
}
