package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrDimension is returned when a row does not match the model width.
var ErrDimension = errors.New("ml: feature dimension mismatch")

// LogisticModel is a linear model with a sigmoid output.
type LogisticModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// NewLogisticModel creates a zero-initialised model for dim features.
func NewLogisticModel(dim int) *LogisticModel {
	return &LogisticModel{Weights: make([]float64, dim)}
}

// Dim is the expected feature width.
func (m *LogisticModel) Dim() int { return len(m.Weights) }

func (m *LogisticModel) score(x []float64) float64 {
	return sigmoid(floats.Dot(m.Weights, x) + m.Bias)
}

// PredictProba implements Predictor.
func (m *LogisticModel) PredictProba(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(m.Weights) {
			return nil, fmt.Errorf("%w: row %d has %d features, model expects %d", ErrDimension, i, len(row), len(m.Weights))
		}
		out[i] = m.score(row)
	}
	return out, nil
}

// sigmoid is split by sign to stay finite for large |z|.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

const probEpsilon = 1e-7

// bce is the binary cross-entropy of one prediction.
func bce(p, y float64) float64 {
	p = math.Min(math.Max(p, probEpsilon), 1-probEpsilon)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}
