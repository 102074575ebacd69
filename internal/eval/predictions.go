package eval

import "fmt"

// PredictionSet pairs model probabilities with the true labels of the same
// rows. Methods never modify the slices.
type PredictionSet struct {
	Probabilities []float64 `json:"probabilities"`
	Labels        []float64 `json:"labels"`
}

// NewPredictionSet checks alignment up front.
func NewPredictionSet(probs, labels []float64) (PredictionSet, error) {
	if err := validate(0, probs, labels); err != nil {
		return PredictionSet{}, err
	}
	for i, p := range probs {
		if !(p >= 0 && p <= 1) {
			return PredictionSet{}, fmt.Errorf("%w: probability %v at row %d outside [0,1]", ErrInvalidInput, p, i)
		}
	}
	return PredictionSet{Probabilities: probs, Labels: labels}, nil
}

// Len is the number of rows.
func (ps PredictionSet) Len() int { return len(ps.Probabilities) }

// ConfusionAt is ConfusionAt over the set.
func (ps PredictionSet) ConfusionAt(threshold float64) (Confusion, error) {
	return ConfusionAt(threshold, ps.Probabilities, ps.Labels)
}

// MetricsAt is MetricsAt over the set.
func (ps PredictionSet) MetricsAt(threshold float64) (Metrics, error) {
	return MetricsAt(threshold, ps.Probabilities, ps.Labels)
}

// ROC is Curve over the set.
func (ps PredictionSet) ROC(steps int) (ROC, error) {
	return Curve(ps.Probabilities, ps.Labels, steps)
}

// PositiveRate is the share of positive labels.
func (ps PredictionSet) PositiveRate() float64 {
	pos := 0
	for _, l := range ps.Labels {
		if l == 1 {
			pos++
		}
	}
	return ratio(pos, len(ps.Labels))
}
