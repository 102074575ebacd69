// Package eval scores binary churn predictions: confusion counts at a
// decision threshold, the ratios derived from them, and the ROC curve with
// its trapezoidal area.
//
// Every ratio with a zero denominator is defined as 0 so that degenerate
// splits (for example a validation split with a single class) still produce
// well-formed numbers.
package eval

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"
)

// DefaultROCSteps is the number of threshold intervals swept by ROCCurve.
const DefaultROCSteps = 100

// ErrInvalidInput is returned for empty or misaligned inputs and thresholds outside [0,1].
var ErrInvalidInput = errors.New("eval: invalid input")

// Confusion holds the four outcome counts at one threshold.
type Confusion struct {
	TP int `json:"tp"`
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

// Total is the number of scored rows.
func (c Confusion) Total() int { return c.TP + c.TN + c.FP + c.FN }

// TPR is the true positive rate (recall).
func (c Confusion) TPR() float64 { return ratio(c.TP, c.TP+c.FN) }

// FPR is the false positive rate.
func (c Confusion) FPR() float64 { return ratio(c.FP, c.FP+c.TN) }

// Metrics are the derived scores at one threshold.
type Metrics struct {
	Threshold float64   `json:"threshold"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	Confusion Confusion `json:"confusion"`
}

// ROCPoint is one (FPR, TPR) pair and the threshold that produced it.
type ROCPoint struct {
	Threshold float64 `json:"threshold"`
	FPR       float64 `json:"fpr"`
	TPR       float64 `json:"tpr"`
}

// ROC is a swept curve and its area.
type ROC struct {
	Points []ROCPoint `json:"points"`
	AUC    float64    `json:"auc"`
}

// Decide is the decision rule shared by evaluation and export.
func Decide(probability, threshold float64) int {
	if probability >= threshold {
		return 1
	}
	return 0
}

func validate(threshold float64, probs, labels []float64) error {
	if len(probs) == 0 {
		return fmt.Errorf("%w: no predictions", ErrInvalidInput)
	}
	if len(probs) != len(labels) {
		return fmt.Errorf("%w: %d probabilities for %d labels", ErrInvalidInput, len(probs), len(labels))
	}
	if !(threshold >= 0 && threshold <= 1) {
		return fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidInput, threshold)
	}
	return nil
}

// ConfusionAt counts outcomes with row i predicted positive iff probs[i] >= threshold.
// A label is positive when it equals 1.
func ConfusionAt(threshold float64, probs, labels []float64) (Confusion, error) {
	if err := validate(threshold, probs, labels); err != nil {
		return Confusion{}, err
	}
	return count(threshold, probs, labels), nil
}

func count(threshold float64, probs, labels []float64) Confusion {
	var c Confusion
	for i, p := range probs {
		pred := Decide(p, threshold) == 1
		actual := labels[i] == 1
		switch {
		case pred && actual:
			c.TP++
		case !pred && !actual:
			c.TN++
		case pred && !actual:
			c.FP++
		default:
			c.FN++
		}
	}
	return c
}

// MetricsAt derives accuracy, precision, recall and F1 from ConfusionAt.
func MetricsAt(threshold float64, probs, labels []float64) (Metrics, error) {
	c, err := ConfusionAt(threshold, probs, labels)
	if err != nil {
		return Metrics{}, err
	}
	return FromConfusion(threshold, c), nil
}

// FromConfusion derives the ratios of c.
func FromConfusion(threshold float64, c Confusion) Metrics {
	precision := ratio(c.TP, c.TP+c.FP)
	recall := ratio(c.TP, c.TP+c.FN)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return Metrics{
		Threshold: threshold,
		Accuracy:  ratio(c.TP+c.TN, c.Total()),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
		Confusion: c,
	}
}

// ROCCurve sweeps steps+1 thresholds i/steps for i in [0, steps] and returns
// the points ordered by decreasing threshold. steps <= 0 uses DefaultROCSteps.
func ROCCurve(probs, labels []float64, steps int) ([]ROCPoint, error) {
	if err := validate(0, probs, labels); err != nil {
		return nil, err
	}
	if steps <= 0 {
		steps = DefaultROCSteps
	}
	points := make([]ROCPoint, 0, steps+1)
	for i := steps; i >= 0; i-- {
		t := float64(i) / float64(steps)
		c := count(t, probs, labels)
		points = append(points, ROCPoint{Threshold: t, FPR: c.FPR(), TPR: c.TPR()})
	}
	return points, nil
}

// AUC integrates points with the composite trapezoidal rule after sorting a
// copy by ascending FPR (ties by ascending TPR). Fewer than two points give 0.
func AUC(points []ROCPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	sorted := append([]ROCPoint(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FPR != sorted[j].FPR {
			return sorted[i].FPR < sorted[j].FPR
		}
		return sorted[i].TPR < sorted[j].TPR
	})
	x := make([]float64, len(sorted))
	y := make([]float64, len(sorted))
	for i, p := range sorted {
		x[i], y[i] = p.FPR, p.TPR
	}
	return integrate.Trapezoidal(x, y)
}

// Curve returns the ROC points and their area in one call.
func Curve(probs, labels []float64, steps int) (ROC, error) {
	pts, err := ROCCurve(probs, labels, steps)
	if err != nil {
		return ROC{}, err
	}
	return ROC{Points: pts, AUC: AUC(pts)}, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
