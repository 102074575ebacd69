package dataset

import "math"

// SplitIndex returns the cut point for an ordered train/validation split:
// rows [0, cut) train, rows [cut, n) validate. No shuffling is applied.
func SplitIndex(n int, trainRatio float64) int {
	if n <= 0 {
		return 0
	}
	if trainRatio <= 0 || trainRatio >= 1 {
		return n
	}
	return int(math.Floor(float64(n) * trainRatio))
}

// SplitByOrder cuts x and y at SplitIndex.
func SplitByOrder(x [][]float64, y []float64, trainRatio float64) (xTrain, xVal [][]float64, yTrain, yVal []float64) {
	cut := SplitIndex(len(x), trainRatio)
	return x[:cut], x[cut:], y[:cut], y[cut:]
}
