// Package ml provides the churn model used by the pipeline: a class-weighted
// logistic model trained with mini-batch Adam and early stopping on the
// validation loss.
//
// The pipeline depends only on the Predictor interface, so a different model
// can be plugged in without touching encoding or evaluation.
package ml

// Predictor scores encoded feature vectors.
type Predictor interface {
	// PredictProba returns one churn probability in [0,1] per row of x.
	PredictProba(x [][]float64) ([]float64, error)
}

// MetricsInterface defines the training metrics the trainer reports.
type MetricsInterface interface {
	TrainingEpochsInc()
	TrainingLossSet(float64)
	ValidationLossSet(float64)
}
