// Package metrics provides Prometheus metrics for the churn pipeline.
// It covers ingestion, encoding, training, evaluation and export, and is
// exposed through the dashboard's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors of the pipeline.
type Metrics struct {
	// Ingestion and encoding
	RowsIngested   *prometheus.CounterVec // rows read, by split
	MalformedCells *prometheus.CounterVec // non-numeric cells in numeric columns, by column
	RowsEncoded    prometheus.Counter
	EncoderWidth   prometheus.Gauge

	// Training
	TrainingEpochs prometheus.Counter
	TrainingLoss   prometheus.Gauge
	ValidationLoss prometheus.Gauge

	// Evaluation
	Evaluations       prometheus.Counter
	EvaluationLatency prometheus.Histogram
	LastAUC           prometheus.Gauge
	PredictionScores  prometheus.Histogram

	// Export and runs
	PredictionsExported prometheus.Counter
	RunsTotal           prometheus.Counter
	RunFailures         prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics on a custom registry, for tests and for
// processes that run more than one pipeline.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RowsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_rows_ingested_total",
			Help: "Total number of CSV rows ingested",
		}, []string{"split"}),
		MalformedCells: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_malformed_cells_total",
			Help: "Non-numeric cells found in numeric training columns",
		}, []string{"column"}),
		RowsEncoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_rows_encoded_total",
			Help: "Total number of rows turned into feature vectors",
		}),
		EncoderWidth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_encoder_width",
			Help: "Feature vector width of the current encoder",
		}),
		TrainingEpochs: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_training_epochs_total",
			Help: "Total number of training epochs completed",
		}),
		TrainingLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_training_loss",
			Help: "Training loss of the last epoch",
		}),
		ValidationLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_validation_loss",
			Help: "Validation loss of the last epoch",
		}),
		Evaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_evaluations_total",
			Help: "Total number of threshold evaluations",
		}),
		EvaluationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "churn_evaluation_latency_seconds",
			Help:    "Latency of metric and ROC computation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		LastAUC: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_validation_auc",
			Help: "ROC AUC of the last validation evaluation",
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "churn_prediction_scores",
			Help:    "Distribution of churn probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		PredictionsExported: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_predictions_exported_total",
			Help: "Total number of test predictions exported",
		}),
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_runs_total",
			Help: "Total number of pipeline runs started",
		}),
		RunFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_run_failures_total",
			Help: "Total number of pipeline runs that failed",
		}),
	}
}
