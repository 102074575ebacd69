// Package pipeline runs one churn experiment end to end: load the train and
// test files, fit the encoder on the training file, train on an ordered
// 80/20 split, evaluate the held-out rows, export test predictions and
// persist the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"churnlab/internal/dataset"
	"churnlab/internal/eval"
	"churnlab/internal/export"
	"churnlab/internal/features"
	"churnlab/internal/metrics"
	"churnlab/internal/ml"
	"churnlab/internal/report"
	"churnlab/internal/storage"
)

// DefaultTrainRatio is the share of the training file used for fitting the
// model; the rest is held out for validation.
const DefaultTrainRatio = 0.8

// Options configure one run.
type Options struct {
	TrainSource string
	TestSource  string
	OutputPath  string // export and report directory; empty skips both
	Threshold   float64
	ROCSteps    int
	TrainRatio  float64
	Train       ml.TrainConfig
}

// EpochSink receives training progress, e.g. the dashboard hub.
type EpochSink interface {
	PublishEpoch(ml.EpochLog)
}

// Dependencies are the collaborators of a run. Only Loader is required.
type Dependencies struct {
	Loader   *dataset.Loader
	Store    *storage.Store
	Recorder metrics.Recorder
	Sink     EpochSink
}

// Result is the outcome of a successful run.
type Result struct {
	Run         storage.RunRecord
	Encoder     *features.State
	Predictions []export.Prediction
	ExportPath  string
}

// Pipeline wires Options and Dependencies together.
type Pipeline struct {
	opts Options
	deps Dependencies
}

// New creates a pipeline.
func New(opts Options, deps Dependencies) *Pipeline {
	if deps.Recorder == nil {
		deps.Recorder = metrics.Nop{}
	}
	if opts.ROCSteps <= 0 {
		opts.ROCSteps = eval.DefaultROCSteps
	}
	if opts.TrainRatio == 0 {
		opts.TrainRatio = DefaultTrainRatio
	}
	return &Pipeline{opts: opts, deps: deps}
}

// Run executes the experiment.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	rec := p.deps.Recorder
	rec.RunStarted()

	res, err := p.run(ctx)
	if err != nil {
		rec.RunFailed()
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	if p.deps.Loader == nil {
		return nil, errors.New("pipeline: no loader configured")
	}
	rec := p.deps.Recorder
	schema := p.deps.Loader.Schema
	runID := uuid.NewString()
	logger := log.With().Str("run", runID).Logger()

	train, test, err := p.deps.Loader.LoadPair(ctx, p.opts.TrainSource, p.opts.TestSource)
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}
	rec.RowsIngested("train", len(train))
	rec.RowsIngested("test", len(test))
	logger.Info().Int("train_rows", len(train)).Int("test_rows", len(test)).Msg("Data loaded")

	enc, err := features.Fit(train, features.ColumnsFor(schema))
	if err != nil {
		return nil, fmt.Errorf("fit encoder: %w", err)
	}
	for col, n := range enc.Malformed {
		rec.MalformedCells(col, n)
		logger.Warn().Str("column", col).Int("cells", n).Msg("Non-numeric cells imputed with the median")
	}
	rec.EncoderWidthSet(enc.Width())

	x, err := enc.TransformAll(train)
	if err != nil {
		return nil, fmt.Errorf("encode train: %w", err)
	}
	xTest, err := enc.TransformAll(test)
	if err != nil {
		return nil, fmt.Errorf("encode test: %w", err)
	}
	rec.RowsEncoded(len(x) + len(xTest))

	y := schema.Labels(train)
	xTrain, xVal, yTrain, yVal := dataset.SplitByOrder(x, y, p.opts.TrainRatio)
	if len(xTrain) == 0 || len(xVal) == 0 {
		return nil, fmt.Errorf("pipeline: %d training rows cannot be split at ratio %.2f", len(x), p.opts.TrainRatio)
	}

	trainer := ml.NewTrainer(p.opts.Train, rec)
	model, history, err := trainer.Train(ctx, xTrain, yTrain, xVal, yVal, p.publish)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	start := time.Now()
	valProbs, err := model.PredictProba(xVal)
	if err != nil {
		return nil, fmt.Errorf("predict validation: %w", err)
	}
	validation, err := eval.NewPredictionSet(valProbs, yVal)
	if err != nil {
		return nil, fmt.Errorf("validation set: %w", err)
	}
	m, err := validation.MetricsAt(p.opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	roc, err := validation.ROC(p.opts.ROCSteps)
	if err != nil {
		return nil, fmt.Errorf("roc: %w", err)
	}
	rec.EvaluationObserve(time.Since(start))
	rec.AUCSet(roc.AUC)
	rec.PredictionScoresObserve(valProbs)

	testProbs, err := model.PredictProba(xTest)
	if err != nil {
		return nil, fmt.Errorf("predict test: %w", err)
	}
	preds, err := export.Predictions(schema.IDs(test), testProbs, p.opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	run := storage.RunRecord{
		ID:           runID,
		CreatedAt:    time.Now(),
		TrainSource:  p.opts.TrainSource,
		TestSource:   p.opts.TestSource,
		TrainRows:    len(xTrain),
		ValRows:      len(xVal),
		TestRows:     len(xTest),
		EncoderWidth: enc.Width(),
		Threshold:    p.opts.Threshold,
		Metrics:      m,
		ROC:          roc,
		History:      history,
		Model:        *model,
		Validation:   validation,
	}
	res := &Result{Run: run, Encoder: enc, Predictions: preds}

	if p.opts.OutputPath != "" {
		path, err := export.WriteFile(filepath.Join(p.opts.OutputPath, export.DefaultFileName), preds)
		if err != nil {
			return nil, fmt.Errorf("write predictions: %w", err)
		}
		rec.PredictionsExported(len(preds))
		res.ExportPath = path

		if err := report.NewReporter(run, p.opts.OutputPath).GenerateReport(); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
	}

	if s := p.deps.Store; s != nil {
		if err := s.SaveEncoder(runID, enc); err != nil {
			return nil, fmt.Errorf("save encoder: %w", err)
		}
		if err := s.SaveRun(run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		if err := s.SavePredictions(runID, preds); err != nil {
			return nil, fmt.Errorf("save predictions: %w", err)
		}
	}

	logger.Info().
		Float64("auc", roc.AUC).
		Float64("f1", m.F1).
		Float64("threshold", p.opts.Threshold).
		Int("epochs", len(history)).
		Msg("Run finished")
	return res, nil
}

func (p *Pipeline) publish(e ml.EpochLog) {
	if p.deps.Sink != nil {
		p.deps.Sink.PublishEpoch(e)
	}
}

// Reevaluate scores a stored run at a new threshold without retraining.
func Reevaluate(run storage.RunRecord, threshold float64, steps int) (eval.Metrics, eval.ROC, error) {
	m, err := run.Validation.MetricsAt(threshold)
	if err != nil {
		return eval.Metrics{}, eval.ROC{}, err
	}
	roc := run.ROC
	if steps > 0 && steps != len(run.ROC.Points)-1 {
		if roc, err = run.Validation.ROC(steps); err != nil {
			return eval.Metrics{}, eval.ROC{}, err
		}
	}
	return m, roc, nil
}
