package metrics

import "time"

// Recorder is what the pipeline and trainer report to. It is satisfied by
// *Wrapper and by Nop, so packages do not depend on Prometheus types.
type Recorder interface {
	RowsIngested(split string, n int)
	MalformedCells(column string, n int)
	RowsEncoded(n int)
	EncoderWidthSet(w int)

	TrainingEpochsInc()
	TrainingLossSet(float64)
	ValidationLossSet(float64)

	EvaluationObserve(d time.Duration)
	AUCSet(float64)
	PredictionScoresObserve(probs []float64)

	PredictionsExported(n int)
	RunStarted()
	RunFailed()
}

// Wrapper adapts Metrics to Recorder.
type Wrapper struct {
	m *Metrics
}

// NewWrapper wraps m.
func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) RowsIngested(split string, n int) {
	w.m.RowsIngested.WithLabelValues(split).Add(float64(n))
}

func (w *Wrapper) MalformedCells(column string, n int) {
	w.m.MalformedCells.WithLabelValues(column).Add(float64(n))
}

func (w *Wrapper) RowsEncoded(n int) { w.m.RowsEncoded.Add(float64(n)) }
func (w *Wrapper) EncoderWidthSet(width int) { w.m.EncoderWidth.Set(float64(width)) }

func (w *Wrapper) TrainingEpochsInc() { w.m.TrainingEpochs.Inc() }
func (w *Wrapper) TrainingLossSet(v float64) { w.m.TrainingLoss.Set(v) }
func (w *Wrapper) ValidationLossSet(v float64) { w.m.ValidationLoss.Set(v) }

func (w *Wrapper) EvaluationObserve(d time.Duration) {
	w.m.Evaluations.Inc()
	w.m.EvaluationLatency.Observe(d.Seconds())
}

func (w *Wrapper) AUCSet(v float64) { w.m.LastAUC.Set(v) }

func (w *Wrapper) PredictionScoresObserve(probs []float64) {
	for _, p := range probs {
		w.m.PredictionScores.Observe(p)
	}
}

func (w *Wrapper) PredictionsExported(n int) { w.m.PredictionsExported.Add(float64(n)) }
func (w *Wrapper) RunStarted() { w.m.RunsTotal.Inc() }
func (w *Wrapper) RunFailed() { w.m.RunFailures.Inc() }

// Nop discards everything.
type Nop struct{}

func (Nop) RowsIngested(string, int) {}
func (Nop) MalformedCells(string, int) {}
func (Nop) RowsEncoded(int) {}
func (Nop) EncoderWidthSet(int) {}
func (Nop) TrainingEpochsInc() {}
func (Nop) TrainingLossSet(float64) {}
func (Nop) ValidationLossSet(float64) {}
func (Nop) EvaluationObserve(time.Duration) {}
func (Nop) AUCSet(float64) {}
func (Nop) PredictionScoresObserve([]float64) {}
func (Nop) PredictionsExported(int) {}
func (Nop) RunStarted() {}
func (Nop) RunFailed() {}
