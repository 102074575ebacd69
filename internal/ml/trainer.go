package ml

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// TrainConfig controls a training run.
type TrainConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	L2           float64
	Patience     int     // epochs without validation improvement before stopping; 0 disables
	MinDelta     float64 // improvement needed to reset patience
	ClassWeights bool
}

// DefaultTrainConfig mirrors the reference churn setup: 40 epochs, batches of
// 64, Adam at 1e-3, class weights, patience 6.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:       40,
		BatchSize:    64,
		LearningRate: 0.001,
		Patience:     6,
		MinDelta:     1e-4,
		ClassWeights: true,
	}
}

// EpochLog is reported after every epoch.
type EpochLog struct {
	Epoch   int     `json:"epoch"` // 1-based
	Epochs  int     `json:"epochs"`
	Loss    float64 `json:"loss"`
	Acc     float64 `json:"acc"`
	ValLoss float64 `json:"val_loss"`
	ValAcc  float64 `json:"val_acc"`
	Stopped bool    `json:"stopped"` // early stopping triggered on this epoch
}

// EpochFunc receives progress. It runs on the training goroutine.
type EpochFunc func(EpochLog)

// History is the sequence of epoch logs of one run.
type History []EpochLog

// Trainer fits LogisticModels.
type Trainer struct {
	cfg     TrainConfig
	metrics MetricsInterface
}

// NewTrainer creates a trainer. metrics may be nil.
func NewTrainer(cfg TrainConfig, metrics MetricsInterface) *Trainer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.001
	}
	if cfg.MinDelta <= 0 {
		cfg.MinDelta = 1e-4
	}
	return &Trainer{cfg: cfg, metrics: metrics}
}

// ClassWeights returns n/(2*count) for each class, with counts floored at 1.
func ClassWeights(y []float64) [2]float64 {
	n := float64(len(y))
	pos := 0.0
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	neg := n - pos
	return [2]float64{n / (2 * math.Max(neg, 1)), n / (2 * math.Max(pos, 1))}
}

// Train fits a model on (x, y), scoring (valX, valY) after every epoch.
// An empty validation split disables early stopping. Cancelling ctx stops
// training between epochs and returns the model trained so far with ctx.Err().
func (t *Trainer) Train(ctx context.Context, x [][]float64, y []float64, valX [][]float64, valY []float64, onEpoch EpochFunc) (*LogisticModel, History, error) {
	if len(x) == 0 {
		return nil, nil, errors.New("ml: no training rows")
	}
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("ml: %d rows for %d labels", len(x), len(y))
	}
	if len(valX) != len(valY) {
		return nil, nil, fmt.Errorf("ml: %d validation rows for %d labels", len(valX), len(valY))
	}
	dim := len(x[0])
	for i, row := range x {
		if len(row) != dim {
			return nil, nil, fmt.Errorf("%w: row %d has %d features, expected %d", ErrDimension, i, len(row), dim)
		}
	}

	weights := [2]float64{1, 1}
	if t.cfg.ClassWeights {
		weights = ClassWeights(y)
	}

	model := NewLogisticModel(dim)
	opt := newAdam(dim+1, t.cfg.LearningRate)
	grad := make([]float64, dim+1)

	best := math.Inf(1)
	wait := 0
	var history History

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return model, history, err
		}

		for start := 0; start < len(x); start += t.cfg.BatchSize {
			end := min(start+t.cfg.BatchSize, len(x))
			t.batchGradient(model, x[start:end], y[start:end], weights, grad)
			opt.step(model, grad)
		}

		entry := EpochLog{Epoch: epoch, Epochs: t.cfg.Epochs}
		entry.Loss, entry.Acc = evaluate(model, x, y, weights)
		if len(valX) > 0 {
			entry.ValLoss, entry.ValAcc = evaluate(model, valX, valY, [2]float64{1, 1})
			if entry.ValLoss < best-t.cfg.MinDelta {
				best = entry.ValLoss
				wait = 0
			} else {
				wait++
				if t.cfg.Patience > 0 && wait >= t.cfg.Patience {
					entry.Stopped = true
				}
			}
		}

		history = append(history, entry)
		if t.metrics != nil {
			t.metrics.TrainingEpochsInc()
			t.metrics.TrainingLossSet(entry.Loss)
			t.metrics.ValidationLossSet(entry.ValLoss)
		}
		if onEpoch != nil {
			onEpoch(entry)
		}
		log.Debug().
			Int("epoch", epoch).
			Float64("loss", entry.Loss).
			Float64("acc", entry.Acc).
			Float64("val_loss", entry.ValLoss).
			Float64("val_acc", entry.ValAcc).
			Msg("epoch finished")

		if entry.Stopped {
			log.Info().Int("epoch", epoch).Float64("best_val_loss", best).Msg("early stopping")
			break
		}
	}
	return model, history, nil
}

// batchGradient writes the mean weighted BCE gradient of one batch into grad;
// the last slot is the bias.
func (t *Trainer) batchGradient(m *LogisticModel, x [][]float64, y []float64, w [2]float64, grad []float64) {
	for i := range grad {
		grad[i] = 0
	}
	dim := len(m.Weights)
	for i, row := range x {
		cw := w[classOf(y[i])]
		diff := cw * (m.score(row) - y[i])
		for j, v := range row {
			grad[j] += diff * v
		}
		grad[dim] += diff
	}
	n := float64(len(x))
	for j := 0; j < dim; j++ {
		grad[j] = grad[j]/n + t.cfg.L2*m.Weights[j]
	}
	grad[dim] /= n
}

// evaluate returns the weighted mean loss and the accuracy at 0.5.
func evaluate(m *LogisticModel, x [][]float64, y []float64, w [2]float64) (loss, acc float64) {
	if len(x) == 0 {
		return 0, 0
	}
	var sumW float64
	correct := 0
	for i, row := range x {
		p := m.score(row)
		cw := w[classOf(y[i])]
		loss += cw * bce(p, y[i])
		sumW += cw
		if (p >= 0.5) == (y[i] == 1) {
			correct++
		}
	}
	return loss / sumW, float64(correct) / float64(len(x))
}

// adam keeps first and second moment estimates; the last slot is the bias.
type adam struct {
	lr, beta1, beta2, eps float64
	m, v                  []float64
	t                     int
}

func newAdam(n int, lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7, m: make([]float64, n), v: make([]float64, n)}
}

func (a *adam) step(model *LogisticModel, grad []float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	dim := len(model.Weights)
	for i, g := range grad {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g
		delta := a.lr * (a.m[i] / c1) / (math.Sqrt(a.v[i]/c2) + a.eps)
		if i < dim {
			model.Weights[i] -= delta
		} else {
			model.Bias -= delta
		}
	}
}

func classOf(y float64) int {
	if y == 1 {
		return 1
	}
	return 0
}
