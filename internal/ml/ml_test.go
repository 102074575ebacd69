package ml

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	epochs  int
	loss    float64
	valLoss float64
}

func (c *countingMetrics) TrainingEpochsInc() { c.epochs++ }
func (c *countingMetrics) TrainingLossSet(v float64) { c.loss = v }
func (c *countingMetrics) ValidationLossSet(v float64) { c.valLoss = v }

func separable(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		if i%2 == 0 {
			x[i] = []float64{1 + float64(i%5)/10, 0.5}
			y[i] = 1
		} else {
			x[i] = []float64{-1 - float64(i%5)/10, 0.5}
		}
	}
	return x, y
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, sigmoid(0))
	assert.InDelta(t, 1, sigmoid(800), 1e-12)
	assert.InDelta(t, 0, sigmoid(-800), 1e-12)
	assert.False(t, math.IsNaN(sigmoid(-800)))
	assert.InDelta(t, 1-sigmoid(2), sigmoid(-2), 1e-12)
}

func TestBCE(t *testing.T) {
	assert.InDelta(t, math.Log(2), bce(0.5, 1), 1e-12)
	assert.InDelta(t, math.Log(2), bce(0.5, 0), 1e-12)
	assert.False(t, math.IsInf(bce(0, 1), 0))
	assert.Less(t, bce(0.9, 1), bce(0.1, 1))
}

func TestPredictProba(t *testing.T) {
	m := &LogisticModel{Weights: []float64{1, -1}, Bias: 0}
	p, err := m.PredictProba([][]float64{{0, 0}, {2, 2}, {10, 0}})
	require.NoError(t, err)
	assert.Equal(t, 0.5, p[0])
	assert.Equal(t, 0.5, p[1])
	assert.Greater(t, p[2], 0.99)

	_, err = m.PredictProba([][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrDimension)

	var pred Predictor = m
	out, err := pred.PredictProba(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestClassWeights(t *testing.T) {
	w := ClassWeights([]float64{0, 0, 0, 1})
	assert.InDelta(t, 4.0/6.0, w[0], 1e-12)
	assert.InDelta(t, 2.0, w[1], 1e-12)

	w = ClassWeights([]float64{0, 0})
	assert.Equal(t, 1.0, w[0])
	assert.Equal(t, 1.0, w[1])
}

func TestTrainLearnsSeparableData(t *testing.T) {
	x, y := separable(40)
	cfg := DefaultTrainConfig()
	cfg.Epochs = 50
	cfg.BatchSize = 8
	cfg.LearningRate = 0.1
	cfg.Patience = 0

	rec := &countingMetrics{}
	var seen []int
	model, history, err := NewTrainer(cfg, rec).Train(context.Background(), x, y, x[:10], y[:10], func(e EpochLog) {
		seen = append(seen, e.Epoch)
	})
	require.NoError(t, err)
	require.Len(t, history, 50)

	assert.Less(t, history[49].Loss, history[0].Loss)
	assert.Equal(t, 1.0, history[49].Acc)
	assert.Equal(t, 1.0, history[49].ValAcc)
	assert.Equal(t, 50, rec.epochs)
	assert.Equal(t, history[49].Loss, rec.loss)
	assert.Equal(t, history[49].ValLoss, rec.valLoss)
	assert.Equal(t, 1, seen[0])
	assert.Equal(t, 50, seen[49])

	probs, err := model.PredictProba(x[:2])
	require.NoError(t, err)
	assert.Greater(t, probs[0], 0.5)
	assert.Less(t, probs[1], 0.5)
}

func TestTrainIsDeterministic(t *testing.T) {
	x, y := separable(20)
	cfg := DefaultTrainConfig()
	cfg.Epochs = 5

	a, _, err := NewTrainer(cfg, nil).Train(context.Background(), x, y, nil, nil, nil)
	require.NoError(t, err)
	b, _, err := NewTrainer(cfg, nil).Train(context.Background(), x, y, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEarlyStopping(t *testing.T) {
	x, y := separable(20)
	// flipped validation labels make the validation loss rise every epoch
	valY := make([]float64, len(y))
	for i, v := range y {
		valY[i] = 1 - v
	}

	cfg := DefaultTrainConfig()
	cfg.Epochs = 30
	cfg.LearningRate = 0.1
	cfg.Patience = 2

	_, history, err := NewTrainer(cfg, nil).Train(context.Background(), x, y, x, valY, nil)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[2].Stopped)
	assert.False(t, history[1].Stopped)
}

func TestNoValidationDisablesEarlyStopping(t *testing.T) {
	x, y := separable(10)
	cfg := DefaultTrainConfig()
	cfg.Epochs = 8
	cfg.Patience = 1

	_, history, err := NewTrainer(cfg, nil).Train(context.Background(), x, y, nil, nil, nil)
	require.NoError(t, err)
	assert.Len(t, history, 8)
	assert.Zero(t, history[7].ValLoss)
}

func TestTrainCancelled(t *testing.T) {
	x, y := separable(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model, history, err := NewTrainer(DefaultTrainConfig(), nil).Train(ctx, x, y, nil, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, model)
	assert.Empty(t, history)
}

func TestTrainInvalidInput(t *testing.T) {
	tr := NewTrainer(DefaultTrainConfig(), nil)
	ctx := context.Background()

	_, _, err := tr.Train(ctx, nil, nil, nil, nil, nil)
	assert.Error(t, err)
	_, _, err = tr.Train(ctx, [][]float64{{1}}, []float64{1, 0}, nil, nil, nil)
	assert.Error(t, err)
	_, _, err = tr.Train(ctx, [][]float64{{1}}, []float64{1}, [][]float64{{1}}, nil, nil)
	assert.Error(t, err)
	_, _, err = tr.Train(ctx, [][]float64{{1}, {1, 2}}, []float64{1, 0}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrDimension)
}

func TestNewTrainerDefaults(t *testing.T) {
	tr := NewTrainer(TrainConfig{Epochs: 1}, nil)
	assert.Equal(t, 64, tr.cfg.BatchSize)
	assert.Equal(t, 0.001, tr.cfg.LearningRate)
	assert.Equal(t, 1e-4, tr.cfg.MinDelta)
}
