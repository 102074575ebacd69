package eda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnlab/internal/dataset"
)

func sampleRows() []dataset.Row {
	return []dataset.Row{
		{"customerID": "a", "Churn": "1", "tenure": "1", "MonthlyCharges": "90", "Partner": "No", "Contract": "Month-to-month"},
		{"customerID": "b", "Churn": "1", "tenure": "2", "MonthlyCharges": "80", "Partner": "No", "Contract": "Month-to-month"},
		{"customerID": "c", "Churn": "1", "tenure": "3", "MonthlyCharges": "85", "Partner": "No", "Contract": "One year"},
		{"customerID": "d", "Churn": "0", "tenure": "40", "MonthlyCharges": "20", "Partner": "Yes", "Contract": "Two year"},
		{"customerID": "e", "Churn": "0", "tenure": "50", "MonthlyCharges": "25", "Partner": "Yes", "Contract": "Two year"},
		{"customerID": "f", "Churn": "0", "tenure": "60", "MonthlyCharges": "30", "Partner": "Yes", "Contract": ""},
	}
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		want float64
	}{
		{"perfect", []float64{1, 2, 3}, []float64{2, 4, 6}, 1},
		{"inverse", []float64{1, 2, 3}, []float64{3, 2, 1}, -1},
		{"constant column", []float64{1, 1, 1}, []float64{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
		{"length mismatch", []float64{1, 2}, []float64{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Pearson(tt.x, tt.y), 1e-9)
		})
	}
}

func TestCorrelationMatrix(t *testing.T) {
	m := Correlation(sampleRows(), []string{"tenure", "Churn", "Partner"})

	require.Len(t, m.Values, 3)
	assert.InDelta(t, 1, m.At("tenure", "tenure"), 1e-9)
	assert.InDelta(t, m.At("tenure", "Churn"), m.At("Churn", "tenure"), 1e-12)
	assert.Less(t, m.At("tenure", "Churn"), -0.8)
	// Partner yes/no is coded 1/0, so it is perfectly anti-correlated with churn here.
	assert.InDelta(t, -1, m.At("Partner", "Churn"), 1e-9)
	assert.Zero(t, m.At("tenure", "missing"))
}

func TestTopBinaryCorrelated(t *testing.T) {
	rows := sampleRows()
	cols := Columns(rows)

	top := TopBinaryCorrelated(rows, cols, "Churn", 5)
	require.Len(t, top, 1)
	assert.Equal(t, "Partner", top[0].Column)
	assert.InDelta(t, 1, top[0].Corr*top[0].Corr, 1e-9)

	// Five pairs is not enough.
	assert.Empty(t, TopBinaryCorrelated(rows[:5], cols, "Churn", 5))
}

func TestDetectTypes(t *testing.T) {
	rows := []dataset.Row{
		{"n": "", "c": "Yes", "s": "Fiber optic", "x": ""},
		{"n": "3.5", "c": "No", "s": "DSL", "x": ""},
		{"t": "this value is definitely longer than thirty characters"},
	}
	got := DetectTypes(rows, []string{"n", "c", "s", "t", "x"})
	assert.Equal(t, []ColumnType{
		{"n", TypeNumber},
		{"c", TypeCategory},
		{"s", TypeString},
		{"t", TypeText},
		{"x", TypeEmpty},
	}, got)
}

func TestMissingRatios(t *testing.T) {
	got := MissingRatios(sampleRows(), []string{"Contract", "tenure", "nope"})
	assert.InDelta(t, 1.0/6, got[0].Ratio, 1e-9)
	assert.Zero(t, got[1].Ratio)
	assert.Equal(t, 1.0, got[2].Ratio)

	assert.Zero(t, MissingRatios(nil, []string{"a"})[0].Ratio)
}

func TestSummarize(t *testing.T) {
	got := Summarize(sampleRows(), []string{"tenure", "Partner"})
	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, "tenure", s.Column)
	assert.Equal(t, 6, s.Count)
	assert.InDelta(t, 26, s.Mean, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 60.0, s.Max)
	assert.Greater(t, s.Std, 0.0)
}

func TestBalance(t *testing.T) {
	b := Balance(sampleRows(), "Churn")
	assert.Equal(t, 3, b.Yes)
	assert.Equal(t, 3, b.No)
	assert.InDelta(t, 0.5, b.Rate, 1e-12)

	assert.Zero(t, Balance(nil, "Churn").Rate)
}

func TestChurnByLevel(t *testing.T) {
	got := ChurnByLevel(sampleRows(), "Contract", "Churn")
	require.Len(t, got, 4)

	assert.Equal(t, "Month-to-month", got[0].Level)
	assert.Equal(t, 100.0, got[0].YesPct)
	assert.Equal(t, "Two year", got[2].Level)
	assert.Equal(t, 0.0, got[2].YesPct)
	assert.Equal(t, 100.0, got[2].NoPct)
	assert.Equal(t, "NA", got[3].Level)
	assert.Equal(t, 1, got[3].Count)
}

func TestChurnByLevelRounding(t *testing.T) {
	rows := []dataset.Row{
		{"g": "a", "Churn": "1"},
		{"g": "a", "Churn": "0"},
		{"g": "a", "Churn": "0"},
	}
	got := ChurnByLevel(rows, "g", "Churn")
	assert.Equal(t, 33.3, got[0].YesPct)
	assert.Equal(t, 66.7, got[0].NoPct)
}

func TestDualHistogram(t *testing.T) {
	h, ok := DualHistogram(sampleRows(), "MonthlyCharges", "Churn", 4)
	require.True(t, ok)

	assert.Len(t, h.Labels, 4)
	assert.Equal(t, 20.0, h.Min)
	assert.InDelta(t, 17.5, h.Step, 1e-9)
	assert.Equal(t, []int{2, 1, 0, 0}, h.No)
	// 90 is the maximum and lands in the last bin.
	assert.Equal(t, []int{0, 0, 0, 3}, h.Yes)
	assert.Equal(t, "20-38", h.Labels[0])

	_, ok = DualHistogram(sampleRows(), "Contract", "Churn", 4)
	assert.False(t, ok)
}

func TestDualHistogramConstant(t *testing.T) {
	rows := []dataset.Row{{"v": "5", "Churn": "1"}, {"v": "5", "Churn": "0"}}
	h, ok := DualHistogram(rows, "v", "Churn", 0)
	require.True(t, ok)
	assert.Len(t, h.No, DefaultBins)
	assert.Equal(t, 1.0, h.Step)
	assert.Equal(t, 1, h.No[0])
	assert.Equal(t, 1, h.Yes[0])
}

func TestAnalyze(t *testing.T) {
	r := Analyze(sampleRows(), dataset.TelcoSchema())

	assert.Equal(t, 6, r.Rows)
	assert.Contains(t, r.Columns, "Contract")
	assert.Equal(t, 3, r.Balance.Yes)
	assert.NotEmpty(t, r.ByContract)
	assert.NotContains(t, r.Correlation.Columns, "customerID")
	assert.Contains(t, r.Correlation.Columns, "Partner")
	assert.Contains(t, r.Correlation.Columns, "tenure")
	assert.Len(t, r.Histograms, 2)
}
