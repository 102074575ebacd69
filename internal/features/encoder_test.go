package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnlab/internal/dataset"
)

var testCols = Columns{
	Numeric:     []string{"tenure"},
	Binary:      []string{"Partner"},
	Categorical: []string{"Contract"},
}

func trainRows() []dataset.Row {
	return []dataset.Row{
		{"tenure": "1", "Partner": "Yes", "Contract": "Month-to-month"},
		{"tenure": "2", "Partner": "No", "Contract": "One year"},
		{"tenure": "3", "Partner": "yes", "Contract": "Month-to-month"},
	}
}

func TestFitNumericStats(t *testing.T) {
	s, err := Fit(trainRows(), testCols)
	require.NoError(t, err)
	require.Len(t, s.Numeric, 1)

	ns := s.Numeric[0]
	assert.InDelta(t, 2.0, ns.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), ns.Std, 1e-12)
	assert.InDelta(t, 2.0, ns.Median, 1e-12)
	assert.Equal(t, 3, s.TrainRows)
	assert.True(t, s.Fitted)
}

func TestTransformZScore(t *testing.T) {
	s, err := Fit(trainRows(), testCols)
	require.NoError(t, err)

	x, err := s.TransformAll(trainRows())
	require.NoError(t, err)

	z := 1 / math.Sqrt(2.0/3.0)
	assert.InDelta(t, -z, x[0][0], 1e-9)
	assert.InDelta(t, 0, x[1][0], 1e-9)
	assert.InDelta(t, z, x[2][0], 1e-9)
}

func TestWidthAndLayout(t *testing.T) {
	s, err := Fit(trainRows(), testCols)
	require.NoError(t, err)

	// tenure, Partner, Contract={Month-to-month, One year, NA}
	assert.Equal(t, 5, s.Width())
	assert.Equal(t, []string{
		"tenure", "Partner",
		"Contract=Month-to-month", "Contract=One year", "Contract=NA",
	}, s.FeatureNames())

	rows := []dataset.Row{
		{"tenure": "10", "Partner": "No", "Contract": "Two year"},
		{},
		{"tenure": "", "Contract": ""},
	}
	for _, r := range rows {
		v, err := s.Transform(r)
		require.NoError(t, err)
		assert.Len(t, v, s.Width())
	}
}

func TestBinaryAndOneHot(t *testing.T) {
	s, err := Fit(trainRows(), testCols)
	require.NoError(t, err)

	v, err := s.Transform(dataset.Row{"tenure": "2", "Partner": "YES", "Contract": "One year"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 1, 0}, v)

	// unseen level goes to the NA slot
	v, err = s.Transform(dataset.Row{"tenure": "2", "Partner": "maybe", "Contract": "Two year"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, v)
}

func TestMissingNumericUsesMedian(t *testing.T) {
	rows := append(trainRows(), dataset.Row{"Partner": "No", "Contract": "One year"})
	s, err := Fit(rows, testCols)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, s.Numeric[0].Median, 1e-12)

	v, err := s.Transform(dataset.Row{"Contract": "One year"})
	require.NoError(t, err)
	assert.InDelta(t, (2.0-s.Numeric[0].Mean)/s.Numeric[0].Std, v[0], 1e-12)
}

func TestMalformedCells(t *testing.T) {
	rows := append(trainRows(), dataset.Row{"tenure": "abc", "Contract": "One year"})
	s, err := Fit(rows, testCols)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"tenure": 1}, s.Malformed)
	assert.InDelta(t, 2.0, s.Numeric[0].Mean, 1e-12)

	v, err := s.Transform(dataset.Row{"tenure": "abc"})
	require.NoError(t, err)
	assert.InDelta(t, 0, v[0], 1e-12)

	clean, err := Fit(trainRows(), testCols)
	require.NoError(t, err)
	assert.Nil(t, clean.Malformed)
}

func TestConstantColumn(t *testing.T) {
	rows := []dataset.Row{{"tenure": "5"}, {"tenure": "5"}}
	s, err := Fit(rows, testCols)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Numeric[0].Std)

	v, err := s.Transform(dataset.Row{"tenure": "7"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, v[0])
}

func TestNoValuesInNumericColumn(t *testing.T) {
	s, err := Fit([]dataset.Row{{"Contract": "One year"}}, testCols)
	require.NoError(t, err)
	assert.Equal(t, NumericStats{Column: "tenure", Std: 1}, s.Numeric[0])
}

func TestTransformIsPure(t *testing.T) {
	s, err := Fit(trainRows(), testCols)
	require.NoError(t, err)
	width := s.Width()
	vocab := append([]string(nil), s.Vocab[0].Levels...)

	row := dataset.Row{"tenure": "99", "Contract": "Brand new"}
	a, err := s.Transform(row)
	require.NoError(t, err)
	b, err := s.Transform(row)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, width, s.Width())
	assert.Equal(t, vocab, s.Vocab[0].Levels)
}

func TestIndependentFits(t *testing.T) {
	a, err := Fit(trainRows(), testCols)
	require.NoError(t, err)
	b, err := Fit([]dataset.Row{{"tenure": "100", "Contract": "Two year"}}, testCols)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, a.Numeric[0].Mean, 1e-12)
	assert.InDelta(t, 100.0, b.Numeric[0].Mean, 1e-12)
	assert.Equal(t, []string{"Month-to-month", "One year", "NA"}, a.Vocab[0].Levels)
	assert.Equal(t, []string{"Two year", "NA"}, b.Vocab[0].Levels)
}

func TestMissingLevelSeenInTraining(t *testing.T) {
	rows := []dataset.Row{{"Contract": "One year"}, {"tenure": "1"}}
	s, err := Fit(rows, testCols)
	require.NoError(t, err)
	assert.Equal(t, []string{"One year", "NA"}, s.Vocab[0].Levels)
}

func TestNotFitted(t *testing.T) {
	var nilState *State
	_, err := nilState.Transform(dataset.Row{})
	assert.ErrorIs(t, err, ErrNotFitted)

	_, err = (&State{}).TransformAll([]dataset.Row{{}})
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.Equal(t, 0, nilState.Width())
	assert.Equal(t, "features.State(unfit)", (&State{}).String())
}

func TestFitInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		rows []dataset.Row
		cols Columns
	}{
		{"no rows", nil, testCols},
		{"no columns", trainRows(), Columns{}},
		{"duplicate column", trainRows(), Columns{Numeric: []string{"tenure"}, Binary: []string{"tenure"}}},
		{"empty name", trainRows(), Columns{Categorical: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.rows, tt.cols)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestColumnsFor(t *testing.T) {
	schema := dataset.TelcoSchema()
	cols := ColumnsFor(schema)
	assert.Equal(t, schema.Numeric, cols.Numeric)
	assert.Equal(t, schema.Binary, cols.Binary)
	assert.Equal(t, schema.Categorical, cols.Categorical)

	cols.Numeric[0] = "changed"
	assert.Equal(t, dataset.ColTenure, schema.Numeric[0])
}

func TestBinaryValue(t *testing.T) {
	for _, v := range []string{"Yes", "yes", " Y ", "true", "1"} {
		assert.Equal(t, 1.0, BinaryValue(v), v)
	}
	for _, v := range []string{"No", "", "No internet service", "0", "maybe"} {
		assert.Equal(t, 0.0, BinaryValue(v), v)
	}
}
