// Package features turns raw churn rows into fixed-width numeric vectors.
//
// A State is fit once from the training rows and is frozen afterwards:
// numeric statistics, imputation values and categorical vocabularies never
// change, so every split transformed with the same State has the same width
// and one-hot slot i always means the same category level.
package features

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"churnlab/internal/dataset"
)

// MissingLevel is the reserved vocabulary level for absent or unseen values.
const MissingLevel = "NA"

var (
	// ErrInvalidInput is returned for empty training sets or bad column specs.
	ErrInvalidInput = errors.New("features: invalid input")
	// ErrNotFitted is returned when transforming with a State that was never fit.
	ErrNotFitted = errors.New("features: encoder not fitted")
)

// Columns fixes which columns are encoded and in which order.
type Columns struct {
	Numeric     []string `json:"numeric"`
	Binary      []string `json:"binary"`
	Categorical []string `json:"categorical"`
}

// NumericStats are the frozen training statistics of one numeric column.
// Std is the population standard deviation, floored to 1 when zero.
// Median is the value substituted for missing or non-numeric cells.
type NumericStats struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
}

// Vocabulary lists the levels of one categorical column in first-seen order.
// It always contains MissingLevel.
type Vocabulary struct {
	Column string   `json:"column"`
	Levels []string `json:"levels"`
}

// Index returns the one-hot slot of level, falling back to the MissingLevel slot.
func (v Vocabulary) Index(level string) int {
	na := -1
	for i, l := range v.Levels {
		if l == level {
			return i
		}
		if l == MissingLevel {
			na = i
		}
	}
	return na
}

// State is the fitted encoder. The zero value is unfit.
type State struct {
	Columns   Columns        `json:"columns"`
	Numeric   []NumericStats `json:"numeric"`
	Vocab     []Vocabulary   `json:"vocab"`
	Malformed map[string]int `json:"malformed,omitempty"` // non-numeric cells per numeric column
	TrainRows int            `json:"train_rows"`
	Fitted    bool           `json:"fitted"`
}

// Fit computes numeric statistics and categorical vocabularies from trainRows.
func Fit(trainRows []dataset.Row, cols Columns) (*State, error) {
	if len(trainRows) == 0 {
		return nil, fmt.Errorf("%w: no training rows", ErrInvalidInput)
	}
	if err := checkColumns(cols); err != nil {
		return nil, err
	}

	s := &State{
		Columns:   copyColumns(cols),
		Numeric:   make([]NumericStats, 0, len(cols.Numeric)),
		Vocab:     make([]Vocabulary, 0, len(cols.Categorical)),
		Malformed: make(map[string]int),
		TrainRows: len(trainRows),
	}

	for _, c := range cols.Numeric {
		vals := make([]float64, 0, len(trainRows))
		for _, r := range trainRows {
			raw, ok := r.Get(c)
			if !ok {
				continue
			}
			v, ok := dataset.ParseNumber(raw)
			if !ok {
				s.Malformed[c]++
				continue
			}
			vals = append(vals, v)
		}
		s.Numeric = append(s.Numeric, numericStats(c, vals))
	}

	for _, c := range cols.Categorical {
		s.Vocab = append(s.Vocab, buildVocabulary(c, trainRows))
	}

	if len(s.Malformed) == 0 {
		s.Malformed = nil
	}
	s.Fitted = true
	return s, nil
}

func numericStats(col string, vals []float64) NumericStats {
	if len(vals) == 0 {
		return NumericStats{Column: col, Std: 1}
	}
	mean, std := stat.PopMeanStdDev(vals, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	return NumericStats{Column: col, Mean: mean, Std: std, Median: median(vals)}
}

// median averages the two middle values for even-length input.
func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func buildVocabulary(col string, rows []dataset.Row) Vocabulary {
	seen := make(map[string]struct{})
	levels := make([]string, 0, 8)
	for _, r := range rows {
		l := levelOf(r, col)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		levels = append(levels, l)
	}
	if _, ok := seen[MissingLevel]; !ok {
		levels = append(levels, MissingLevel)
	}
	return Vocabulary{Column: col, Levels: levels}
}

func levelOf(r dataset.Row, col string) string {
	if v, ok := r.Get(col); ok {
		return v
	}
	return MissingLevel
}

// Width is the length of every vector produced by Transform.
func (s *State) Width() int {
	if s == nil {
		return 0
	}
	w := len(s.Columns.Numeric) + len(s.Columns.Binary)
	for _, v := range s.Vocab {
		w += len(v.Levels)
	}
	return w
}

// FeatureNames labels each slot of the vector, one-hot slots as "col=level".
func (s *State) FeatureNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, s.Width())
	names = append(names, s.Columns.Numeric...)
	names = append(names, s.Columns.Binary...)
	for _, v := range s.Vocab {
		for _, l := range v.Levels {
			names = append(names, v.Column+"="+l)
		}
	}
	return names
}

// Transform encodes one row. It never modifies s.
func (s *State) Transform(row dataset.Row) ([]float64, error) {
	if s == nil || !s.Fitted {
		return nil, ErrNotFitted
	}

	out := make([]float64, 0, s.Width())
	for _, ns := range s.Numeric {
		v := ns.Median
		if raw, ok := row.Get(ns.Column); ok {
			if f, ok := dataset.ParseNumber(raw); ok {
				v = f
			}
		}
		out = append(out, (v-ns.Mean)/ns.Std)
	}

	for _, c := range s.Columns.Binary {
		raw, _ := row.Get(c)
		out = append(out, BinaryValue(raw))
	}

	for _, v := range s.Vocab {
		block := make([]float64, len(v.Levels))
		if i := v.Index(levelOf(row, v.Column)); i >= 0 {
			block[i] = 1
		}
		out = append(out, block...)
	}
	return out, nil
}

// TransformAll encodes rows in input order.
func (s *State) TransformAll(rows []dataset.Row) ([][]float64, error) {
	if s == nil || !s.Fitted {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		v, err := s.Transform(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// BinaryValue maps yes/no style cells to 1/0. Anything unrecognised is 0.
func BinaryValue(raw string) float64 {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1":
		return 1
	default:
		return 0
	}
}

func checkColumns(cols Columns) error {
	seen := make(map[string]struct{})
	all := make([]string, 0, len(cols.Numeric)+len(cols.Binary)+len(cols.Categorical))
	all = append(all, cols.Numeric...)
	all = append(all, cols.Binary...)
	all = append(all, cols.Categorical...)
	if len(all) == 0 {
		return fmt.Errorf("%w: no columns to encode", ErrInvalidInput)
	}
	for _, c := range all {
		if c == "" {
			return fmt.Errorf("%w: empty column name", ErrInvalidInput)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: column %q listed twice", ErrInvalidInput, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

func copyColumns(c Columns) Columns {
	return Columns{
		Numeric:     append([]string(nil), c.Numeric...),
		Binary:      append([]string(nil), c.Binary...),
		Categorical: append([]string(nil), c.Categorical...),
	}
}

// String is used in log lines.
func (s *State) String() string {
	if s == nil || !s.Fitted {
		return "features.State(unfit)"
	}
	return "features.State(width=" + strconv.Itoa(s.Width()) + ", rows=" + strconv.Itoa(s.TrainRows) + ")"
}
