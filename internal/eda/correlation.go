// Package eda computes the exploratory summaries shown before training:
// inferred column types, missing-value ratios, numeric summaries, the class
// balance, churn rates per category level, per-class histograms and a
// Pearson correlation matrix.
package eda

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"churnlab/internal/dataset"
)

// CorrelationMatrix is a square Pearson matrix over Columns.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// At returns r(a, b), or 0 when either column is not in the matrix.
func (m CorrelationMatrix) At(a, b string) float64 {
	i, j := indexOf(m.Columns, a), indexOf(m.Columns, b)
	if i < 0 || j < 0 {
		return 0
	}
	return m.Values[i][j]
}

func indexOf(cols []string, c string) int {
	for i, x := range cols {
		if x == c {
			return i
		}
	}
	return -1
}

// numericCell reads a cell as a number, mapping yes/true/male to 1 and
// no/false/female to 0 first.
func numericCell(r dataset.Row, col string) (float64, bool) {
	v, ok := r.Get(col)
	if !ok {
		return 0, false
	}
	switch strings.ToLower(v) {
	case "yes", "male", "true", "1":
		return 1, true
	case "no", "female", "false", "0":
		return 0, true
	}
	return dataset.ParseNumber(v)
}

// Pearson returns the correlation of x and y, or 0 when it is undefined.
func Pearson(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Correlation computes r for every pair of cols using the rows where both
// cells are numeric.
func Correlation(rows []dataset.Row, cols []string) CorrelationMatrix {
	m := CorrelationMatrix{Columns: append([]string(nil), cols...), Values: make([][]float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
	}
	for i, a := range cols {
		for j := i; j < len(cols); j++ {
			b := cols[j]
			var xs, ys []float64
			for _, r := range rows {
				x, okx := numericCell(r, a)
				y, oky := numericCell(r, b)
				if okx && oky {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			v := Pearson(xs, ys)
			m.Values[i][j] = v
			m.Values[j][i] = v
		}
	}
	return m
}

// ColumnCorrelation is one column's correlation with the target.
type ColumnCorrelation struct {
	Column string  `json:"column"`
	Corr   float64 `json:"corr"`
}

// minBinaryPairs is the number of valid pairs a column needs before it is ranked.
const minBinaryPairs = 5

// TopBinaryCorrelated ranks the two-level columns of cols by |r| with the
// target and returns the k strongest. Levels are compared case-insensitively
// and coded 0/1 in first-seen order.
func TopBinaryCorrelated(rows []dataset.Row, cols []string, target string, k int) []ColumnCorrelation {
	var ranked []ColumnCorrelation
	for _, col := range cols {
		if col == target {
			continue
		}
		var levels []string
		for _, r := range rows {
			v, ok := r.Get(col)
			if !ok {
				continue
			}
			v = strings.ToLower(v)
			if indexOf(levels, v) < 0 {
				levels = append(levels, v)
			}
		}
		if len(levels) != 2 {
			continue
		}

		var xs, ys []float64
		for _, r := range rows {
			v, ok := r.Get(col)
			if !ok {
				continue
			}
			y, ok := r.Float(target)
			if !ok {
				continue
			}
			xs = append(xs, float64(indexOf(levels, strings.ToLower(v))))
			ys = append(ys, y)
		}
		if len(xs) <= minBinaryPairs {
			continue
		}
		ranked = append(ranked, ColumnCorrelation{Column: col, Corr: Pearson(xs, ys)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Corr) > math.Abs(ranked[j].Corr)
	})
	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
