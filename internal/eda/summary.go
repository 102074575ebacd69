package eda

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"churnlab/internal/dataset"
)

// Column type names reported by DetectTypes.
const (
	TypeNumber   = "number"
	TypeCategory = "category"
	TypeText     = "text"
	TypeString   = "string"
	TypeEmpty    = "empty"
)

// ColumnType is the inferred type of one column.
type ColumnType struct {
	Column string `json:"column"`
	Type   string `json:"type"`
}

// Columns returns the column names of rows in a stable order: the keys of the
// first non-empty row, sorted, followed by any keys that only appear later.
func Columns(rows []dataset.Row) []string {
	var cols []string
	seen := make(map[string]struct{})
	for _, r := range rows {
		batch := make([]string, 0, len(r))
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				batch = append(batch, k)
			}
		}
		sort.Strings(batch)
		cols = append(cols, batch...)
	}
	return cols
}

// DetectTypes infers each column's type from its first non-empty cell.
func DetectTypes(rows []dataset.Row, cols []string) []ColumnType {
	out := make([]ColumnType, 0, len(cols))
	for _, c := range cols {
		out = append(out, ColumnType{Column: c, Type: detectType(rows, c)})
	}
	return out
}

func detectType(rows []dataset.Row, col string) string {
	for _, r := range rows {
		v, ok := r.Get(col)
		if !ok {
			continue
		}
		switch {
		case isNumber(v):
			return TypeNumber
		case isCategoryWord(v):
			return TypeCategory
		case len(v) > 30:
			return TypeText
		default:
			return TypeString
		}
	}
	return TypeEmpty
}

func isNumber(v string) bool {
	_, ok := dataset.ParseNumber(v)
	return ok
}

func isCategoryWord(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "no", "male", "female":
		return true
	}
	return false
}

// NumericColumns returns the columns of cols that hold at least one number,
// skipping the id column.
func NumericColumns(rows []dataset.Row, cols []string, idCol string) []string {
	var out []string
	for _, c := range cols {
		if strings.EqualFold(c, idCol) {
			continue
		}
		for _, r := range rows {
			if _, ok := r.Float(c); ok {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// MissingRatio is the share of rows without a value in one column.
type MissingRatio struct {
	Column string  `json:"column"`
	Ratio  float64 `json:"ratio"`
}

// MissingRatios reports the missing share of every column.
func MissingRatios(rows []dataset.Row, cols []string) []MissingRatio {
	out := make([]MissingRatio, 0, len(cols))
	for _, c := range cols {
		miss := 0
		for _, r := range rows {
			if _, ok := r.Get(c); !ok {
				miss++
			}
		}
		ratio := 0.0
		if len(rows) > 0 {
			ratio = float64(miss) / float64(len(rows))
		}
		out = append(out, MissingRatio{Column: c, Ratio: ratio})
	}
	return out
}

// NumericSummary describes one numeric column. Std is the population deviation.
type NumericSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize describes every column of cols that has numeric cells.
func Summarize(rows []dataset.Row, cols []string) []NumericSummary {
	var out []NumericSummary
	for _, c := range cols {
		vals := columnValues(rows, c)
		if len(vals) == 0 {
			continue
		}
		mean, std := stat.PopMeanStdDev(vals, nil)
		out = append(out, NumericSummary{
			Column: c,
			Count:  len(vals),
			Mean:   mean,
			Std:    std,
			Min:    floats.Min(vals),
			Max:    floats.Max(vals),
		})
	}
	return out
}

func columnValues(rows []dataset.Row, col string) []float64 {
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v, ok := r.Float(col); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// ClassBalance counts positive and negative target rows.
type ClassBalance struct {
	Yes  int     `json:"yes"`
	No   int     `json:"no"`
	Rate float64 `json:"rate"` // Yes / (Yes+No)
}

// Balance counts target classes. Normalized rows carry "1" for churn.
func Balance(rows []dataset.Row, target string) ClassBalance {
	var b ClassBalance
	for _, r := range rows {
		if v, _ := r.Get(target); v == "1" {
			b.Yes++
		} else {
			b.No++
		}
	}
	if n := b.Yes + b.No; n > 0 {
		b.Rate = float64(b.Yes) / float64(n)
	}
	return b
}

// LevelRate is the churn split of one category level, in percent with one decimal.
type LevelRate struct {
	Level  string  `json:"level"`
	Count  int     `json:"count"`
	YesPct float64 `json:"yes_pct"`
	NoPct  float64 `json:"no_pct"`
}

// ChurnByLevel reports the churn percentage of every level of col, in
// first-seen order. Missing cells are grouped under "NA".
func ChurnByLevel(rows []dataset.Row, col, target string) []LevelRate {
	type counts struct{ yes, no int }
	var order []string
	groups := make(map[string]*counts)
	for _, r := range rows {
		level, ok := r.Get(col)
		if !ok {
			level = "NA"
		}
		g, ok := groups[level]
		if !ok {
			g = &counts{}
			groups[level] = g
			order = append(order, level)
		}
		if v, _ := r.Get(target); v == "1" {
			g.yes++
		} else {
			g.no++
		}
	}

	out := make([]LevelRate, 0, len(order))
	for _, l := range order {
		g := groups[l]
		tot := max(g.yes+g.no, 1)
		out = append(out, LevelRate{
			Level:  l,
			Count:  g.yes + g.no,
			YesPct: roundTenth(float64(g.yes) / float64(tot) * 100),
			NoPct:  roundTenth(float64(g.no) / float64(tot) * 100),
		})
	}
	return out
}

func roundTenth(v float64) float64 { return math.Round(v*10) / 10 }

// Histogram holds per-class counts over shared bins.
type Histogram struct {
	Column string   `json:"column"`
	Labels []string `json:"labels"`
	Min    float64  `json:"min"`
	Step   float64  `json:"step"`
	No     []int    `json:"no"`
	Yes    []int    `json:"yes"`
}

// DefaultBins is the bin count used for histograms.
const DefaultBins = 20

// DualHistogram bins col separately for churned and retained rows using the
// same edges. It returns false when the column has no numeric cells.
func DualHistogram(rows []dataset.Row, col, target string, bins int) (Histogram, bool) {
	if bins <= 0 {
		bins = DefaultBins
	}
	var yes, no []float64
	for _, r := range rows {
		v, ok := r.Float(col)
		if !ok {
			continue
		}
		if t, _ := r.Get(target); t == "1" {
			yes = append(yes, v)
		} else {
			no = append(no, v)
		}
	}
	all := append(append([]float64(nil), no...), yes...)
	if len(all) == 0 {
		return Histogram{}, false
	}

	lo, hi := floats.Min(all), floats.Max(all)
	step := (hi - lo) / float64(bins)
	if step == 0 {
		step = 1
	}
	hist := func(vals []float64) []int {
		counts := make([]int, bins)
		for _, v := range vals {
			idx := int(math.Floor((v - lo) / step))
			idx = min(max(idx, 0), bins-1)
			counts[idx]++
		}
		return counts
	}

	labels := make([]string, bins)
	for i := range labels {
		a := lo + float64(i)*step
		labels[i] = fmt.Sprintf("%.0f-%.0f", a, a+step)
	}
	return Histogram{Column: col, Labels: labels, Min: lo, Step: step, No: hist(no), Yes: hist(yes)}, true
}
