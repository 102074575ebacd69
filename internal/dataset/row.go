// Package dataset reads and normalizes the Telco churn CSV files.
//
// Rows are header-keyed string maps. Validation of the required keys happens
// here, at the ingestion boundary, so downstream encoders can treat a missing
// key as an ordinary missing value.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Row maps a column name to its raw cell. An absent key or an empty cell is
// a missing value.
type Row map[string]string

// Get returns the trimmed cell for col and whether it holds a value.
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

// Float returns the cell parsed as a finite number.
func (r Row) Float(col string) (float64, bool) {
	v, ok := r.Get(col)
	if !ok {
		return 0, false
	}
	return ParseNumber(v)
}

// Clone returns a shallow copy that can be modified independently.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ParseNumber coerces a cell to a finite float. NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
