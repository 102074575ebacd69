package dataset

import (
	"fmt"
	"strings"
)

// Telco churn columns.
const (
	ColCustomerID = "customerID"
	ColChurn      = "Churn"
	ColSenior     = "SeniorCitizen"
	ColTenure     = "tenure"
	ColMonthly    = "MonthlyCharges"
	ColTotal      = "TotalCharges"
)

// Schema names the role of every column the pipeline uses.
type Schema struct {
	ID          string
	Target      string
	Numeric     []string
	Binary      []string
	Categorical []string
}

// TelcoSchema is the column layout of the Telco customer churn dataset.
func TelcoSchema() Schema {
	return Schema{
		ID:      ColCustomerID,
		Target:  ColChurn,
		Numeric: []string{ColTenure, ColMonthly, ColTotal},
		Binary: []string{
			"Partner", "Dependents", "PhoneService", "PaperlessBilling",
			"MultipleLines", "OnlineSecurity", "OnlineBackup", "DeviceProtection",
			"TechSupport", "StreamingTV", "StreamingMovies", ColSenior,
		},
		Categorical: []string{"Contract", "InternetService", "PaymentMethod", "gender"},
	}
}

// Features returns every column that is encoded, in encoding order.
func (s Schema) Features() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Binary)+len(s.Categorical))
	out = append(out, s.Numeric...)
	out = append(out, s.Binary...)
	return append(out, s.Categorical...)
}

// IsNumeric reports whether col is one of the numeric columns.
func (s Schema) IsNumeric(col string) bool {
	for _, c := range s.Numeric {
		if c == col {
			return true
		}
	}
	return false
}

// ValidationError lists rows that lack a required key.
type ValidationError struct {
	Column string
	Rows   []int // zero-based row indexes
}

func (e *ValidationError) Error() string {
	shown := e.Rows
	if len(shown) > 5 {
		shown = shown[:5]
	}
	parts := make([]string, len(shown))
	for i, r := range shown {
		parts[i] = fmt.Sprint(r + 2) // header is line 1
	}
	more := ""
	if len(e.Rows) > len(shown) {
		more = fmt.Sprintf(" (+%d more)", len(e.Rows)-len(shown))
	}
	return fmt.Sprintf("dataset: %d rows missing required column %q at lines %s%s",
		len(e.Rows), e.Column, strings.Join(parts, ","), more)
}

// Validate checks the required keys. The id column must be present on every
// row; the target column too when requireTarget is set. Optional feature
// columns are allowed to be missing.
func (s Schema) Validate(rows []Row, requireTarget bool) error {
	required := []string{}
	if s.ID != "" {
		required = append(required, s.ID)
	}
	if requireTarget && s.Target != "" {
		required = append(required, s.Target)
	}
	for _, col := range required {
		var bad []int
		for i, r := range rows {
			if _, ok := r.Get(col); !ok {
				bad = append(bad, i)
			}
		}
		if len(bad) > 0 {
			return &ValidationError{Column: col, Rows: bad}
		}
	}
	return nil
}

// Labels extracts the 0/1 target of every row. Normalized rows carry "1" or "0".
func (s Schema) Labels(rows []Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		if v, ok := r.Get(s.Target); ok && v == "1" {
			out[i] = 1
		}
	}
	return out
}

// IDs returns the id cell of every row, empty when missing.
func (s Schema) IDs(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r.Get(s.ID)
	}
	return out
}
