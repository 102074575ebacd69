package eda

import (
	"churnlab/internal/dataset"
)

// TopBinaryK is how many binary columns join the correlation matrix.
const TopBinaryK = 5

// Report bundles every exploratory summary of one training file.
type Report struct {
	Rows        int                 `json:"rows"`
	Columns     []string            `json:"columns"`
	Types       []ColumnType        `json:"types"`
	Missing     []MissingRatio      `json:"missing"`
	Numeric     []NumericSummary    `json:"numeric"`
	Balance     ClassBalance        `json:"balance"`
	ByContract  []LevelRate         `json:"by_contract"`
	ByInternet  []LevelRate         `json:"by_internet"`
	TopBinary   []ColumnCorrelation `json:"top_binary"`
	Correlation CorrelationMatrix   `json:"correlation"`
	Histograms  []Histogram         `json:"histograms"`
}

// Analyze builds a Report over normalized rows.
func Analyze(rows []dataset.Row, s dataset.Schema) Report {
	cols := Columns(rows)
	numeric := NumericColumns(rows, cols, s.ID)
	top := TopBinaryCorrelated(rows, cols, s.Target, TopBinaryK)

	corrCols := append([]string(nil), numeric...)
	for _, c := range top {
		if indexOf(corrCols, c.Column) < 0 {
			corrCols = append(corrCols, c.Column)
		}
	}

	r := Report{
		Rows:        len(rows),
		Columns:     cols,
		Types:       DetectTypes(rows, cols),
		Missing:     MissingRatios(rows, cols),
		Numeric:     Summarize(rows, s.Numeric),
		Balance:     Balance(rows, s.Target),
		ByContract:  ChurnByLevel(rows, "Contract", s.Target),
		ByInternet:  ChurnByLevel(rows, "InternetService", s.Target),
		TopBinary:   top,
		Correlation: Correlation(rows, corrCols),
	}
	for _, c := range []string{dataset.ColMonthly, dataset.ColTenure} {
		if h, ok := DualHistogram(rows, c, s.Target, DefaultBins); ok {
			r.Histograms = append(r.Histograms, h)
		}
	}
	return r
}
