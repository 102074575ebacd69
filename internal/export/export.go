// Package export writes test-set churn predictions as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"churnlab/internal/eval"
)

// DefaultFileName is the file written by WriteFile when given a directory.
const DefaultFileName = "telco_churn_predictions.csv"

// Header is the column layout of the export.
var Header = []string{"customerID", "prediction", "probability"}

// Prediction is one exported row.
type Prediction struct {
	CustomerID  string  `json:"customerID"`
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
}

// Predictions applies the threshold decision to every probability.
func Predictions(ids []string, probs []float64, threshold float64) ([]Prediction, error) {
	if len(ids) != len(probs) {
		return nil, fmt.Errorf("export: %d ids for %d probabilities", len(ids), len(probs))
	}
	if !(threshold >= 0 && threshold <= 1) {
		return nil, fmt.Errorf("export: threshold %v outside [0,1]", threshold)
	}
	out := make([]Prediction, len(probs))
	for i, p := range probs {
		out[i] = Prediction{CustomerID: ids[i], Prediction: eval.Decide(p, threshold), Probability: p}
	}
	return out, nil
}

// WriteCSV writes the header and one line per prediction, probabilities with six decimals.
func WriteCSV(w io.Writer, preds []Prediction) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, p := range preds {
		record := []string{
			p.CustomerID,
			strconv.Itoa(p.Prediction),
			strconv.FormatFloat(p.Probability, 'f', 6, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile writes preds to path, or to DefaultFileName inside path when it is a directory.
func WriteFile(path string, preds []Prediction) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create predictions file: %w", err)
	}
	defer file.Close()

	if err := WriteCSV(file, preds); err != nil {
		return "", fmt.Errorf("write predictions: %w", err)
	}
	log.Info().Str("file", path).Int("rows", len(preds)).Msg("Predictions exported")
	return path, nil
}

// Preview returns at most n predictions for display.
func Preview(preds []Prediction, n int) []Prediction {
	if n < 0 || n >= len(preds) {
		return preds
	}
	return preds[:n]
}
