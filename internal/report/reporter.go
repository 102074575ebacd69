// Package report writes the artifacts of a finished run: a readable summary,
// the full run as JSON, the ROC curve and the per-epoch training log.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"churnlab/internal/storage"
)

// Artifact file names inside the output directory.
const (
	SummaryFile     = "summary.txt"
	RunFile         = "run.json"
	ROCFile         = "roc.csv"
	TrainingLogFile = "training_log.csv"
)

// Reporter generates run reports
type Reporter struct {
	run        storage.RunRecord
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(run storage.RunRecord, outputPath string) *Reporter {
	return &Reporter{
		run:        run,
		outputPath: outputPath,
	}
}

// GenerateReport writes every artifact into the output directory.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}

	if err := r.generateJSONReport(); err != nil {
		return err
	}

	if err := r.generateROC(); err != nil {
		return err
	}

	return r.generateTrainingLog()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.writeSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) writeSummary(w io.Writer) {
	run := r.run
	m := run.Metrics

	fmt.Fprintf(w, "CHURN RUN SUMMARY\n")
	fmt.Fprintf(w, "=================\n\n")

	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "Created: %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Train source: %s\n", run.TrainSource)
	fmt.Fprintf(w, "Test source: %s\n\n", run.TestSource)

	fmt.Fprintf(w, "DATA\n")
	fmt.Fprintf(w, "----\n")
	fmt.Fprintf(w, "Training rows: %d\n", run.TrainRows)
	fmt.Fprintf(w, "Validation rows: %d\n", run.ValRows)
	fmt.Fprintf(w, "Test rows: %d\n", run.TestRows)
	fmt.Fprintf(w, "Feature width: %d\n\n", run.EncoderWidth)

	fmt.Fprintf(w, "TRAINING\n")
	fmt.Fprintf(w, "--------\n")
	fmt.Fprintf(w, "Epochs run: %d\n", len(run.History))
	if n := len(run.History); n > 0 {
		last := run.History[n-1]
		fmt.Fprintf(w, "Final loss: %.4f (val %.4f)\n", last.Loss, last.ValLoss)
		fmt.Fprintf(w, "Final accuracy: %.4f (val %.4f)\n", last.Acc, last.ValAcc)
		if last.Stopped {
			fmt.Fprintf(w, "Stopped early at epoch %d\n", last.Epoch)
		}
	}

	fmt.Fprintf(w, "\nVALIDATION @ %.2f\n", run.Threshold)
	fmt.Fprintf(w, "------------------\n")
	fmt.Fprintf(w, "Accuracy: %.4f\n", m.Accuracy)
	fmt.Fprintf(w, "Precision: %.4f\n", m.Precision)
	fmt.Fprintf(w, "Recall: %.4f\n", m.Recall)
	fmt.Fprintf(w, "F1: %.4f\n", m.F1)
	fmt.Fprintf(w, "AUC: %.4f\n", run.ROC.AUC)
	fmt.Fprintf(w, "Confusion: TP=%d FP=%d TN=%d FN=%d\n",
		m.Confusion.TP, m.Confusion.FP, m.Confusion.TN, m.Confusion.FN)
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, RunFile)

	report := map[string]interface{}{
		"run":          r.run,
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

func (r *Reporter) generateROC() error {
	rocPath := filepath.Join(r.outputPath, ROCFile)
	file, err := os.Create(rocPath)
	if err != nil {
		return fmt.Errorf("failed to create ROC file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"threshold", "fpr", "tpr"}); err != nil {
		return err
	}
	for _, p := range r.run.ROC.Points {
		record := []string{ftoa(p.Threshold), ftoa(p.FPR), ftoa(p.TPR)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write ROC file: %w", err)
	}

	log.Info().Str("file", rocPath).Int("points", len(r.run.ROC.Points)).Msg("ROC curve written")
	return nil
}

func (r *Reporter) generateTrainingLog() error {
	csvPath := filepath.Join(r.outputPath, TrainingLogFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create training log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"epoch", "loss", "acc", "val_loss", "val_acc", "stopped"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, e := range r.run.History {
		record := []string{
			strconv.Itoa(e.Epoch),
			ftoa(e.Loss),
			ftoa(e.Acc),
			ftoa(e.ValLoss),
			ftoa(e.ValAcc),
			strconv.FormatBool(e.Stopped),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write training log: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Training log generated")
	return nil
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// PrintSummary writes a short summary to w.
func (r *Reporter) PrintSummary(w io.Writer) {
	m := r.run.Metrics
	fmt.Fprintln(w, "\n=== CHURN RUN ===")
	fmt.Fprintf(w, "Run: %s\n", r.run.ID)
	fmt.Fprintf(w, "Rows: train=%d val=%d test=%d\n", r.run.TrainRows, r.run.ValRows, r.run.TestRows)
	fmt.Fprintf(w, "Epochs: %d\n", len(r.run.History))
	fmt.Fprintf(w, "Threshold: %.2f\n", r.run.Threshold)
	fmt.Fprintf(w, "Accuracy: %.4f  Precision: %.4f  Recall: %.4f  F1: %.4f\n",
		m.Accuracy, m.Precision, m.Recall, m.F1)
	fmt.Fprintf(w, "AUC: %.4f\n", r.run.ROC.AUC)
	fmt.Fprintln(w, "=================")
}
