package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"churnlab/internal/pipeline"
	"churnlab/internal/storage"
)

func newEvaluateCommand(opts *rootOptions) *cobra.Command {
	var (
		runID     string
		threshold float64
		steps     int
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Re-evaluate a stored run at another threshold",
		Long: `Score the stored validation predictions of a run at a new threshold.
The model is not retrained. Without --run the newest run is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := findRun(store, runID)
			if err != nil {
				return err
			}

			t := run.Threshold
			if cmd.Flags().Changed("threshold") {
				t = threshold
			}
			m, roc, err := pipeline.Reevaluate(run, t, steps)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run: %s\n", run.ID)
			fmt.Fprintf(w, "Threshold: %.2f\n", m.Threshold)
			fmt.Fprintf(w, "Accuracy: %.4f\n", m.Accuracy)
			fmt.Fprintf(w, "Precision: %.4f\n", m.Precision)
			fmt.Fprintf(w, "Recall: %.4f\n", m.Recall)
			fmt.Fprintf(w, "F1: %.4f\n", m.F1)
			fmt.Fprintf(w, "AUC: %.4f\n", roc.AUC)
			fmt.Fprintf(w, "Confusion: TP=%d FP=%d TN=%d FN=%d\n",
				m.Confusion.TP, m.Confusion.FP, m.Confusion.TN, m.Confusion.FN)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id (default: newest run)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Decision threshold in [0,1] (default: the run's threshold)")
	cmd.Flags().IntVar(&steps, "steps", 0, "ROC steps (default: the stored curve)")
	return cmd
}

func findRun(store *storage.Store, id string) (storage.RunRecord, error) {
	if id != "" {
		return store.GetRun(id)
	}
	runs, err := store.ListRuns(1)
	if err != nil {
		return storage.RunRecord{}, err
	}
	if len(runs) == 0 {
		return storage.RunRecord{}, errors.New("no stored runs; run `churnlab train` first")
	}
	return runs[0], nil
}
