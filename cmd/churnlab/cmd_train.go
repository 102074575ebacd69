package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"churnlab/internal/cfg"
	"churnlab/internal/export"
	"churnlab/internal/metrics"
	"churnlab/internal/pipeline"
	"churnlab/internal/report"
)

// runFlags are the settings a run command can override.
type runFlags struct {
	train     string
	test      string
	output    string
	threshold float64
	epochs    int
	noStore   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.train, "train", "", "Training CSV path or URL (overrides TRAIN_PATH)")
	cmd.Flags().StringVar(&f.test, "test", "", "Test CSV path or URL (overrides TEST_PATH)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output directory for predictions and reports")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Decision threshold in [0,1]")
	cmd.Flags().IntVar(&f.epochs, "epochs", 0, "Training epochs")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "Do not persist the run")
}

func (f *runFlags) apply(cmd *cobra.Command, s cfg.Settings) (cfg.Settings, error) {
	if f.train != "" {
		s.TrainPath = f.train
	}
	if f.test != "" {
		s.TestPath = f.test
	}
	if f.output != "" {
		s.OutputPath = f.output
	}
	if cmd.Flags().Changed("threshold") {
		if f.threshold < 0 || f.threshold > 1 {
			return s, fmt.Errorf("threshold must be between 0 and 1, got %v", f.threshold)
		}
		s.Threshold = f.threshold
	}
	if cmd.Flags().Changed("epochs") {
		if f.epochs <= 0 {
			return s, fmt.Errorf("epochs must be positive, got %d", f.epochs)
		}
		s.Epochs = f.epochs
	}
	return s, nil
}

func pipelineOptions(s cfg.Settings) pipeline.Options {
	return pipeline.Options{
		TrainSource: s.TrainPath,
		TestSource:  s.TestPath,
		OutputPath:  s.OutputPath,
		Threshold:   s.Threshold,
		ROCSteps:    s.ROCSteps,
		TrainRatio:  s.TrainRatio,
		Train:       s.TrainConfig(),
	}
}

func newTrainCommand(opts *rootOptions) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train, evaluate and export predictions",
		Long: `Run the full pipeline: load the train and test files, fit the encoder on
the training file, train on the first 80% of its rows, evaluate the rest,
and export test predictions to <output>/` + export.DefaultFileName + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.apply(cmd, opts.settings)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, _ := newMetrics()
			deps := pipeline.Dependencies{
				Loader:   opts.loader(),
				Recorder: metrics.NewWrapper(m),
			}
			if !flags.noStore {
				store, err := opts.openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				deps.Store = store
			}

			res, err := runPipeline(ctx, s, deps)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func runPipeline(ctx context.Context, s cfg.Settings, deps pipeline.Dependencies) (*pipeline.Result, error) {
	res, err := pipeline.New(pipelineOptions(s), deps).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}
	return res, nil
}

func printResult(w io.Writer, res *pipeline.Result) {
	report.NewReporter(res.Run, "").PrintSummary(w)
	if res.ExportPath != "" {
		fmt.Fprintf(w, "Predictions: %s\n", res.ExportPath)
	}
	for _, p := range export.Preview(res.Predictions, 5) {
		fmt.Fprintf(w, "  %s\t%d\t%.6f\n", p.CustomerID, p.Prediction, p.Probability)
	}
}
