package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"churnlab/internal/dataset"
	"churnlab/internal/eda"
	"churnlab/internal/report"
)

func newEDACommand(opts *rootOptions) *cobra.Command {
	var (
		trainPath string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "eda",
		Short: "Summarize the training file",
		Long: `Print column types, missing ratios, numeric summaries, the churn balance,
churn rates by contract and internet service, and the binary columns most
correlated with churn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := opts.settings.TrainPath
			if trainPath != "" {
				src = trainPath
			}

			rows, err := opts.loader().Load(cmd.Context(), src)
			if err != nil {
				return err
			}
			r := eda.Analyze(rows, dataset.TelcoSchema())

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			return report.PrintEDA(cmd.OutOrStdout(), r)
		},
	}

	cmd.Flags().StringVar(&trainPath, "train", "", "Training CSV path or URL (overrides TRAIN_PATH)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
