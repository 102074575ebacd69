package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"churnlab/internal/cfg"
	"churnlab/internal/common"
	"churnlab/internal/dataset"
	"churnlab/internal/metrics"
	"churnlab/internal/storage"
)

var version = "dev"

// rootOptions is shared by every subcommand.
type rootOptions struct {
	configFile string
	logLevel   string
	settings   cfg.Settings
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "churnlab",
		Short: "Telco churn training and evaluation",
		Long: `churnlab trains a churn classifier on the Telco customer dataset.

It encodes the training file, trains on an ordered 80/20 split, reports
accuracy, precision, recall, F1 and ROC/AUC on the held-out rows, and exports
test-set predictions. Runs are stored so they can be re-evaluated at other
thresholds without retraining.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(newEDACommand(opts))
	cmd.AddCommand(newTrainCommand(opts))
	cmd.AddCommand(newEvaluateCommand(opts))
	cmd.AddCommand(newRunsCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

// init loads the settings and configures logging.
func (o *rootOptions) init(logOut io.Writer) error {
	if o.configFile != "" {
		if err := os.Setenv(common.EnvConfigFile, o.configFile); err != nil {
			return err
		}
	}
	if o.logLevel != "" {
		if err := os.Setenv(common.EnvLogLevel, o.logLevel); err != nil {
			return err
		}
	}

	settings, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	o.settings = settings

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: logOut})
	return nil
}

func (o *rootOptions) loader() *dataset.Loader {
	return dataset.NewLoader(dataset.TelcoSchema(), o.settings.FetchTimeout)
}

func (o *rootOptions) openStore() (*storage.Store, error) {
	if err := os.MkdirAll(o.settings.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.Open(o.settings.DataPath)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", filepath.Join(o.settings.DataPath, storage.DBFile)).Msg("Store opened")
	return store, nil
}

// newMetrics registers collectors on a private registry so commands can run
// more than once per process.
func newMetrics() (*metrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return metrics.NewWithRegistry(reg), reg
}

func execute() error {
	return newRootCommand().Execute()
}
