package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"churnlab/internal/dashboard"
	"churnlab/internal/dataset"
	"churnlab/internal/eda"
	"churnlab/internal/metrics"
	"churnlab/internal/pipeline"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	flags := &runFlags{}
	var (
		port      int
		skipTrain bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Train with a live dashboard and keep serving the result",
		Long: `Start the dashboard, stream training epochs to WebSocket clients on /ws,
then serve the finished run on /api/evaluate, /api/roc and /api/eda until
interrupted. With --skip-train the newest stored run is served instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.apply(cmd, opts.settings)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				s.DashboardPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, reg := newMetrics()
			rec := metrics.NewWrapper(m)
			dash := dashboard.NewDashboard(rec, reg, s.DashboardPort)
			if err := dash.Start(); err != nil {
				return err
			}
			defer func() {
				if err := dash.Stop(); err != nil {
					log.Error().Err(err).Msg("Dashboard shutdown failed")
				}
			}()

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if skipTrain {
				run, err := findRun(store, "")
				if err != nil {
					return err
				}
				dash.SetRun(run)
			} else {
				loader := opts.loader()
				if rows, err := loader.Load(ctx, s.TrainPath); err != nil {
					log.Warn().Err(err).Msg("EDA skipped")
				} else {
					dash.SetEDA(eda.Analyze(rows, dataset.TelcoSchema()))
				}

				deps := pipeline.Dependencies{Loader: loader, Recorder: rec, Sink: dash}
				if !flags.noStore {
					deps.Store = store
				}
				res, err := runPipeline(ctx, s, deps)
				if err != nil {
					return err
				}
				dash.SetRun(res.Run)
				printResult(cmd.OutOrStdout(), res)
			}

			log.Info().Int("port", s.DashboardPort).Msg("Serving run, press Ctrl+C to stop")
			<-ctx.Done()
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&port, "port", 0, "Dashboard port (overrides DASHBOARD_PORT)")
	cmd.Flags().BoolVar(&skipTrain, "skip-train", false, "Serve the newest stored run without training")
	return cmd
}
