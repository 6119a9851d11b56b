package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ghalamif/DAOGuard/internal/adapters/codec"
	"github.com/ghalamif/DAOGuard/internal/adapters/observability"
	"github.com/ghalamif/DAOGuard/internal/adapters/reportstore"
	"github.com/ghalamif/DAOGuard/internal/app/dispatch"
	"github.com/ghalamif/DAOGuard/internal/app/freshness"
	"github.com/ghalamif/DAOGuard/internal/app/metrics"
	"github.com/ghalamif/DAOGuard/internal/sim"
)

func newSimulateCmd() *cobra.Command {
	cfg := sim.DefaultConfig()
	var (
		burst    time.Duration
		strict   bool
		csvPath  string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay the sensor/attacker scenario on a virtual clock and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if burst < 0 {
				return fmt.Errorf("burst threshold must not be negative")
			}
			logger, closer, err := observability.NewLogger(observability.LogConfig{Level: logLevel}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			obs := observability.NewPromObs(prometheus.NewRegistry(), logger)
			v := freshness.NewValidator(freshness.Config{BurstThreshold: burst, StrictSequence: strict})
			rec := metrics.NewRecorder()
			d := dispatch.New(codec.Text{}, v, rec, obs, dispatch.WithLogSuppression(time.Second))

			deliveries := sim.Generate(cfg)
			outcome := sim.Run(deliveries, d)
			summary := d.Report()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "senders=%d attacker=%t seed=%d legit=%d/%d accepted replays=%d/%d rejected\n",
				cfg.Senders, cfg.Attacker, cfg.Seed,
				outcome.LegitAccepted, outcome.Legitimate,
				outcome.ReplaysRejected, outcome.Replays)
			fmt.Fprint(out, summary.String())

			if csvPath == "" {
				return nil
			}
			store := reportstore.NewCSVStore(csvPath)
			if err := store.Append(context.Background(), summary); err != nil {
				return fmt.Errorf("append %s: %w", csvPath, err)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&cfg.Senders, "senders", cfg.Senders, "Number of sensors")
	flags.BoolVar(&cfg.Attacker, "attacker", cfg.Attacker, "Enable the replay attacker on sensor 0")
	flags.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Simulated run time")
	flags.Int64Var(&cfg.Seed, "seed", 1, "Seed for start jitter")
	flags.DurationVar(&burst, "burst-threshold", freshness.DefaultBurstThreshold, "Minimum spacing between arrivals sharing a sequence number")
	flags.BoolVar(&strict, "strict-sequence", false, "Reject reused sequence numbers even with a newer origin time")
	flags.StringVar(&csvPath, "csv", reportstore.DefaultCSVPath, "Append the summary to this CSV file (empty to skip)")
	flags.StringVar(&logLevel, "log-level", envOr("DAOGUARD_LOG_LEVEL", "error"), "Log level")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
