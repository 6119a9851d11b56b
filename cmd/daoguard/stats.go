package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghalamif/DAOGuard/internal/adapters/checkpoint"
	"github.com/ghalamif/DAOGuard/internal/adapters/observability"
)

func newStatsCmd() *cobra.Command {
	var (
		url      string
		interval time.Duration
		once     bool
		redisURL string
		prefix   string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Poll the Prometheus endpoint, or read the last checkpoint, and print counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if redisURL != "" {
				return printCheckpoint(cmd.Context(), out, redisURL, prefix)
			}
			if once {
				return printMetricsSnapshot(cmd.Context(), out, url)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			fmt.Fprintf(out, "Streaming metrics from %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := printMetricsSnapshot(ctx, out, url); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "stats error: %v\n", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Refresh interval")
	cmd.Flags().BoolVar(&once, "once", false, "Print a single snapshot and exit")
	cmd.Flags().StringVar(&redisURL, "redis", "", "Read the last checkpoint from this Redis URL instead")
	cmd.Flags().StringVar(&prefix, "key-prefix", "daoguard", "Checkpoint key prefix")
	return cmd
}

func printCheckpoint(ctx context.Context, out io.Writer, redisURL, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cp, err := checkpoint.NewRedisCheckpointer(ctx, redisURL, prefix)
	if err != nil {
		return err
	}
	defer cp.Close()

	snap, err := cp.Load(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		fmt.Fprintf(out, "no checkpoint at %s\n", cp.Key())
		return nil
	}
	fmt.Fprintf(out, "checkpoint %s taken %s, %d senders tracked\n",
		cp.Key(), snap.TakenAt.Format(time.RFC3339), len(snap.Senders))
	fmt.Fprint(out, snap.Summary.String())
	return nil
}

var statsTargets = []string{
	observability.MetricAdvertisements,
	observability.MetricRejections,
	observability.MetricDecodeFailures,
	observability.MetricQueueLength,
	observability.MetricJournalSize,
	observability.MetricTrackedSenders,
}

func printMetricsSnapshot(ctx context.Context, out io.Writer, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrapeTargets(resp.Body, statsTargets)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "[%s] accepted=%g rejected=%g malformed=%g queue=%g journal_bytes=%g senders=%g\n",
		time.Now().Format(time.RFC3339),
		values[observability.MetricAdvertisements+`{verdict="accepted"}`],
		values[observability.MetricAdvertisements+`{verdict="rejected"}`],
		values[observability.MetricDecodeFailures],
		values[observability.MetricQueueLength],
		values[observability.MetricJournalSize],
		values[observability.MetricTrackedSenders],
	)
	return nil
}

// scrapeTargets reads text exposition lines whose metric name is one of
// targets, keyed by the series as written (name plus labels).
func scrapeTargets(r io.Reader, targets []string) (map[string]float64, error) {
	values := make(map[string]float64)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		series, raw, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(series, "{")
		for _, t := range targets {
			if name != t {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
				values[series] = v
			}
		}
	}
	return values, scanner.Err()
}
