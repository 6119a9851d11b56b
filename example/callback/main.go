package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/DAOGuard/pkg/daoguard"
)

func main() {
	cfg, err := daoguard.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Report.Interval = 10 * time.Second

	flow, err := daoguard.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("build flow: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(_ context.Context, s daoguard.Summary) error {
		fmt.Printf("%s total=%d accepted=%d rejected=%d ratio=%s%%\n",
			time.Now().Format(time.RFC3339),
			s.Total,
			s.Accepted,
			s.Rejected,
			s.RejectRatioText(),
		)
		return nil
	}

	if err := flow.Run(ctx, daoguard.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
