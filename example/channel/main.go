package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ghalamif/DAOGuard"
)

// Embeds the engine behind a transport the caller owns and watches
// summaries on a channel.
func main() {
	store, summaries, closeSummaries := daoguard.NewChannelReportStore("fanout", 8)
	defer closeSummaries()

	pub, err := daoguard.NewPublisher(&daoguard.PublisherConfig{
		Journal: daoguard.JournalConfig{Dir: "./data/publisher-journal"},
		Report:  daoguard.ReportConfig{Interval: time.Second},
	}, daoguard.WithReportStore(store))
	if err != nil {
		log.Fatalf("publisher: %v", err)
	}

	go fanoutWorker("reports", summaries)

	ctx := context.Background()
	start := time.Now()
	payload := []byte(fmt.Sprintf("DAO:1:%d:%d", start.Unix(), start.Nanosecond()))
	for i := 0; i < 5; i++ {
		if err := pub.Deliver(ctx, "2001:db8::1", payload, start.Add(time.Duration(i)*10*time.Millisecond)); err != nil {
			log.Printf("deliver: %v", err)
		}
	}

	time.Sleep(2 * time.Second)
	if err := pub.Close(ctx); err != nil {
		log.Fatalf("close: %v", err)
	}
}

func fanoutWorker(name string, summaries <-chan daoguard.Summary) {
	for s := range summaries {
		fmt.Printf("[%s] %d received, %d rejected (%s%%)\n", name, s.Total, s.Rejected, s.RejectRatioText())
	}
}
