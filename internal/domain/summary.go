package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Summary is a point-in-time view of the collector's replay metrics.
type Summary struct {
	Total              uint64  `json:"total"`
	Accepted           uint64  `json:"accepted"`
	Rejected           uint64  `json:"rejected"`
	RejectRatioPercent float64 `json:"reject_ratio_percent"`
	// AvgInterArrivalSeconds is the mean of every recorded per-sender
	// inter-arrival delay, in seconds.
	AvgInterArrivalSeconds float64 `json:"avg_inter_arrival_seconds"`
}

// RejectRatioText renders the ratio with two decimals, as persisted.
func (s Summary) RejectRatioText() string {
	return strconv.FormatFloat(s.RejectRatioPercent, 'f', 2, 64)
}

// Record is the machine-readable row: total, accepted, rejected,
// reject ratio percent, average inter-arrival delay in seconds.
func (s Summary) Record() []string {
	return []string{
		strconv.FormatUint(s.Total, 10),
		strconv.FormatUint(s.Accepted, 10),
		strconv.FormatUint(s.Rejected, 10),
		s.RejectRatioText(),
		strconv.FormatFloat(s.AvgInterArrivalSeconds, 'f', -1, 64),
	}
}

// String renders the console summary printed at shutdown.
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("========== DAO Replay Mitigation Metrics ==========\n")
	fmt.Fprintf(&b, "Total DAOs received: %d\n", s.Total)
	fmt.Fprintf(&b, "Accepted DAOs:       %d\n", s.Accepted)
	fmt.Fprintf(&b, "Rejected DAOs:       %d\n", s.Rejected)
	fmt.Fprintf(&b, "Replay rejection %%:  %s\n", s.RejectRatioText())
	fmt.Fprintf(&b, "Average inter-arrival delay (s): %s\n",
		strconv.FormatFloat(s.AvgInterArrivalSeconds, 'f', -1, 64))
	b.WriteString("===================================================\n")
	return b.String()
}
