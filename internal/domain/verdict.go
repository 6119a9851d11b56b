package domain

// Reason explains a freshness verdict.
type Reason string

const (
	ReasonFirstContact    Reason = "first_contact"
	ReasonFresh           Reason = "fresh"
	ReasonStaleSeq        Reason = "stale_seq"
	ReasonDuplicate       Reason = "duplicate"
	ReasonBurst           Reason = "burst"
	ReasonOriginRegressed Reason = "origin_regressed"
	ReasonSeqNotAdvanced  Reason = "seq_not_advanced"
)

// Verdict is the outcome of a freshness check.
type Verdict struct {
	Accepted bool
	Reason   Reason
}

func Accept(r Reason) Verdict { return Verdict{Accepted: true, Reason: r} }
func Reject(r Reason) Verdict { return Verdict{Accepted: false, Reason: r} }

func (v Verdict) String() string {
	if v.Accepted {
		return "accept:" + string(v.Reason)
	}
	return "reject:" + string(v.Reason)
}
