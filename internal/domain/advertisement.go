package domain

import (
	"fmt"
	"math/bits"
	"time"
)

// SenderID identifies the origin of an advertisement. The collector never
// looks inside it; a network address rendered as a string is typical.
type SenderID string

// OriginTime is the instant a sender claims it generated an advertisement.
// The instant is Seconds*1e9 + Nanos nanoseconds; Nanos is not bounded to a
// single second.
type OriginTime struct {
	Seconds uint64 `json:"seconds"`
	Nanos   uint64 `json:"nanos"`
}

// OriginFromTime splits t into whole seconds and the sub-second remainder.
func OriginFromTime(t time.Time) OriginTime {
	return OriginTime{Seconds: uint64(t.Unix()), Nanos: uint64(t.Nanosecond())}
}

func (o OriginTime) wide() (hi, lo uint64) {
	hi, lo = bits.Mul64(o.Seconds, uint64(time.Second))
	var carry uint64
	lo, carry = bits.Add64(lo, o.Nanos, 0)
	return hi + carry, lo
}

// Compare returns -1, 0 or +1 depending on whether o is before, equal to or
// after other.
func (o OriginTime) Compare(other OriginTime) int {
	ah, al := o.wide()
	bh, bl := other.wide()
	switch {
	case ah < bh, ah == bh && al < bl:
		return -1
	case ah > bh, ah == bh && al > bl:
		return 1
	default:
		return 0
	}
}

func (o OriginTime) Equal(other OriginTime) bool  { return o.Compare(other) == 0 }
func (o OriginTime) Before(other OriginTime) bool { return o.Compare(other) < 0 }

func (o OriginTime) String() string {
	return fmt.Sprintf("(%d,%d)", o.Seconds, o.Nanos)
}

// Advertisement is a decoded DAO.
type Advertisement struct {
	Seq    uint32     `json:"seq"`
	Origin OriginTime `json:"origin"`
}

// Event is one delivery from the transport: who sent it, the bytes as they
// arrived and when they arrived.
type Event struct {
	Sender  SenderID  `json:"sender"`
	Payload []byte    `json:"payload"`
	Arrival time.Time `json:"arrival"`
}
