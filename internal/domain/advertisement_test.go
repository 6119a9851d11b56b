package domain

import (
	"math"
	"testing"
	"time"
)

func TestOriginTimeCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b OriginTime
		want int
	}{
		{"equal", OriginTime{100, 0}, OriginTime{100, 0}, 0},
		{"nanos differ", OriginTime{100, 0}, OriginTime{100, 5000000}, -1},
		{"seconds differ", OriginTime{101, 0}, OriginTime{100, 999999999}, 1},
		{"nanos carry into seconds", OriginTime{100, uint64(time.Second)}, OriginTime{101, 0}, 0},
		{"total nanos form", OriginTime{3, 3_000_000_000}, OriginTime{5, 999_999_999}, 1},
		{"max values", OriginTime{math.MaxUint64, math.MaxUint64}, OriginTime{math.MaxUint64, math.MaxUint64 - 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Fatalf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Compare(tt.a); got != -tt.want {
				t.Fatalf("Compare(%s, %s) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestOriginFromTime(t *testing.T) {
	ts := time.Unix(1700000000, 250)
	o := OriginFromTime(ts)
	if o.Seconds != 1700000000 || o.Nanos != 250 {
		t.Fatalf("unexpected origin %s", o)
	}
}
