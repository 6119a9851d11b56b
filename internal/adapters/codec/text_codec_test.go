package codec

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/DAOGuard/internal/domain"
)

func TestEncodeFormat(t *testing.T) {
	got := Encode(7, domain.OriginTime{Seconds: 100, Nanos: 5000000})
	require.Equal(t, "DAO:7:100:5000000", string(got))
}

func TestDecodeRoundTrip(t *testing.T) {
	cases := []domain.Advertisement{
		{Seq: 0, Origin: domain.OriginTime{}},
		{Seq: 1, Origin: domain.OriginTime{Seconds: 100}},
		{Seq: 101, Origin: domain.OriginTime{Seconds: 3, Nanos: 3_512_000_000}},
		{Seq: math.MaxUint32, Origin: domain.OriginTime{Seconds: math.MaxUint64, Nanos: math.MaxUint64}},
	}
	for _, want := range cases {
		t.Run(strconv.FormatUint(uint64(want.Seq), 10), func(t *testing.T) {
			got, err := Decode(Encode(want.Seq, want.Origin))
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestTextCodecImplementsPort(t *testing.T) {
	var c Text
	adv := domain.Advertisement{Seq: 9, Origin: domain.OriginTime{Seconds: 12, Nanos: 34}}
	got, err := c.Decode(c.Encode(adv))
	require.NoError(t, err)
	require.Equal(t, adv, got)
	require.Equal(t, "dao-text", c.Name())
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{name: "empty", payload: "", field: "tag"},
		{name: "wrong tag", payload: "DIO:1:2:3", field: "tag"},
		{name: "lowercase tag", payload: "dao:1:2:3", field: "tag"},
		{name: "missing nanos", payload: "DAO:1:2", field: "fields"},
		{name: "tag only", payload: "DAO", field: "fields"},
		{name: "trailing field", payload: "DAO:1:2:3:4", field: "fields"},
		{name: "empty seq", payload: "DAO::2:3", field: "seq"},
		{name: "negative seq", payload: "DAO:-1:2:3", field: "seq"},
		{name: "seq overflows uint32", payload: "DAO:4294967296:2:3", field: "seq"},
		{name: "seconds not a number", payload: "DAO:1:abc:3", field: "seconds"},
		{name: "seconds overflow", payload: "DAO:1:18446744073709551616:3", field: "seconds"},
		{name: "nanos with suffix", payload: "DAO:1:2:3x", field: "nanos"},
		{name: "nanos with space", payload: "DAO:1:2: 3", field: "nanos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv, err := Decode([]byte(tt.payload))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrMalformed))
			require.Equal(t, domain.Advertisement{}, adv)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			require.Equal(t, tt.field, de.Field)
		})
	}
}
