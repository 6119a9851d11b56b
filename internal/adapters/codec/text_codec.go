package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// Tag prefixes every encoded advertisement.
const Tag = "DAO"

const (
	sep        = ":"
	fieldCount = 4
)

// ErrMalformed is wrapped by every DecodeError.
var ErrMalformed = errors.New("malformed advertisement")

// DecodeError reports which part of a payload could not be decoded.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrMalformed, e.Field)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformed, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformed}
	}
	return []error{ErrMalformed, e.Err}
}

// Encode renders seq and origin as "DAO:<seq>:<seconds>:<nanos>".
func Encode(seq uint32, origin domain.OriginTime) []byte {
	b := make([]byte, 0, 48)
	b = append(b, Tag...)
	b = append(b, sep...)
	b = strconv.AppendUint(b, uint64(seq), 10)
	b = append(b, sep...)
	b = strconv.AppendUint(b, origin.Seconds, 10)
	b = append(b, sep...)
	b = strconv.AppendUint(b, origin.Nanos, 10)
	return b
}

// Decode parses a payload produced by Encode. It never returns a partially
// filled advertisement.
func Decode(payload []byte) (domain.Advertisement, error) {
	parts := strings.Split(string(payload), sep)
	if parts[0] != Tag {
		return domain.Advertisement{}, &DecodeError{Field: "tag"}
	}
	if len(parts) < fieldCount {
		return domain.Advertisement{}, &DecodeError{Field: "fields", Err: fmt.Errorf("got %d of %d", len(parts), fieldCount)}
	}
	if len(parts) > fieldCount {
		return domain.Advertisement{}, &DecodeError{Field: "fields", Err: fmt.Errorf("unexpected trailing data %q", strings.Join(parts[fieldCount:], sep))}
	}

	seq, err := parseUint("seq", parts[1], 32)
	if err != nil {
		return domain.Advertisement{}, err
	}
	secs, err := parseUint("seconds", parts[2], 64)
	if err != nil {
		return domain.Advertisement{}, err
	}
	nanos, err := parseUint("nanos", parts[3], 64)
	if err != nil {
		return domain.Advertisement{}, err
	}

	return domain.Advertisement{
		Seq:    uint32(seq),
		Origin: domain.OriginTime{Seconds: secs, Nanos: nanos},
	}, nil
}

func parseUint(field, s string, bitSize int) (uint64, error) {
	if s == "" {
		return 0, &DecodeError{Field: field, Err: errors.New("empty")}
	}
	v, err := strconv.ParseUint(s, 10, bitSize)
	if err != nil {
		return 0, &DecodeError{Field: field, Err: err}
	}
	return v, nil
}

// Text is the ports.Codec for the tagged text wire format.
type Text struct{}

func (Text) Encode(adv domain.Advertisement) []byte {
	return Encode(adv.Seq, adv.Origin)
}

func (Text) Decode(payload []byte) (domain.Advertisement, error) {
	return Decode(payload)
}

func (Text) Name() string { return "dao-text" }

var _ ports.Codec = Text{}
