// Package ordernumber formats and parses human-readable order numbers of the
// form ORD + yyMMdd + a four digit daily sequence, e.g. ORD2505230001.
package ordernumber

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	// Literal is the fixed leading text of every order number.
	Literal = "ORD"

	// MaxSequence is the highest sequence that fits the four digit suffix.
	MaxSequence = 9999

	prefixLen = len(Literal) + 6
	length    = prefixLen + 4
)

var (
	ErrSequenceExhausted = errors.New("daily order sequence exhausted")
	ErrInvalidFormat     = errors.New("invalid order number format")
)

// Prefix returns the date-scoped prefix for t, in t's location.
func Prefix(t time.Time) string {
	return Literal + t.Format("060102")
}

// Format builds the order number for the given day and sequence.
func Format(t time.Time, seq int) (string, error) {
	if seq < 1 || seq > MaxSequence {
		return "", fmt.Errorf("%w: sequence %d", ErrSequenceExhausted, seq)
	}
	return fmt.Sprintf("%s%04d", Prefix(t), seq), nil
}

// Parse splits an order number into its date prefix and sequence.
func Parse(s string) (string, int, error) {
	if len(s) != length || s[:len(Literal)] != Literal {
		return "", 0, ErrInvalidFormat
	}

	prefix := s[:prefixLen]
	if _, err := time.Parse("060102", prefix[len(Literal):]); err != nil {
		return "", 0, ErrInvalidFormat
	}

	for _, c := range s[prefixLen:] {
		if c < '0' || c > '9' {
			return "", 0, ErrInvalidFormat
		}
	}
	seq, err := strconv.Atoi(s[prefixLen:])
	if err != nil || seq < 1 {
		return "", 0, ErrInvalidFormat
	}

	return prefix, seq, nil
}
