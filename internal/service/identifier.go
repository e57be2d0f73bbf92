package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	idSequenceDigits = 5
	maxIDSequence    = 99999
)

// MonthYear returns the MMYY prefix for t.
func MonthYear(t time.Time) string {
	return t.Format("0106")
}

// NextID mints the next id_input for monthYear. It must run inside the
// transaction that inserts the order: the prefix lock is held until that
// transaction ends, so concurrent intakes for the same month serialize here.
func (e *Engine) NextID(ctx context.Context, q Queries, monthYear string) (string, error) {
	if !validMonthYear(monthYear) {
		return "", &GenerationError{Prefix: monthYear, Reason: "prefix must be MMYY"}
	}

	if err := q.LockIDPrefix(ctx, monthYear); err != nil {
		return "", fmt.Errorf("failed to lock id prefix %s: %w", monthYear, err)
	}

	last, err := q.LastIDWithPrefix(ctx, monthYear)
	if err != nil {
		return "", fmt.Errorf("failed to read last id for %s: %w", monthYear, err)
	}

	return nextIdentifier(monthYear, last)
}

// nextIdentifier increments the suffix of last, or starts at 1 when last is empty.
func nextIdentifier(monthYear, last string) (string, error) {
	seq := 0
	if last != "" {
		suffix := strings.TrimPrefix(last, monthYear+"-")
		if suffix == last || len(suffix) != idSequenceDigits {
			return "", &GenerationError{Prefix: monthYear, Reason: fmt.Sprintf("malformed existing id %q", last)}
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 || strings.HasPrefix(suffix, "+") {
			return "", &GenerationError{Prefix: monthYear, Reason: fmt.Sprintf("malformed existing id %q", last)}
		}
		seq = n
	}

	seq++
	if seq > maxIDSequence {
		return "", &GenerationError{Prefix: monthYear, Reason: "identifier space exhausted"}
	}
	return fmt.Sprintf("%s-%0*d", monthYear, idSequenceDigits, seq), nil
}

func validMonthYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	month, _ := strconv.Atoi(s[:2])
	return month >= 1 && month <= 12
}
