package core

import (
	"fmt"
	"time"
)

// MonthKey identifies a calendar month. The zero value is not a valid key.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthKeyOf returns the month t falls in, using t's own location.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// ParseMonthKey parses the "YYYY-MM" form produced by String.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("parse month key %q: %w", s, err)
	}
	return MonthKeyOf(t), nil
}

// String returns the zero-padded "YYYY-MM" form.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Compare returns -1, 0 or +1 as k is earlier than, equal to or later than o.
func (k MonthKey) Compare(o MonthKey) int {
	switch {
	case k.Year < o.Year:
		return -1
	case k.Year > o.Year:
		return 1
	case k.Month < o.Month:
		return -1
	case k.Month > o.Month:
		return 1
	default:
		return 0
	}
}

func (k MonthKey) Before(o MonthKey) bool {
	return k.Compare(o) < 0
}

// Contains reports whether t falls in the month, in t's own location.
func (k MonthKey) Contains(t time.Time) bool {
	return MonthKeyOf(t) == k
}
