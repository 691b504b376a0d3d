package orders

import (
	"fmt"
	"time"
)

// FormatNumber builds an order number from the calendar day and the per-day
// sequence: YYYYMMDD followed by the sequence padded to at least four digits.
func FormatNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", day.UTC().Format("20060102"), seq)
}

// Day truncates t to the UTC calendar day used for order numbering.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
