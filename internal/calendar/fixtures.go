package calendar

import "fmt"

// KnownDate pairs a date with its verified day of week.
type KnownDate struct {
	Date      string
	DayOfWeek int
}

// KnownDates is a fixed table used to check DayOfWeek. It is never consulted
// when computing a result.
var KnownDates = []KnownDate{
	{Date: "2025-09-25", DayOfWeek: 4},
	{Date: "2025-09-28", DayOfWeek: 0},
	{Date: "2025-09-29", DayOfWeek: 1},
	{Date: "2025-09-30", DayOfWeek: 2},
	{Date: "2025-10-01", DayOfWeek: 3},
	{Date: "2025-10-02", DayOfWeek: 4},
	{Date: "2025-10-03", DayOfWeek: 5},
	{Date: "2025-10-04", DayOfWeek: 6},
	{Date: "2000-02-29", DayOfWeek: 2},
	{Date: "1900-03-01", DayOfWeek: 4},
	{Date: "2024-02-29", DayOfWeek: 4},
	{Date: "2026-01-01", DayOfWeek: 4},
}

// SelfCheck verifies DayOfWeek against KnownDates and reports the first mismatch.
func SelfCheck() error {
	for _, known := range KnownDates {
		got, err := DayOfWeek(known.Date)
		if err != nil {
			return fmt.Errorf("calendar self check %s: %w", known.Date, err)
		}
		if got != known.DayOfWeek {
			return fmt.Errorf("calendar self check %s: got %d, want %d", known.Date, got, known.DayOfWeek)
		}
	}
	return nil
}
