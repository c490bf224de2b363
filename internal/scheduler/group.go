package scheduler

import (
	"sort"

	"github.com/example/volunteer-scheduler/internal/calendar"
)

// DateGroup is every row sharing one date, in the order the store returned them.
type DateGroup[T any] struct {
	Date      string
	DayOfWeek int
	Rows      []T
}

// GroupByDate buckets rows by the date returned by dateOf. Groups come out in
// ascending date order; rows keep their relative order inside a group. The
// day of week is always recomputed from the date.
func GroupByDate[T any](rows []T, dateOf func(T) string) ([]DateGroup[T], error) {
	index := make(map[string]int)
	groups := make([]DateGroup[T], 0)

	for _, row := range rows {
		date := dateOf(row)
		pos, ok := index[date]
		if !ok {
			day, err := calendar.DayOfWeek(date)
			if err != nil {
				return nil, err
			}
			pos = len(groups)
			index[date] = pos
			groups = append(groups, DateGroup[T]{Date: date, DayOfWeek: day})
		}
		groups[pos].Rows = append(groups[pos].Rows, row)
	}

	// ISO dates sort lexically.
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Date < groups[j].Date
	})

	return groups, nil
}

// CheckStoredDay compares a stored day of week with the value computed from date.
func CheckStoredDay(date string, stored int) (computed int, stale bool, err error) {
	computed, err = calendar.DayOfWeek(date)
	if err != nil {
		return 0, false, err
	}
	return computed, computed != stored, nil
}
