package utils

import (
	"fmt"
	"time"
)

const DefaultDateFormat = "2006-01-02"

// ParseDate parses a date string using the default format.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected %s): %w", dateStr, DefaultDateFormat, err)
	}
	return t, nil
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RangeDates returns every calendar date in [start, end], inclusive.
func RangeDates(start, end time.Time) []time.Time {
	start, end = DateOnly(start), DateOnly(end)
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// EndOfMonth returns the last day of the month containing t.
func EndOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// StartOfMonth returns the first day of the month containing t.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey identifies a calendar month as YYYY*100+MM, so keys order
// chronologically even across year boundaries.
func MonthKey(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// PrevMonthKey returns the key of the month before the given key.
func PrevMonthKey(key int) int {
	year, month := key/100, key%100
	if month == 1 {
		return (year-1)*100 + 12
	}
	return year*100 + (month - 1)
}

// MonthKeyDate returns the last day of the keyed month.
func MonthKeyDate(key int) time.Time {
	year, month := key/100, key%100
	return EndOfMonth(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
}
