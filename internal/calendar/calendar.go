// Package calendar provides timezone-free date arithmetic over ISO "YYYY-MM-DD"
// strings: day of week, month ranges and the Portuguese labels used on screens
// and exports.
package calendar

import (
	"errors"
	"fmt"
)

// ErrInvalidDateFormat is returned when a date string is not a valid YYYY-MM-DD calendar date.
var ErrInvalidDateFormat = errors.New("calendar: invalid date format")

// ErrInvalidMonth is returned when a month string is not a valid YYYY-MM value.
var ErrInvalidMonth = errors.New("calendar: invalid month")

var dayNames = [7]string{
	"Domingo",
	"Segunda-feira",
	"Terça-feira",
	"Quarta-feira",
	"Quinta-feira",
	"Sexta-feira",
	"Sábado",
}

var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// Date is a civil date without any time zone attached.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ParseDate parses a strict YYYY-MM-DD string using integer arithmetic only.
func ParseDate(value string) (Date, error) {
	if len(value) != 10 || value[4] != '-' || value[7] != '-' {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, value)
	}

	year, ok := parseDigits(value[0:4])
	if !ok || year < 1 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, value)
	}
	month, ok := parseDigits(value[5:7])
	if !ok || month < 1 || month > 12 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, value)
	}
	day, ok := parseDigits(value[8:10])
	if !ok || day < 1 || day > DaysInMonth(year, month) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, value)
	}

	return Date{Year: year, Month: month, Day: day}, nil
}

// DayOfWeek returns 0 (Sunday) through 6 (Saturday) for a YYYY-MM-DD date.
//
// The computation shifts January and February to the end of the previous
// year so leap days fall at the end of the cycle, then applies the
// Gregorian congruence. No time.Time value is involved, so the result does
// not depend on the host time zone.
func DayOfWeek(dateISO string) (int, error) {
	date, err := ParseDate(dateISO)
	if err != nil {
		return 0, err
	}
	return date.Weekday(), nil
}

// Weekday returns 0 (Sunday) through 6 (Saturday).
func (d Date) Weekday() int {
	a := (14 - d.Month) / 12
	y := d.Year - a
	m := d.Month + 12*a - 2
	return (d.Day + y + y/4 - y/100 + y/400 + (31*m)/12) % 7
}

// IsLeapYear reports whether year has 366 days in the Gregorian calendar.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month, or 0 for an invalid month.
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

// ParseMonth parses a YYYY-MM value.
func ParseMonth(monthYear string) (year, month int, err error) {
	if len(monthYear) != 7 || monthYear[4] != '-' {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonth, monthYear)
	}
	year, ok := parseDigits(monthYear[0:4])
	if !ok || year < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonth, monthYear)
	}
	month, ok = parseDigits(monthYear[5:7])
	if !ok || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonth, monthYear)
	}
	return year, month, nil
}

// MonthRange returns the first and last dates of a YYYY-MM month as YYYY-MM-DD strings.
func MonthRange(monthYear string) (first, last string, err error) {
	year, month, err := ParseMonth(monthYear)
	if err != nil {
		return "", "", err
	}
	first = Date{Year: year, Month: month, Day: 1}.String()
	last = Date{Year: year, Month: month, Day: DaysInMonth(year, month)}.String()
	return first, last, nil
}

// MonthKey formats a year and month as YYYY-MM.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// DayName returns the Portuguese weekday name for 0 (Sunday) through 6 (Saturday).
func DayName(day int) string {
	if day < 0 || day > 6 {
		return "Dia inválido"
	}
	return dayNames[day]
}

// MonthName returns the Portuguese month name for 1 through 12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// DisplayDate converts YYYY-MM-DD into DD/MM/YYYY.
func DisplayDate(dateISO string) (string, error) {
	date, err := ParseDate(dateISO)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d/%02d/%04d", date.Day, date.Month, date.Year), nil
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
