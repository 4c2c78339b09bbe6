package utils

import (
	"fmt"
	"strings"
	"time"
)

// Day count convention names accepted by YearFraction.
const (
	Act360   = "ACT/360"
	Act365F  = "ACT/365F"
	ActAct   = "ACT/ACT"
	Thirty   = "30/360"
	ThirtyE  = "30E/360"
	Business = "BUS/252"
)

// YearFraction computes year fraction between two dates using the specified day count convention.
// Supported conventions: ACT/360, ACT/365F, ACT/ACT (ISDA), 30E/360, 30/360, BUS/252 (weekdays only).
// Unknown conventions fall back to ACT/365F.
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Act365F:
		return Days(start, end) / 365.0
	case ActAct:
		return actActISDA(start, end)
	case ThirtyE, Thirty:
		// D1 and D2 are capped at 30
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	case Business:
		return float64(weekdaysBetween(start, end)) / 252.0
	default:
		return Days(start, end) / 365.0
	}
}

// ValidateDayCount normalises a convention name and rejects unknown ones.
func ValidateDayCount(convention string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(convention))
	switch c {
	case "":
		return Act365F, nil
	case Act360, Act365F, ActAct, Thirty, ThirtyE, Business:
		return c, nil
	case "ACT/365", "A365F":
		return Act365F, nil
	case "A360":
		return Act360, nil
	default:
		return "", fmt.Errorf("ValidateDayCount: unknown convention %q", convention)
	}
}

// actActISDA splits the period at year boundaries and divides each piece by
// the length of its own year.
func actActISDA(start, end time.Time) float64 {
	if end.Before(start) {
		return -actActISDA(end, start)
	}
	if start.Year() == end.Year() {
		return Days(start, end) / daysInYear(start.Year())
	}
	firstYearEnd := time.Date(start.Year()+1, 1, 1, 0, 0, 0, 0, start.Location())
	lastYearStart := time.Date(end.Year(), 1, 1, 0, 0, 0, 0, end.Location())
	yf := Days(start, firstYearEnd) / daysInYear(start.Year())
	yf += float64(end.Year() - start.Year() - 1)
	yf += Days(lastYearStart, end) / daysInYear(end.Year())
	return yf
}

func daysInYear(year int) float64 {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}

func weekdaysBetween(start, end time.Time) int {
	sign := 1
	if end.Before(start) {
		start, end = end, start
		sign = -1
	}
	n := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			n++
		}
	}
	return sign * n
}
