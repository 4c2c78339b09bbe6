package utils

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// SortDates sorts a slice of time.Time in ascending order.
func SortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

// StrictlyIncreasing reports whether every date is after its predecessor.
func StrictlyIncreasing(dates []time.Time) bool {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return false
		}
	}
	return true
}

// BracketIndex returns i such that xs[i] <= x < xs[i+1] for a sorted slice,
// clamped to [0, len(xs)-2]. It needs at least two points.
func BracketIndex(xs []float64, x float64) int {
	if len(xs) < 2 {
		panic("BracketIndex: need at least 2 points")
	}
	i := sort.SearchFloat64s(xs, x)
	// SearchFloat64s returns the first index with xs[i] >= x.
	if i < len(xs) && xs[i] == x {
		if i == len(xs)-1 {
			return i - 1
		}
		return i
	}
	i--
	if i < 0 {
		return 0
	}
	if i > len(xs)-2 {
		return len(xs) - 2
	}
	return i
}

// ParseDate converts YYYY-MM-DD to time.Time.
func ParseDate(strDate string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(strDate))
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %w", err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Days returns the day count fraction in days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// AddMonth behaves like Excel's EDATE, avoiding Go's month normalization surprises.
func AddMonth(t time.Time, months int) time.Time {
	target := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	last := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, t.Location())
}

// AddTenor shifts t by a tenor string like "1W", "3M", "10Y" or "2D".
func AddTenor(t time.Time, tenor string) (time.Time, error) {
	tenor = strings.TrimSpace(strings.ToUpper(tenor))
	if len(tenor) < 2 {
		return time.Time{}, fmt.Errorf("AddTenor: invalid tenor %q", tenor)
	}
	n, err := strconv.Atoi(tenor[:len(tenor)-1])
	if err != nil {
		return time.Time{}, fmt.Errorf("AddTenor: invalid tenor %q: %w", tenor, err)
	}
	switch tenor[len(tenor)-1] {
	case 'D':
		return t.AddDate(0, 0, n), nil
	case 'W':
		return t.AddDate(0, 0, 7*n), nil
	case 'M':
		return AddMonth(t, n), nil
	case 'Y':
		return AddMonth(t, 12*n), nil
	default:
		return time.Time{}, fmt.Errorf("AddTenor: unknown unit in %q", tenor)
	}
}

// RoundTo rounds a float to the specified decimal places.
func RoundTo(val float64, decimals uint32) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
