package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serials count days since 1899-12-30, converted through a fixed
// day-to-millisecond offset so fractional serials (times) survive.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const millisPerDay = 86400000

var (
	reISODate = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	reDMYDate = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
)

// parseDate accepts spreadsheet serial numbers, DD-MM-YYYY / DD/MM/YYYY and
// YYYY-MM-DD strings. Everything else falls back to today.
func (n *Normalizer) parseDate(v any) time.Time {
	today := n.today()
	switch t := v.(type) {
	case float64:
		return serialToDate(t)
	case int:
		return serialToDate(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return today
		}
		// Bare numbers in a date cell are spreadsheet serials.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialToDate(f)
		}
		return parseDateString(s, today)
	default:
		return today
	}
}

func (n *Normalizer) today() time.Time {
	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func serialToDate(serial float64) time.Time {
	ms := int64(serial * millisPerDay)
	d := serialEpoch.Add(time.Duration(ms) * time.Millisecond)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDateString(s string, fallback time.Time) time.Time {
	// Normalize the separator set before pattern matching.
	d := strings.NewReplacer(".", "-", "/", "-", " ", "-").Replace(s)

	if m := reISODate.FindStringSubmatch(d); m != nil {
		return dateFromParts(m[1], m[2], m[3], fallback)
	}
	if m := reDMYDate.FindStringSubmatch(d); m != nil {
		return dateFromParts(m[3], m[2], m[1], fallback)
	}
	return fallback
}

func dateFromParts(year, month, day string, fallback time.Time) time.Time {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return fallback
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return fallback
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}
