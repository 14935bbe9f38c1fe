package invoice

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	dayMonthYear     = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	isoDate          = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dayMonthYearHead = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})`)
	isoDateHead      = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
)

const inputDateLayout = "2006-01-02"

// IsValidDate reports whether s is a usable invoice date. DD/MM/YYYY and
// YYYY-MM-DD must name a real calendar day; anything else is accepted when a
// generic date parser understands it. Blank input is invalid.
func IsValidDate(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	if m := dayMonthYear.FindStringSubmatch(s); m != nil {
		return isCalendarDay(m[3], m[2], m[1])
	}

	if m := isoDate.FindStringSubmatch(s); m != nil {
		return isCalendarDay(m[1], m[2], m[3])
	}

	_, err := dateparse.ParseAny(s)
	return err == nil
}

// isCalendarDay round-trips the parts through a real date. Two-digit years
// never round-trip: they are read as 19xx.
func isCalendarDay(year, month, day string) bool {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)

	if y < 100 {
		return false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}

// ToInputDate converts a stored date into the YYYY-MM-DD form used by date
// inputs. Leading DD/MM/YYYY and YYYY-MM-DD are rearranged as-is; anything
// else goes through the generic parser. Returns nil when nothing parses.
func ToInputDate(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	txt := *s

	if m := dayMonthYearHead.FindStringSubmatch(txt); m != nil {
		out := m[3] + "-" + m[2] + "-" + m[1]
		return &out
	}

	if m := isoDateHead.FindStringSubmatch(txt); m != nil {
		out := m[1]
		return &out
	}

	t, err := dateparse.ParseAny(txt)
	if err != nil {
		return nil
	}
	out := t.Format(inputDateLayout)
	return &out
}
