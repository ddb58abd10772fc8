package query

import (
	"strings"
	"time"

	"github.com/fsindex/fsindex/internal/ferrors"
)

// DatePredicateKind distinguishes an inclusive range from an excluded
// single day.
type DatePredicateKind int

const (
	DateRange DatePredicateKind = iota
	DateNotEqual
)

// DatePredicate is a compiled "dm:"/"dc:" argument, matching against
// Unix timestamps in seconds.
type DatePredicate struct {
	Kind  DatePredicateKind
	Start *int64
	End   *int64
}

// Matches reports whether timestamp (Unix seconds) satisfies the
// predicate.
func (p DatePredicate) Matches(timestamp int64) bool {
	switch p.Kind {
	case DateNotEqual:
		return timestamp < *p.Start || timestamp > *p.End
	default:
		if p.Start != nil && timestamp < *p.Start {
			return false
		}
		if p.End != nil && timestamp > *p.End {
			return false
		}
		return true
	}
}

// dateValue is a day's Unix-timestamp bounds: midnight through
// 23:59:59 local time.
type dateValue struct {
	start int64
	end   int64
}

// ParseDatePredicate parses the argument of "dm:"/"dc:": a comparison
// operator, an inclusive "start..end" range (either side may be
// empty), or a bare keyword/absolute date (an exact-day match).
func ParseDatePredicate(raw string) (DatePredicate, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DatePredicate{}, ferrors.InvalidInput("date filter requires a value")
	}
	now := time.Now()

	if op, valueRaw, ok := parseDateComparison(trimmed); ok {
		value, err := parseDateValue(valueRaw, now)
		if err != nil {
			return DatePredicate{}, err
		}
		switch op {
		case "<":
			end := value.start - 1
			return dateRange(nil, &end), nil
		case "<=":
			return dateRange(nil, &value.end), nil
		case ">":
			start := value.end + 1
			return dateRange(&start, nil), nil
		case ">=":
			return dateRange(&value.start, nil), nil
		case "!=":
			return DatePredicate{Kind: DateNotEqual, Start: &value.start, End: &value.end}, nil
		default: // "="
			return dateRange(&value.start, &value.end), nil
		}
	}

	if startRaw, endRaw, ok := parseDateRangeSyntax(trimmed); ok {
		var start, end *int64
		if startRaw != "" {
			v, err := parseDateValue(startRaw, now)
			if err != nil {
				return DatePredicate{}, err
			}
			start = &v.start
		}
		if endRaw != "" {
			v, err := parseDateValue(endRaw, now)
			if err != nil {
				return DatePredicate{}, err
			}
			end = &v.end
		}
		if start != nil && end != nil && *start > *end {
			return DatePredicate{}, ferrors.InvalidInput("date range start must be before or equal to end")
		}
		return dateRange(start, end), nil
	}

	value, err := parseDateValue(trimmed, now)
	if err != nil {
		return DatePredicate{}, err
	}
	return dateRange(&value.start, &value.end), nil
}

func dateRange(start, end *int64) DatePredicate {
	return DatePredicate{Kind: DateRange, Start: start, End: end}
}

func parseDateComparison(raw string) (op, rest string, ok bool) {
	for _, candidate := range []string{"<=", ">=", "!=", "<", ">", "="} {
		if value, found := strings.CutPrefix(raw, candidate); found {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				return "", "", false
			}
			return candidate, trimmed, true
		}
	}
	return "", "", false
}

func parseDateRangeSyntax(raw string) (start, end string, ok bool) {
	idx := strings.Index(raw, "..")
	if idx < 0 {
		return "", "", false
	}
	start = strings.TrimSpace(raw[:idx])
	end = strings.TrimSpace(raw[idx+2:])
	if start == "" && end == "" {
		return "", "", false
	}
	return start, end, true
}

func parseDateValue(raw string, now time.Time) (dateValue, error) {
	trimmed := strings.TrimSpace(raw)
	if v, ok := keywordRange(trimmed, now); ok {
		return v, nil
	}
	if date, ok := parseAbsoluteDate(trimmed); ok {
		return dayBounds(date), nil
	}
	return dateValue{}, ferrors.InvalidInput("unrecognized date value: %q", raw)
}

func keywordRange(keyword string, now time.Time) (dateValue, bool) {
	lower := strings.ToLower(keyword)
	today := truncateToDay(now)

	switch lower {
	case "today":
		return dayBounds(today), true
	case "yesterday":
		return dayBounds(today.AddDate(0, 0, -1)), true
	case "thisweek":
		offset := mondayOffset(today)
		start := today.AddDate(0, 0, -offset)
		return rangeFromDates(start, start.AddDate(0, 0, 6)), true
	case "lastweek":
		offset := mondayOffset(today) + 7
		start := today.AddDate(0, 0, -offset)
		return rangeFromDates(start, start.AddDate(0, 0, 6)), true
	case "thismonth":
		return monthRange(today.Year(), today.Month()), true
	case "lastmonth":
		y, m := today.Year(), today.Month()
		if m == time.January {
			y--
			m = time.December
		} else {
			m--
		}
		return monthRange(y, m), true
	case "thisyear":
		return yearRange(today.Year()), true
	case "lastyear":
		return yearRange(today.Year() - 1), true
	case "pastweek":
		return trailingRange(today, 7), true
	case "pastmonth":
		return trailingRange(today, 30), true
	case "pastyear":
		return trailingRange(today, 365), true
	default:
		return dateValue{}, false
	}
}

// mondayOffset returns the number of days since the most recent
// Monday (0 if today is Monday); weeks are Monday-based.
func mondayOffset(date time.Time) int {
	wd := int(date.Weekday()) // Sunday = 0
	return (wd + 6) % 7
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayBounds(date time.Time) dateValue {
	y, m, d := date.Date()
	loc := date.Location()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d, 23, 59, 59, 0, loc)
	return dateValue{start: start.Unix(), end: end.Unix()}
}

func rangeFromDates(start, end time.Time) dateValue {
	return dateValue{start: dayBounds(start).start, end: dayBounds(end).end}
}

func monthRange(year int, month time.Month) dateValue {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, -1)
	return rangeFromDates(start, end)
}

func yearRange(year int) dateValue {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.Local)
	return rangeFromDates(start, end)
}

func trailingRange(today time.Time, days int) dateValue {
	start := today.AddDate(0, 0, -(days - 1))
	return rangeFromDates(start, today)
}

// parseAbsoluteDate parses Y-M-D/D-M-Y/M-D-Y families separated by
// '-', '/' or '.'. A leading 4-digit year (detected before trying any
// format) disambiguates the year-first layout from the two
// day/month-first candidates.
func parseAbsoluteDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	sep := byte(0)
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] == '-' || trimmed[i] == '/' || trimmed[i] == '.' {
			sep = trimmed[i]
			break
		}
	}
	if sep == 0 {
		return time.Time{}, false
	}

	yearFirst := len(trimmed) >= 4 && isAllDigits(trimmed[:4])

	var layouts []string
	switch sep {
	case '-':
		if yearFirst {
			layouts = []string{"2006-01-02"}
		} else {
			layouts = []string{"02-01-2006", "01-02-2006", "2006-01-02"}
		}
	case '/':
		if yearFirst {
			layouts = []string{"2006/01/02"}
		} else {
			layouts = []string{"01/02/2006", "02/01/2006", "2006/01/02"}
		}
	case '.':
		if yearFirst {
			layouts = []string{"2006.01.02"}
		} else {
			layouts = []string{"02.01.2006", "01.02.2006", "2006.01.02"}
		}
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
