package evaluator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/treedoc/pathquery/pkg/types"
)

// maxYearOffset bounds relative date arithmetic. Offsets beyond this are
// rejected rather than wrapped or saturated.
const maxYearOffset = 10000

// evalTemporalOp implements the temporal operator family. Both operands
// are coerced to instants; coercion failures surface as invalid-date
// errors rather than silent non-matches.
func (e *Engine) evalTemporalOp(op string, lhs, rhs interface{}) (interface{}, bool, error) {
	lt, err := e.toTime(lhs)
	if err != nil {
		return nil, false, err
	}

	switch op {
	case "between":
		window, ok := rhs.([]interface{})
		if !ok || len(window) != 2 {
			return nil, false, types.NewEvalError(types.ErrOperandType,
				"'between' requires a two-element array operand")
		}
		lo, err := e.toTime(window[0])
		if err != nil {
			return nil, false, err
		}
		hi, err := e.toTime(window[1])
		if err != nil {
			return nil, false, err
		}
		return !lt.Before(lo) && !lt.After(hi), true, nil

	case "daysAgo", "weeksAgo", "monthsAgo", "yearsAgo":
		n, ok := toFloat(rhs)
		if !ok {
			return nil, false, types.NewEvalError(types.ErrOperandType,
				fmt.Sprintf("'%s' requires a numeric operand", op))
		}
		lo, err := e.timeAgo(op, n)
		if err != nil {
			return nil, false, err
		}
		now := e.now()
		return !lt.Before(lo) && !lt.After(now), true, nil
	}

	rt, err := e.toTime(rhs)
	if err != nil {
		return nil, false, err
	}

	switch op {
	case "before":
		return lt.Before(rt), true, nil
	case "after":
		return lt.After(rt), true, nil
	case "sameDay":
		ly, lm, ld := lt.Date()
		ry, rm, rd := rt.Date()
		return ly == ry && lm == rm && ld == rd, true, nil
	case "sameWeek":
		ly, lw := lt.ISOWeek()
		ry, rw := rt.ISOWeek()
		return ly == ry && lw == rw, true, nil
	case "sameMonth":
		return lt.Year() == rt.Year() && lt.Month() == rt.Month(), true, nil
	case "sameYear":
		return lt.Year() == rt.Year(), true, nil
	default:
		return nil, false, types.NewEvalError(types.ErrUnknownOperator,
			"unknown temporal operator: "+op)
	}
}

// timeAgo returns the instant N days, weeks or months before now, with
// calendar-aware month arithmetic.
func (e *Engine) timeAgo(unit string, n float64) (time.Time, error) {
	now := e.now()
	switch unit {
	case "daysAgo":
		return e.offsetTime(now, -n*24*float64(time.Hour))
	case "weeksAgo":
		return e.offsetTime(now, -n*7*24*float64(time.Hour))
	case "monthsAgo":
		if n > maxYearOffset*12 || n < -maxYearOffset*12 {
			return time.Time{}, rangeError(n, "months")
		}
		return addMonthsClamped(now, -int(n)), nil
	case "yearsAgo":
		if n > maxYearOffset || n < -maxYearOffset {
			return time.Time{}, rangeError(n, "years")
		}
		return addMonthsClamped(now, -int(n)*12), nil
	default:
		return time.Time{}, types.NewEvalError(types.ErrUnknownOperator,
			"unknown temporal unit: "+unit)
	}
}

func (e *Engine) offsetTime(base time.Time, nanos float64) (time.Time, error) {
	const dayNanos = 24 * float64(time.Hour)
	const yearNanos = 365.25 * dayNanos
	if nanos > maxYearOffset*yearNanos || nanos < -maxYearOffset*yearNanos {
		return time.Time{}, rangeError(nanos/yearNanos, "years")
	}
	// A time.Duration caps at roughly 292 years, far below the allowed
	// offset range. Whole days go through AddDate; only the sub-day
	// remainder becomes a Duration.
	days := int(nanos / dayNanos)
	rem := nanos - float64(days)*dayNanos
	return base.AddDate(0, 0, days).Add(time.Duration(rem)), nil
}

func rangeError(n float64, unit string) error {
	return types.NewSecurityError(types.ErrDateRange,
		fmt.Sprintf("date offset of %g %s exceeds the allowed range", n, unit))
}

// addMonthsClamped shifts by whole months, clamping to the last day of
// the target month instead of rolling over (Jan 31 - 1 month is Dec 31,
// Mar 31 - 1 month is Feb 28/29).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	shifted := first.AddDate(0, months, 0)
	if last := daysInMonth(shifted.Year(), shifted.Month()); d > last {
		d = last
	}
	return time.Date(shifted.Year(), shifted.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (e *Engine) startOfToday() time.Time {
	now := e.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// absoluteLayouts are tried in order for string date operands.
var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toTime coerces an operand to an instant. Numbers are Unix epoch
// milliseconds; strings are absolute dates, @-anchored relative
// expressions, or ISO 8601 durations relative to now.
func (e *Engine) toTime(v interface{}) (time.Time, error) {
	if n, ok := toFloat(v); ok {
		return time.UnixMilli(int64(n)), nil
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
			fmt.Sprintf("cannot interpret %s as a date", types.TypeOfValue(v)))
	}
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "@") {
		return e.parseRelative(s)
	}
	if strings.HasPrefix(s, "P") || strings.HasPrefix(s, "-P") {
		return e.parseISODuration(s)
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
		"cannot parse date: "+strconv.Quote(s))
}

// parseRelative handles the @now / @today anchors with an optional signed
// offset, e.g. "@now-7d" or "@today+2w".
func (e *Engine) parseRelative(s string) (time.Time, error) {
	var base time.Time
	var rest string
	switch {
	case strings.HasPrefix(s, "@now"):
		base = e.now()
		rest = s[len("@now"):]
	case strings.HasPrefix(s, "@today"):
		base = e.startOfToday()
		rest = s[len("@today"):]
	default:
		return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
			"unknown date anchor: "+strconv.Quote(s))
	}
	if rest == "" {
		return base, nil
	}

	sign := 1.0
	switch rest[0] {
	case '+':
		rest = rest[1:]
	case '-':
		sign = -1
		rest = rest[1:]
	default:
		return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
			"expected '+' or '-' after date anchor in "+strconv.Quote(s))
	}
	if rest == "" {
		return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
			"missing offset after date anchor in "+strconv.Quote(s))
	}

	unit := rest[len(rest)-1]
	n, err := strconv.ParseFloat(rest[:len(rest)-1], 64)
	if err != nil {
		return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
			"invalid date offset in "+strconv.Quote(s))
	}
	n *= sign

	switch unit {
	case 's':
		return e.offsetTime(base, n*float64(time.Second))
	case 'm':
		return e.offsetTime(base, n*float64(time.Minute))
	case 'h':
		return e.offsetTime(base, n*float64(time.Hour))
	case 'd':
		return e.offsetTime(base, n*24*float64(time.Hour))
	case 'w':
		return e.offsetTime(base, n*7*24*float64(time.Hour))
	case 'M':
		if n > maxYearOffset*12 || n < -maxYearOffset*12 {
			return time.Time{}, rangeError(n, "months")
		}
		return addMonthsClamped(base, int(n)), nil
	case 'y':
		if n > maxYearOffset || n < -maxYearOffset {
			return time.Time{}, rangeError(n, "years")
		}
		return addMonthsClamped(base, int(n)*12), nil
	default:
		return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
			fmt.Sprintf("unknown date offset unit %q in %s", unit, strconv.Quote(s)))
	}
}

// parseISODuration handles a duration like "P1Y2M3DT4H5M6S" interpreted
// as an offset from now; a leading '-' reverses the direction.
func (e *Engine) parseISODuration(s string) (time.Time, error) {
	orig := s
	sign := 1
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) == 1 {
		return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
			"invalid duration: "+strconv.Quote(orig))
	}
	s = s[1:]

	var years, months, days int
	var clockSeconds float64
	inTime := false
	num := ""

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == 'T':
			if num != "" {
				return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
					"invalid duration: "+strconv.Quote(orig))
			}
			inTime = true
		case c >= '0' && c <= '9':
			num += string(c)
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
					"invalid duration: "+strconv.Quote(orig))
			}
			num = ""
			// Each date designator is bounded on its own so the combined
			// day count cannot overflow.
			switch {
			case c == 'Y' && !inTime:
				if n > maxYearOffset {
					return time.Time{}, rangeError(float64(n), "years")
				}
				years = n
			case c == 'M' && !inTime:
				if n > maxYearOffset*12 {
					return time.Time{}, rangeError(float64(n)/12, "years")
				}
				months = n
			case c == 'W' && !inTime:
				if n > maxYearOffset*53 {
					return time.Time{}, rangeError(float64(n)/52, "years")
				}
				days += n * 7
			case c == 'D' && !inTime:
				if n > maxYearOffset*366 {
					return time.Time{}, rangeError(float64(n)/365, "years")
				}
				days += n
			case c == 'H' && inTime:
				clockSeconds += float64(n) * 3600
			case c == 'M' && inTime:
				clockSeconds += float64(n) * 60
			case c == 'S' && inTime:
				clockSeconds += float64(n)
			default:
				return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
					fmt.Sprintf("unknown duration designator %q in %s", c, strconv.Quote(orig)))
			}
		}
	}
	if num != "" {
		return time.Time{}, types.NewEvalError(types.ErrInvalidDate,
			"invalid duration: "+strconv.Quote(orig))
	}

	totalYears := years + months/12
	if totalYears > maxYearOffset {
		return time.Time{}, rangeError(float64(totalYears), "years")
	}

	base := e.now()
	shifted := addMonthsClamped(base, sign*(years*12+months))
	shifted = shifted.AddDate(0, 0, sign*days)
	// The clock part goes through the same bounded offset arithmetic as
	// relative anchors; huge PT...H/M/S values are rejected, not wrapped.
	return e.offsetTime(shifted, float64(sign)*clockSeconds*float64(time.Second))
}
