package calendar

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	TARGET CalendarID = "TARGET"
	JPN    CalendarID = "JPN"
	USD    CalendarID = "USD"
	KRW    CalendarID = "KRW"
	// NONE treats every weekday as a business day.
	NONE CalendarID = "NONE"
)

// ParseCalendar maps a configuration string to a CalendarID.
func ParseCalendar(s string) (CalendarID, error) {
	switch id := CalendarID(strings.ToUpper(strings.TrimSpace(s))); id {
	case TARGET, JPN, USD, KRW, NONE:
		return id, nil
	case "":
		return NONE, nil
	default:
		return "", fmt.Errorf("unknown calendar %q", s)
	}
}

// BusinessDayConvention selects how a non-business day is rolled.
type BusinessDayConvention string

const (
	Unadjusted        BusinessDayConvention = "UNADJUSTED"
	Following         BusinessDayConvention = "FOLLOWING"
	ModifiedFollowing BusinessDayConvention = "MODIFIED_FOLLOWING"
	Preceding         BusinessDayConvention = "PRECEDING"
)

var (
	mu       sync.RWMutex
	holidays = map[CalendarID]map[string]struct{}{}
	// bases links a derived calendar to the calendar it extends.
	bases = map[CalendarID]CalendarID{}
)

// AddHolidays registers extra holiday dates for a calendar. Safe for concurrent use.
func AddHolidays(cal CalendarID, dates ...time.Time) {
	mu.Lock()
	defer mu.Unlock()
	set, ok := holidays[cal]
	if !ok {
		set = make(map[string]struct{}, len(dates))
		holidays[cal] = set
	}
	for _, d := range dates {
		set[d.Format("2006-01-02")] = struct{}{}
	}
}

// WithHolidays returns a calendar that extends base with extra holidays.
// The base calendar is left untouched. The same base and dates always give
// the same ID.
func WithHolidays(base CalendarID, dates ...time.Time) CalendarID {
	if len(dates) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(dates))
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		k := d.Format("2006-01-02")
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	id := CalendarID(string(base) + "+" + strings.Join(keys, ","))

	mu.Lock()
	defer mu.Unlock()
	if _, ok := bases[id]; !ok {
		bases[id] = base
		holidays[id] = seen
	}
	return id
}

func isHoliday(cal CalendarID, t time.Time) bool {
	key := t.Format("2006-01-02")
	mu.RLock()
	defer mu.RUnlock()
	for {
		if cal == TARGET && isTargetHoliday(t) {
			return true
		}
		if _, ok := holidays[cal][key]; ok {
			return true
		}
		b, ok := bases[cal]
		if !ok {
			return false
		}
		cal = b
	}
}

// isTargetHoliday applies the fixed TARGET2 closing days.
func isTargetHoliday(t time.Time) bool {
	m, d := t.Month(), t.Day()
	switch {
	case m == time.January && d == 1,
		m == time.May && d == 1,
		m == time.December && (d == 25 || d == 26):
		return true
	}
	easter := easterSunday(t.Year())
	return t.Equal(easter.AddDate(0, 0, -2)) || t.Equal(easter.AddDate(0, 0, 1))
}

// easterSunday uses the anonymous Gregorian algorithm.
func easterSunday(y int) time.Time {
	a := y % 19
	b := y / 100
	c := y % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// Adjust applies Modified Following.
func Adjust(cal CalendarID, t time.Time) time.Time {
	return AdjustWith(cal, t, ModifiedFollowing)
}

// AdjustWith rolls t according to conv.
func AdjustWith(cal CalendarID, t time.Time, conv BusinessDayConvention) time.Time {
	switch conv {
	case Unadjusted:
		return t
	case Following:
		return AdjustFollowing(cal, t)
	case Preceding:
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
		return t
	default:
		origMonth := t.Month()
		adj := AdjustFollowing(cal, t)
		if adj.Month() != origMonth {
			adj = AdjustWith(cal, t, Preceding)
		}
		return adj
	}
}

// AdjustFollowing applies a simple Following convention (no month preservation).
func AdjustFollowing(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// LastBusinessDayOfMonth returns the last business day of the month containing t.
func LastBusinessDayOfMonth(cal CalendarID, t time.Time) time.Time {
	nextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return AddBusinessDays(cal, nextMonth, -1)
}

// IsEndOfMonth checks if t is the last business day of its month.
func IsEndOfMonth(cal CalendarID, t time.Time) bool {
	return t.Equal(LastBusinessDayOfMonth(cal, t))
}
