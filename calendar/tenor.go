package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/ycurve/utils"
)

// Unit is the time unit of a Tenor.
type Unit byte

const (
	Days   Unit = 'D'
	Weeks  Unit = 'W'
	Months Unit = 'M'
	Years  Unit = 'Y'
)

// Tenor is a period such as 1W, 3M or 10Y.
type Tenor struct {
	N    int
	Unit Unit
}

// ParseTenor converts tenor strings like "ON", "1W", "3M", "10Y".
func ParseTenor(s string) (Tenor, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	switch s {
	case "ON", "O/N":
		return Tenor{N: 1, Unit: Days}, nil
	case "":
		return Tenor{}, fmt.Errorf("empty tenor")
	}
	unit := Unit(s[len(s)-1])
	switch unit {
	case Days, Weeks, Months, Years:
	default:
		return Tenor{}, fmt.Errorf("tenor %q: unknown unit", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return Tenor{}, fmt.Errorf("tenor %q: bad length", s)
	}
	return Tenor{N: n, Unit: unit}, nil
}

func (t Tenor) String() string {
	return strconv.Itoa(t.N) + string(t.Unit)
}

// Months returns the tenor length in months; zero for day and week tenors.
func (t Tenor) Months() int {
	switch t.Unit {
	case Months:
		return t.N
	case Years:
		return 12 * t.N
	default:
		return 0
	}
}

// Years approximates the tenor as a year fraction (weeks and days on a 365 basis).
func (t Tenor) Years() float64 {
	switch t.Unit {
	case Days:
		return float64(t.N) / 365.0
	case Weeks:
		return float64(t.N) * 7.0 / 365.0
	case Months:
		return float64(t.N) / 12.0
	default:
		return float64(t.N)
	}
}

// Advance moves t by tenor and rolls the result with conv.
//
// Day tenors count business days. With endOfMonth set, a start date on the
// last business day of its month maps to the last business day of the target month.
func Advance(cal CalendarID, t time.Time, tenor Tenor, conv BusinessDayConvention, endOfMonth bool) time.Time {
	switch tenor.Unit {
	case Days:
		return AddBusinessDays(cal, t, tenor.N)
	case Weeks:
		return AdjustWith(cal, t.AddDate(0, 0, 7*tenor.N), conv)
	}
	raw := utils.AddMonth(t, tenor.Months())
	if endOfMonth && IsEndOfMonth(cal, t) {
		return AdjustWith(cal, utils.EndOfMonth(raw), Preceding)
	}
	return AdjustWith(cal, raw, conv)
}
