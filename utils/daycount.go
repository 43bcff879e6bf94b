package utils

import (
	"fmt"
	"strings"
	"time"
)

// DayCount names a day count convention.
type DayCount string

const (
	Act360    DayCount = "ACT/360"
	Act365F   DayCount = "ACT/365F"
	ActActISD DayCount = "ACT/ACT"
	Thirty360 DayCount = "30/360"
	Thirty3E  DayCount = "30E/360"
)

// ParseDayCount normalizes a convention name such as "act/360" or "ACT/365".
func ParseDayCount(s string) (DayCount, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACT/360", "A360":
		return Act360, nil
	case "ACT/365F", "ACT/365", "A365F", "A365":
		return Act365F, nil
	case "ACT/ACT", "ACT/ACT ISDA":
		return ActActISD, nil
	case "30/360", "30U/360", "BOND":
		return Thirty360, nil
	case "30E/360", "EUROBOND":
		return Thirty3E, nil
	default:
		return "", fmt.Errorf("unknown day count %q", s)
	}
}

// YearFraction computes the accrual fraction between two dates.
//
// Unknown conventions fall back to ACT/365F, the curve time axis.
func YearFraction(start, end time.Time, dc DayCount) float64 {
	switch dc {
	case Act360:
		return float64(DaysBetween(start, end)) / 360.0
	case Act365F:
		return float64(DaysBetween(start, end)) / 365.0
	case ActActISD:
		return actActISDA(start, end)
	case Thirty360:
		// US bond basis: D2 is capped only when D1 was.
		d1, d2 := start.Day(), end.Day()
		if d1 == 31 {
			d1 = 30
		}
		if d2 == 31 && d1 >= 30 {
			d2 = 30
		}
		return thirty(start, end, d1, d2)
	case Thirty3E:
		d1, d2 := start.Day(), end.Day()
		if d1 > 30 {
			d1 = 30
		}
		if d2 > 30 {
			d2 = 30
		}
		return thirty(start, end, d1, d2)
	default:
		return float64(DaysBetween(start, end)) / 365.0
	}
}

func thirty(start, end time.Time, d1, d2 int) float64 {
	y1, m1 := start.Year(), int(start.Month())
	y2, m2 := end.Year(), int(end.Month())
	return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
}

func actActISDA(start, end time.Time) float64 {
	if end.Before(start) {
		return -actActISDA(end, start)
	}
	if start.Year() == end.Year() {
		return float64(DaysBetween(start, end)) / daysInYear(start.Year())
	}
	nextYear := time.Date(start.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
	lastYear := time.Date(end.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	frac := float64(DaysBetween(start, nextYear)) / daysInYear(start.Year())
	frac += float64(end.Year() - start.Year() - 1)
	frac += float64(DaysBetween(lastYear, end)) / daysInYear(end.Year())
	return frac
}

func daysInYear(y int) float64 {
	if (y%4 == 0 && y%100 != 0) || y%400 == 0 {
		return 366
	}
	return 365
}
