// Package ratehelper turns quoted instruments into bootstrap constraints.
//
// A helper reads the curve under construction through curve.View and reports
// how far its model-implied quote is from the live market quote.
package ratehelper

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/ycurve/calendar"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/quote"
	"github.com/meenmo/ycurve/utils"
)

// RateHelper is one instrument constraining one curve node.
type RateHelper interface {
	// Name identifies the helper in errors and logs.
	Name() string
	// Maturity is the instrument's last accrual date.
	Maturity() time.Time
	// LatestRelevantDate is the last date whose discount factor the helper reads.
	LatestRelevantDate() time.Time
	// Quote is the current market value.
	Quote() float64
	// ImpliedQuote computes the quote the curve reprices the instrument at.
	ImpliedQuote(v curve.View) (float64, error)
	// Residual is ImpliedQuote minus Quote.
	Residual(v curve.View) (float64, error)
	// Validate checks dates and the quote against the curve reference date.
	Validate(ref time.Time) error
}

// Conventions drive the tenor-based constructors.
type Conventions struct {
	Calendar       calendar.CalendarID
	SettlementDays int
	Convention     calendar.BusinessDayConvention
	EndOfMonth     bool
	DayCount       utils.DayCount
}

// settle applies the settlement lag to the trade date.
func (c Conventions) settle(ref time.Time) time.Time {
	if c.SettlementDays == 0 {
		return calendar.AdjustWith(c.Calendar, ref, calendar.Following)
	}
	return calendar.AddBusinessDays(c.Calendar, ref, c.SettlementDays)
}

type base struct {
	name string
	q    quote.Quote
}

func (b base) Name() string { return b.name }

func (b base) Quote() float64 {
	if b.q == nil {
		return math.NaN()
	}
	return b.q.Value()
}

func (b base) checkQuote() error {
	v := b.Quote()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s has non-finite quote", curve.ErrInvalidInput, b.name)
	}
	return nil
}

// residual is shared by every helper: the implied minus the live quote.
func residual(h RateHelper, v curve.View) (float64, error) {
	implied, err := h.ImpliedQuote(v)
	if err != nil {
		return 0, err
	}
	return implied - h.Quote(), nil
}

// discount reads a discount factor and rejects non-positive values.
func discount(v curve.View, d time.Time) (float64, error) {
	df, err := v.DiscountDate(d)
	if err != nil {
		return 0, err
	}
	if !(df > 0) {
		return 0, fmt.Errorf("%w: discount %g at %s", curve.ErrInvalidInput, df, d.Format(utils.DateLayout))
	}
	return df, nil
}

// simpleForward is the simply compounded rate between two dates.
func simpleForward(v curve.View, start, end time.Time, tau float64) (float64, error) {
	dfStart, err := discount(v, start)
	if err != nil {
		return 0, err
	}
	dfEnd, err := discount(v, end)
	if err != nil {
		return 0, err
	}
	return (dfStart/dfEnd - 1) / tau, nil
}

// checkPeriod validates a single accrual period against the reference date.
func checkPeriod(name string, ref, start, end time.Time, tau float64) error {
	switch {
	case start.Before(ref):
		return fmt.Errorf("%w: %s starts %s before reference %s", curve.ErrInvalidInput,
			name, start.Format(utils.DateLayout), ref.Format(utils.DateLayout))
	case !end.After(start):
		return fmt.Errorf("%w: %s ends %s on or before start %s", curve.ErrInvalidInput,
			name, end.Format(utils.DateLayout), start.Format(utils.DateLayout))
	case !(tau > 0):
		return fmt.Errorf("%w: %s has degenerate accrual %g", curve.ErrInvalidInput, name, tau)
	}
	return nil
}

func defaultName(kind string, name string, end time.Time) string {
	if name != "" {
		return name
	}
	return kind + " " + end.Format(utils.DateLayout)
}
