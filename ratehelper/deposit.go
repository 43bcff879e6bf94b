package ratehelper

import (
	"time"

	"github.com/meenmo/ycurve/calendar"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/quote"
	"github.com/meenmo/ycurve/utils"
)

// Deposit is a cash deposit quoted as a simple rate over [start, end].
type Deposit struct {
	base
	start, end time.Time
	dc         utils.DayCount
	tau        float64
}

// NewDeposit builds a deposit from explicit dates.
func NewDeposit(name string, q quote.Quote, start, end time.Time, dc utils.DayCount) *Deposit {
	return &Deposit{
		base:  base{name: defaultName("DEPO", name, end), q: q},
		start: start,
		end:   end,
		dc:    dc,
		tau:   utils.YearFraction(start, end, dc),
	}
}

// NewDepositFromTenor settles from ref and runs for tenor. An O/N tenor
// ("1D") spans one business day from settlement.
func NewDepositFromTenor(name string, q quote.Quote, ref time.Time, tenor calendar.Tenor, conv Conventions) *Deposit {
	start := conv.settle(ref)
	end := calendar.Advance(conv.Calendar, start, tenor, conv.Convention, conv.EndOfMonth)
	return NewDeposit(name, q, start, end, conv.DayCount)
}

func (d *Deposit) Start() time.Time              { return d.start }
func (d *Deposit) Maturity() time.Time           { return d.end }
func (d *Deposit) LatestRelevantDate() time.Time { return d.end }

func (d *Deposit) Validate(ref time.Time) error {
	if err := d.checkQuote(); err != nil {
		return err
	}
	return checkPeriod(d.name, ref, d.start, d.end, d.tau)
}

func (d *Deposit) ImpliedQuote(v curve.View) (float64, error) {
	return simpleForward(v, d.start, d.end, d.tau)
}

func (d *Deposit) Residual(v curve.View) (float64, error) {
	return residual(d, v)
}

// FRA is a forward rate agreement quoted as a simple rate over [start, end].
type FRA struct {
	base
	start, end time.Time
	dc         utils.DayCount
	tau        float64
}

// NewFRA builds an FRA from explicit dates.
func NewFRA(name string, q quote.Quote, start, end time.Time, dc utils.DayCount) *FRA {
	return &FRA{
		base:  base{name: defaultName("FRA", name, end), q: q},
		start: start,
		end:   end,
		dc:    dc,
		tau:   utils.YearFraction(start, end, dc),
	}
}

// NewFRAFromMonths builds a monthsToStart x monthsToEnd FRA settling from ref.
func NewFRAFromMonths(name string, q quote.Quote, ref time.Time, monthsToStart, monthsToEnd int, conv Conventions) *FRA {
	spot := conv.settle(ref)
	start := calendar.Advance(conv.Calendar, spot, calendar.Tenor{N: monthsToStart, Unit: calendar.Months}, conv.Convention, conv.EndOfMonth)
	end := calendar.Advance(conv.Calendar, spot, calendar.Tenor{N: monthsToEnd, Unit: calendar.Months}, conv.Convention, conv.EndOfMonth)
	return NewFRA(name, q, start, end, conv.DayCount)
}

func (f *FRA) Start() time.Time              { return f.start }
func (f *FRA) Maturity() time.Time           { return f.end }
func (f *FRA) LatestRelevantDate() time.Time { return f.end }

func (f *FRA) Validate(ref time.Time) error {
	if err := f.checkQuote(); err != nil {
		return err
	}
	return checkPeriod(f.name, ref, f.start, f.end, f.tau)
}

func (f *FRA) ImpliedQuote(v curve.View) (float64, error) {
	return simpleForward(v, f.start, f.end, f.tau)
}

func (f *FRA) Residual(v curve.View) (float64, error) {
	return residual(f, v)
}
