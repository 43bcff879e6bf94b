package ratehelper

import (
	"fmt"
	"time"

	"github.com/meenmo/ycurve/calendar"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/quote"
	"github.com/meenmo/ycurve/utils"
)

// Period is one accrual period of a swap leg.
type Period struct {
	Start, End, Pay time.Time
	Accrual         float64
}

// SwapConventions describe a vanilla fixed-vs-floating swap.
type SwapConventions struct {
	Calendar       calendar.CalendarID
	SettlementDays int
	Convention     calendar.BusinessDayConvention
	EndOfMonth     bool
	FixedTenor     calendar.Tenor
	FixedDayCount  utils.DayCount
	FloatTenor     calendar.Tenor
	FloatDayCount  utils.DayCount
	// PaymentLag delays every payment by this many business days after the accrual end.
	PaymentLag int
}

// Swap is a par swap quoted by its fixed rate. The floating leg is projected
// off the curve being built, so the implied quote is floating PV over the
// fixed annuity.
type Swap struct {
	base
	fixed    []Period
	float    []Period
	maturity time.Time
	latest   time.Time
}

// NewSwap builds a swap accruing from start to maturity.
func NewSwap(name string, q quote.Quote, start, maturity time.Time, conv SwapConventions) (*Swap, error) {
	if !maturity.After(start) {
		return nil, fmt.Errorf("%w: swap maturity %s not after start %s", curve.ErrInvalidInput,
			maturity.Format(utils.DateLayout), start.Format(utils.DateLayout))
	}
	fixed, err := legSchedule(start, maturity, conv.FixedTenor, conv.FixedDayCount, conv)
	if err != nil {
		return nil, err
	}
	float, err := legSchedule(start, maturity, conv.FloatTenor, conv.FloatDayCount, conv)
	if err != nil {
		return nil, err
	}
	s := &Swap{
		fixed: fixed,
		float: float,
	}
	s.maturity = fixed[len(fixed)-1].End
	if e := float[len(float)-1].End; e.After(s.maturity) {
		s.maturity = e
	}
	for _, leg := range [][]Period{fixed, float} {
		for _, p := range leg {
			if p.Pay.After(s.latest) {
				s.latest = p.Pay
			}
		}
	}
	s.base = base{name: defaultName("SWAP", name, s.maturity), q: q}
	return s, nil
}

// NewSwapFromTenor settles from ref and runs for tenor.
func NewSwapFromTenor(name string, q quote.Quote, ref time.Time, tenor calendar.Tenor, conv SwapConventions) (*Swap, error) {
	spot := Conventions{Calendar: conv.Calendar, SettlementDays: conv.SettlementDays}.settle(ref)
	// Unadjusted end; the schedule adjusts it.
	var end time.Time
	switch tenor.Unit {
	case calendar.Days:
		end = calendar.AddBusinessDays(conv.Calendar, spot, tenor.N)
	case calendar.Weeks:
		end = spot.AddDate(0, 0, 7*tenor.N)
	default:
		end = utils.AddMonth(spot, tenor.Months())
		if conv.EndOfMonth && calendar.IsEndOfMonth(conv.Calendar, spot) {
			end = utils.EndOfMonth(end)
		}
	}
	return NewSwap(name, q, spot, end, conv)
}

// legSchedule rolls backward from the unadjusted maturity in steps of tenor,
// leaving any stub at the front, then adjusts every date.
func legSchedule(start, end time.Time, tenor calendar.Tenor, dc utils.DayCount, conv SwapConventions) ([]Period, error) {
	if tenor.N <= 0 {
		return nil, fmt.Errorf("%w: swap leg tenor %s", curve.ErrInvalidInput, tenor)
	}
	unadjusted := []time.Time{}
	for i := 0; ; i++ {
		d := rollBack(end, tenor, i)
		if !d.After(start) {
			break
		}
		unadjusted = append([]time.Time{d}, unadjusted...)
	}
	unadjusted = append([]time.Time{start}, unadjusted...)

	periods := make([]Period, 0, len(unadjusted)-1)
	for i := 0; i < len(unadjusted)-1; i++ {
		accStart := calendar.AdjustWith(conv.Calendar, unadjusted[i], conv.Convention)
		accEnd := calendar.AdjustWith(conv.Calendar, unadjusted[i+1], conv.Convention)
		pay := accEnd
		if conv.PaymentLag > 0 {
			pay = calendar.AddBusinessDays(conv.Calendar, accEnd, conv.PaymentLag)
		}
		periods = append(periods, Period{
			Start:   accStart,
			End:     accEnd,
			Pay:     pay,
			Accrual: utils.YearFraction(accStart, accEnd, dc),
		})
	}
	return periods, nil
}

func rollBack(end time.Time, tenor calendar.Tenor, steps int) time.Time {
	switch tenor.Unit {
	case calendar.Days:
		return end.AddDate(0, 0, -steps*tenor.N)
	case calendar.Weeks:
		return end.AddDate(0, 0, -7*steps*tenor.N)
	default:
		return utils.AddMonth(end, -steps*tenor.Months())
	}
}

func (s *Swap) Maturity() time.Time           { return s.maturity }
func (s *Swap) LatestRelevantDate() time.Time { return s.latest }

// FixedSchedule returns the fixed leg periods.
func (s *Swap) FixedSchedule() []Period { return append([]Period(nil), s.fixed...) }

// FloatSchedule returns the floating leg periods.
func (s *Swap) FloatSchedule() []Period { return append([]Period(nil), s.float...) }

func (s *Swap) Validate(ref time.Time) error {
	if err := s.checkQuote(); err != nil {
		return err
	}
	for _, leg := range [][]Period{s.fixed, s.float} {
		for _, p := range leg {
			if err := checkPeriod(s.name, ref, p.Start, p.End, p.Accrual); err != nil {
				return err
			}
		}
	}
	return nil
}

// ImpliedQuote is the par fixed rate: floating PV over the fixed annuity.
func (s *Swap) ImpliedQuote(v curve.View) (float64, error) {
	var floatPV float64
	for _, p := range s.float {
		fwd, err := simpleForward(v, p.Start, p.End, p.Accrual)
		if err != nil {
			return 0, err
		}
		df, err := discount(v, p.Pay)
		if err != nil {
			return 0, err
		}
		floatPV += fwd * p.Accrual * df
	}

	var annuity float64
	for _, p := range s.fixed {
		df, err := discount(v, p.Pay)
		if err != nil {
			return 0, err
		}
		annuity += p.Accrual * df
	}
	if annuity <= 0 {
		return 0, fmt.Errorf("%w: %s has non-positive annuity", curve.ErrInvalidInput, s.name)
	}
	return floatPV / annuity, nil
}

func (s *Swap) Residual(v curve.View) (float64, error) {
	return residual(s, v)
}
