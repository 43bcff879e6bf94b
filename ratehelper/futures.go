package ratehelper

import (
	"fmt"
	"time"

	"github.com/meenmo/ycurve/calendar"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/quote"
	"github.com/meenmo/ycurve/utils"
)

// Futures is an interest rate future quoted by price, 100 - 100 * rate.
//
// The convexity adjustment is added to the curve forward before converting
// to a price, so the quoted futures rate is the forward plus convexity.
type Futures struct {
	base
	start, end time.Time
	dc         utils.DayCount
	tau        float64
	convexity  float64
}

// NewFutures builds a futures helper over [start, end]. q holds the price.
func NewFutures(name string, q quote.Quote, start, end time.Time, dc utils.DayCount, convexity float64) *Futures {
	return &Futures{
		base:      base{name: defaultName("FUT", name, end), q: q},
		start:     start,
		end:       end,
		dc:        dc,
		tau:       utils.YearFraction(start, end, dc),
		convexity: convexity,
	}
}

// NewFuturesFromTenor builds a future whose underlying deposit starts on start
// and runs for tenor (typically 3M).
func NewFuturesFromTenor(name string, q quote.Quote, start time.Time, tenor calendar.Tenor, conv Conventions, convexity float64) *Futures {
	end := calendar.Advance(conv.Calendar, start, tenor, conv.Convention, conv.EndOfMonth)
	return NewFutures(name, q, start, end, conv.DayCount, convexity)
}

func (f *Futures) Start() time.Time              { return f.start }
func (f *Futures) Maturity() time.Time           { return f.end }
func (f *Futures) LatestRelevantDate() time.Time { return f.end }
func (f *Futures) Convexity() float64            { return f.convexity }

// Rate is the convexity-adjusted forward implied by the current price.
func (f *Futures) Rate() float64 {
	return (100-f.Quote())/100 - f.convexity
}

func (f *Futures) Validate(ref time.Time) error {
	if err := f.checkQuote(); err != nil {
		return err
	}
	if p := f.Quote(); p <= 0 {
		return fmt.Errorf("%w: %s has non-positive price %g", curve.ErrInvalidInput, f.name, p)
	}
	return checkPeriod(f.name, ref, f.start, f.end, f.tau)
}

// ImpliedQuote is the price the curve forward corresponds to.
func (f *Futures) ImpliedQuote(v curve.View) (float64, error) {
	fwd, err := simpleForward(v, f.start, f.end, f.tau)
	if err != nil {
		return 0, err
	}
	return 100 * (1 - fwd - f.convexity), nil
}

func (f *Futures) Residual(v curve.View) (float64, error) {
	return residual(f, v)
}
