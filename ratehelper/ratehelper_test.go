package ratehelper

import (
	"errors"
	"math"
	"testing"

	"github.com/meenmo/ycurve/calendar"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/quote"
	"github.com/meenmo/ycurve/utils"
)

var ref = utils.MustParseDate("2025-01-02")

type constQuote float64

func (c constQuote) Value() float64 { return float64(c) }

// flatCurve is a continuously compounded flat zero curve on ACT/365F.
func flatCurve(t *testing.T, z float64) *curve.Curve {
	t.Helper()
	opts := curve.DefaultOptions()
	opts.Trait = curve.ZeroYield
	opts.Interpolation = curve.Linear
	c, err := curve.New(ref, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.AppendNode(utils.MustParseDate("2060-01-02"), z); err != nil {
		t.Fatalf("AppendNode: %v", err)
	}
	return c
}

func almostEqual(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.15f, want %.15f", name, got, want)
	}
}

func TestDepositImpliedQuoteAndResidual(t *testing.T) {
	t.Parallel()

	c := flatCurve(t, 0.04)
	end := utils.MustParseDate("2026-01-02")
	d := NewDeposit("", quote.MustSimpleQuote(0.05), ref, end, utils.Act365F)
	if d.Name() != "DEPO 2026-01-02" {
		t.Fatalf("default name %q", d.Name())
	}
	if err := d.Validate(ref); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	implied, err := d.ImpliedQuote(c)
	if err != nil {
		t.Fatalf("ImpliedQuote: %v", err)
	}
	almostEqual(t, "implied", implied, math.Exp(0.04)-1, 1e-14)

	res, err := d.Residual(c)
	if err != nil {
		t.Fatalf("Residual: %v", err)
	}
	almostEqual(t, "residual", res, math.Exp(0.04)-1-0.05, 1e-14)
	if !d.LatestRelevantDate().Equal(d.Maturity()) {
		t.Fatalf("deposit reads past its maturity")
	}
}

func TestFRAAndFuturesOnFlatCurve(t *testing.T) {
	t.Parallel()

	c := flatCurve(t, 0.03)
	start := utils.MustParseDate("2025-07-02")
	end := utils.MustParseDate("2026-01-02")
	tau := 184.0 / 365.0
	want := (math.Exp(0.03*tau) - 1) / tau

	fra := NewFRA("6x12", constQuote(0.03), start, end, utils.Act365F)
	got, err := fra.ImpliedQuote(c)
	if err != nil {
		t.Fatalf("FRA ImpliedQuote: %v", err)
	}
	almostEqual(t, "FRA", got, want, 1e-14)

	fut := NewFutures("", constQuote(97), start, end, utils.Act365F, 0.001)
	if err := fut.Validate(ref); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	price, err := fut.ImpliedQuote(c)
	if err != nil {
		t.Fatalf("Futures ImpliedQuote: %v", err)
	}
	almostEqual(t, "futures price", price, 100*(1-want-0.001), 1e-12)
	almostEqual(t, "futures rate", fut.Rate(), 0.03-0.001, 1e-15)
}

func TestSwapParRateOnFlatCurve(t *testing.T) {
	t.Parallel()

	c := flatCurve(t, 0.035)
	conv := SwapConventions{
		Calendar:       calendar.NONE,
		SettlementDays: 2,
		Convention:     calendar.ModifiedFollowing,
		FixedTenor:     calendar.Tenor{N: 1, Unit: calendar.Years},
		FixedDayCount:  utils.Thirty360,
		FloatTenor:     calendar.Tenor{N: 3, Unit: calendar.Months},
		FloatDayCount:  utils.Act360,
	}
	s, err := NewSwapFromTenor("", constQuote(0.035), ref, calendar.Tenor{N: 2, Unit: calendar.Years}, conv)
	if err != nil {
		t.Fatalf("NewSwapFromTenor: %v", err)
	}
	if err := s.Validate(ref); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	fixed, float := s.FixedSchedule(), s.FloatSchedule()
	if len(fixed) != 2 || len(float) != 8 {
		t.Fatalf("fixed=%d float=%d periods", len(fixed), len(float))
	}
	spot := utils.MustParseDate("2025-01-06")
	if !fixed[0].Start.Equal(spot) || !float[0].End.Equal(utils.MustParseDate("2025-04-07")) {
		t.Fatalf("schedule start=%s first float end=%s",
			fixed[0].Start.Format(utils.DateLayout), float[0].End.Format(utils.DateLayout))
	}

	// Without a payment lag the floating leg telescopes to DF(start) - DF(end).
	dfStart, _ := c.DiscountDate(spot)
	dfEnd, _ := c.DiscountDate(s.Maturity())
	var annuity float64
	for _, p := range fixed {
		df, _ := c.DiscountDate(p.Pay)
		annuity += p.Accrual * df
	}
	got, err := s.ImpliedQuote(c)
	if err != nil {
		t.Fatalf("ImpliedQuote: %v", err)
	}
	almostEqual(t, "par rate", got, (dfStart-dfEnd)/annuity, 1e-14)
}

func TestSwapPaymentLagExtendsRelevantDate(t *testing.T) {
	t.Parallel()

	conv := SwapConventions{
		Calendar:      calendar.NONE,
		Convention:    calendar.ModifiedFollowing,
		FixedTenor:    calendar.Tenor{N: 1, Unit: calendar.Years},
		FixedDayCount: utils.Act360,
		FloatTenor:    calendar.Tenor{N: 1, Unit: calendar.Years},
		FloatDayCount: utils.Act360,
		PaymentLag:    2,
	}
	s, err := NewSwap("lagged", constQuote(0.02), ref, utils.MustParseDate("2026-01-02"), conv)
	if err != nil {
		t.Fatalf("NewSwap: %v", err)
	}
	if !s.LatestRelevantDate().After(s.Maturity()) {
		t.Fatalf("latest relevant date %s should be after maturity %s",
			s.LatestRelevantDate().Format(utils.DateLayout), s.Maturity().Format(utils.DateLayout))
	}
	if !s.LatestRelevantDate().Equal(utils.MustParseDate("2026-01-06")) {
		t.Fatalf("latest relevant date %s", s.LatestRelevantDate().Format(utils.DateLayout))
	}
}

func TestConventionConstructors(t *testing.T) {
	t.Parallel()

	friday := utils.MustParseDate("2025-01-03")
	on := NewDepositFromTenor("ON", constQuote(0.03), friday, calendar.Tenor{N: 1, Unit: calendar.Days},
		Conventions{Calendar: calendar.NONE, DayCount: utils.Act360})
	if !on.Start().Equal(friday) || !on.Maturity().Equal(utils.MustParseDate("2025-01-06")) {
		t.Fatalf("O/N deposit %s -> %s", on.Start().Format(utils.DateLayout), on.Maturity().Format(utils.DateLayout))
	}

	fra := NewFRAFromMonths("3x6", constQuote(0.03), ref, 3, 6, Conventions{
		Calendar:       calendar.NONE,
		SettlementDays: 2,
		Convention:     calendar.ModifiedFollowing,
		DayCount:       utils.Act360,
	})
	if !fra.Start().Equal(utils.MustParseDate("2025-04-07")) || !fra.Maturity().Equal(utils.MustParseDate("2025-07-07")) {
		t.Fatalf("3x6 FRA %s -> %s", fra.Start().Format(utils.DateLayout), fra.Maturity().Format(utils.DateLayout))
	}

	fut := NewFuturesFromTenor("", constQuote(96.5), utils.MustParseDate("2025-03-19"), calendar.Tenor{N: 3, Unit: calendar.Months},
		Conventions{Calendar: calendar.NONE, Convention: calendar.ModifiedFollowing, DayCount: utils.Act360}, 0)
	if !fut.Maturity().Equal(utils.MustParseDate("2025-06-19")) {
		t.Fatalf("futures maturity %s", fut.Maturity().Format(utils.DateLayout))
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	t.Parallel()

	end := utils.MustParseDate("2026-01-02")
	cases := []struct {
		name string
		h    RateHelper
	}{
		{"nil quote", NewDeposit("", nil, ref, end, utils.Act360)},
		{"NaN quote", NewDeposit("", constQuote(math.NaN()), ref, end, utils.Act360)},
		{"start before reference", NewDeposit("", constQuote(0.01), ref.AddDate(0, 0, -1), end, utils.Act360)},
		{"end before start", NewFRA("", constQuote(0.01), end, ref, utils.Act360)},
		{"zero price", NewFutures("", constQuote(0), ref, end, utils.Act360, 0)},
	}
	for _, c := range cases {
		if err := c.h.Validate(ref); !errors.Is(err, curve.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", c.name, err)
		}
	}

	if _, err := NewSwap("", constQuote(0.01), end, ref, SwapConventions{}); !errors.Is(err, curve.ErrInvalidInput) {
		t.Fatalf("swap maturity before start: %v", err)
	}
	if _, err := NewSwap("", constQuote(0.01), ref, end, SwapConventions{}); !errors.Is(err, curve.ErrInvalidInput) {
		t.Fatalf("swap without leg tenors: %v", err)
	}
}

func TestResidualSurfacesCurveErrors(t *testing.T) {
	t.Parallel()

	c := flatCurve(t, 0.02)
	if err := c.Freeze(false); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	far := utils.MustParseDate("2070-01-02")
	d := NewDeposit("", constQuote(0.02), ref, far, utils.Act365F)
	if _, err := d.Residual(c); !errors.Is(err, curve.ErrExtrapolationDisallowed) {
		t.Fatalf("expected ErrExtrapolationDisallowed, got %v", err)
	}
}
