package curve

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/ycurve/utils"
)

var (
	ref = utils.MustParseDate("2025-01-02")
	y1  = utils.MustParseDate("2026-01-02")
	y2  = utils.MustParseDate("2027-01-02")
	y3  = utils.MustParseDate("2028-01-02")
)

func almostEqual(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.15f, want %.15f (tol %g)", name, got, want, tol)
	}
}

func buildCurve(t *testing.T, opts Options, values ...float64) *Curve {
	t.Helper()
	c, err := New(ref, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i, v := range values {
		if _, err := c.AppendNode(utils.AddMonth(ref, 12*(i+1)), v); err != nil {
			t.Fatalf("AppendNode(%d): %v", i, err)
		}
	}
	return c
}

func mustDiscount(t *testing.T, c *Curve, tm float64) float64 {
	t.Helper()
	df, err := c.Discount(tm)
	if err != nil {
		t.Fatalf("Discount(%g): %v", tm, err)
	}
	return df
}

func TestLogLinearDiscountCurve(t *testing.T) {
	t.Parallel()

	c := buildCurve(t, DefaultOptions(), 0.95, 0.90)

	if mustDiscount(t, c, 0) != 1 || mustDiscount(t, c, -0.5) != 1 {
		t.Fatalf("discount at or before the origin must be exactly 1")
	}
	almostEqual(t, "DF(0.5)", mustDiscount(t, c, 0.5), math.Sqrt(0.95), 1e-15)
	almostEqual(t, "DF(1.5)", mustDiscount(t, c, 1.5), math.Sqrt(0.95*0.90), 1e-15)
	almostEqual(t, "DF(2)", mustDiscount(t, c, 2), 0.90, 1e-15)

	// Flat forward past the last node.
	almostEqual(t, "DF(3)", mustDiscount(t, c, 3), 0.90*0.90/0.95, 1e-15)
	fwd, err := c.InstantaneousForward(2.5)
	if err != nil {
		t.Fatalf("InstantaneousForward: %v", err)
	}
	almostEqual(t, "f(2.5)", fwd, math.Log(0.95/0.90), 1e-14)

	z, err := c.ZeroRate(y2, Continuous, NoFrequency)
	if err != nil {
		t.Fatalf("ZeroRate: %v", err)
	}
	almostEqual(t, "z(2Y)", z, -math.Log(0.90)/2, 1e-15)

	f, err := c.ForwardRate(y1, y2, Simple, NoFrequency)
	if err != nil {
		t.Fatalf("ForwardRate: %v", err)
	}
	almostEqual(t, "F(1Y,2Y)", f, 0.95/0.90-1, 1e-14)

	if _, err := c.ForwardRate(y2, y1, Simple, NoFrequency); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("reversed forward: expected ErrInvalidInput, got %v", err)
	}
	if !c.MaxDate().Equal(y2) || c.Len() != 2 {
		t.Fatalf("MaxDate=%s Len=%d", c.MaxDate().Format(utils.DateLayout), c.Len())
	}
}

func TestFreezeDisallowsExtrapolationAndMutation(t *testing.T) {
	t.Parallel()

	c := buildCurve(t, DefaultOptions(), 0.95, 0.90)
	if err := c.Freeze(false); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if !c.Frozen() || c.AllowsExtrapolation() {
		t.Fatalf("frozen=%v extrapolate=%v", c.Frozen(), c.AllowsExtrapolation())
	}
	if _, err := c.Discount(2); err != nil {
		t.Fatalf("Discount at last node: %v", err)
	}
	if _, err := c.DiscountDate(y3); !errors.Is(err, ErrExtrapolationDisallowed) {
		t.Fatalf("expected ErrExtrapolationDisallowed, got %v", err)
	}
	if _, err := c.AppendNode(y3, 0.85); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("AppendNode on frozen curve: %v", err)
	}
	if err := c.SetNodeValue(0, 0.96); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("SetNodeValue on frozen curve: %v", err)
	}
	if c.NodeValue(0) != 0.95 {
		t.Fatalf("frozen node value changed")
	}
}

func TestAppendNodeValidation(t *testing.T) {
	t.Parallel()

	c := buildCurve(t, DefaultOptions(), 0.95)
	if _, err := c.AppendNode(y1, 0.9); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate date: %v", err)
	}
	if _, err := c.AppendNode(y2, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero discount: %v", err)
	}
	if _, err := c.AppendNode(y2, math.NaN()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("NaN discount: %v", err)
	}
	if err := c.SetNodeValue(3, 0.9); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("out of range index: %v", err)
	}

	strict := DefaultOptions()
	strict.Domain = DomainNoArbitrage
	s := buildCurve(t, strict)
	if _, err := s.AppendNode(y1, 1.01); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("discount above one under no-arbitrage: %v", err)
	}

	empty := buildCurve(t, DefaultOptions())
	if _, err := empty.Discount(1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty curve query: %v", err)
	}
	if err := empty.Freeze(true); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("freezing an empty curve: %v", err)
	}
}

func TestUnsupportedInterpolation(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Trait = ZeroYield
	opts.Interpolation = LogLinear
	if _, err := New(ref, opts); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := New(time.Time{}, DefaultOptions()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero reference date: %v", err)
	}
}

func TestLinearDiscountExtrapolation(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Interpolation = Linear
	c := buildCurve(t, opts, 0.95, 0.90)
	almostEqual(t, "DF(1.5)", mustDiscount(t, c, 1.5), 0.925, 1e-15)
	fN := (0.95 - 0.90) / 0.90
	almostEqual(t, "DF(3)", mustDiscount(t, c, 3), 0.90*math.Exp(-fN), 1e-15)
}

func TestZeroYieldLinear(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Trait = ZeroYield
	opts.Interpolation = Linear
	c := buildCurve(t, opts, 0.02, 0.03)

	// The origin repeats the first node, so the short end is flat.
	almostEqual(t, "DF(0.5)", mustDiscount(t, c, 0.5), math.Exp(-0.01), 1e-15)
	almostEqual(t, "DF(1.5)", mustDiscount(t, c, 1.5), math.Exp(-0.025*1.5), 1e-15)

	fwd, err := c.InstantaneousForward(2)
	if err != nil {
		t.Fatalf("InstantaneousForward: %v", err)
	}
	almostEqual(t, "f(2)", fwd, 0.05, 1e-14)
	almostEqual(t, "DF(3)", mustDiscount(t, c, 3), math.Exp(-0.06-0.05), 1e-14)

	v, err := c.ValueAt(3)
	if err != nil {
		t.Fatalf("ValueAt: %v", err)
	}
	almostEqual(t, "z(3)", v, 0.11/3, 1e-14)
}

func TestForwardRateTraits(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Trait = ForwardRate
	opts.Interpolation = BackwardFlat
	flat := buildCurve(t, opts, 0.02, 0.04)
	almostEqual(t, "flat DF(1.5)", mustDiscount(t, flat, 1.5), math.Exp(-0.04), 1e-15)
	almostEqual(t, "flat DF(3)", mustDiscount(t, flat, 3), math.Exp(-0.10), 1e-15)

	opts.Interpolation = Linear
	lin := buildCurve(t, opts, 0.02, 0.04)
	almostEqual(t, "linear DF(1.5)", mustDiscount(t, lin, 1.5), math.Exp(-0.0325), 1e-15)
}

func TestCubicNaturalSpline(t *testing.T) {
	t.Parallel()

	xs := []float64{0, 1, 2, 3}
	ys := []float64{1, 3, 5, 7}
	y, dy := CubicNatural.eval(xs, ys, 1.5)
	almostEqual(t, "spline(1.5)", y, 4, 1e-14)
	almostEqual(t, "spline'(1.5)", dy, 2, 1e-14)

	opts := DefaultOptions()
	opts.Trait = ZeroYield
	opts.Interpolation = CubicNatural
	c := buildCurve(t, opts, 0.02, 0.03, 0.025)
	for i, want := range []float64{0.02, 0.03, 0.025} {
		v, err := c.ValueAt(float64(i + 1))
		if err != nil {
			t.Fatalf("ValueAt: %v", err)
		}
		almostEqual(t, "node value", v, want, 1e-15)
	}
}

func TestFromDiscountsAndTables(t *testing.T) {
	t.Parallel()

	c, err := FromDiscounts(ref, map[time.Time]float64{ref: 1, y1: 0.97, y2: 0.94}, LogLinear, true)
	if err != nil {
		t.Fatalf("FromDiscounts: %v", err)
	}
	if !c.Frozen() || c.Len() != 2 {
		t.Fatalf("frozen=%v len=%d", c.Frozen(), c.Len())
	}
	dfs, err := DiscountFactors(c, []time.Time{ref, y1, y2})
	if err != nil {
		t.Fatalf("DiscountFactors: %v", err)
	}
	if dfs[ref] != 1 || dfs[y1] != 0.97 || dfs[y2] != 0.94 {
		t.Fatalf("table mismatch: %v", dfs)
	}
	zeros, err := ZeroRates(c, []time.Time{y1}, Compounded, Annual)
	if err != nil {
		t.Fatalf("ZeroRates: %v", err)
	}
	almostEqual(t, "annual z(1Y)", zeros[y1], 1/0.97-1, 1e-14)

	if _, err := FromDiscounts(ref, map[time.Time]float64{ref: 0.99}, LogLinear, true); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("reference discount other than 1: %v", err)
	}
}
