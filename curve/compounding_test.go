package curve

import (
	"errors"
	"math"
	"testing"
)

func TestCompoundFactorRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		comp Compounding
		freq Frequency
		t    float64
		want float64
	}{
		{Simple, NoFrequency, 0.5, 1 + 0.04*0.5},
		{Continuous, NoFrequency, 2, math.Exp(0.08)},
		{Compounded, Semiannual, 2, math.Pow(1.02, 4)},
		{SimpleThenCompounded, Quarterly, 0.2, 1 + 0.04*0.2},
		{SimpleThenCompounded, Quarterly, 1, math.Pow(1.01, 4)},
		{CompoundedThenSimple, Annual, 0.5, math.Pow(1.04, 0.5)},
		{CompoundedThenSimple, Annual, 2, 1 + 0.04*2},
	}
	for _, c := range cases {
		got, err := CompoundFactor(0.04, c.t, c.comp, c.freq)
		if err != nil {
			t.Fatalf("%s: %v", c.comp, err)
		}
		almostEqual(t, c.comp.String(), got, c.want, 1e-15)

		r, err := ImpliedRate(got, c.t, c.comp, c.freq)
		if err != nil {
			t.Fatalf("%s ImpliedRate: %v", c.comp, err)
		}
		almostEqual(t, c.comp.String()+" rate", r, 0.04, 1e-14)
	}
}

func TestCompoundingErrors(t *testing.T) {
	t.Parallel()

	if _, err := CompoundFactor(0.04, 1, Compounded, NoFrequency); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing frequency: %v", err)
	}
	if _, err := CompoundFactor(-2, 1, Simple, NoFrequency); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative factor: %v", err)
	}
	if _, err := ImpliedRate(0, 1, Simple, NoFrequency); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero compound: %v", err)
	}
	if r, err := ImpliedRate(1.5, 0, Simple, NoFrequency); err != nil || r != 0 {
		t.Fatalf("zero period: r=%v err=%v", r, err)
	}
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	if c, err := ParseCompounding("simple"); err != nil || c != Simple {
		t.Fatalf("ParseCompounding: %v %v", c, err)
	}
	if f, err := ParseFrequency("quarterly"); err != nil || f != Quarterly {
		t.Fatalf("ParseFrequency: %v %v", f, err)
	}
	if i, err := ParseInterpolation("cubic"); err != nil || i != CubicNatural {
		t.Fatalf("ParseInterpolation: %v %v", i, err)
	}
	if tr, err := ParseTrait("zero"); err != nil || tr != ZeroYield {
		t.Fatalf("ParseTrait: %v %v", tr, err)
	}
	if p, err := ParseDomain("no_arbitrage"); err != nil || p != DomainNoArbitrage {
		t.Fatalf("ParseDomain: %v %v", p, err)
	}
	for _, bad := range []func() error{
		func() error { _, err := ParseCompounding("weird"); return err },
		func() error { _, err := ParseFrequency("fortnightly"); return err },
		func() error { _, err := ParseInterpolation("akima"); return err },
		func() error { _, err := ParseTrait("hazard"); return err },
		func() error { _, err := ParseDomain("loose"); return err },
	} {
		if err := bad(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	}
}
