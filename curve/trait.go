package curve

import (
	"fmt"
	"math"
	"strings"
)

// Trait is the quantity stored at curve nodes.
type Trait int

const (
	// Discount nodes hold discount factors.
	Discount Trait = iota
	// ZeroYield nodes hold continuously compounded zero rates.
	ZeroYield
	// ForwardRate nodes hold instantaneous forward rates.
	ForwardRate
)

func (tr Trait) String() string {
	switch tr {
	case ZeroYield:
		return "ZERO"
	case ForwardRate:
		return "FORWARD"
	default:
		return "DISCOUNT"
	}
}

// ParseTrait maps "discount", "zero" or "forward" to a Trait.
func ParseTrait(s string) (Trait, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DISCOUNT":
		return Discount, nil
	case "ZERO", "ZERO_YIELD":
		return ZeroYield, nil
	case "FORWARD", "FORWARD_RATE":
		return ForwardRate, nil
	default:
		return 0, fmt.Errorf("%w: unknown trait %q", ErrInvalidInput, s)
	}
}

// DomainPolicy restricts node values during solving and on insertion.
type DomainPolicy int

const (
	// DomainDefault allows negative rates: discount factors only need to be positive.
	DomainDefault DomainPolicy = iota
	// DomainNoArbitrage keeps discount factors in (0, 1] and rates non-negative.
	DomainNoArbitrage
)

// ParseDomain maps "default" or "no_arbitrage" to a DomainPolicy.
func ParseDomain(s string) (DomainPolicy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DEFAULT":
		return DomainDefault, nil
	case "NO_ARBITRAGE", "STRICT":
		return DomainNoArbitrage, nil
	default:
		return 0, fmt.Errorf("%w: unknown domain policy %q", ErrInvalidInput, s)
	}
}

const (
	minDiscount = 1e-8
	maxDiscount = 5.0
	minRate     = -1.0
	maxRate     = 3.0
)

// Bounds is the search interval for a node value under the policy.
func (tr Trait) Bounds(p DomainPolicy) (lo, hi float64) {
	switch tr {
	case Discount:
		if p == DomainNoArbitrage {
			return minDiscount, 1
		}
		return minDiscount, maxDiscount
	default:
		if p == DomainNoArbitrage {
			return 0, maxRate
		}
		return minRate, maxRate
	}
}

// InitialGuess seeds the first node of a bootstrap.
func (tr Trait) InitialGuess() float64 {
	if tr == Discount {
		return 1
	}
	return 0.02
}

// CheckValue reports whether v is a legal node value.
func (tr Trait) CheckValue(v float64, p DomainPolicy) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: non-finite %s node value", ErrInvalidInput, tr)
	}
	switch {
	case tr == Discount && v <= 0:
		return fmt.Errorf("%w: discount factor %g must be positive", ErrInvalidInput, v)
	case tr == Discount && p == DomainNoArbitrage && v > 1:
		return fmt.Errorf("%w: discount factor %g above 1", ErrInvalidInput, v)
	case tr != Discount && p == DomainNoArbitrage && v < 0:
		return fmt.Errorf("%w: negative %s rate %g", ErrInvalidInput, tr, v)
	}
	return nil
}

// supports lists the interpolations that make sense for each trait.
func (tr Trait) supports(i Interpolation) bool {
	switch tr {
	case Discount:
		return i == LogLinear || i == Linear
	case ZeroYield:
		return i == Linear || i == CubicNatural || i == BackwardFlat
	default:
		return i == Linear || i == BackwardFlat
	}
}
