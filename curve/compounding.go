package curve

import (
	"fmt"
	"math"
	"strings"
)

// Compounding is the rule turning a rate into a compound factor.
type Compounding int

const (
	Continuous Compounding = iota
	Simple
	Compounded
	// SimpleThenCompounded is simple up to one period, compounded afterwards.
	SimpleThenCompounded
	// CompoundedThenSimple is compounded up to one period, simple afterwards.
	CompoundedThenSimple
)

func (c Compounding) String() string {
	switch c {
	case Simple:
		return "SIMPLE"
	case Compounded:
		return "COMPOUNDED"
	case SimpleThenCompounded:
		return "SIMPLE_THEN_COMPOUNDED"
	case CompoundedThenSimple:
		return "COMPOUNDED_THEN_SIMPLE"
	default:
		return "CONTINUOUS"
	}
}

// ParseCompounding accepts the names produced by String, case-insensitively.
func ParseCompounding(s string) (Compounding, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "CONTINUOUS":
		return Continuous, nil
	case "SIMPLE":
		return Simple, nil
	case "COMPOUNDED":
		return Compounded, nil
	case "SIMPLE_THEN_COMPOUNDED":
		return SimpleThenCompounded, nil
	case "COMPOUNDED_THEN_SIMPLE":
		return CompoundedThenSimple, nil
	default:
		return 0, fmt.Errorf("%w: unknown compounding %q", ErrInvalidInput, s)
	}
}

// Frequency is the number of compounding periods per year.
type Frequency int

const (
	NoFrequency Frequency = 0
	Annual      Frequency = 1
	Semiannual  Frequency = 2
	Quarterly   Frequency = 4
	Monthly     Frequency = 12
	Weekly      Frequency = 52
	Daily       Frequency = 365
)

// ParseFrequency maps names like "ANNUAL" or "QUARTERLY" to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE", "NO_FREQUENCY":
		return NoFrequency, nil
	case "ANNUAL", "1Y":
		return Annual, nil
	case "SEMIANNUAL", "6M":
		return Semiannual, nil
	case "QUARTERLY", "3M":
		return Quarterly, nil
	case "MONTHLY", "1M":
		return Monthly, nil
	case "WEEKLY", "1W":
		return Weekly, nil
	case "DAILY", "1D":
		return Daily, nil
	default:
		return 0, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, s)
	}
}

func (c Compounding) needsFrequency() bool {
	return c == Compounded || c == SimpleThenCompounded || c == CompoundedThenSimple
}

// CompoundFactor is the growth of one unit at rate r over t years.
func CompoundFactor(r, t float64, comp Compounding, freq Frequency) (float64, error) {
	if t < 0 {
		return 0, fmt.Errorf("%w: negative time %g", ErrInvalidInput, t)
	}
	if comp.needsFrequency() && freq <= 0 {
		return 0, fmt.Errorf("%w: %s needs a frequency", ErrInvalidInput, comp)
	}
	if t == 0 {
		return 1, nil
	}
	f := float64(freq)
	simple := func() float64 { return 1 + r*t }
	compounded := func() float64 { return math.Pow(1+r/f, f*t) }

	var factor float64
	switch comp {
	case Simple:
		factor = simple()
	case Compounded:
		factor = compounded()
	case SimpleThenCompounded:
		if t <= 1/f {
			factor = simple()
		} else {
			factor = compounded()
		}
	case CompoundedThenSimple:
		if t <= 1/f {
			factor = compounded()
		} else {
			factor = simple()
		}
	default:
		factor = math.Exp(r * t)
	}
	if !(factor > 0) {
		return 0, fmt.Errorf("%w: non-positive compound factor for rate %g", ErrInvalidInput, r)
	}
	return factor, nil
}

// ImpliedRate inverts CompoundFactor. A zero period yields a zero rate.
func ImpliedRate(compound, t float64, comp Compounding, freq Frequency) (float64, error) {
	if !(compound > 0) || math.IsInf(compound, 0) {
		return 0, fmt.Errorf("%w: compound factor %g", ErrInvalidInput, compound)
	}
	if t < 0 {
		return 0, fmt.Errorf("%w: negative time %g", ErrInvalidInput, t)
	}
	if comp.needsFrequency() && freq <= 0 {
		return 0, fmt.Errorf("%w: %s needs a frequency", ErrInvalidInput, comp)
	}
	if t == 0 {
		return 0, nil
	}
	f := float64(freq)
	simple := func() float64 { return (compound - 1) / t }
	compounded := func() float64 { return (math.Pow(compound, 1/(f*t)) - 1) * f }

	switch comp {
	case Simple:
		return simple(), nil
	case Compounded:
		return compounded(), nil
	case SimpleThenCompounded:
		if t <= 1/f {
			return simple(), nil
		}
		return compounded(), nil
	case CompoundedThenSimple:
		if t <= 1/f {
			return compounded(), nil
		}
		return simple(), nil
	default:
		return math.Log(compound) / t, nil
	}
}
