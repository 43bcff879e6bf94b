// Package solver implements one-dimensional root finding for curve bootstrapping.
package solver

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoBracket is returned when no sign change is found inside the allowed domain.
	ErrNoBracket = errors.New("solver: root not bracketed")
	// ErrMaxIterations is returned when the solver exhausts its evaluation budget.
	ErrMaxIterations = errors.New("solver: maximum iterations reached")
)

// Func is an objective whose evaluation can fail.
type Func func(x float64) (float64, error)

// Brent finds roots with Brent's method after widening a bracket around a guess.
type Brent struct {
	// Accuracy is the x-space tolerance of the returned root.
	Accuracy float64
	// MaxIterations bounds the Brent iterations once a bracket is found.
	MaxIterations int
	// Step is the initial half-width of the bracket around the guess.
	Step float64
	// ExpansionFactor scales the bracket side being widened.
	ExpansionFactor float64
	// MaxExpansions bounds the bracket widening attempts.
	MaxExpansions int
}

// Default returns the solver settings used by the bootstrap.
func Default() Brent {
	return Brent{
		Accuracy:        1e-14,
		MaxIterations:   100,
		Step:            0.01,
		ExpansionFactor: 1.6,
		MaxExpansions:   50,
	}
}

func (s Brent) withDefaults() Brent {
	d := Default()
	if s.Accuracy <= 0 {
		s.Accuracy = d.Accuracy
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.Step <= 0 {
		s.Step = d.Step
	}
	if s.ExpansionFactor <= 1 {
		s.ExpansionFactor = d.ExpansionFactor
	}
	if s.MaxExpansions <= 0 {
		s.MaxExpansions = d.MaxExpansions
	}
	return s
}

// Solve brackets a root of f starting from guess, staying inside [lo, hi], then
// refines it with Brent's method.
func (s Brent) Solve(f Func, guess, lo, hi float64) (float64, error) {
	s = s.withDefaults()
	if !(lo < hi) {
		return 0, fmt.Errorf("solver: empty domain [%g, %g]", lo, hi)
	}
	guess = clamp(guess, lo, hi)

	fg, err := f(guess)
	if err != nil {
		return 0, err
	}
	if fg == 0 {
		return guess, nil
	}

	xMin, xMax, fMin, fMax, err := s.bracket(f, guess, lo, hi)
	if err != nil {
		return 0, err
	}
	return s.brent(f, xMin, xMax, fMin, fMax)
}

// bracket widens [guess-step, guess+step] geometrically, moving the side with
// the smaller |f| first, until f changes sign or both sides hit the domain.
func (s Brent) bracket(f Func, guess, lo, hi float64) (xMin, xMax, fMin, fMax float64, err error) {
	xMin = clamp(guess-s.Step, lo, hi)
	xMax = clamp(guess+s.Step, lo, hi)
	if fMin, err = f(xMin); err != nil {
		return
	}
	if fMax, err = f(xMax); err != nil {
		return
	}

	for i := 0; ; i++ {
		if fMin*fMax <= 0 {
			return xMin, xMax, fMin, fMax, nil
		}
		atLo, atHi := xMin <= lo, xMax >= hi
		if i >= s.MaxExpansions || (atLo && atHi) {
			err = fmt.Errorf("%w in [%g, %g] after %d expansions", ErrNoBracket, xMin, xMax, i)
			return
		}
		width := xMax - xMin
		if (math.Abs(fMin) < math.Abs(fMax) && !atLo) || atHi {
			xMin = clamp(xMin-s.ExpansionFactor*width, lo, hi)
			if fMin, err = f(xMin); err != nil {
				return
			}
		} else {
			xMax = clamp(xMax+s.ExpansionFactor*width, lo, hi)
			if fMax, err = f(xMax); err != nil {
				return
			}
		}
	}
}

func (s Brent) brent(f Func, a, b, fa, fb float64) (float64, error) {
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}

	c, fc := b, fb
	d := b - a
	e := d
	for i := 0; i < s.MaxIterations; i++ {
		if fb*fc > 0 {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol := 2*epsilon*math.Abs(b) + 0.5*s.Accuracy
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			// inverse quadratic interpolation, secant when a == c
			var p, q float64
			sr := fb / fa
			if a == c {
				p = 2 * xm * sr
				q = 1 - sr
			} else {
				qr := fa / fc
				r := fb / fc
				p = sr * (2*xm*qr*(qr-r) - (b-a)*(r-1))
				q = (qr - 1) * (r - 1) * (sr - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*xm*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		switch {
		case math.Abs(d) > tol:
			b += d
		case xm > 0:
			b += tol
		default:
			b -= tol
		}
		var err error
		if fb, err = f(b); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("%w (%d)", ErrMaxIterations, s.MaxIterations)
}

const epsilon = 2.220446049250313e-16

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
