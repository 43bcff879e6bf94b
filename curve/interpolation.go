package curve

import (
	"fmt"
	"math"
	"strings"
)

// Interpolation is the scheme used between curve nodes.
type Interpolation int

const (
	// LogLinear is linear in the logarithm of the node value (discount trait only).
	LogLinear Interpolation = iota
	Linear
	// BackwardFlat holds the value of the next node across each interval.
	BackwardFlat
	// CubicNatural is a natural cubic spline through the nodes.
	CubicNatural
)

func (i Interpolation) String() string {
	switch i {
	case Linear:
		return "LINEAR"
	case BackwardFlat:
		return "BACKWARD_FLAT"
	case CubicNatural:
		return "CUBIC_NATURAL"
	default:
		return "LOG_LINEAR"
	}
}

// ParseInterpolation maps a configuration name to an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "LOG_LINEAR", "LOGLINEAR":
		return LogLinear, nil
	case "LINEAR":
		return Linear, nil
	case "BACKWARD_FLAT", "BACKWARDFLAT":
		return BackwardFlat, nil
	case "CUBIC_NATURAL", "CUBIC":
		return CubicNatural, nil
	default:
		return 0, fmt.Errorf("%w: unknown interpolation %q", ErrInvalidInput, s)
	}
}

// eval returns the interpolated value at x and its left derivative.
// xs must be strictly increasing with at least two points and x inside [xs[0], xs[n-1]].
func (i Interpolation) eval(xs, ys []float64, x float64) (y, dy float64) {
	k := segment(xs, x)
	x0, x1 := xs[k-1], xs[k]
	y0, y1 := ys[k-1], ys[k]
	h := x1 - x0

	switch i {
	case LogLinear:
		slope := math.Log(y1/y0) / h
		if x == x1 {
			return y1, y1 * slope
		}
		y = y0 * math.Exp(slope*(x-x0))
		return y, y * slope
	case BackwardFlat:
		if x <= x0 {
			return y0, 0
		}
		return y1, 0
	case CubicNatural:
		if len(xs) < 3 {
			return Linear.eval(xs, ys, x)
		}
		m := naturalSecondDerivatives(xs, ys)
		a := (x1 - x) / h
		b := 1 - a
		y = a*y0 + b*y1 + ((a*a*a-a)*m[k-1]+(b*b*b-b)*m[k])*h*h/6
		dy = (y1-y0)/h - (3*a*a-1)/6*h*m[k-1] + (3*b*b-1)/6*h*m[k]
		return y, dy
	default:
		slope := (y1 - y0) / h
		if x == x1 {
			return y1, slope
		}
		return y0 + slope*(x-x0), slope
	}
}

// integral returns the area under the interpolant from xs[0] to x.
// Only Linear and BackwardFlat are integrated, the schemes allowed on forward rates.
func (i Interpolation) integral(xs, ys []float64, x float64) float64 {
	var area float64
	for k := 1; k < len(xs); k++ {
		x0, x1 := xs[k-1], xs[k]
		if x <= x0 {
			break
		}
		end := math.Min(x, x1)
		switch i {
		case BackwardFlat:
			area += ys[k] * (end - x0)
		default:
			yEnd, _ := Linear.eval(xs, ys, end)
			area += 0.5 * (ys[k-1] + yEnd) * (end - x0)
		}
	}
	return area
}

// naturalSecondDerivatives solves the tridiagonal system of a natural spline.
// Nothing is cached: the coefficients follow the current node values.
func naturalSecondDerivatives(xs, ys []float64) []float64 {
	n := len(xs)
	m := make([]float64, n)
	if n < 3 {
		return m
	}
	// Thomas algorithm over the interior unknowns m[1..n-2].
	c := make([]float64, n)
	d := make([]float64, n)
	for j := 1; j < n-1; j++ {
		hPrev := xs[j] - xs[j-1]
		hNext := xs[j+1] - xs[j]
		rhs := 6 * ((ys[j+1]-ys[j])/hNext - (ys[j]-ys[j-1])/hPrev)
		diag := 2 * (hPrev + hNext)
		if j > 1 {
			diag -= hPrev * c[j-1]
			rhs -= hPrev * d[j-1]
		}
		c[j] = hNext / diag
		d[j] = rhs / diag
	}
	for j := n - 2; j >= 1; j-- {
		m[j] = d[j]
		if j < n-2 {
			m[j] -= c[j] * m[j+1]
		}
	}
	return m
}
