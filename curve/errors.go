package curve

import "errors"

// Failure kinds shared by the curve, the rate helpers and the bootstrap.
// Callers match them with errors.Is.
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrUnreachableQuote        = errors.New("unreachable quote")
	ErrNonConvergent           = errors.New("bootstrap did not converge")
	ErrExtrapolationDisallowed = errors.New("extrapolation disallowed")
)
