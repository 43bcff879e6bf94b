package bootstrap

import (
	"fmt"
	"strings"

	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/solver"
)

// Pillar selects which helper date becomes its curve node.
type Pillar int

const (
	// PillarMaturity places the node on the helper's maturity.
	PillarMaturity Pillar = iota
	// PillarLastRelevant places the node on the last date the helper reads.
	PillarLastRelevant
)

func (p Pillar) String() string {
	if p == PillarLastRelevant {
		return "LAST_RELEVANT"
	}
	return "MATURITY"
}

// ParsePillar maps "maturity" or "last_relevant" to a Pillar.
func ParsePillar(s string) (Pillar, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "MATURITY":
		return PillarMaturity, nil
	case "LAST_RELEVANT", "LASTRELEVANT":
		return PillarLastRelevant, nil
	default:
		return 0, fmt.Errorf("%w: unknown pillar choice %q", curve.ErrInvalidInput, s)
	}
}

// Config holds curve representation and solver parameters for one build.
type Config struct {
	// Curve fixes trait, interpolation, day count and domain policy.
	Curve curve.Options

	// Pillar selects the node date of each helper.
	Pillar Pillar

	// Extrapolate keeps flat-forward extrapolation on the finished curve.
	Extrapolate bool

	// NodeTolerance ends the global passes once no node moves by this much.
	NodeTolerance float64

	// ResidualTolerance is the residual below which a helper is left alone
	// in the global passes.
	ResidualTolerance float64

	// MaxPasses bounds the global passes after the first per-node pass.
	MaxPasses int

	// Solver is the per-node root finder.
	Solver solver.Brent
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	Curve:             curve.DefaultOptions(),
	Pillar:            PillarMaturity,
	Extrapolate:       true,
	NodeTolerance:     1e-12,
	ResidualTolerance: 1e-10,
	MaxPasses:         100,
	Solver:            solver.Default(),
}

// Validate rejects settings that cannot drive a build.
func (c Config) Validate() error {
	var bad []string
	if !(c.NodeTolerance > 0) {
		bad = append(bad, "node tolerance")
	}
	if !(c.ResidualTolerance > 0) {
		bad = append(bad, "residual tolerance")
	}
	if c.MaxPasses <= 0 {
		bad = append(bad, "max passes")
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: bootstrap config: %s must be positive", curve.ErrInvalidInput, strings.Join(bad, ", "))
	}
	return nil
}
