// Package bootstrap solves curve nodes so that every rate helper reprices
// its market quote.
//
// The first pass solves node by node in date order, seeding each node with
// its predecessor. Later passes re-solve every helper on the complete curve
// until no node moves by more than the node tolerance, which settles helpers
// whose cash flows extend past their own node.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/logger"
	"github.com/meenmo/ycurve/ratehelper"
	"github.com/meenmo/ycurve/solver"
	"github.com/meenmo/ycurve/utils"
)

// State is the lifecycle stage of a Bootstrapper.
type State int

const (
	StateEmpty State = iota
	StateValidating
	StateBootstrapping
	StateConverged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateBootstrapping:
		return "bootstrapping"
	case StateConverged:
		return "converged"
	case StateFailed:
		return "failed"
	default:
		return "empty"
	}
}

// HelperError ties a failure to the helper being solved.
type HelperError struct {
	Helper string
	Pillar time.Time
	Pass   int
	Err    error
}

func (e *HelperError) Error() string {
	return fmt.Sprintf("helper %s (pillar %s, pass %d): %v",
		e.Helper, e.Pillar.Format(utils.DateLayout), e.Pass, e.Err)
}

func (e *HelperError) Unwrap() error { return e.Err }

// Report summarizes a finished build.
type Report struct {
	Passes    int
	MaxChange float64
	Nodes     int
	Duration  time.Duration
}

// node is one curve pillar and the helpers that share it, in insertion order.
type node struct {
	date    time.Time
	helpers []ratehelper.RateHelper
}

// Bootstrapper builds one curve from one set of helpers.
//
// It is not safe for concurrent use; independent Bootstrappers can run in
// parallel. Once converged, Build keeps returning the same frozen curve
// until Rebuild is called.
type Bootstrapper struct {
	ref     time.Time
	helpers []ratehelper.RateHelper
	cfg     Config
	log     zerolog.Logger

	state  State
	pass   int
	curve  *curve.Curve
	err    error
	report Report
}

// New prepares a bootstrap; nothing is solved until Build.
func New(ref time.Time, helpers []ratehelper.RateHelper, cfg Config) *Bootstrapper {
	hs := make([]ratehelper.RateHelper, len(helpers))
	copy(hs, helpers)
	return &Bootstrapper{
		ref:     ref,
		helpers: hs,
		cfg:     cfg,
		log:     logger.Component("bootstrap"),
	}
}

// State reports the lifecycle stage.
func (b *Bootstrapper) State() State { return b.state }

// Pass is the current or last completed pass number.
func (b *Bootstrapper) Pass() int { return b.pass }

// Curve is the last converged curve, or nil.
func (b *Bootstrapper) Curve() *curve.Curve { return b.curve }

// Err is the failure of the last build, if any.
func (b *Bootstrapper) Err() error { return b.err }

// Report describes the last converged build.
func (b *Bootstrapper) Report() Report { return b.report }

// Build solves the curve, or returns the outcome of a previous build.
func (b *Bootstrapper) Build() (*curve.Curve, error) {
	return b.BuildContext(context.Background())
}

// BuildContext is Build with cancellation checked between passes.
func (b *Bootstrapper) BuildContext(ctx context.Context) (*curve.Curve, error) {
	switch b.state {
	case StateConverged:
		return b.curve, nil
	case StateFailed:
		return nil, b.err
	}
	return b.run(ctx)
}

// Rebuild discards the previous outcome and solves again from fresh quotes.
func (b *Bootstrapper) Rebuild() (*curve.Curve, error) {
	return b.RebuildContext(context.Background())
}

// RebuildContext is Rebuild with cancellation checked between passes.
func (b *Bootstrapper) RebuildContext(ctx context.Context) (*curve.Curve, error) {
	b.state = StateEmpty
	b.curve = nil
	b.err = nil
	b.pass = 0
	return b.run(ctx)
}

func (b *Bootstrapper) fail(err error) (*curve.Curve, error) {
	b.state = StateFailed
	b.err = err
	b.curve = nil
	b.log.Warn().Err(err).Int("pass", b.pass).Msg("bootstrap failed")
	return nil, err
}

func (b *Bootstrapper) run(ctx context.Context) (*curve.Curve, error) {
	started := time.Now()
	b.state = StateValidating

	if err := b.cfg.Validate(); err != nil {
		return b.fail(err)
	}
	nodes, err := b.validate()
	if err != nil {
		return b.fail(err)
	}
	c, err := curve.New(b.ref, b.cfg.Curve)
	if err != nil {
		return b.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return b.fail(err)
	}

	b.state = StateBootstrapping
	b.pass = 0
	for i, n := range nodes {
		guess := b.cfg.Curve.Trait.InitialGuess()
		if i > 0 {
			guess = c.NodeValue(i - 1)
		}
		idx, err := c.AppendNode(n.date, guess)
		if err != nil {
			return b.fail(&HelperError{Helper: n.helpers[0].Name(), Pillar: n.date, Err: err})
		}
		for _, h := range n.helpers {
			if _, err := b.solve(c, idx, n.date, h); err != nil {
				return b.fail(err)
			}
		}
	}

	var maxChange float64
	for {
		if err := ctx.Err(); err != nil {
			return b.fail(err)
		}
		if b.pass >= b.cfg.MaxPasses {
			return b.fail(fmt.Errorf("%w: node change %.3g after %d passes (tolerance %.3g)",
				curve.ErrNonConvergent, maxChange, b.pass, b.cfg.NodeTolerance))
		}
		b.pass++
		maxChange = 0
		for i, n := range nodes {
			for _, h := range n.helpers {
				r, err := h.Residual(c)
				if err != nil {
					return b.fail(&HelperError{Helper: h.Name(), Pillar: n.date, Pass: b.pass, Err: err})
				}
				if math.Abs(r) <= b.cfg.ResidualTolerance {
					continue
				}
				change, err := b.solve(c, i, n.date, h)
				if err != nil {
					return b.fail(err)
				}
				maxChange = math.Max(maxChange, change)
			}
		}
		b.log.Debug().Int("pass", b.pass).Float64("max_change", maxChange).Msg("bootstrap pass")
		if maxChange < b.cfg.NodeTolerance {
			break
		}
	}

	if err := c.Freeze(b.cfg.Extrapolate); err != nil {
		return b.fail(err)
	}
	b.curve = c
	b.state = StateConverged
	b.report = Report{Passes: b.pass, MaxChange: maxChange, Nodes: c.Len(), Duration: time.Since(started)}
	b.log.Debug().
		Int("passes", b.pass).
		Int("nodes", c.Len()).
		Str("max_date", c.MaxDate().Format(utils.DateLayout)).
		Msg("bootstrap converged")
	return c, nil
}

// validate orders the helpers by their last relevant date and groups them
// into nodes. Ties keep insertion order and share a node.
func (b *Bootstrapper) validate() ([]node, error) {
	if b.ref.IsZero() {
		return nil, fmt.Errorf("%w: missing reference date", curve.ErrInvalidInput)
	}
	if len(b.helpers) == 0 {
		return nil, fmt.Errorf("%w: no rate helpers", curve.ErrInvalidInput)
	}
	for _, h := range b.helpers {
		if h == nil {
			return nil, fmt.Errorf("%w: nil rate helper", curve.ErrInvalidInput)
		}
		if err := h.Validate(b.ref); err != nil {
			return nil, &HelperError{Helper: h.Name(), Pillar: h.Maturity(), Err: err}
		}
		if !h.Maturity().After(b.ref) {
			return nil, &HelperError{Helper: h.Name(), Pillar: h.Maturity(),
				Err: fmt.Errorf("%w: maturity on or before reference date", curve.ErrInvalidInput)}
		}
	}

	sorted := make([]ratehelper.RateHelper, len(b.helpers))
	copy(sorted, b.helpers)
	// Ties on the last relevant date are broken by pillar so input order
	// never decides whether the pillars come out chronological.
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := sorted[i].LatestRelevantDate(), sorted[j].LatestRelevantDate()
		if !li.Equal(lj) {
			return li.Before(lj)
		}
		return b.pillarOf(sorted[i]).Before(b.pillarOf(sorted[j]))
	})

	var nodes []node
	for _, h := range sorted {
		pillar := b.pillarOf(h)
		if len(nodes) > 0 {
			last := &nodes[len(nodes)-1]
			switch {
			case pillar.Equal(last.date):
				last.helpers = append(last.helpers, h)
				continue
			case pillar.Before(last.date):
				return nil, &HelperError{Helper: h.Name(), Pillar: pillar,
					Err: fmt.Errorf("%w: non-chronological maturities, pillar before %s",
						curve.ErrInvalidInput, last.date.Format(utils.DateLayout))}
			}
		}
		nodes = append(nodes, node{date: pillar, helpers: []ratehelper.RateHelper{h}})
	}
	return nodes, nil
}

func (b *Bootstrapper) pillarOf(h ratehelper.RateHelper) time.Time {
	if b.cfg.Pillar == PillarLastRelevant {
		return h.LatestRelevantDate()
	}
	return h.Maturity()
}

// solve moves node idx until h reprices and returns how far the node moved.
// On failure the node keeps its previous value.
func (b *Bootstrapper) solve(c *curve.Curve, idx int, pillar time.Time, h ratehelper.RateHelper) (float64, error) {
	prev := c.NodeValue(idx)
	lo, hi := b.cfg.Curve.Trait.Bounds(b.cfg.Curve.Domain)
	objective := func(x float64) (float64, error) {
		if err := c.SetNodeValue(idx, x); err != nil {
			return 0, err
		}
		return h.Residual(c)
	}

	x, err := b.cfg.Solver.Solve(objective, prev, lo, hi)
	if err != nil {
		_ = c.SetNodeValue(idx, prev)
		switch {
		case errors.Is(err, solver.ErrNoBracket):
			err = fmt.Errorf("%w: quote %g out of reach: %v", curve.ErrUnreachableQuote, h.Quote(), err)
		case errors.Is(err, solver.ErrMaxIterations):
			err = fmt.Errorf("%w: %v", curve.ErrNonConvergent, err)
		}
		return 0, &HelperError{Helper: h.Name(), Pillar: pillar, Pass: b.pass, Err: err}
	}
	if err := c.SetNodeValue(idx, x); err != nil {
		return 0, &HelperError{Helper: h.Name(), Pillar: pillar, Pass: b.pass, Err: err}
	}
	return math.Abs(x - prev), nil
}
