// Package curve holds the interpolated yield curve built by the bootstrap and
// the read-only View that rate helpers and consumers query.
package curve

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/ycurve/utils"
)

// Node is one solved point of the curve.
type Node struct {
	Date  time.Time
	Time  float64
	Value float64
}

// View is the read-only query surface of a curve.
type View interface {
	ReferenceDate() time.Time
	DayCount() utils.DayCount
	TimeFromReference(d time.Time) float64
	MaxDate() time.Time
	Discount(t float64) (float64, error)
	DiscountDate(d time.Time) (float64, error)
	ZeroRate(d time.Time, comp Compounding, freq Frequency) (float64, error)
	ForwardRate(d1, d2 time.Time, comp Compounding, freq Frequency) (float64, error)
}

// Options fixes the representation of a curve.
type Options struct {
	// DayCount is the time axis; ACT/365F when empty.
	DayCount      utils.DayCount
	Trait         Trait
	Interpolation Interpolation
	Domain        DomainPolicy
}

// DefaultOptions is log-linear interpolation on discount factors over ACT/365F.
func DefaultOptions() Options {
	return Options{
		DayCount:      utils.Act365F,
		Trait:         Discount,
		Interpolation: LogLinear,
		Domain:        DomainDefault,
	}
}

// Curve is a node list plus the rules to read between and beyond the nodes.
//
// While not frozen it is owned by a single builder, which appends nodes and
// moves their values. Freeze makes it immutable and safe to share.
// Past the last node the curve extrapolates flat-forward until frozen with
// extrapolation disabled.
type Curve struct {
	ref         time.Time
	opts        Options
	nodes       []Node
	extrapolate bool
	frozen      bool
}

// zeroRateDt is the period used to read a zero or forward rate at a single instant.
const zeroRateDt = 1e-4

// New creates an empty, mutable curve.
func New(ref time.Time, opts Options) (*Curve, error) {
	if ref.IsZero() {
		return nil, fmt.Errorf("%w: missing reference date", ErrInvalidInput)
	}
	if opts.DayCount == "" {
		opts.DayCount = utils.Act365F
	}
	if !opts.Trait.supports(opts.Interpolation) {
		return nil, fmt.Errorf("%w: %s interpolation is not available on %s nodes",
			ErrInvalidInput, opts.Interpolation, opts.Trait)
	}
	return &Curve{ref: ref, opts: opts, extrapolate: true}, nil
}

func (c *Curve) ReferenceDate() time.Time  { return c.ref }
func (c *Curve) DayCount() utils.DayCount  { return c.opts.DayCount }
func (c *Curve) Options() Options          { return c.opts }
func (c *Curve) Frozen() bool              { return c.frozen }
func (c *Curve) AllowsExtrapolation() bool { return c.extrapolate }
func (c *Curve) Len() int                  { return len(c.nodes) }

// TimeFromReference measures d on the curve's time axis.
func (c *Curve) TimeFromReference(d time.Time) float64 {
	return utils.YearFraction(c.ref, d, c.opts.DayCount)
}

// MaxDate is the date of the last node, or the reference date for an empty curve.
func (c *Curve) MaxDate() time.Time {
	if len(c.nodes) == 0 {
		return c.ref
	}
	return c.nodes[len(c.nodes)-1].Date
}

// Nodes returns a copy of the node list.
func (c *Curve) Nodes() []Node {
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// NodeValue returns the value stored at node i.
func (c *Curve) NodeValue(i int) float64 {
	return c.nodes[i].Value
}

// AppendNode adds a node after the current last one and returns its index.
func (c *Curve) AppendNode(d time.Time, v float64) (int, error) {
	if c.frozen {
		return -1, fmt.Errorf("%w: curve is frozen", ErrInvalidInput)
	}
	if !d.After(c.MaxDate()) {
		return -1, fmt.Errorf("%w: node date %s not after %s",
			ErrInvalidInput, d.Format(utils.DateLayout), c.MaxDate().Format(utils.DateLayout))
	}
	t := c.TimeFromReference(d)
	if last := c.lastTime(); !(t > last) {
		return -1, fmt.Errorf("%w: node time %g not after %g", ErrInvalidInput, t, last)
	}
	if err := c.opts.Trait.CheckValue(v, c.opts.Domain); err != nil {
		return -1, err
	}
	c.nodes = append(c.nodes, Node{Date: d, Time: t, Value: v})
	return len(c.nodes) - 1, nil
}

// SetNodeValue moves the value of node i.
func (c *Curve) SetNodeValue(i int, v float64) error {
	if c.frozen {
		return fmt.Errorf("%w: curve is frozen", ErrInvalidInput)
	}
	if i < 0 || i >= len(c.nodes) {
		return fmt.Errorf("%w: node index %d out of range", ErrInvalidInput, i)
	}
	if err := c.opts.Trait.CheckValue(v, c.opts.Domain); err != nil {
		return err
	}
	c.nodes[i].Value = v
	return nil
}

// Freeze makes the curve immutable and sets the extrapolation policy.
func (c *Curve) Freeze(extrapolate bool) error {
	if len(c.nodes) == 0 {
		return fmt.Errorf("%w: cannot freeze an empty curve", ErrInvalidInput)
	}
	c.extrapolate = extrapolate
	c.frozen = true
	return nil
}

func (c *Curve) lastTime() float64 {
	if len(c.nodes) == 0 {
		return 0
	}
	return c.nodes[len(c.nodes)-1].Time
}

// grid lays the nodes out behind the implicit origin at t = 0.
// The origin holds a discount of 1; rate traits repeat the first node.
func (c *Curve) grid() (xs, ys []float64) {
	xs = make([]float64, len(c.nodes)+1)
	ys = make([]float64, len(c.nodes)+1)
	ys[0] = 1
	if c.opts.Trait != Discount {
		ys[0] = c.nodes[0].Value
	}
	for i, n := range c.nodes {
		xs[i+1] = n.Time
		ys[i+1] = n.Value
	}
	return xs, ys
}

func (c *Curve) discountWithin(xs, ys []float64, t float64) float64 {
	switch c.opts.Trait {
	case ZeroYield:
		z, _ := c.opts.Interpolation.eval(xs, ys, t)
		return math.Exp(-z * t)
	case ForwardRate:
		return math.Exp(-c.opts.Interpolation.integral(xs, ys, t))
	default:
		df, _ := c.opts.Interpolation.eval(xs, ys, t)
		return df
	}
}

func (c *Curve) forwardWithin(xs, ys []float64, t float64) float64 {
	y, dy := c.opts.Interpolation.eval(xs, ys, t)
	switch c.opts.Trait {
	case ZeroYield:
		return y + t*dy
	case ForwardRate:
		return y
	default:
		return -dy / y
	}
}

func (c *Curve) checkQueryable(t float64) error {
	if len(c.nodes) == 0 {
		return fmt.Errorf("%w: curve has no nodes", ErrInvalidInput)
	}
	if math.IsNaN(t) {
		return fmt.Errorf("%w: NaN time", ErrInvalidInput)
	}
	if t > c.lastTime() && !c.extrapolate {
		return fmt.Errorf("%w: t=%g beyond last node t=%g", ErrExtrapolationDisallowed, t, c.lastTime())
	}
	return nil
}

// Discount returns the discount factor at curve time t. Times at or before
// the origin discount to 1; past the last node the last instantaneous
// forward is held flat.
func (c *Curve) Discount(t float64) (float64, error) {
	if t <= 0 {
		return 1, nil
	}
	if err := c.checkQueryable(t); err != nil {
		return 0, err
	}
	xs, ys := c.grid()
	tn := xs[len(xs)-1]
	if t <= tn {
		return c.discountWithin(xs, ys, t), nil
	}
	dfN := c.discountWithin(xs, ys, tn)
	fN := c.forwardWithin(xs, ys, tn)
	return dfN * math.Exp(-fN*(t-tn)), nil
}

// DiscountDate is Discount on a calendar date.
func (c *Curve) DiscountDate(d time.Time) (float64, error) {
	return c.Discount(c.TimeFromReference(d))
}

// InstantaneousForward returns the continuously compounded forward at t.
func (c *Curve) InstantaneousForward(t float64) (float64, error) {
	if err := c.checkQueryable(t); err != nil {
		return 0, err
	}
	xs, ys := c.grid()
	t = math.Max(t, 0)
	if tn := xs[len(xs)-1]; t > tn {
		t = tn
	}
	return c.forwardWithin(xs, ys, t), nil
}

// ValueAt returns the trait value at t: the stored quantity inside the node
// range and the value implied by flat-forward extrapolation beyond it.
func (c *Curve) ValueAt(t float64) (float64, error) {
	if err := c.checkQueryable(t); err != nil {
		return 0, err
	}
	xs, ys := c.grid()
	t = math.Max(t, 0)
	tn := xs[len(xs)-1]
	if t <= tn {
		v, _ := c.opts.Interpolation.eval(xs, ys, t)
		return v, nil
	}
	switch c.opts.Trait {
	case ForwardRate:
		return c.forwardWithin(xs, ys, tn), nil
	case ZeroYield:
		df, err := c.Discount(t)
		if err != nil {
			return 0, err
		}
		return -math.Log(df) / t, nil
	default:
		return c.Discount(t)
	}
}

// ZeroRate returns the zero rate to d under the given convention.
func (c *Curve) ZeroRate(d time.Time, comp Compounding, freq Frequency) (float64, error) {
	t := c.TimeFromReference(d)
	if t <= 0 {
		t = zeroRateDt
	}
	df, err := c.Discount(t)
	if err != nil {
		return 0, err
	}
	return ImpliedRate(1/df, t, comp, freq)
}

// ForwardRate returns the rate between d1 and d2, accrued on the curve day count.
func (c *Curve) ForwardRate(d1, d2 time.Time, comp Compounding, freq Frequency) (float64, error) {
	if d2.Before(d1) {
		return 0, fmt.Errorf("%w: forward end %s before start %s",
			ErrInvalidInput, d2.Format(utils.DateLayout), d1.Format(utils.DateLayout))
	}
	t1 := c.TimeFromReference(d1)
	t2 := c.TimeFromReference(d2)
	tau := utils.YearFraction(d1, d2, c.opts.DayCount)
	if tau <= 0 {
		t2 = t1 + zeroRateDt
		tau = zeroRateDt
	}
	df1, err := c.Discount(t1)
	if err != nil {
		return 0, err
	}
	df2, err := c.Discount(t2)
	if err != nil {
		return 0, err
	}
	return ImpliedRate(df1/df2, tau, comp, freq)
}

// FromDiscounts builds a frozen discount curve from explicit discount factors,
// for example to inject factors produced by another system. An entry on the
// reference date must equal 1 and is otherwise ignored.
func FromDiscounts(ref time.Time, dfs map[time.Time]float64, interp Interpolation, extrapolate bool) (*Curve, error) {
	opts := DefaultOptions()
	opts.Interpolation = interp
	c, err := New(ref, opts)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(dfs))
	for d := range dfs {
		dates = append(dates, d)
	}
	utils.SortDates(dates)
	for _, d := range dates {
		switch {
		case d.Before(ref):
			return nil, fmt.Errorf("%w: discount date %s before reference", ErrInvalidInput, d.Format(utils.DateLayout))
		case d.Equal(ref):
			if dfs[d] != 1 {
				return nil, fmt.Errorf("%w: discount at reference date is %g, not 1", ErrInvalidInput, dfs[d])
			}
			continue
		}
		if _, err := c.AppendNode(d, dfs[d]); err != nil {
			return nil, err
		}
	}
	if err := c.Freeze(extrapolate); err != nil {
		return nil, err
	}
	return c, nil
}
