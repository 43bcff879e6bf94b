// Package marketdata turns JSON curve definitions into rate helpers backed
// by live quotes.
package marketdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/ycurve/calendar"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/quote"
	"github.com/meenmo/ycurve/ratehelper"
	"github.com/meenmo/ycurve/utils"
)

// Kind is the instrument type of a definition.
type Kind string

const (
	KindDeposit Kind = "DEPOSIT"
	KindFRA     Kind = "FRA"
	KindFutures Kind = "FUTURES"
	KindSwap    Kind = "SWAP"
)

var hundred = decimal.NewFromInt(100)

// Instrument is one quoted instrument of a curve definition.
//
// Deposit, FRA and swap quotes are percent rates; futures quotes are prices.
type Instrument struct {
	Type  Kind            `json:"type"`
	Name  string          `json:"name,omitempty"`
	Tenor string          `json:"tenor,omitempty"`
	Quote decimal.Decimal `json:"quote"`

	// Start and End pin explicit dates instead of a tenor.
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	// FRA period in months from spot, e.g. 3 and 6 for a 3x6.
	MonthsToStart int `json:"months_to_start,omitempty"`
	MonthsToEnd   int `json:"months_to_end,omitempty"`

	// ConvexityBP is the futures convexity adjustment in basis points.
	ConvexityBP decimal.Decimal `json:"convexity_bp,omitempty"`
}

// Definition describes one curve: its reference date, conventions and instruments.
type Definition struct {
	Name          string       `json:"name"`
	ReferenceDate string       `json:"reference_date"`
	Conventions   string       `json:"conventions"`
	Instruments   []Instrument `json:"instruments"`

	// Holidays are added to the conventions' calendar before any date is rolled.
	Holidays []string `json:"holidays,omitempty"`
}

// Market is a parsed definition: helpers plus the quotes that drive them.
type Market struct {
	Name      string
	Reference time.Time
	Helpers   []ratehelper.RateHelper
	// Calendar is the swap calendar including the definition's holidays.
	Calendar calendar.CalendarID

	quotes map[string]*quote.SimpleQuote
	kinds  map[string]Kind
}

// ParseDefinitions reads a single definition or a JSON array of them.
func ParseDefinitions(r io.Reader) ([]Definition, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty curve definition", curve.ErrInvalidInput)
	}
	if trimmed[0] == '[' {
		var defs []Definition
		if err := json.Unmarshal(trimmed, &defs); err != nil {
			return nil, fmt.Errorf("%w: %v", curve.ErrInvalidInput, err)
		}
		return defs, nil
	}
	var def Definition
	if err := json.Unmarshal(trimmed, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", curve.ErrInvalidInput, err)
	}
	return []Definition{def}, nil
}

// Build resolves conventions and dates and creates one helper per instrument.
func (d Definition) Build() (*Market, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, fmt.Errorf("%w: curve name is required", curve.ErrInvalidInput)
	}
	ref, err := utils.ParseDate(d.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("%w: curve %s: invalid reference_date: %v", curve.ErrInvalidInput, d.Name, err)
	}
	preset, err := LookupPreset(d.Conventions)
	if err != nil {
		return nil, fmt.Errorf("%w: curve %s: %v", curve.ErrInvalidInput, d.Name, err)
	}
	if len(d.Instruments) == 0 {
		return nil, fmt.Errorf("%w: curve %s has no instruments", curve.ErrInvalidInput, d.Name)
	}
	days := make([]time.Time, 0, len(d.Holidays))
	for _, h := range d.Holidays {
		day, err := utils.ParseDate(h)
		if err != nil {
			return nil, fmt.Errorf("%w: curve %s: invalid holiday: %v", curve.ErrInvalidInput, d.Name, err)
		}
		days = append(days, day)
	}
	// preset is a copy; the holidays stay local to this curve.
	preset.Deposit.Calendar = calendar.WithHolidays(preset.Deposit.Calendar, days...)
	preset.Swap.Calendar = calendar.WithHolidays(preset.Swap.Calendar, days...)

	m := &Market{
		Name:      d.Name,
		Reference: ref,
		Calendar:  preset.Swap.Calendar,
		quotes:    make(map[string]*quote.SimpleQuote, len(d.Instruments)),
		kinds:     make(map[string]Kind, len(d.Instruments)),
	}
	var errs []error
	for i, in := range d.Instruments {
		h, q, err := in.helper(ref, preset)
		if err != nil {
			errs = append(errs, fmt.Errorf("instrument %d: %w", i, err))
			continue
		}
		if _, dup := m.quotes[h.Name()]; dup {
			errs = append(errs, fmt.Errorf("%w: instrument %d: duplicate name %q", curve.ErrInvalidInput, i, h.Name()))
			continue
		}
		m.quotes[h.Name()] = q
		m.kinds[h.Name()] = in.kind()
		m.Helpers = append(m.Helpers, h)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("curve %s: %w", d.Name, err)
	}
	return m, nil
}

func (in Instrument) kind() Kind {
	return Kind(strings.ToUpper(strings.TrimSpace(string(in.Type))))
}

// value converts the wire quote into the helper's quote units.
func (k Kind) value(v decimal.Decimal) float64 {
	if k == KindFutures {
		return v.InexactFloat64()
	}
	return v.Div(hundred).InexactFloat64()
}

func (in Instrument) dates() (start, end time.Time, err error) {
	if start, err = utils.ParseDate(in.Start); err != nil {
		return start, end, fmt.Errorf("%w: invalid start: %v", curve.ErrInvalidInput, err)
	}
	if end, err = utils.ParseDate(in.End); err != nil {
		return start, end, fmt.Errorf("%w: invalid end: %v", curve.ErrInvalidInput, err)
	}
	return start, end, nil
}

func (in Instrument) tenor() (calendar.Tenor, error) {
	t, err := calendar.ParseTenor(in.Tenor)
	if err != nil {
		return t, fmt.Errorf("%w: %v", curve.ErrInvalidInput, err)
	}
	return t, nil
}

func (in Instrument) helper(ref time.Time, p Preset) (ratehelper.RateHelper, *quote.SimpleQuote, error) {
	k := in.kind()
	q, err := quote.NewSimpleQuote(k.value(in.Quote))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", curve.ErrInvalidInput, err)
	}
	name := strings.TrimSpace(in.Name)
	explicit := in.Start != "" || in.End != ""

	switch k {
	case KindDeposit:
		if explicit {
			start, end, err := in.dates()
			if err != nil {
				return nil, nil, err
			}
			return ratehelper.NewDeposit(name, q, start, end, p.Deposit.DayCount), q, nil
		}
		t, err := in.tenor()
		if err != nil {
			return nil, nil, err
		}
		if name == "" {
			name = "DEPO " + t.String()
		}
		return ratehelper.NewDepositFromTenor(name, q, ref, t, p.Deposit), q, nil

	case KindFRA:
		if explicit {
			start, end, err := in.dates()
			if err != nil {
				return nil, nil, err
			}
			return ratehelper.NewFRA(name, q, start, end, p.Deposit.DayCount), q, nil
		}
		if name == "" {
			name = fmt.Sprintf("FRA %dx%d", in.MonthsToStart, in.MonthsToEnd)
		}
		return ratehelper.NewFRAFromMonths(name, q, ref, in.MonthsToStart, in.MonthsToEnd, p.Deposit), q, nil

	case KindFutures:
		start, err := utils.ParseDate(in.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: futures need a start date: %v", curve.ErrInvalidInput, err)
		}
		convexity := in.ConvexityBP.Div(decimal.NewFromInt(10000)).InexactFloat64()
		if in.End != "" {
			end, err := utils.ParseDate(in.End)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: invalid end: %v", curve.ErrInvalidInput, err)
			}
			return ratehelper.NewFutures(name, q, start, end, p.Deposit.DayCount, convexity), q, nil
		}
		tenor := in.Tenor
		if tenor == "" {
			tenor = "3M"
		}
		t, err := calendar.ParseTenor(tenor)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", curve.ErrInvalidInput, err)
		}
		return ratehelper.NewFuturesFromTenor(name, q, start, t, p.Deposit, convexity), q, nil

	case KindSwap:
		if explicit {
			start, end, err := in.dates()
			if err != nil {
				return nil, nil, err
			}
			h, err := ratehelper.NewSwap(name, q, start, end, p.Swap)
			return h, q, err
		}
		t, err := in.tenor()
		if err != nil {
			return nil, nil, err
		}
		if name == "" {
			name = "SWAP " + t.String()
		}
		h, err := ratehelper.NewSwapFromTenor(name, q, ref, t, p.Swap)
		return h, q, err

	default:
		return nil, nil, fmt.Errorf("%w: unknown instrument type %q", curve.ErrInvalidInput, in.Type)
	}
}

// Quote returns the live quote behind a helper.
func (m *Market) Quote(helper string) (*quote.SimpleQuote, bool) {
	q, ok := m.quotes[helper]
	return q, ok
}

// Update applies a wire quote to the named helper and reports whether its
// value changed.
func (m *Market) Update(helper string, v decimal.Decimal) (bool, error) {
	q, ok := m.quotes[helper]
	if !ok {
		return false, fmt.Errorf("%w: curve %s has no instrument %q", curve.ErrInvalidInput, m.Name, helper)
	}
	return q.Set(m.kinds[helper].value(v))
}

// QuoteUpdate is one instrument quote in wire units.
type QuoteUpdate struct {
	Instrument string          `json:"instrument"`
	Quote      decimal.Decimal `json:"quote"`
}

// UpdateAll checks every update before applying any of them and returns the
// instruments whose value changed, in update order.
func (m *Market) UpdateAll(updates []QuoteUpdate) ([]string, error) {
	var errs []error
	for i, u := range updates {
		k, ok := m.kinds[u.Instrument]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: update %d: curve %s has no instrument %q",
				curve.ErrInvalidInput, i, m.Name, u.Instrument))
			continue
		}
		if v := k.value(u.Quote); math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%w: update %d: quote %s out of range", curve.ErrInvalidInput, i, u.Quote))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	changed := []string{}
	for _, u := range updates {
		ok, err := m.quotes[u.Instrument].Set(m.kinds[u.Instrument].value(u.Quote))
		if err != nil {
			return changed, err
		}
		if ok {
			changed = append(changed, u.Instrument)
		}
	}
	return changed, nil
}

// Quotes returns every helper's current quote value by name.
func (m *Market) Quotes() map[string]float64 {
	out := make(map[string]float64, len(m.quotes))
	for name, q := range m.quotes {
		out[name] = q.Value()
	}
	return out
}
