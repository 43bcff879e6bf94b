package marketdata

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meenmo/ycurve/bootstrap"
	"github.com/meenmo/ycurve/calendar"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/ratehelper"
	"github.com/meenmo/ycurve/utils"
)

const euribor = `{
  "name": "EUR-6M",
  "reference_date": "2025-03-03",
  "conventions": "euribor6m",
  "instruments": [
    {"type": "deposit", "tenor": "6M", "quote": 2.45},
    {"type": "fra", "months_to_start": 6, "months_to_end": 12, "quote": "2.30"},
    {"type": "futures", "name": "ER DEC25", "start": "2025-12-17", "quote": 97.80, "convexity_bp": 0.5},
    {"type": "swap", "tenor": "2Y", "quote": 2.35},
    {"type": "swap", "tenor": "5Y", "quote": 2.50},
    {"type": "swap", "tenor": "10Y", "quote": 2.70}
  ]
}`

func parseOne(t *testing.T, raw string) Definition {
	t.Helper()
	defs, err := ParseDefinitions(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseDefinitions: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("got %d definitions", len(defs))
	}
	return defs[0]
}

func TestBuildMarketFromDefinition(t *testing.T) {
	t.Parallel()

	m, err := parseOne(t, euribor).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Name != "EUR-6M" || len(m.Helpers) != 6 {
		t.Fatalf("market %s with %d helpers", m.Name, len(m.Helpers))
	}

	want := map[string]float64{
		"DEPO 6M":  0.0245,
		"FRA 6x12": 0.0230,
		"ER DEC25": 97.80,
		"SWAP 2Y":  0.0235,
		"SWAP 10Y": 0.0270,
	}
	quotes := m.Quotes()
	for name, v := range want {
		if math.Abs(quotes[name]-v) > 1e-15 {
			t.Fatalf("quote %s = %v, want %v", name, quotes[name], v)
		}
	}

	c, err := bootstrap.New(m.Reference, m.Helpers, bootstrap.DefaultConfig).Build()
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	for _, h := range m.Helpers {
		r, err := h.Residual(c)
		if err != nil || math.Abs(r) > 1e-9 {
			t.Fatalf("%s residual %v err=%v", h.Name(), r, err)
		}
	}
}

func TestUpdateConvertsUnits(t *testing.T) {
	t.Parallel()

	m, err := parseOne(t, euribor).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	changed, err := m.Update("SWAP 5Y", decimal.RequireFromString("2.55"))
	if err != nil || !changed {
		t.Fatalf("Update: changed=%v err=%v", changed, err)
	}
	q, _ := m.Quote("SWAP 5Y")
	if math.Abs(q.Value()-0.0255) > 1e-15 {
		t.Fatalf("swap quote = %v", q.Value())
	}
	changed, err = m.Update("SWAP 5Y", decimal.RequireFromString("2.55"))
	if err != nil || changed {
		t.Fatalf("repeat Update: changed=%v err=%v", changed, err)
	}

	if _, err := m.Update("ER DEC25", decimal.NewFromFloat(97.75)); err != nil {
		t.Fatalf("futures Update: %v", err)
	}
	if q, _ := m.Quote("ER DEC25"); q.Value() != 97.75 {
		t.Fatalf("futures quote = %v", q.Value())
	}

	if _, err := m.Update("SWAP 30Y", decimal.NewFromInt(3)); !errors.Is(err, curve.ErrInvalidInput) {
		t.Fatalf("unknown helper: %v", err)
	}
}

func TestUpdateAllIsAllOrNothing(t *testing.T) {
	t.Parallel()

	m, err := parseOne(t, euribor).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	before := m.Quotes()

	_, err = m.UpdateAll([]QuoteUpdate{
		{Instrument: "SWAP 2Y", Quote: decimal.RequireFromString("2.40")},
		{Instrument: "SWAP 30Y", Quote: decimal.RequireFromString("3.00")},
	})
	if !errors.Is(err, curve.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if q, _ := m.Quote("SWAP 2Y"); q.Value() != before["SWAP 2Y"] {
		t.Fatalf("rejected batch applied SWAP 2Y = %v", q.Value())
	}

	changed, err := m.UpdateAll([]QuoteUpdate{
		{Instrument: "SWAP 2Y", Quote: decimal.RequireFromString("2.40")},
		{Instrument: "SWAP 5Y", Quote: decimal.RequireFromString("2.50")},
	})
	if err != nil || len(changed) != 1 || changed[0] != "SWAP 2Y" {
		t.Fatalf("UpdateAll: changed=%v err=%v", changed, err)
	}
}

func TestDefinitionErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		def  Definition
	}{
		{"no name", Definition{ReferenceDate: "2025-03-03", Conventions: "ESTR",
			Instruments: []Instrument{{Type: KindSwap, Tenor: "1Y"}}}},
		{"bad date", Definition{Name: "x", ReferenceDate: "03/03/2025", Conventions: "ESTR",
			Instruments: []Instrument{{Type: KindSwap, Tenor: "1Y"}}}},
		{"bad conventions", Definition{Name: "x", ReferenceDate: "2025-03-03", Conventions: "LIBOR",
			Instruments: []Instrument{{Type: KindSwap, Tenor: "1Y"}}}},
		{"no instruments", Definition{Name: "x", ReferenceDate: "2025-03-03", Conventions: "ESTR"}},
		{"unknown type", Definition{Name: "x", ReferenceDate: "2025-03-03", Conventions: "ESTR",
			Instruments: []Instrument{{Type: "CAP", Tenor: "1Y"}}}},
		{"bad tenor", Definition{Name: "x", ReferenceDate: "2025-03-03", Conventions: "ESTR",
			Instruments: []Instrument{{Type: KindSwap, Tenor: "1Q"}}}},
		{"futures without start", Definition{Name: "x", ReferenceDate: "2025-03-03", Conventions: "SOFR",
			Instruments: []Instrument{{Type: KindFutures, Quote: decimal.NewFromInt(96)}}}},
		{"duplicate", Definition{Name: "x", ReferenceDate: "2025-03-03", Conventions: "TONAR",
			Instruments: []Instrument{{Type: KindSwap, Tenor: "1Y"}, {Type: KindSwap, Tenor: "1Y"}}}},
	}
	for _, tc := range cases {
		if _, err := tc.def.Build(); !errors.Is(err, curve.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestParseDefinitionsArrayAndExplicitDates(t *testing.T) {
	t.Parallel()

	raw := `[
	  {"name": "KRW", "reference_date": "2025-03-04", "conventions": "CD91",
	   "holidays": ["2025-03-05"],
	   "instruments": [
	     {"type": "deposit", "start": "2025-03-04", "end": "2025-06-04", "quote": 2.80},
	     {"type": "swap", "tenor": "1Y", "quote": 2.65}
	   ]},
	  {"name": "USD", "reference_date": "2025-03-03", "conventions": "SOFR",
	   "instruments": [{"type": "swap", "tenor": "2Y", "quote": 4.10}]}
	]`
	defs, err := ParseDefinitions(strings.NewReader(raw))
	if err != nil || len(defs) != 2 {
		t.Fatalf("ParseDefinitions: %d defs, err=%v", len(defs), err)
	}
	m, err := defs[0].Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Helpers[0].Name() != "DEPO 2025-06-04" {
		t.Fatalf("explicit deposit name %q", m.Helpers[0].Name())
	}
	// Spot skips the registered holiday.
	swap, ok := m.Helpers[1].(*ratehelper.Swap)
	if !ok {
		t.Fatalf("helper 1 is %T", m.Helpers[1])
	}
	if start := swap.FixedSchedule()[0].Start.Format(utils.DateLayout); start != "2025-03-06" {
		t.Fatalf("swap starts %s, want 2025-03-06", start)
	}

	if _, err := ParseDefinitions(strings.NewReader("  ")); !errors.Is(err, curve.ErrInvalidInput) {
		t.Fatalf("empty input: %v", err)
	}
	if _, err := ParseDefinitions(strings.NewReader("{")); !errors.Is(err, curve.ErrInvalidInput) {
		t.Fatalf("bad json: %v", err)
	}
}

func TestHolidaysStayWithTheirCurve(t *testing.T) {
	t.Parallel()

	holiday := utils.MustParseDate("2025-03-10")
	def := func(name string, holidays ...string) Definition {
		return Definition{
			Name: name, ReferenceDate: "2025-03-06", Conventions: "SOFR", Holidays: holidays,
			Instruments: []Instrument{{Type: KindSwap, Tenor: "1Y", Quote: decimal.RequireFromString("4.10")}},
		}
	}
	spot := func(m *Market) string {
		return m.Helpers[0].(*ratehelper.Swap).FixedSchedule()[0].Start.Format(utils.DateLayout)
	}

	withHoliday, err := def("A", "2025-03-10").Build()
	if err != nil {
		t.Fatalf("Build A: %v", err)
	}
	plain, err := def("B").Build()
	if err != nil {
		t.Fatalf("Build B: %v", err)
	}

	if !calendar.IsBusinessDay(calendar.USD, holiday) {
		t.Fatalf("curve holiday leaked into the USD calendar")
	}
	if got := spot(withHoliday); got != "2025-03-11" {
		t.Fatalf("A spot = %s, want 2025-03-11", got)
	}
	if got := spot(plain); got != "2025-03-10" {
		t.Fatalf("B spot = %s, want 2025-03-10", got)
	}
	if withHoliday.Calendar == plain.Calendar || plain.Calendar != calendar.USD {
		t.Fatalf("calendars: A=%s B=%s", withHoliday.Calendar, plain.Calendar)
	}
}

func TestLookupPreset(t *testing.T) {
	t.Parallel()

	p, err := LookupPreset(" sofr ")
	if err != nil {
		t.Fatalf("LookupPreset: %v", err)
	}
	if p.Swap.PaymentLag != 2 || p.Swap.FloatTenor.String() != SOFR.Swap.FloatTenor.String() {
		t.Fatalf("unexpected SOFR preset %+v", p.Swap)
	}
	if _, err := LookupPreset("FEDFUNDS"); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}
