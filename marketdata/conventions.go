package marketdata

import (
	"fmt"
	"strings"

	"github.com/meenmo/ycurve/calendar"
	"github.com/meenmo/ycurve/ratehelper"
	"github.com/meenmo/ycurve/utils"
)

// Preset groups the money-market and swap conventions of one market.
type Preset struct {
	Deposit ratehelper.Conventions
	Swap    ratehelper.SwapConventions
}

func mustTenor(s string) calendar.Tenor {
	t, err := calendar.ParseTenor(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Preset conventions for the markets the engine is quoted in.
var (
	EURIBOR6M = Preset{
		Deposit: ratehelper.Conventions{
			Calendar:       calendar.TARGET,
			SettlementDays: 2,
			Convention:     calendar.ModifiedFollowing,
			EndOfMonth:     true,
			DayCount:       utils.Act360,
		},
		Swap: ratehelper.SwapConventions{
			Calendar:       calendar.TARGET,
			SettlementDays: 2,
			Convention:     calendar.ModifiedFollowing,
			EndOfMonth:     true,
			FixedTenor:     mustTenor("1Y"),
			FixedDayCount:  utils.Thirty3E,
			FloatTenor:     mustTenor("6M"),
			FloatDayCount:  utils.Act360,
		},
	}

	ESTR = Preset{
		Deposit: ratehelper.Conventions{
			Calendar:       calendar.TARGET,
			SettlementDays: 2,
			Convention:     calendar.ModifiedFollowing,
			EndOfMonth:     true,
			DayCount:       utils.Act360,
		},
		Swap: ratehelper.SwapConventions{
			Calendar:       calendar.TARGET,
			SettlementDays: 2,
			Convention:     calendar.ModifiedFollowing,
			EndOfMonth:     true,
			FixedTenor:     mustTenor("1Y"),
			FixedDayCount:  utils.Act360,
			FloatTenor:     mustTenor("1Y"),
			FloatDayCount:  utils.Act360,
			PaymentLag:     1,
		},
	}

	SOFR = Preset{
		Deposit: ratehelper.Conventions{
			Calendar:       calendar.USD,
			SettlementDays: 2,
			Convention:     calendar.ModifiedFollowing,
			DayCount:       utils.Act360,
		},
		Swap: ratehelper.SwapConventions{
			Calendar:       calendar.USD,
			SettlementDays: 2,
			Convention:     calendar.ModifiedFollowing,
			FixedTenor:     mustTenor("1Y"),
			FixedDayCount:  utils.Act360,
			FloatTenor:     mustTenor("1Y"),
			FloatDayCount:  utils.Act360,
			PaymentLag:     2,
		},
	}

	TONAR = Preset{
		Deposit: ratehelper.Conventions{
			Calendar:       calendar.JPN,
			SettlementDays: 2,
			Convention:     calendar.ModifiedFollowing,
			DayCount:       utils.Act365F,
		},
		Swap: ratehelper.SwapConventions{
			Calendar:       calendar.JPN,
			SettlementDays: 2,
			Convention:     calendar.ModifiedFollowing,
			FixedTenor:     mustTenor("1Y"),
			FixedDayCount:  utils.Act365F,
			FloatTenor:     mustTenor("1Y"),
			FloatDayCount:  utils.Act365F,
		},
	}

	// CD91 is the KRW IRS market: quarterly both legs, next-day settlement.
	CD91 = Preset{
		Deposit: ratehelper.Conventions{
			Calendar:       calendar.KRW,
			SettlementDays: 1,
			Convention:     calendar.ModifiedFollowing,
			DayCount:       utils.Act365F,
		},
		Swap: ratehelper.SwapConventions{
			Calendar:       calendar.KRW,
			SettlementDays: 1,
			Convention:     calendar.ModifiedFollowing,
			FixedTenor:     mustTenor("3M"),
			FixedDayCount:  utils.Act365F,
			FloatTenor:     mustTenor("3M"),
			FloatDayCount:  utils.Act365F,
		},
	}
)

var presets = map[string]Preset{
	"EURIBOR6M": EURIBOR6M,
	"ESTR":      ESTR,
	"SOFR":      SOFR,
	"TONAR":     TONAR,
	"CD91":      CD91,
}

// LookupPreset finds a preset by index name, case-insensitively.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown conventions %q (must be EURIBOR6M, ESTR, SOFR, TONAR or CD91)", name)
	}
	return p, nil
}
