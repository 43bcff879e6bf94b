package curve

import "time"

// DiscountFactors reads discount factors for a list of dates.
func DiscountFactors(v View, dates []time.Time) (map[time.Time]float64, error) {
	out := make(map[time.Time]float64, len(dates))
	for _, d := range dates {
		df, err := v.DiscountDate(d)
		if err != nil {
			return nil, err
		}
		out[d] = df
	}
	return out, nil
}

// ZeroRates reads zero rates for a list of dates under one convention.
func ZeroRates(v View, dates []time.Time, comp Compounding, freq Frequency) (map[time.Time]float64, error) {
	out := make(map[time.Time]float64, len(dates))
	for _, d := range dates {
		z, err := v.ZeroRate(d, comp, freq)
		if err != nil {
			return nil, err
		}
		out[d] = z
	}
	return out, nil
}
