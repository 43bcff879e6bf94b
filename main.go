package main

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meenmo/ycurve/bootstrap"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/marketdata"
	"github.com/meenmo/ycurve/utils"
)

func main() {
	// KRW IRS par quotes by tenor in years.
	quotes := map[float64]float64{
		0.25: 2.7600000000,
		0.5:  2.7225000000,
		0.75: 2.7225000000,
		1:    2.7225000000,
		1.5:  2.7571428571,
		2:    2.8075000000,
		3:    2.8882142857,
		4:    2.9596428571,
		5:    3.0189285714,
		6:    3.0614285714,
		7:    3.0889285714,
		8:    3.1153571429,
		9:    3.1357142857,
		10:   3.1578571429,
		12:   3.1910714286,
		15:   3.1757142857,
		20:   3.0946428571,
	}

	tenors := make([]float64, 0, len(quotes))
	for t := range quotes {
		tenors = append(tenors, t)
	}
	sort.Float64s(tenors)

	def := marketdata.Definition{
		Name:          "KRW-CD91",
		ReferenceDate: "2025-11-21",
		Conventions:   "CD91",
	}
	for _, t := range tenors {
		in := marketdata.Instrument{Type: marketdata.KindSwap, Quote: decimal.NewFromFloat(quotes[t])}
		switch {
		case t < 1 || t != float64(int(t)):
			in.Tenor = fmt.Sprintf("%dM", int(t*12))
		default:
			in.Tenor = fmt.Sprintf("%dY", int(t))
		}
		def.Instruments = append(def.Instruments, in)
	}

	m, err := def.Build()
	if err != nil {
		fmt.Printf("definition: %v\n", err)
		return
	}
	b := bootstrap.New(m.Reference, m.Helpers, bootstrap.DefaultConfig)
	c, err := b.Build()
	if err != nil {
		fmt.Printf("bootstrap: %v\n", err)
		return
	}

	fmt.Printf("%s built in %d passes (%s)\n", m.Name, b.Report().Passes, b.Report().Duration)
	for _, n := range c.Nodes() {
		z, err := c.ZeroRate(n.Date, curve.Compounded, curve.Annual)
		if err != nil {
			fmt.Printf("zero %s: %v\n", n.Date.Format(utils.DateLayout), err)
			return
		}
		fmt.Printf("%s  DF %.10f  zero %.6f%%\n", n.Date.Format(utils.DateLayout), n.Value, z*100)
	}
}
