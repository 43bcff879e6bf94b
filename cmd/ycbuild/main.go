package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/meenmo/ycurve/bootstrap"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/marketdata"
	"github.com/meenmo/ycurve/utils"
)

// BuildInput is one curve definition plus the dates to read off the result.
type BuildInput struct {
	TaskID string `json:"task_id,omitempty"`

	marketdata.Definition

	// Optional engine overrides; empty fields keep the defaults.
	Trait         string `json:"trait,omitempty"`
	Interpolation string `json:"interpolation,omitempty"`
	DayCount      string `json:"day_count,omitempty"`
	Pillar        string `json:"pillar,omitempty"`

	Dates       []string `json:"dates,omitempty"`
	Compounding string   `json:"compounding,omitempty"`
	Frequency   string   `json:"frequency,omitempty"`
}

// PointOutput is the curve read at one date.
type PointOutput struct {
	Date     string  `json:"date"`
	Discount float64 `json:"discount"`
	ZeroPct  float64 `json:"zero_pct"`
}

// BuildOutput defines the JSON output schema.
type BuildOutput struct {
	TaskID  string        `json:"task_id,omitempty"`
	Name    string        `json:"name,omitempty"`
	Passes  int           `json:"passes,omitempty"`
	Nodes   []PointOutput `json:"nodes,omitempty"`
	Queries []PointOutput `json:"queries,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func main() {
	inputPath := flag.String("input", "", "JSON input path (optional; if set, ignores stdin)")
	timeout := flag.Duration("timeout", 30*time.Second, "Build timeout per curve")
	help := flag.Bool("h", false, "Show help")
	flag.BoolVar(help, "help", false, "Show help")
	flag.Parse()

	if *help {
		usage()
		return
	}

	path := strings.TrimSpace(*inputPath)
	if path == "" {
		if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			usage()
			os.Exit(2)
		}
	}

	inputBytes, err := readInput(path)
	if err != nil {
		writeError(fmt.Sprintf("failed to read input: %v", err))
		return
	}

	inputs, isArray, err := parseInputs(inputBytes)
	if err != nil {
		writeError(fmt.Sprintf("failed to parse JSON input: %v", err))
		return
	}

	hadError := false
	outputs := make([]BuildOutput, 0, len(inputs))
	for _, in := range inputs {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		out, err := buildCurve(ctx, in)
		cancel()
		if err != nil {
			hadError = true
			outputs = append(outputs, BuildOutput{TaskID: in.TaskID, Name: in.Name, Error: err.Error()})
			continue
		}
		outputs = append(outputs, *out)
	}

	if isArray {
		outputBytes, _ := json.Marshal(outputs)
		fmt.Println(string(outputBytes))
	} else {
		outputBytes, _ := json.Marshal(outputs[0])
		fmt.Println(string(outputBytes))
	}

	if hadError {
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  ycbuild < input.json")
	fmt.Println("  ycbuild -input /path/to/input.json")
	fmt.Println()
	fmt.Println("Read curve definitions as JSON, bootstrap each curve, output nodes and queried points.")
	fmt.Println()
	fmt.Println("Example input:")
	fmt.Println(`  {`)
	fmt.Println(`    "name": "EUR-ESTR",`)
	fmt.Println(`    "reference_date": "2025-01-02",`)
	fmt.Println(`    "conventions": "ESTR",`)
	fmt.Println(`    "instruments": [`)
	fmt.Println(`      {"type": "DEPOSIT", "tenor": "1M", "quote": 2.90},`)
	fmt.Println(`      {"type": "SWAP", "tenor": "5Y", "quote": 2.35}`)
	fmt.Println(`    ],`)
	fmt.Println(`    "dates": ["2026-01-02", "2028-01-03"]`)
	fmt.Println(`  }`)
}

func readInput(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

func parseInputs(raw []byte) ([]BuildInput, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}

	if trimmed[0] == '[' {
		var inputs []BuildInput
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return inputs, true, nil
	}

	var input BuildInput
	if err := json.Unmarshal(trimmed, &input); err != nil {
		return nil, false, err
	}
	return []BuildInput{input}, false, nil
}

func writeError(msg string) {
	output := BuildOutput{Error: msg}
	outputBytes, _ := json.Marshal(output)
	fmt.Println(string(outputBytes))
	os.Exit(1)
}

func engineConfig(in BuildInput) (bootstrap.Config, error) {
	cfg := bootstrap.DefaultConfig
	if in.Trait != "" {
		tr, err := curve.ParseTrait(in.Trait)
		if err != nil {
			return cfg, err
		}
		cfg.Curve.Trait = tr
	}
	if in.Interpolation != "" {
		interp, err := curve.ParseInterpolation(in.Interpolation)
		if err != nil {
			return cfg, err
		}
		cfg.Curve.Interpolation = interp
	}
	if in.DayCount != "" {
		dc, err := utils.ParseDayCount(in.DayCount)
		if err != nil {
			return cfg, err
		}
		cfg.Curve.DayCount = dc
	}
	if in.Pillar != "" {
		p, err := bootstrap.ParsePillar(in.Pillar)
		if err != nil {
			return cfg, err
		}
		cfg.Pillar = p
	}
	return cfg, cfg.Validate()
}

func buildCurve(ctx context.Context, in BuildInput) (*BuildOutput, error) {
	cfg, err := engineConfig(in)
	if err != nil {
		return nil, err
	}
	comp, err := curve.ParseCompounding(in.Compounding)
	if err != nil {
		return nil, err
	}
	freq := curve.Annual
	if in.Frequency != "" {
		if freq, err = curve.ParseFrequency(in.Frequency); err != nil {
			return nil, err
		}
	}

	dates := make([]time.Time, 0, len(in.Dates))
	for _, s := range in.Dates {
		d, err := utils.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("invalid query date: %v", err)
		}
		dates = append(dates, d)
	}

	m, err := in.Definition.Build()
	if err != nil {
		return nil, err
	}
	b := bootstrap.New(m.Reference, m.Helpers, cfg)
	c, err := b.BuildContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap %s: %w", m.Name, err)
	}

	nodeDates := make([]time.Time, 0, c.Len())
	for _, n := range c.Nodes() {
		nodeDates = append(nodeDates, n.Date)
	}
	nodes, err := readPoints(c, nodeDates, comp, freq)
	if err != nil {
		return nil, err
	}
	queries, err := readPoints(c, dates, comp, freq)
	if err != nil {
		return nil, err
	}

	return &BuildOutput{
		TaskID:  in.TaskID,
		Name:    m.Name,
		Passes:  b.Report().Passes,
		Nodes:   nodes,
		Queries: queries,
	}, nil
}

func readPoints(v curve.View, dates []time.Time, comp curve.Compounding, freq curve.Frequency) ([]PointOutput, error) {
	dfs, err := curve.DiscountFactors(v, dates)
	if err != nil {
		return nil, err
	}
	zeros, err := curve.ZeroRates(v, dates, comp, freq)
	if err != nil {
		return nil, err
	}
	out := make([]PointOutput, len(dates))
	for i, d := range dates {
		out[i] = PointOutput{
			Date:     d.Format(utils.DateLayout),
			Discount: dfs[d],
			ZeroPct:  utils.RoundTo(zeros[d]*100, 8),
		}
	}
	return out, nil
}
