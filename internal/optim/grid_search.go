package optim

import (
	"fmt"
	"math"

	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/experiment"
	"github.com/san-kum/gritsim/internal/sim"
)

// GridSearch evaluates every combination of the given parameter values on
// a base scenario and keeps the one minimizing a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters for %d ranges", len(params), len(ranges))
	}
	defaults := config.DefaultConfig()
	for i, name := range params {
		if _, err := defaults.Get(name); err != nil {
			return nil, err
		}
		// Candidates run to the stop time of the base scenario.
		if name == "t_stop" {
			return nil, fmt.Errorf("t_stop cannot be searched")
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Candidate is one evaluated parameter combination. Failed runs score +Inf.
type Candidate struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Combinations returns the cartesian product of the ranges, the last
// parameter varying fastest.
func (g *GridSearch) Combinations() []map[string]float64 {
	var out []map[string]float64
	g.combine(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) combine(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		c := make(map[string]float64, len(current))
		for k, v := range current {
			c[k] = v
		}
		*out = append(*out, c)
		return
	}
	for _, val := range g.ranges[depth] {
		current[g.paramNames[depth]] = val
		g.combine(depth+1, current, out)
	}
}

// Search runs all combinations concurrently on copies of base and returns
// the best candidate together with every evaluated one.
func (g *GridSearch) Search(base *config.Config, metricName string) (Candidate, []Candidate, error) {
	combos := g.Combinations()
	cfgs := make([]*config.Config, len(combos))
	for i, params := range combos {
		c := *base
		for name, v := range params {
			if err := c.Set(name, v); err != nil {
				return Candidate{}, nil, err
			}
		}
		cfgs[i] = &c
	}

	ens := sim.NewEnsemble(len(cfgs), func(i int) (*sim.Simulation, error) {
		e := experiment.New(cfgs[i])
		if err := e.Setup(nil); err != nil {
			return nil, err
		}
		return e.Simulation(), nil
	})
	logs, errs := ens.RunAll(base.TStop)

	best := Candidate{Value: math.Inf(1)}
	all := make([]Candidate, len(combos))
	for i, params := range combos {
		c := Candidate{Params: params, Value: math.Inf(1), Err: errs[i]}
		if c.Err == nil {
			v, ok := logs[i].Metrics[metricName]
			if !ok {
				return Candidate{}, nil, fmt.Errorf("unknown metric %q", metricName)
			}
			if !math.IsNaN(v) {
				c.Value = v
			}
		}
		all[i] = c
		if c.Err == nil && (best.Params == nil || c.Value < best.Value) {
			best = c
		}
	}
	if best.Params == nil {
		return best, all, fmt.Errorf("all %d candidates failed: %w", len(all), all[0].Err)
	}
	return best, all, nil
}
