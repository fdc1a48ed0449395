package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/gritsim/internal/automation"
	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/optim"
)

var (
	tuneParams []string
	metricName string
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

func toolCommands() []*cobra.Command {
	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search over controller parameters",
		Long: "Evaluates every combination of the given parameter values and reports the\n" +
			"one minimizing a metric. Parameters: " + strings.Join(config.ParamNames(), ", "),
		Args: cobra.NoArgs,
		RunE: tune,
	}
	addScenarioFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&metricName, "metric", "current_tracking_rms", "metric to minimize")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter over a linear range",
		Args:  cobra.NoArgs,
		RunE:  sweep,
	}
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "f_pll", "parameter name")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 10, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 50, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run a scripted batch of scenarios",
		Args:  cobra.ExactArgs(1),
		RunE:  batch,
	}

	return []*cobra.Command{tuneCmd, sweepCmd, batchCmd}
}

func parseParam(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("invalid --param %q, want name=v1,v2", s)
	}
	var vals []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("--param %s: %w", name, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

func tune(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd)
	if err != nil {
		return err
	}
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}

	names := make([]string, 0, len(tuneParams))
	ranges := make([][]float64, 0, len(tuneParams))
	for _, p := range tuneParams {
		name, vals, err := parseParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	logger.Info("searching", "scenario", cfg.Name, "candidates", len(g.Combinations()), "metric", metricName)
	best, all, err := g.Search(cfg, metricName)
	if err != nil {
		return err
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Value < all[j].Value })
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(metricName))
	for _, c := range all {
		row := make([]string, 0, len(names)+1)
		for _, name := range names {
			row = append(row, fmt.Sprintf("%g", c.Params[name]))
		}
		if c.Err != nil {
			row = append(row, "failed")
		} else {
			row = append(row, fmt.Sprintf("%.6g", c.Value))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest: %v (%s = %.6g)\n", best.Params, metricName, best.Value)
	return nil
}

func sweep(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(&automation.Sweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	})
	if err != nil {
		return err
	}

	var metricNames []string
	for _, r := range results {
		if r.Metrics != nil {
			for name := range r.Metrics {
				metricNames = append(metricNames, name)
			}
			break
		}
	}
	sort.Strings(metricNames)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(sweepParam)+"\t"+strings.ToUpper(strings.Join(metricNames, "\t"))+"\tSTATUS")
	for _, r := range results {
		row := []string{fmt.Sprintf("%g", r.ParamValue)}
		for _, name := range metricNames {
			v := math.NaN()
			if r.Metrics != nil {
				v = r.Metrics[name]
			}
			row = append(row, fmt.Sprintf("%.6g", v))
		}
		status := "ok"
		if r.Err != nil {
			status = fmt.Sprintf("failed at t=%g", r.FinalT)
			logger.Debug("sweep member failed", sweepParam, r.ParamValue, "err", r.Err)
		}
		fmt.Fprintln(w, strings.Join(append(row, status), "\t"))
	}
	return w.Flush()
}

func batch(cmd *cobra.Command, args []string) error {
	b, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}

	fmt.Printf("batch: %s (%d steps)\n\n", b.Name, len(b.Steps))
	results := automation.RunBatch(b, st, logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENARIO\tRUN ID\tSTATUS")
	failed := 0
	for i, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
			failed++
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, r.Scenario, r.RunID, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d steps failed", failed, len(results))
	}
	return nil
}
