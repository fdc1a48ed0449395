package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/gritsim/internal/analysis"
	"github.com/san-kum/gritsim/internal/base"
	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/export"
	"github.com/san-kum/gritsim/internal/sim"
	"github.com/san-kum/gritsim/internal/storage"
	"github.com/san-kum/gritsim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tT_STOP\tPLANT\tCTRL\tINTEG\tPWM\tSTATUS")
	for _, run := range runs {
		status := "ok"
		if run.Failure != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%gs\t%s\t%s\t%s\t%v\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.TStop,
			run.Plant,
			run.Controller,
			run.Integrator,
			run.PWM,
			status,
		)
	}
	return w.Flush()
}

// loadRun returns the scenario and stored log of a run, scaled to per-unit
// when requested.
func loadRun(runID string, pu bool) (*config.Config, sim.Source, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := st.LoadLog(runID)
	if err != nil {
		return nil, nil, err
	}
	if !pu {
		return cfg, tbl, nil
	}
	b, err := base.New(cfg.Base.UNom, cfg.Base.INom, cfg.Base.FNom, cfg.Base.PNom)
	if err != nil {
		return nil, nil, err
	}
	return cfg, sim.PerUnit(tbl, b), nil
}

func splitSeries(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func plotRun(cmd *cobra.Command, args []string) error {
	cfg, src, err := loadRun(args[0], perUnit)
	if err != nil {
		return err
	}
	if len(src.Times()) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", args[0])
	fmt.Printf("scenario: %s\n", cfg.Name)
	fmt.Printf("samples: %d\n\n", len(src.Times()))

	if names := splitSeries(series); len(names) > 0 {
		out, err := viz.Plot(src, names, 80, 12)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	out, err := viz.PlotGroups(src, 80, 10)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func writeFigures(dir string, cfg *config.Config, src sim.Source) error {
	paths, err := export.Figures(dir, src, export.GridFigures(src))
	if err != nil {
		return err
	}
	for _, p := range paths {
		logger.Info("figure", "scenario", cfg.Name, "path", p)
	}
	return nil
}

func figureRun(cmd *cobra.Command, args []string) error {
	cfg, src, err := loadRun(args[0], perUnit)
	if err != nil {
		return err
	}
	dir := outDir
	if dir == "" {
		dir = filepath.Join(dataDir, args[0])
	}
	return writeFigures(dir, cfg, src)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	cfg, src, err := loadRun(args[0], false)
	if err != nil {
		return err
	}
	x, err := src.Series(waveform)
	if err != nil {
		return err
	}
	f := f0
	if f <= 0 {
		f = cfg.Grid.FN
	}

	fmt.Printf("harmonic analysis: %s\n", args[0])
	fmt.Printf("series: %s, f0: %g Hz, last %g cycles\n\n", waveform, f, cycles)

	window, fs, err := analysis.Window(src.Times(), x, f, cycles)
	if err != nil {
		return err
	}
	thd, err := analysis.THD(window, fs, f, maxOrder)
	if err != nil {
		return err
	}
	spec := analysis.AmplitudeSpectrum(window, fs)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tFREQ\tAMPLITUDE\t% OF FUND")
	fund := spec.Harmonic(f, 1)
	for h := 1; h <= min(maxOrder, 13); h++ {
		a := spec.Harmonic(f, h)
		rel := 0.0
		if fund > 0 {
			rel = 100 * a / fund
		}
		fmt.Fprintf(w, "%d\t%g Hz\t%.4g\t%.2f\n", h, float64(h)*f, a, rel)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nTHD (up to order %d): %.3f %%\n", maxOrder, 100*thd)

	if stepAt <= 0 {
		return nil
	}
	y, err := src.Series(stepSeries)
	if err != nil {
		return err
	}
	target := y[len(y)-1]
	if ref, err := src.Series(stepSeries + "_ref"); err == nil {
		target = ref[len(ref)-1]
	}
	info, err := analysis.StepResponse(src.Times(), y, stepAt, target, 0.02)
	if err != nil {
		return err
	}
	fmt.Printf("\nstep response of %s at %g s (target %g)\n", stepSeries, stepAt, target)
	fmt.Printf("  initial:       %.4g\n", info.Initial)
	fmt.Printf("  final:         %.4g\n", info.Final)
	fmt.Printf("  overshoot:     %.2f %%\n", info.Overshoot)
	fmt.Printf("  rise time:     %.4g s\n", info.RiseTime)
	fmt.Printf("  settling time: %.4g s\n", info.SettlingTime)
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	_, src, err := loadRun(args[0], false)
	if err != nil {
		return err
	}
	pts, err := analysis.Trajectory(src, xSeries, ySeries)
	if err != nil {
		return err
	}
	if len(pts) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("phase plane: %s\n", args[0])
	fmt.Printf("x: %s, y: %s\n\n", xSeries, ySeries)
	fmt.Print(viz.PhasePlot(pts, 60, 16))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	cfg, src, err := loadRun(args[0], false)
	if err != nil {
		return err
	}

	data, err := export.Collect(cfg, src, meta.Metrics, splitSeries(series)...)
	if err != nil {
		return err
	}
	return export.JSONFile(outFile, data)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, src, err := loadRun(args[0], false)
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, src)
}
