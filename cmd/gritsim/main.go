package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/experiment"
	"github.com/san-kum/gritsim/internal/storage"
	"github.com/san-kum/gritsim/internal/viz"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	tStop      float64
	integrator string
	pwm        bool
	noSave     bool
	figureDir  string
	showPlot   bool
	perUnit    bool
	series     string
	waveform   string
	outDir     string
	outFile    string
	every      int
	theme      string
	f0         float64
	cycles     float64
	maxOrder   int
	stepAt     float64
	stepSeries string
	xSeries    string
	ySeries    string

	logger *log.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gritsim",
		Short: "grid converter co-simulation",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = log.NewWithOptions(os.Stderr, log.Options{
				Level:           lvl,
				ReportTimestamp: true,
				TimeFormat:      time.Kitchen,
				Prefix:          "gritsim",
			})
			viz.SetTheme(theme)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := viz.PickScenario()
			if err != nil || cfg == nil {
				return err
			}
			return runLiveConfig(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gritsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "dark", "terminal theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scenario and store its log",
		Args:  cobra.NoArgs,
		RunE:  runScenario,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&figureDir, "figures", "", "write PNG figures to this directory")
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "print terminal plots")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scenario with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)
	liveCmd.Flags().IntVar(&every, "every", 16, "display every n-th sampling instant")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&series, "series", "", "comma separated series (default: standard groups)")
	plotCmd.Flags().BoolVar(&perUnit, "pu", false, "plot in per-unit")

	figureCmd := &cobra.Command{
		Use:   "figure [run_id]",
		Short: "render PNG figures of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  figureRun,
	}
	figureCmd.Flags().StringVar(&outDir, "out", "", "output directory (default: the run directory)")
	figureCmd.Flags().BoolVar(&perUnit, "pu", false, "plot in per-unit")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "harmonic and step response analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&waveform, "series", "i_c_a", "waveform for harmonic analysis")
	analyzeCmd.Flags().Float64Var(&f0, "f0", 0, "fundamental frequency in Hz (default: grid frequency)")
	analyzeCmd.Flags().Float64Var(&cycles, "cycles", 5, "number of fundamental periods analyzed")
	analyzeCmd.Flags().IntVar(&maxOrder, "order", 40, "highest harmonic order")
	analyzeCmd.Flags().Float64Var(&stepAt, "step-at", 0, "reference step time for step response analysis")
	analyzeCmd.Flags().StringVar(&stepSeries, "step-series", "u_dc", "series analyzed for the step response")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase plane plot of two series",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xSeries, "x", "i_c_d", "series on the x axis")
	phaseCmd.Flags().StringVar(&ySeries, "y", "i_c_q", "series on the y axis")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-14s %s\n", name, config.Presets[name].Description)
			}
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&outFile, "out", "-", "output file")
	exportJSONCmd.Flags().StringVar(&series, "series", "", "comma separated series (default: all)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored run to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, figureCmd, analyzeCmd, phaseCmd, presetsCmd, exportJSONCmd, exportCSVCmd)
	rootCmd.AddCommand(toolCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "gfl-vdc", "scenario preset")
	cmd.Flags().Float64Var(&tStop, "t-stop", 0, "stop time in seconds (default: from scenario)")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator (euler, rk4, rk45)")
	cmd.Flags().BoolVar(&pwm, "pwm", false, "enable carrier-comparison PWM")
}

// scenario resolves the preset or config file and applies flag overrides.
func scenario(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	} else {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if cmd.Flags().Changed("t-stop") {
		cfg.TStop = tStop
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("pwm") {
		cfg.PWM = pwm
	}
	return cfg, cfg.Validate()
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(logger); err != nil {
		return err
	}

	logger.Info("running", "scenario", cfg.Name, "plant", cfg.Plant, "controller", cfg.Controller, "t_stop", cfg.TStop, "pwm", cfg.PWM)
	start := time.Now()
	lg, runErr := exp.Run()
	elapsed := time.Since(start)
	if lg == nil {
		return runErr
	}

	var runID string
	if !noSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		if runID, err = st.Save(cfg, lg, runErr); err != nil {
			return err
		}
		logger.Info("stored", "run", runID, "dir", st.Dir(runID))
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("Execution time: %.2f s\n", elapsed.Seconds())
	if runID != "" {
		fmt.Printf("run id: %s\n", runID)
	}
	fmt.Printf("records: %d\n\n", len(lg.Records))
	fmt.Println(viz.Box("parameters", viz.MetricsTable(exp.Params())))
	fmt.Println(viz.Box("metrics", viz.MetricsTable(lg.Metrics)))

	if showPlot {
		out, err := viz.PlotGroups(lg, 80, 10)
		if err != nil {
			return err
		}
		fmt.Println(out)
	}
	if figureDir != "" {
		return writeFigures(figureDir, cfg, lg)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd)
	if err != nil {
		return err
	}
	return runLiveConfig(cfg)
}

func runLiveConfig(cfg *config.Config) error {
	exp := experiment.New(cfg)
	// The live view owns the terminal.
	if err := exp.Setup(nil); err != nil {
		return err
	}
	b, err := exp.Base()
	if err != nil {
		return err
	}

	n := every
	if n <= 0 {
		n = 16
	}
	lg, err := viz.RunLive(exp.Simulation(), cfg.TStop, n, viz.LiveOptions{
		Title:  cfg.Name,
		IFull:  1.5 * b.I,
		UFull:  1.2 * b.U,
		Params: exp.Params(),
	})
	if lg == nil {
		return err
	}

	st, serr := openStore()
	if serr != nil {
		return serr
	}
	runID, serr := st.Save(cfg, lg, err)
	if serr != nil {
		return serr
	}
	logger.Info("stored", "run", runID)
	return err
}
