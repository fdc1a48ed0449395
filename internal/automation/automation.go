package automation

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/experiment"
	"github.com/san-kum/gritsim/internal/sim"
	"github.com/san-kum/gritsim/internal/storage"
)

// Batch is a scripted sequence of runs.
type Batch struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Steps       []BatchStep `yaml:"steps"`
}

// BatchStep runs a preset or scenario file with parameter overrides.
type BatchStep struct {
	Preset string             `yaml:"preset,omitempty"`
	Config string             `yaml:"config,omitempty"`
	PWM    *bool              `yaml:"pwm,omitempty"`
	Params map[string]float64 `yaml:"params,omitempty"`
	SaveAs string             `yaml:"save_as,omitempty"`
}

func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	if len(batch.Steps) == 0 {
		return nil, fmt.Errorf("%s: batch has no steps", path)
	}
	return &batch, nil
}

// Scenario resolves the step into a validated scenario.
func (s BatchStep) Scenario() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		c, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", s.Preset)
		}
	default:
		return nil, fmt.Errorf("step needs a preset or a config file")
	}
	if s.PWM != nil {
		cfg.PWM = *s.PWM
	}
	for name, v := range s.Params {
		if err := cfg.Set(name, v); err != nil {
			return nil, err
		}
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	return cfg, cfg.Validate()
}

// StepResult is the outcome of one batch step.
type StepResult struct {
	Scenario string
	RunID    string
	Metrics  map[string]float64
	Err      error
}

// RunBatch executes the steps in order. Logs are stored when st is not
// nil. A failing step is reported and does not stop the batch.
func RunBatch(batch *Batch, st *storage.Store, logger *log.Logger) []StepResult {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	results := make([]StepResult, 0, len(batch.Steps))
	for i, step := range batch.Steps {
		res := StepResult{}
		cfg, err := step.Scenario()
		if err != nil {
			res.Err = fmt.Errorf("step %d: %w", i+1, err)
			results = append(results, res)
			continue
		}
		res.Scenario = cfg.Name
		logger.Info("batch step", "step", i+1, "of", len(batch.Steps), "scenario", cfg.Name)

		lg, err := run(cfg)
		res.Err = err
		if lg != nil {
			res.Metrics = lg.Metrics
			if st != nil {
				id, serr := st.Save(cfg, lg, err)
				if serr != nil && res.Err == nil {
					res.Err = serr
				}
				res.RunID = id
			}
		}
		if res.Err != nil {
			logger.Warn("batch step failed", "step", i+1, "err", res.Err)
		}
		results = append(results, res)
	}
	return results
}

func run(cfg *config.Config) (*sim.Log, error) {
	e := experiment.New(cfg)
	if err := e.Setup(nil); err != nil {
		return nil, err
	}
	return e.Run()
}

// Sweep varies one parameter of a scenario over a linear range.
type Sweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	FinalT     float64
	Err        error
}

// RunSweep executes the sweep members concurrently.
func RunSweep(sweep *Sweep) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	if _, err := sweep.Base.Get(sweep.ParamName); err != nil {
		return nil, err
	}
	// Members share the stop time of the base scenario.
	if sweep.ParamName == "t_stop" {
		return nil, fmt.Errorf("t_stop cannot be swept")
	}

	step := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	values := make([]float64, sweep.NumSteps)
	for i := range values {
		values[i] = sweep.ParamMin + float64(i)*step
	}

	ens := sim.NewEnsemble(len(values), func(i int) (*sim.Simulation, error) {
		cfg := *sweep.Base
		if err := cfg.Set(sweep.ParamName, values[i]); err != nil {
			return nil, err
		}
		e := experiment.New(&cfg)
		if err := e.Setup(nil); err != nil {
			return nil, err
		}
		return e.Simulation(), nil
	})
	logs, errs := ens.RunAll(sweep.Base.TStop)

	results := make([]SweepResult, len(values))
	for i, v := range values {
		results[i] = SweepResult{ParamValue: v, Err: errs[i]}
		if logs[i] != nil {
			results[i].Metrics = logs[i].Metrics
			if last, ok := logs[i].Last(); ok {
				results[i].FinalT = last.T
			}
		}
	}
	return results, nil
}
