package experiment

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/san-kum/gritsim/internal/base"
	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/control"
	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/model"
	"github.com/san-kum/gritsim/internal/signal"
	"github.com/san-kum/gritsim/internal/sim"
)

// Experiment is one configured run of a scenario.
type Experiment struct {
	cfg        *config.Config
	registry   *Registry
	plant      model.Plant
	ctrl       control.Strategy
	simulation *sim.Simulation
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
	}
}

// Setup builds the plant, controller and simulation, attaches metrics and
// schedules the configured events.
func (e *Experiment) Setup(logger *log.Logger, extra ...sim.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	plant, err := e.registry.GetPlant(e.cfg)
	if err != nil {
		return fmt.Errorf("plant: %w", err)
	}
	ctrl, err := e.registry.GetController(e.cfg)
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}

	simCfg := sim.DefaultConfig()
	simCfg.Integrator = integ
	simCfg.PWM = e.cfg.PWM
	simCfg.Dense = e.cfg.Dense
	simCfg.Logger = logger
	if e.cfg.MaxStep > 0 {
		simCfg.Options.MaxStep = e.cfg.MaxStep
	}

	s, err := sim.New(plant, ctrl, simCfg)
	if err != nil {
		return err
	}
	for _, m := range e.registry.DefaultMetrics(e.cfg) {
		s.AddMetric(m)
	}
	for _, m := range extra {
		s.AddMetric(m)
	}
	if err := e.schedule(s, plant); err != nil {
		return err
	}

	e.plant = plant
	e.ctrl = ctrl
	e.simulation = s
	return nil
}

func (e *Experiment) schedule(s *sim.Simulation, plant model.Plant) error {
	for i, ev := range e.cfg.Events {
		var eg, iExt signal.Func
		var err error
		if ev.EgAbs != nil {
			if eg, err = ev.EgAbs.Build(); err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
		}
		if ev.IExt != nil {
			if iExt, err = ev.IExt.Build(); err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
		}
		err = s.Reconfigure(ev.At, func() error {
			switch p := plant.(type) {
			case *model.StiffSourceAndLFilterModel:
				if eg != nil {
					p.Grid.EgAbs = eg
				}
			case *model.DCBusAndLFilterModel:
				if eg != nil {
					p.Grid.EgAbs = eg
				}
				if iExt != nil {
					p.DC.IExt = iExt
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Run simulates up to the configured stop time.
func (e *Experiment) Run() (*sim.Log, error) {
	if e.simulation == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulation.Simulate(e.cfg.TStop)
}

// Simulation returns the underlying simulation for adding observers
func (e *Experiment) Simulation() *sim.Simulation {
	return e.simulation
}

func (e *Experiment) Plant() model.Plant {
	return e.plant
}

func (e *Experiment) Config() *config.Config {
	return e.cfg
}

// Base returns the per-unit base values of the scenario.
func (e *Experiment) Base() (base.Values, error) {
	b := e.cfg.Base
	return base.New(b.UNom, b.INom, b.FNom, b.PNom)
}

// Params returns the plant parameters and the controller gains, the latter
// prefixed with "ctrl.".
func (e *Experiment) Params() map[string]float64 {
	params := make(map[string]float64)
	if p, ok := e.plant.(dynamo.Configurable); ok {
		for k, v := range p.GetParams() {
			params[k] = v
		}
	}
	if c, ok := e.ctrl.(dynamo.Configurable); ok {
		for k, v := range c.GetParams() {
			params["ctrl."+k] = v
		}
	}
	return params
}
