package sim

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/gritsim/internal/control"
	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/integrators"
	"github.com/san-kum/gritsim/internal/model"
	"github.com/san-kum/gritsim/internal/pwm"
	"github.com/san-kum/gritsim/internal/signal"
)

// Config selects the numerical and switching treatment of a run.
type Config struct {
	// Integrator defaults to RK45.
	Integrator dynamo.Integrator
	Options    integrators.Options
	// PWM expands each command into carrier-comparison switching intervals
	// instead of applying the averaged switching vector.
	PWM bool
	// Dense records every accepted integrator step in Log.Trace.
	Dense  bool
	Logger *log.Logger
}

func DefaultConfig() Config {
	return Config{
		Integrator: integrators.NewRK45(),
		Options:    integrators.DefaultOptions(),
	}
}

type action struct {
	at float64
	fn func() error
}

// Simulation couples a plant with a sampled controller. It runs once.
type Simulation struct {
	plant model.Plant
	ctrl  control.Strategy
	cfg   Config
	log   *log.Logger

	phase     Phase
	x         dynamo.State
	u         dynamo.Control
	t         float64
	actions   []action
	metrics   []Metric
	observers []Observer
	result    *Log
}

// New validates the plant/controller combination.
func New(plant model.Plant, ctrl control.Strategy, cfg Config) (*Simulation, error) {
	if plant == nil || ctrl == nil {
		return nil, dynamo.Configf("plant and controller are required")
	}
	if ts := ctrl.SamplingPeriod(); !(ts > 0) || math.IsInf(ts, 0) {
		return nil, dynamo.Configf("sampling period must be positive and finite, got %g", ts)
	}
	if ctrl.DCBusControlEnabled() && !plant.HasDCBus() {
		return nil, dynamo.Configf("dc-bus voltage control is enabled but the plant has no dc-bus model")
	}
	if cfg.Integrator == nil {
		cfg.Integrator = integrators.NewRK45()
	}
	if cfg.Options.MaxStep <= 0 {
		cfg.Options.MaxStep = math.Min(integrators.DefaultOptions().MaxStep, ctrl.SamplingPeriod())
	}
	if cfg.Options.MinStep <= 0 {
		cfg.Options.MinStep = integrators.DefaultOptions().MinStep
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}

	x := plant.InitialState()
	if len(x) != plant.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d entries, plant declares %d",
			dynamo.ErrDimensionMismatch, len(x), plant.StateDim())
	}
	if !x.IsValid() {
		return nil, dynamo.Configf("initial state is not finite: %v", x)
	}

	return &Simulation{
		plant: plant,
		ctrl:  ctrl,
		cfg:   cfg,
		log:   cfg.Logger,
		x:     x,
		u:     dynamo.SwitchingVector(0),
	}, nil
}

func (s *Simulation) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulation) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulation) Phase() Phase { return s.phase }

// State returns a copy of the current plant state.
func (s *Simulation) State() dynamo.State { return s.x.Clone() }

// Log returns the log of the completed run, or nil before Simulate.
func (s *Simulation) Log() *Log { return s.result }

// Reconfigure schedules fn to run at the first sampling instant at or after
// at, before the measurement of that instant. fn typically changes plant
// parameters or signals. Scheduling in the past is a misuse error.
func (s *Simulation) Reconfigure(at float64, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("%w: nil reconfiguration", dynamo.ErrMisuse)
	}
	if s.phase == Completed {
		return fmt.Errorf("%w: simulation already completed", dynamo.ErrMisuse)
	}
	if at < s.t || math.IsNaN(at) {
		return fmt.Errorf("%w: reconfiguration at t=%g is before the current time %g", dynamo.ErrMisuse, at, s.t)
	}
	s.actions = append(s.actions, action{at: at, fn: fn})
	sort.SliceStable(s.actions, func(i, j int) bool { return s.actions[i].at < s.actions[j].at })
	return nil
}

// Simulate runs the closed loop from t = 0 to tStop. It may be called only
// once per Simulation. On a numerical error the partial log is returned
// along with a *dynamo.SimulationError.
func (s *Simulation) Simulate(tStop float64) (*Log, error) {
	if s.phase != Configured {
		return nil, fmt.Errorf("%w (phase %s)", dynamo.ErrAlreadySimulated, s.phase)
	}
	if !(tStop > 0) || math.IsInf(tStop, 0) {
		return nil, dynamo.Configf("t_stop must be positive and finite, got %g", tStop)
	}

	s.phase = Running
	defer func() { s.phase = Completed }()
	for _, m := range s.metrics {
		m.Reset()
	}

	ts := s.ctrl.SamplingPeriod()
	n := int(math.Ceil(tStop/ts - 1e-9))
	lg := newLog(s.plant.StateNames(), n+1)
	s.result = lg

	opts := s.cfg.Options
	if s.cfg.Dense {
		lg.Trace = &Trace{T: []float64{0}, States: []dynamo.State{s.x.Clone()}}
		opts.OnStep = func(t float64, x dynamo.State) {
			lg.Trace.T = append(lg.Trace.T, t)
			lg.Trace.States = append(lg.Trace.States, x.Clone())
		}
	}
	seg := integrators.NewSegment(s.cfg.Integrator, opts)
	var mod *pwm.Modulator
	if s.cfg.PWM {
		mod = pwm.NewModulator()
	}

	s.log.Info("simulation started", "t_stop", tStop, "t_s", ts, "periods", n, "pwm", s.cfg.PWM)
	start := time.Now()

	var cmd control.Command
	var legs [3]bool
	for k := 0; k < n; k++ {
		t0 := float64(k) * ts
		t1 := math.Min(float64(k+1)*ts, tStop)
		if tStop-t1 < 1e-9*ts {
			t1 = tStop
		}
		s.t = t0

		if err := s.runActions(k, t0); err != nil {
			return s.finish(lg, start), err
		}
		if err := s.checkSignals(k, t0); err != nil {
			return s.finish(lg, start), err
		}

		meas := s.plant.Measure(t0, s.x, s.u)
		var err error
		cmd, err = s.ctrl.Step(t0, meas)
		if err != nil {
			return s.finish(lg, start), s.wrap(k, t0, err)
		}
		if cmd.CurrentLimited {
			s.log.Debug("current reference limited", "t", t0, "i_ref", cmd.IcRef)
		}

		seq := pwm.Averaged(cmd.Q, t0, t1)
		commutations := 0
		if mod != nil {
			seq = mod.Sequence(cmd.DABC, t0, ts, t1)
			if k == 0 {
				legs = seq[0].Legs
			}
			commutations, legs = seq.Commutations(legs)
		}
		s.append(lg, Record{Step: k, T: t0, State: s.x.Clone(), Meas: meas, Cmd: cmd, Commutations: commutations})

		for _, iv := range seq {
			s.u = dynamo.SwitchingVector(iv.Q)
			s.x, err = seg.Advance(s.plant, s.x, s.u, iv.T0, iv.T1)
			if err == nil {
				err = s.plant.CheckState(s.x)
			}
			if err != nil {
				return s.finish(lg, start), s.wrap(k, iv.T1, err)
			}
		}
	}

	s.t = tStop
	meas := s.plant.Measure(tStop, s.x, s.u)
	s.append(lg, Record{Step: n, T: tStop, State: s.x.Clone(), Meas: meas, Cmd: cmd})
	return s.finish(lg, start), nil
}

func (s *Simulation) runActions(k int, t float64) error {
	const eps = 1e-12
	for len(s.actions) > 0 && s.actions[0].at <= t+eps {
		a := s.actions[0]
		s.actions = s.actions[1:]
		if err := a.fn(); err != nil {
			return s.wrap(k, t, fmt.Errorf("reconfiguration at t=%g: %w", a.at, err))
		}
		s.log.Debug("reconfigured", "t", t, "scheduled", a.at)
	}
	return nil
}

// checkSignals evaluates every plant input once per period so that an
// undefined value is reported at the sampling instant rather than deep
// inside the integrator.
func (s *Simulation) checkSignals(k int, t float64) error {
	signals := s.plant.Signals()
	names := make([]string, 0, len(signals))
	for name := range signals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := signal.Eval(name, signals[name], t); err != nil {
			return s.wrap(k, t, err)
		}
	}
	return nil
}

func (s *Simulation) wrap(k int, t float64, err error) error {
	var se *dynamo.SimulationError
	if errors.As(err, &se) {
		se.Step = k
		se.Names = s.plant.StateNames()
		if se.State == nil {
			se.State = s.x.Clone()
		}
		s.log.Error("simulation aborted", "err", se)
		return se
	}
	se = &dynamo.SimulationError{
		Step:    k,
		Time:    t,
		State:   s.x.Clone(),
		Names:   s.plant.StateNames(),
		Wrapped: err,
	}
	s.log.Error("simulation aborted", "err", se)
	return se
}

func (s *Simulation) append(lg *Log, r Record) {
	lg.Records = append(lg.Records, r)
	for _, m := range s.metrics {
		m.Observe(r)
	}
	for _, o := range s.observers {
		o.OnRecord(r)
	}
}

func (s *Simulation) finish(lg *Log, start time.Time) *Log {
	lg.Elapsed = time.Since(start)
	for _, m := range s.metrics {
		lg.Metrics[m.Name()] = m.Value()
	}
	s.log.Info("simulation finished", "records", len(lg.Records), "elapsed", lg.Elapsed)
	return lg
}
