package experiment

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/control"
	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/integrators"
	"github.com/san-kum/gritsim/internal/metrics"
	"github.com/san-kum/gritsim/internal/model"
	"github.com/san-kum/gritsim/internal/signal"
	"github.com/san-kum/gritsim/internal/sim"
)

type Registry struct {
	plants      map[string]func(*config.Config) (model.Plant, error)
	integrators map[string]func() dynamo.Integrator
	controllers map[string]func(*config.Config) (control.Strategy, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		plants:      make(map[string]func(*config.Config) (model.Plant, error)),
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]func(*config.Config) (control.Strategy, error)),
	}

	r.plants["dc_bus"] = buildDCBusPlant
	r.plants["stiff"] = buildStiffPlant

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	r.controllers["gfl"] = buildGridFollowing
	r.controllers["open_loop"] = buildOpenLoop

	return r
}

func (r *Registry) GetPlant(cfg *config.Config) (model.Plant, error) {
	fn, ok := r.plants[cfg.Plant]
	if !ok {
		return nil, dynamo.Configf("unknown plant: %s", cfg.Plant)
	}
	return fn(cfg)
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, dynamo.Configf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(cfg *config.Config) (control.Strategy, error) {
	fn, ok := r.controllers[cfg.Controller]
	if !ok {
		return nil, dynamo.Configf("unknown controller: %s", cfg.Controller)
	}
	return fn(cfg)
}

func (r *Registry) ListPlants() []string      { return sortedKeys(r.plants) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns the metrics attached to every run of cfg.
func (r *Registry) DefaultMetrics(cfg *config.Config) []sim.Metric {
	cdc := 0.0
	if cfg.Plant == "dc_bus" {
		cdc = cfg.DCBus.Cdc
	}
	return metrics.Default(cdc)
}

func buildSpec(name string, s *signal.Spec) (signal.Func, error) {
	f, err := s.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func buildGrid(cfg *config.Config) (*model.LFilter, *model.StiffSource, error) {
	f := cfg.Filter
	filter := &model.LFilter{Lf: f.Lf, Rf: f.Rf, Lg: f.Lg, Rg: f.Rg}
	grid := model.NewStiffSource(2 * math.Pi * cfg.Grid.FN)
	if cfg.Grid.EgAbs != nil {
		eg, err := buildSpec("e_g_abs", cfg.Grid.EgAbs)
		if err != nil {
			return nil, nil, err
		}
		grid.EgAbs = eg
	}
	return filter, grid, nil
}

func buildStiffPlant(cfg *config.Config) (model.Plant, error) {
	filter, grid, err := buildGrid(cfg)
	if err != nil {
		return nil, err
	}
	m, err := model.NewStiffSourceAndLFilterModel(filter, grid, model.NewInverter(cfg.Converter.Udc))
	if err != nil {
		return nil, err
	}
	m.Sensors = sensors(cfg)
	return m, nil
}

func buildDCBusPlant(cfg *config.Config) (model.Plant, error) {
	filter, grid, err := buildGrid(cfg)
	if err != nil {
		return nil, err
	}
	d := cfg.DCBus
	dc := model.NewDCBus(d.Cdc, d.Gdc, d.Udc0)
	dc.Umax = d.Umax
	if d.IExt != nil {
		if dc.IExt, err = buildSpec("i_ext", d.IExt); err != nil {
			return nil, err
		}
	}
	m, err := model.NewDCBusAndLFilterModel(filter, grid, dc, model.NewInverter(cfg.Converter.Udc))
	if err != nil {
		return nil, err
	}
	m.Sensors = sensors(cfg)
	return m, nil
}

func sensors(cfg *config.Config) *model.Sensors {
	if cfg.Sensors == nil {
		return nil
	}
	s := *cfg.Sensors
	return &s
}

func buildGridFollowing(cfg *config.Config) (control.Strategy, error) {
	c := cfg.Control
	pars := control.DefaultGridFollowingCtrlPars()
	pars.WgN = 2 * math.Pi * cfg.Grid.FN
	pars.OnVdc = c.OnVdc
	pars.Rf = c.Rf
	setIf(&pars.Lf, c.Lf)
	setIf(&pars.Cdc, c.Cdc)
	setIf(&pars.Fsw, c.Fsw)
	setIf(&pars.Ts, c.Ts)
	setIf(&pars.IMax, c.IMax)
	setIf(&pars.PMax, c.PMax)
	setIf(&pars.AlphaC, 2*math.Pi*c.FcHz)
	setIf(&pars.W0PLL, 2*math.Pi*c.FPLLHz)
	setIf(&pars.W0DC, 2*math.Pi*c.FDCHz)

	refs := []struct {
		name string
		spec *signal.Spec
		dst  *signal.Func
	}{
		{"p_g_ref", c.PgRef, &pars.PgRef},
		{"q_g_ref", c.QgRef, &pars.QgRef},
		{"u_dc_ref", c.UdcRef, &pars.UdcRef},
	}
	for _, ref := range refs {
		if ref.spec == nil {
			continue
		}
		f, err := buildSpec(ref.name, ref.spec)
		if err != nil {
			return nil, err
		}
		*ref.dst = f
	}
	return control.NewGridFollowingCtrl(pars)
}

func setIf(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func buildOpenLoop(cfg *config.Config) (control.Strategy, error) {
	u, err := buildSpec("u_c_abs", cfg.OpenLoop.UcAbs)
	if err != nil {
		return nil, err
	}
	ts := cfg.Control.Ts
	if ts == 0 {
		ts = control.DefaultGridFollowingCtrlPars().Ts
	}
	return control.NewOpenLoop(ts, 2*math.Pi*cfg.Grid.FN, cfg.OpenLoop.Phase, u)
}
