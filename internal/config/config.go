package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/model"
	"github.com/san-kum/gritsim/internal/signal"
)

const (
	DefaultTStop      = 0.1
	DefaultIntegrator = "rk45"
	DefaultMaxStep    = 1e-5
)

// Config is a complete scenario: plant, controller, signals and run
// settings.
type Config struct {
	Name        string          `yaml:"name,omitempty"`
	Description string          `yaml:"description,omitempty"`
	Plant       string          `yaml:"plant"`
	Controller  string          `yaml:"controller"`
	Integrator  string          `yaml:"integrator"`
	TStop       float64         `yaml:"t_stop"`
	MaxStep     float64         `yaml:"max_step,omitempty"`
	PWM         bool            `yaml:"pwm"`
	Dense       bool            `yaml:"dense,omitempty"`
	Base        BaseConfig      `yaml:"base"`
	Filter      FilterConfig    `yaml:"filter"`
	Grid        GridConfig      `yaml:"grid"`
	DCBus       DCBusConfig     `yaml:"dc_bus"`
	Converter   ConverterConfig `yaml:"converter"`
	Sensors     *model.Sensors  `yaml:"sensors,omitempty"`
	Control     ControlConfig   `yaml:"control"`
	OpenLoop    OpenLoopConfig  `yaml:"open_loop,omitempty"`
	Events      []EventConfig   `yaml:"events,omitempty"`
}

// BaseConfig holds nameplate ratings for per-unit output.
type BaseConfig struct {
	UNom float64 `yaml:"U_nom"`
	INom float64 `yaml:"I_nom"`
	FNom float64 `yaml:"f_nom"`
	PNom float64 `yaml:"P_nom"`
}

type FilterConfig struct {
	Lf float64 `yaml:"L_f"`
	Rf float64 `yaml:"R_f"`
	Lg float64 `yaml:"L_g"`
	Rg float64 `yaml:"R_g"`
}

type GridConfig struct {
	FN    float64      `yaml:"f_N"`
	EgAbs *signal.Spec `yaml:"e_g_abs,omitempty"`
}

type DCBusConfig struct {
	Cdc  float64      `yaml:"C_dc"`
	Gdc  float64      `yaml:"G_dc"`
	Udc0 float64      `yaml:"u_dc0"`
	Umax float64      `yaml:"u_max,omitempty"`
	IExt *signal.Spec `yaml:"i_ext,omitempty"`
}

type ConverterConfig struct {
	Udc float64 `yaml:"u_dc"`
}

// ControlConfig mirrors control.GridFollowingCtrlPars. Zero fields take
// the controller defaults; bandwidths are given in Hz.
type ControlConfig struct {
	Lf     float64      `yaml:"L_f,omitempty"`
	Rf     float64      `yaml:"R_f,omitempty"`
	Cdc    float64      `yaml:"C_dc,omitempty"`
	Fsw    float64      `yaml:"f_sw,omitempty"`
	Ts     float64      `yaml:"T_s,omitempty"`
	OnVdc  bool         `yaml:"on_v_dc"`
	IMax   float64      `yaml:"i_max,omitempty"`
	PMax   float64      `yaml:"p_max,omitempty"`
	FcHz   float64      `yaml:"f_c,omitempty"`
	FPLLHz float64      `yaml:"f_pll,omitempty"`
	FDCHz  float64      `yaml:"f_dc,omitempty"`
	PgRef  *signal.Spec `yaml:"p_g_ref,omitempty"`
	QgRef  *signal.Spec `yaml:"q_g_ref,omitempty"`
	UdcRef *signal.Spec `yaml:"u_dc_ref,omitempty"`
}

type OpenLoopConfig struct {
	UcAbs *signal.Spec `yaml:"u_c_abs,omitempty"`
	Phase float64      `yaml:"phase,omitempty"`
}

// EventConfig replaces plant signals at a given time.
type EventConfig struct {
	At    float64      `yaml:"at"`
	EgAbs *signal.Spec `yaml:"e_g_abs,omitempty"`
	IExt  *signal.Spec `yaml:"i_ext,omitempty"`
}

// DefaultConfig returns the 10 kVA grid-following converter with dc-bus
// voltage control.
func DefaultConfig() *Config {
	return &Config{
		Plant:      "dc_bus",
		Controller: "gfl",
		Integrator: DefaultIntegrator,
		TStop:      DefaultTStop,
		MaxStep:    DefaultMaxStep,
		Base:       BaseConfig{UNom: 400, INom: 14.5, FNom: 50, PNom: 10e3},
		Filter:     FilterConfig{Lf: 10e-3},
		Grid:       GridConfig{FN: 50},
		DCBus:      DCBusConfig{Cdc: 1e-3, Udc0: 600},
		Converter:  ConverterConfig{Udc: 600},
		Control: ControlConfig{
			Lf:    10e-3,
			Cdc:   1e-3,
			Fsw:   8e3,
			Ts:    1 / 16e3,
			OnVdc: true,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dynamo.ErrConfiguration, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the choices that cannot be caught by the component
// constructors.
func (c *Config) Validate() error {
	switch c.Plant {
	case "dc_bus", "stiff":
	default:
		return dynamo.Configf("unknown plant %q (want dc_bus or stiff)", c.Plant)
	}
	switch c.Controller {
	case "gfl", "open_loop":
	default:
		return dynamo.Configf("unknown controller %q (want gfl or open_loop)", c.Controller)
	}
	switch c.Integrator {
	case "euler", "rk4", "rk45":
	default:
		return dynamo.Configf("unknown integrator %q", c.Integrator)
	}
	if !(c.TStop > 0) {
		return dynamo.Configf("t_stop must be positive, got %g", c.TStop)
	}
	if c.Controller == "open_loop" && c.OpenLoop.UcAbs == nil {
		return dynamo.Configf("open_loop.u_c_abs is required for the open-loop controller")
	}
	for i, ev := range c.Events {
		if ev.At < 0 {
			return dynamo.Configf("event %d: negative time %g", i, ev.At)
		}
		if ev.IExt != nil && c.Plant != "dc_bus" {
			return dynamo.Configf("event %d: i_ext requires the dc_bus plant", i)
		}
	}
	return nil
}
