package config

import (
	"sort"

	"github.com/san-kum/gritsim/internal/signal"
)

// Presets are the built-in scenarios.
var Presets = map[string]*Config{
	"gfl-vdc":      gflVdc(),
	"gfl-fixed-dc": gflFixedDC(),
	"vdc-step":     vdcStep(),
	"gfl-pwm":      gflPWM(),
	"grid-dip":     gridDip(),
}

// gflVdc regulates the dc bus while reactive power and an external dc
// current are stepped in.
func gflVdc() *Config {
	c := DefaultConfig()
	c.Name = "gfl-vdc"
	c.Description = "10 kVA grid-following converter with dc-bus voltage control"
	c.Control.QgRef = signal.StepSpec(0.04, 0, 4e3)
	c.Control.UdcRef = signal.StepSpec(0.02, 600, 650)
	c.DCBus.IExt = signal.StepSpec(0.06, 0, 10)
	return c
}

func gflFixedDC() *Config {
	c := DefaultConfig()
	c.Name = "gfl-fixed-dc"
	c.Description = "grid-following converter on a constant dc voltage, power references only"
	c.Plant = "stiff"
	c.Converter.Udc = 650
	c.Control.OnVdc = false
	c.Control.PgRef = signal.StepSpec(0.02, 0, 5e3)
	c.Control.QgRef = signal.StepSpec(0.04, 0, 4e3)
	return c
}

func vdcStep() *Config {
	c := DefaultConfig()
	c.Name = "vdc-step"
	c.Description = "dc-bus reference step from 600 V to 650 V at 20 ms"
	c.Control.UdcRef = signal.StepSpec(0.02, 600, 650)
	return c
}

func gflPWM() *Config {
	c := gflVdc()
	c.Name = "gfl-pwm"
	c.Description = "gfl-vdc with carrier-comparison PWM"
	c.PWM = true
	return c
}

func gridDip() *Config {
	c := gflFixedDC()
	c.Name = "grid-dip"
	c.Description = "50 % grid voltage dip at 50 ms during full power injection"
	c.Control.PgRef = signal.ConstSpec(10e3)
	c.Control.QgRef = nil
	c.Events = []EventConfig{
		{At: 0.05, EgAbs: signal.ConstSpec(0.5 * 326.59863237109)},
		{At: 0.08, EgAbs: signal.ConstSpec(326.59863237109)},
	}
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *p
	c.Events = append([]EventConfig(nil), p.Events...)
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
