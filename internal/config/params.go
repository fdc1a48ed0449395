package config

import (
	"sort"

	"github.com/san-kum/gritsim/internal/dynamo"
)

// params maps the scalar parameters that can be set by name, as used by
// sweeps and searches. Controller model estimates are prefixed with "ctrl.".
func (c *Config) params() map[string]*float64 {
	return map[string]*float64{
		"t_stop":    &c.TStop,
		"L_f":       &c.Filter.Lf,
		"R_f":       &c.Filter.Rf,
		"L_g":       &c.Filter.Lg,
		"R_g":       &c.Filter.Rg,
		"f_N":       &c.Grid.FN,
		"C_dc":      &c.DCBus.Cdc,
		"G_dc":      &c.DCBus.Gdc,
		"u_dc0":     &c.DCBus.Udc0,
		"u_dc":      &c.Converter.Udc,
		"f_c":       &c.Control.FcHz,
		"f_pll":     &c.Control.FPLLHz,
		"f_dc":      &c.Control.FDCHz,
		"i_max":     &c.Control.IMax,
		"p_max":     &c.Control.PMax,
		"ctrl.L_f":  &c.Control.Lf,
		"ctrl.R_f":  &c.Control.Rf,
		"ctrl.C_dc": &c.Control.Cdc,
	}
}

// Set assigns the named scalar parameter.
func (c *Config) Set(name string, v float64) error {
	p, ok := c.params()[name]
	if !ok {
		return dynamo.Configf("unknown parameter %q", name)
	}
	*p = v
	return nil
}

// Get returns the named scalar parameter.
func (c *Config) Get(name string) (float64, error) {
	p, ok := c.params()[name]
	if !ok {
		return 0, dynamo.Configf("unknown parameter %q", name)
	}
	return *p, nil
}

func ParamNames() []string {
	var c Config
	names := make([]string, 0, 20)
	for name := range c.params() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
