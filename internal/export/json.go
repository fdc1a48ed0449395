package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/sim"
)

type Data struct {
	Scenario   string               `json:"scenario"`
	Plant      string               `json:"plant"`
	Controller string               `json:"controller"`
	Integrator string               `json:"integrator"`
	PWM        bool                 `json:"pwm"`
	TStop      float64              `json:"t_stop"`
	Steps      int                  `json:"steps"`
	Times      []float64            `json:"times"`
	Series     map[string][]float64 `json:"series"`
	Metrics    map[string]float64   `json:"metrics,omitempty"`
}

// Collect gathers the named series of src, or all of them when names is
// empty.
func Collect(cfg *config.Config, src sim.Source, metrics map[string]float64, names ...string) (*Data, error) {
	if len(names) == 0 {
		names = src.Names()
	}
	data := &Data{
		Scenario:   cfg.Name,
		Plant:      cfg.Plant,
		Controller: cfg.Controller,
		Integrator: cfg.Integrator,
		PWM:        cfg.PWM,
		TStop:      cfg.TStop,
		Steps:      len(src.Times()),
		Times:      src.Times(),
		Series:     make(map[string][]float64, len(names)),
		Metrics:    metrics,
	}
	for _, name := range names {
		col, err := src.Series(name)
		if err != nil {
			return nil, err
		}
		data.Series[name] = col
	}
	return data, nil
}

func JSON(w io.Writer, data *Data) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// JSONFile writes data to path, or to stdout when path is "-".
func JSONFile(path string, data *Data) error {
	if path == "-" {
		return JSON(os.Stdout, data)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return JSON(file, data)
}
