package model

import "math/rand"

// Sensor adds a constant offset and Gaussian noise to a measured quantity.
type Sensor struct {
	Noise  float64 `yaml:"noise"`
	Offset float64 `yaml:"offset"`
}

// Sensors groups the converter's measurement channels. The zero value (and
// a nil *Sensors) is an ideal sensor set.
type Sensors struct {
	Current Sensor `yaml:"current"`
	Voltage Sensor `yaml:"voltage"`
	DC      Sensor `yaml:"dc"`
	Seed    int64  `yaml:"seed"`

	rng *rand.Rand
}

func (s *Sensors) read(sn Sensor, v float64) float64 {
	if sn.Noise == 0 {
		return v + sn.Offset
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.Seed))
	}
	return v + sn.Offset + sn.Noise*s.rng.NormFloat64()
}

func (s *Sensors) readABC(sn Sensor, abc [3]float64) [3]float64 {
	for i := range abc {
		abc[i] = s.read(sn, abc[i])
	}
	return abc
}

func (s *Sensors) current(abc [3]float64) [3]float64 {
	if s == nil {
		return abc
	}
	return s.readABC(s.Current, abc)
}

func (s *Sensors) voltage(abc [3]float64) [3]float64 {
	if s == nil {
		return abc
	}
	return s.readABC(s.Voltage, abc)
}

func (s *Sensors) dc(v float64) float64 {
	if s == nil {
		return v
	}
	return s.read(s.DC, v)
}
