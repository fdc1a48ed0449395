package sim

import (
	"fmt"
	"math/cmplx"
	"slices"
	"time"

	"github.com/san-kum/gritsim/internal/base"
	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/spacevec"
)

// Source is a read-only set of named time series on a common time axis.
type Source interface {
	Times() []float64
	Names() []string
	Series(name string) ([]float64, error)
}

type extractor struct {
	name string
	get  func(r Record) float64
}

// Log is the sampled record of a run.
type Log struct {
	StateNames []string
	Records    []Record
	Metrics    map[string]float64
	Elapsed    time.Duration
	Trace      *Trace

	extractors []extractor
}

func newLog(stateNames []string, capacity int) *Log {
	l := &Log{
		StateNames: stateNames,
		Records:    make([]Record, 0, capacity),
		Metrics:    make(map[string]float64),
	}
	for i, name := range stateNames {
		l.extractors = append(l.extractors, extractor{name, func(r Record) float64 { return r.State[i] }})
	}
	l.extractors = append(l.extractors, derived(stateNames)...)
	return l
}

func abc(name string, f func(r Record) [3]float64) []extractor {
	ext := make([]extractor, 3)
	for k, ph := range []string{"a", "b", "c"} {
		ext[k] = extractor{name + "_" + ph, func(r Record) float64 { return f(r)[k] }}
	}
	return ext
}

func dq(name string, f func(r Record) complex128) []extractor {
	return []extractor{
		{name + "_d", func(r Record) float64 { return real(f(r)) }},
		{name + "_q", func(r Record) float64 { return imag(f(r)) }},
	}
}

func derived(stateNames []string) []extractor {
	var ext []extractor
	if i := slices.Index(stateNames, "i_c.re"); i >= 0 {
		ext = append(ext, abc("i_c", func(r Record) [3]float64 {
			return spacevec.ComplexToABC(r.State.Complex(i))
		})...)
	}
	ext = append(ext, abc("u_g", func(r Record) [3]float64 { return r.Meas.UgABC })...)
	if !slices.Contains(stateNames, "u_dc") {
		ext = append(ext, extractor{"u_dc", func(r Record) float64 { return r.Meas.Udc }})
	}
	ext = append(ext, dq("i_c", func(r Record) complex128 { return r.Cmd.Ic })...)
	ext = append(ext, dq("i_c_ref", func(r Record) complex128 { return r.Cmd.IcRef })...)
	ext = append(ext, dq("u_g", func(r Record) complex128 { return r.Cmd.Ug })...)
	ext = append(ext, dq("u_c_ref", func(r Record) complex128 { return r.Cmd.UcRef })...)
	ext = append(ext,
		extractor{"i_c_ref_abs", func(r Record) float64 { return cmplx.Abs(r.Cmd.IcRef) }},
		extractor{"theta_pll", func(r Record) float64 { return r.Cmd.Theta }},
		extractor{"w_pll", func(r Record) float64 { return r.Cmd.W }},
		extractor{"p_g_ref", func(r Record) float64 { return r.Cmd.PgRef }},
		extractor{"q_g_ref", func(r Record) float64 { return r.Cmd.QgRef }},
		extractor{"u_dc_ref", func(r Record) float64 { return r.Cmd.UdcRef }},
		extractor{"p_g", func(r Record) float64 { return real(power(r)) }},
		extractor{"q_g", func(r Record) float64 { return imag(power(r)) }},
	)
	ext = append(ext, abc("d", func(r Record) [3]float64 { return r.Cmd.DABC })...)
	ext = append(ext,
		extractor{"q_re", func(r Record) float64 { return real(r.Cmd.Q) }},
		extractor{"q_im", func(r Record) float64 { return imag(r.Cmd.Q) }},
	)
	return ext
}

// power returns the measured complex power 1.5·u_g·conj(i_c) at the PCC.
func power(r Record) complex128 {
	ug := spacevec.ABCToComplex(r.Meas.UgABC)
	ic := spacevec.ABCToComplex(r.Meas.IcABC)
	return 1.5 * ug * cmplx.Conj(ic)
}

// Times returns the sampling instants, ending at t_stop.
func (l *Log) Times() []float64 {
	t := make([]float64, len(l.Records))
	for i, r := range l.Records {
		t[i] = r.T
	}
	return t
}

// Names lists the available series: the plant states followed by derived
// quantities.
func (l *Log) Names() []string {
	names := make([]string, len(l.extractors))
	for i, e := range l.extractors {
		names[i] = e.name
	}
	return names
}

// Series returns the named quantity in SI units.
func (l *Log) Series(name string) ([]float64, error) {
	for _, e := range l.extractors {
		if e.name == name {
			out := make([]float64, len(l.Records))
			for i, r := range l.Records {
				out[i] = e.get(r)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown series %q", dynamo.ErrMisuse, name)
}

// Last returns the final record.
func (l *Log) Last() (Record, bool) {
	if len(l.Records) == 0 {
		return Record{}, false
	}
	return l.Records[len(l.Records)-1], true
}

// PerUnit returns a view of l scaled by b. Series without an electrical
// unit are passed through.
func (l *Log) PerUnit(b base.Values) Source {
	return PerUnit(l, b)
}

// PerUnit returns a view of src scaled by b.
func PerUnit(src Source, b base.Values) Source {
	return perUnit{src, b}
}

type perUnit struct {
	Source
	b base.Values
}

func (p perUnit) Series(name string) ([]float64, error) {
	s, err := p.Source.Series(name)
	if err != nil {
		return nil, err
	}
	k, ok := p.b.Of(name)
	if !ok {
		return s, nil
	}
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v / k
	}
	return out, nil
}
