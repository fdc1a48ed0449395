package viz

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gritsim/internal/sim"
	"github.com/san-kum/gritsim/internal/spacevec"
)

const historyCapacity = 400

// Feed is a sim.Observer that forwards every n-th record to a live view.
// Forwarding blocks until the view has taken the record, so the simulation
// runs at the pace of the display.
type Feed struct {
	every   int
	n       int
	records chan sim.Record
	quit    chan struct{}
}

func NewFeed(every int) *Feed {
	return &Feed{
		every:   max(every, 1),
		records: make(chan sim.Record),
		quit:    make(chan struct{}),
	}
}

func (f *Feed) OnRecord(r sim.Record) {
	f.n++
	if f.n%f.every != 0 {
		return
	}
	select {
	case f.records <- r:
	case <-f.quit:
	}
}

// Close releases a simulation blocked on the feed.
func (f *Feed) Close() {
	select {
	case <-f.quit:
	default:
		close(f.quit)
	}
}

type RecordMsg sim.Record

type DoneMsg struct {
	Log *sim.Log
	Err error
}

// LiveOptions scale the live view.
type LiveOptions struct {
	Title string
	TStop float64
	// IFull and UFull are the current and voltage magnitudes drawn at the
	// edge of the phasor diagram.
	IFull, UFull float64
	// Params are shown next to the run state, typically the plant
	// parameters and controller gains.
	Params map[string]float64
}

// Live is the bubbletea model of a running simulation.
type Live struct {
	opts   LiveOptions
	feed   *Feed
	run    func() (*sim.Log, error)
	phasor *PhasorDiagram

	last     sim.Record
	received bool
	ia       []float64
	ib       []float64
	ic       []float64
	udc      []float64
	limited  int

	frozen   bool
	showHelp bool
	theme    Theme

	done bool
	log  *sim.Log
	err  error
}

// NewLive returns a view that starts run and displays the records passed
// through feed.
func NewLive(feed *Feed, run func() (*sim.Log, error), opts LiveOptions) Live {
	if opts.IFull <= 0 {
		opts.IFull = 1
	}
	if opts.UFull <= 0 {
		opts.UFull = 1
	}
	return Live{
		opts:   opts,
		feed:   feed,
		run:    run,
		phasor: NewPhasorDiagram(24, 12, 1),
		ia:     make([]float64, 0, historyCapacity),
		ib:     make([]float64, 0, historyCapacity),
		ic:     make([]float64, 0, historyCapacity),
		udc:    make([]float64, 0, historyCapacity),
		theme:  CurrentTheme,
	}
}

func (m Live) Init() tea.Cmd {
	return tea.Batch(m.start(), m.next())
}

func (m Live) start() tea.Cmd {
	return func() tea.Msg {
		lg, err := m.run()
		return DoneMsg{Log: lg, Err: err}
	}
}

func (m Live) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case r := <-m.feed.records:
			return RecordMsg(r)
		case <-m.feed.quit:
			return nil
		}
	}
}

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.feed.Close()
			return m, tea.Quit
		case " ", "f":
			m.frozen = !m.frozen
		case "t":
			m.theme = nextTheme(m.theme)
			SetTheme(m.theme.Name)
		case "?":
			m.showHelp = !m.showHelp
		}
	case RecordMsg:
		m.observe(sim.Record(msg))
		return m, m.next()
	case DoneMsg:
		m.done = true
		m.log, m.err = msg.Log, msg.Err
		if m.log != nil {
			if last, ok := m.log.Last(); ok {
				m.observe(last)
			}
		}
	}
	return m, nil
}

func (m *Live) observe(r sim.Record) {
	if r.Cmd.CurrentLimited {
		m.limited++
	}
	if m.frozen && m.received {
		return
	}
	m.last, m.received = r, true
	m.ia = push(m.ia, r.Meas.IcABC[0])
	m.ib = push(m.ib, r.Meas.IcABC[1])
	m.ic = push(m.ic, r.Meas.IcABC[2])
	m.udc = push(m.udc, r.Meas.Udc)
}

func push(xs []float64, x float64) []float64 {
	if len(xs) == historyCapacity {
		copy(xs, xs[1:])
		xs = xs[:len(xs)-1]
	}
	return append(xs, x)
}

// Result returns the log once the simulation has finished.
func (m Live) Result() (*sim.Log, error) {
	if !m.done {
		return nil, fmt.Errorf("simulation interrupted")
	}
	return m.log, m.err
}

func (m Live) View() string {
	if m.showHelp {
		return Box("Keys", strings.Join([]string{
			"space/f  freeze display",
			"t        cycle theme",
			"?        toggle help",
			"q        quit",
		}, "\n"))
	}

	r := m.last
	ig := spacevec.ABCToComplex(r.Meas.IcABC)
	ug := spacevec.ABCToComplex(r.Meas.UgABC)

	m.phasor.Clear()
	m.phasor.Axes()
	m.phasor.Vector(ug / complex(m.opts.UFull, 0))
	m.phasor.Vector(ig / complex(m.opts.IFull, 0))
	diagram := Box("Space vectors", m.phasor.String()+Subtle.Render("u_g and i_c, stationary frame"))

	progress := 0.0
	if m.opts.TStop > 0 {
		progress = r.T / m.opts.TStop
	}
	status := GoodStyle.Render("RUNNING")
	switch {
	case m.done && m.err != nil:
		status = ErrorStyle.Render("FAILED")
	case m.done:
		status = GoodStyle.Render("COMPLETED")
	case m.frozen:
		status = WarnStyle.Render("FROZEN")
	}

	var s strings.Builder
	s.WriteString(status + "  " + ProgressBar(progress, 30) + "\n\n")
	s.WriteString(Field("time", "%.5f s", r.T) + "\n")
	s.WriteString(Field("step", "%d", r.Step) + "\n")
	s.WriteString(Field("theta_pll", "%.3f rad", spacevec.WrapAngle(r.Cmd.Theta)) + "\n")
	s.WriteString(Field("f_pll", "%.3f Hz", r.Cmd.W/(2*math.Pi)) + "\n")
	s.WriteString(Field("u_dc", "%.1f V", r.Meas.Udc) + "\n")
	s.WriteString(Field("|u_g|", "%.1f V", cmplx.Abs(ug)) + "\n")
	s.WriteString(Field("|i_c|", "%.2f A ", cmplx.Abs(ig)) + Gauge(cmplx.Abs(ig), m.opts.IFull, 12) + "\n")
	s.WriteString(Field("|q|", "%.3f ", cmplx.Abs(r.Cmd.Q)) + Gauge(cmplx.Abs(r.Cmd.Q), 1/math.Sqrt(3), 12) + "\n")
	s.WriteString(Field("current limit", "%d samples", m.limited) + "\n")
	if m.err != nil {
		s.WriteString("\n" + ErrorStyle.Render(m.err.Error()) + "\n")
	}
	if m.done && m.log != nil {
		s.WriteString("\n" + MetricsTable(m.log.Metrics) + "\n")
	}
	stats := Box(m.opts.Title, s.String())

	top := lipgloss.JoinHorizontal(lipgloss.Top, diagram, stats)
	if len(m.opts.Params) > 0 {
		top = lipgloss.JoinHorizontal(lipgloss.Top, top, Box("Parameters", MetricsTable(m.opts.Params)))
	}

	var charts strings.Builder
	if len(m.ia) > 1 {
		charts.WriteString(asciigraph.PlotMany([][]float64{m.ia, m.ib, m.ic},
			asciigraph.Height(8), asciigraph.Width(70),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Yellow, asciigraph.Blue),
			asciigraph.Caption("i_c_abc (A)")))
		charts.WriteString("\n\n")
		charts.WriteString(asciigraph.Plot(m.udc,
			asciigraph.Height(4), asciigraph.Width(70),
			asciigraph.Caption("u_dc (V)")))
	}

	help := Subtle.Render("space:freeze  t:theme  ?:help  q:quit")
	return lipgloss.JoinVertical(lipgloss.Left, top, charts.String(), help)
}

// RunLive runs s up to tStop inside a live terminal view and returns its log.
func RunLive(s *sim.Simulation, tStop float64, every int, opts LiveOptions) (*sim.Log, error) {
	feed := NewFeed(every)
	s.AddObserver(feed)
	opts.TStop = tStop

	m := NewLive(feed, func() (*sim.Log, error) { return s.Simulate(tStop) }, opts)
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		feed.Close()
		return nil, err
	}
	return final.(Live).Result()
}
