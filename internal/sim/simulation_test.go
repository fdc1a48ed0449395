package sim_test

import (
	"errors"
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gritsim/internal/base"
	"github.com/san-kum/gritsim/internal/control"
	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/model"
	"github.com/san-kum/gritsim/internal/signal"
	"github.com/san-kum/gritsim/internal/sim"
	"github.com/san-kum/gritsim/internal/spacevec"
)

const wN = 2 * math.Pi * 50

func dcBusPlant(iExt signal.Func) *model.DCBusAndLFilterModel {
	dc := model.NewDCBus(1e-3, 0, 600)
	dc.IExt = iExt
	m, err := model.NewDCBusAndLFilterModel(model.NewLFilter(10e-3, 0, 0), model.NewStiffSource(wN), dc, model.NewInverter(600))
	Expect(err).NotTo(HaveOccurred())
	return m
}

func fixedDCPlant() *model.StiffSourceAndLFilterModel {
	m, err := model.NewStiffSourceAndLFilterModel(model.NewLFilter(10e-3, 0, 0), model.NewStiffSource(wN), model.NewInverter(600))
	Expect(err).NotTo(HaveOccurred())
	return m
}

func gflCtrl(modify func(*control.GridFollowingCtrlPars)) *control.GridFollowingCtrl {
	pars := control.DefaultGridFollowingCtrlPars()
	if modify != nil {
		modify(&pars)
	}
	ctrl, err := control.NewGridFollowingCtrl(pars)
	Expect(err).NotTo(HaveOccurred())
	return ctrl
}

func vdcStep(p *control.GridFollowingCtrlPars) {
	p.OnVdc = true
	p.UdcRef = signal.Step(0.02, 600, 650)
}

func run(plant model.Plant, ctrl control.Strategy, cfg sim.Config, tStop float64) *sim.Log {
	s, err := sim.New(plant, ctrl, cfg)
	Expect(err).NotTo(HaveOccurred())
	lg, err := s.Simulate(tStop)
	Expect(err).NotTo(HaveOccurred())
	return lg
}

func series(lg sim.Source, name string) []float64 {
	s, err := lg.Series(name)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Simulation", func() {
	Describe("construction", func() {
		It("rejects dc-bus control on a plant without a dc bus", func() {
			_, err := sim.New(fixedDCPlant(), gflCtrl(vdcStep), sim.DefaultConfig())
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		})

		It("rejects missing collaborators", func() {
			_, err := sim.New(nil, gflCtrl(nil), sim.DefaultConfig())
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		})

		It("starts configured at the initial state", func() {
			s, err := sim.New(dcBusPlant(nil), gflCtrl(vdcStep), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Phase()).To(Equal(sim.Configured))
			Expect(s.State()).To(Equal(dynamo.State{0, 0, 0, 600}))
			Expect(s.Log()).To(BeNil())
		})
	})

	Describe("lifecycle", func() {
		It("refuses a second run", func() {
			s, err := sim.New(fixedDCPlant(), gflCtrl(nil), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Simulate(0.002)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Phase()).To(Equal(sim.Completed))

			_, err = s.Simulate(0.002)
			Expect(errors.Is(err, dynamo.ErrAlreadySimulated)).To(BeTrue())
			Expect(errors.Is(err, dynamo.ErrMisuse)).To(BeTrue())
		})

		It("rejects a non-positive stop time without consuming the run", func() {
			s, err := sim.New(fixedDCPlant(), gflCtrl(nil), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Simulate(0)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
			Expect(s.Phase()).To(Equal(sim.Configured))
		})
	})

	Describe("sampling", func() {
		It("truncates the last period at t_stop", func() {
			ts := control.DefaultGridFollowingCtrlPars().Ts
			tStop := 0.0101
			cfg := sim.DefaultConfig()
			cfg.Dense = true
			cfg.PWM = true

			lg := run(fixedDCPlant(), gflCtrl(nil), cfg, tStop)
			t := lg.Times()

			Expect(t[0]).To(Equal(0.0))
			Expect(t[len(t)-1]).To(Equal(tStop))
			Expect(t[len(t)-2]).To(BeNumerically("~", 161*ts, 1e-15))
			Expect(lg.Trace.T[len(lg.Trace.T)-1]).To(Equal(tStop))
			for i := 1; i < len(t)-1; i++ {
				Expect(t[i]).To(Equal(float64(i) * ts))
			}
		})

		It("produces identical logs for identical configurations", func() {
			build := func() *sim.Log {
				cfg := sim.DefaultConfig()
				cfg.PWM = true
				return run(dcBusPlant(signal.Step(0.01, 0, 5)), gflCtrl(vdcStep), cfg, 0.03)
			}
			first, second := build(), build()
			Expect(second.Records).To(Equal(first.Records))
		})
	})

	Describe("dc bus", func() {
		It("tracks a 600 V to 650 V reference step", func() {
			lg := run(dcBusPlant(nil), gflCtrl(vdcStep), sim.DefaultConfig(), 0.1)
			t := lg.Times()
			udc := series(lg, "u_dc")

			for i := range t {
				if t[i] <= 0.02 {
					Expect(udc[i]).To(BeNumerically("~", 600, 1))
				}
				Expect(udc[i]).To(BeNumerically("<", 650*1.05))
			}
			Expect(udc[len(udc)-1]).To(BeNumerically("~", 650, 1))

			pRef := series(lg, "p_g_ref")
			for _, p := range pRef {
				Expect(math.Abs(p)).To(BeNumerically("<=", 10e3))
			}
		})

		It("settles where the converter draws the external current", func() {
			lg := run(dcBusPlant(signal.Const(10)), gflCtrl(func(p *control.GridFollowingCtrlPars) {
				p.OnVdc = true
			}), sim.DefaultConfig(), 0.3)

			last, ok := lg.Last()
			Expect(ok).To(BeTrue())
			Expect(last.State[3]).To(BeNumerically("~", 600, 0.5))

			icABC := spacevec.ComplexToABC(last.State.Complex(0))
			Expect(model.DCCurrent(icABC, last.Cmd.Q)).To(BeNumerically("~", 10, 0.5))
		})

		It("keeps u_dc at the converter value without a dc-bus model", func() {
			cfg := sim.DefaultConfig()
			cfg.PWM = true
			lg := run(fixedDCPlant(), gflCtrl(func(p *control.GridFollowingCtrlPars) {
				p.PgRef = signal.Step(0.005, 0, 5e3)
			}), cfg, 0.02)

			for _, v := range series(lg, "u_dc") {
				Expect(v).To(Equal(600.0))
			}
		})
	})

	Describe("current limit", func() {
		It("never commands more than i_max", func() {
			pars := control.DefaultGridFollowingCtrlPars()
			lg := run(fixedDCPlant(), gflCtrl(func(p *control.GridFollowingCtrlPars) {
				p.PgRef = signal.Const(8e3)
				p.QgRef = signal.Step(0.01, 0, 50e3)
			}), sim.DefaultConfig(), 0.03)

			limited := 0
			for _, r := range lg.Records {
				Expect(cmplx.Abs(r.Cmd.IcRef)).To(BeNumerically("<=", pars.IMax*(1+1e-12)))
				if r.Cmd.CurrentLimited {
					limited++
				}
			}
			Expect(limited).To(BeNumerically(">", 0))
		})
	})

	Describe("open loop", func() {
		It("reaches the analytic steady-state current", func() {
			filter := model.NewLFilter(10e-3, 0, 1)
			grid := model.NewStiffSource(wN)
			plant, err := model.NewStiffSourceAndLFilterModel(filter, grid, model.NewInverter(600))
			Expect(err).NotTo(HaveOccurred())

			ctrl, err := control.NewOpenLoop(1/16e3, wN, 0.1, signal.Const(340))
			Expect(err).NotTo(HaveOccurred())

			tStop := 0.1
			lg := run(plant, ctrl, sim.DefaultConfig(), tStop)
			last, _ := lg.Last()

			eg := grid.Voltage(tStop, last.State[2])
			uc := cmplx.Rect(340, wN*tStop+0.1)
			want := (uc - eg) / complex(1, wN*10e-3)
			Expect(cmplx.Abs(last.State.Complex(0) - want)).To(BeNumerically("<", 0.3))
		})
	})

	Describe("errors", func() {
		It("reports an undefined reference at the sampling instant", func() {
			s, err := sim.New(fixedDCPlant(), gflCtrl(func(p *control.GridFollowingCtrlPars) {
				p.QgRef = signal.FuncOf(func(t float64) float64 {
					if t >= 0.005 {
						return math.Inf(1)
					}
					return 0
				})
			}), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			lg, err := s.Simulate(0.01)
			Expect(errors.Is(err, dynamo.ErrUndefinedSignal)).To(BeTrue())

			var se *dynamo.SimulationError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Time).To(BeNumerically(">=", 0.005))
			Expect(se.Time).To(BeNumerically("<", 0.005+1/16e3))
			Expect(lg.Records).NotTo(BeEmpty())
		})

		It("reports an undefined plant signal as misuse", func() {
			plant := fixedDCPlant()
			plant.Grid.EgAbs = nil

			s, err := sim.New(plant, gflCtrl(nil), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Simulate(0.01)
			Expect(errors.Is(err, dynamo.ErrMisuse)).To(BeTrue())
		})

		It("aborts with time and state when the dc bus diverges", func() {
			s, err := sim.New(dcBusPlant(signal.Const(1e5)), gflCtrl(nil), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Simulate(0.01)
			Expect(errors.Is(err, dynamo.ErrNumerical)).To(BeTrue())

			var se *dynamo.SimulationError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Time).To(BeNumerically(">", 0))
			Expect(se.State).To(HaveLen(4))
			Expect(se.Names).To(ContainElement("u_dc"))
		})
	})

	Describe("reconfiguration", func() {
		It("applies scheduled changes at the first instant at or after their time", func() {
			plant := fixedDCPlant()
			s, err := sim.New(plant, gflCtrl(nil), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			dip := 0.5 * math.Sqrt(2.0/3.0) * 400
			Expect(s.Reconfigure(0.01, func() error {
				plant.Grid.EgAbs = signal.Const(dip)
				return nil
			})).To(Succeed())

			lg, err := s.Simulate(0.02)
			Expect(err).NotTo(HaveOccurred())

			for _, r := range lg.Records {
				ug := cmplx.Abs(spacevec.ABCToComplex(r.Meas.UgABC))
				if r.T < 0.01-1e-12 {
					Expect(ug).To(BeNumerically("~", 2*dip, 1e-6))
				} else {
					Expect(ug).To(BeNumerically("~", dip, 1e-6))
				}
			}
		})

		It("rejects changes scheduled in the past", func() {
			s, err := sim.New(fixedDCPlant(), gflCtrl(nil), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(errors.Is(s.Reconfigure(-1, func() error { return nil }), dynamo.ErrMisuse)).To(BeTrue())

			_, err = s.Simulate(0.001)
			Expect(err).NotTo(HaveOccurred())
			Expect(errors.Is(s.Reconfigure(0.5, func() error { return nil }), dynamo.ErrMisuse)).To(BeTrue())
		})
	})

	Describe("log", func() {
		var lg *sim.Log

		BeforeEach(func() {
			s, err := sim.New(dcBusPlant(nil), gflCtrl(vdcStep), sim.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			records := 0
			s.AddObserver(sim.ObserverFunc(func(sim.Record) { records++ }))
			lg, err = s.Simulate(0.005)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(Equal(len(lg.Records)))
		})

		It("exposes states and derived series on a common time axis", func() {
			Expect(lg.Names()).To(ContainElements("i_c.re", "u_dc", "i_c_a", "u_g_d", "i_c_ref_q", "d_c", "p_g"))
			for _, name := range lg.Names() {
				Expect(series(lg, name)).To(HaveLen(len(lg.Times())), name)
			}
		})

		It("keeps balanced phase currents", func() {
			a, b, c := series(lg, "i_c_a"), series(lg, "i_c_b"), series(lg, "i_c_c")
			for i := range a {
				Expect(a[i] + b[i] + c[i]).To(BeNumerically("~", 0, 1e-9))
			}
		})

		It("scales to per unit", func() {
			b := base.Grid10kVA()
			pu := series(lg.PerUnit(b), "u_dc")
			Expect(pu[0]).To(BeNumerically("~", 600/b.Udc, 1e-12))

			theta := series(lg.PerUnit(b), "theta_g")
			Expect(theta).To(Equal(series(lg, "theta_g")))
		})

		It("reports unknown series as misuse", func() {
			_, err := lg.Series("nope")
			Expect(errors.Is(err, dynamo.ErrMisuse)).To(BeTrue())
		})
	})

	Describe("ensemble", func() {
		It("runs independent noisy simulations", func() {
			e := sim.NewEnsemble(3, func(i int) (*sim.Simulation, error) {
				plant := fixedDCPlant()
				plant.Sensors = &model.Sensors{Current: model.Sensor{Noise: 0.1}, Seed: int64(i)}
				ctrl, err := control.NewGridFollowingCtrl(control.DefaultGridFollowingCtrlPars())
				if err != nil {
					return nil, err
				}
				return sim.New(plant, ctrl, sim.DefaultConfig())
			})

			logs, err := e.Run(0.002)
			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(HaveLen(3))
			Expect(logs[0].Records[5].Meas).NotTo(Equal(logs[1].Records[5].Meas))
		})
	})
})
