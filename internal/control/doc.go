// Package control provides sampled-data controllers for grid converters.
//
// A controller implements [Strategy]. The simulation calls Step once per
// sampling instant t_k = k·T_s and holds the returned [Command] until the
// next instant:
//
//   - [GridFollowingCtrl]: PLL, current reference generation with a hard
//     current limit, PI current control and optional DC-bus voltage control
//   - [OpenLoop]: fixed rotating voltage reference, no feedback
//
// # Usage
//
//	pars := control.DefaultGridFollowingCtrlPars()
//	pars.OnVdc = true
//	pars.UdcRef = signal.Step(0.02, 600, 650)
//	ctrl, err := control.NewGridFollowingCtrl(pars)
//
// The building blocks [PI], [CurrentCtrl], [PLL] and [DCBusCtrl] update
// their integrators from the output actually realized by the converter, so
// they recover without windup after saturation.
package control
