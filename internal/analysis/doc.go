// Package analysis post-processes simulation logs.
//
//   - [Spectrum], [THD]: harmonic content of a sampled waveform
//   - [Window]: the latest whole number of fundamental cycles of a log series
//   - [StepResponse]: overshoot, rise and settling time after a reference step
//   - [Trajectory]: two series plotted against each other (e.g. the current
//     vector in the dq plane)
//
// # Harmonic Analysis
//
// THD is only meaningful on a window holding an integer number of
// fundamental cycles:
//
//	x, fs, err := analysis.Window(lg.Times(), ia, 50, 4)
//	thd, err := analysis.THD(x, fs, 50, 40)
package analysis
