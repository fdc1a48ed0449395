// Package viz renders simulation logs in the terminal.
//
//   - [Plot] and [PlotGroups]: asciigraph charts of logged series
//   - [RunLive]: a Bubble Tea view of a running simulation, fed by a
//     [Feed] observer, with a braille [PhasorDiagram] of the grid current
//     and voltage space vectors
//   - [PickScenario]: preset selection menu
//
// # Key Bindings
//
//	Space - Freeze/unfreeze the display
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit
package viz
