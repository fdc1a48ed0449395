package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gritsim/internal/sim"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Red,
	asciigraph.Yellow,
	asciigraph.Blue,
	asciigraph.Green,
	asciigraph.Magenta,
	asciigraph.Cyan,
}

// Plot renders the named series of src as one terminal chart. Series are
// resampled to the chart width.
func Plot(src sim.Source, names []string, width, height int) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("no series to plot")
	}
	data := make([][]float64, 0, len(names))
	for _, name := range names {
		ys, err := src.Series(name)
		if err != nil {
			return "", err
		}
		if len(ys) == 0 {
			return "", fmt.Errorf("series %s is empty", name)
		}
		data = append(data, ys)
	}

	times := src.Times()
	caption := fmt.Sprintf("%s  (t = %.4g .. %.4g s)", strings.Join(names, ", "), times[0], times[len(times)-1])
	colors := seriesColors
	if len(data) < len(colors) {
		colors = colors[:len(data)]
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption),
	), nil
}

// Groups are the default chart groups of a grid converter log.
var Groups = [][]string{
	{"i_c_a", "i_c_b", "i_c_c"},
	{"i_c_d", "i_c_ref_d", "i_c_q", "i_c_ref_q"},
	{"u_dc", "u_dc_ref"},
	{"p_g", "p_g_ref"},
}

// PlotGroups renders the default groups whose series are all present.
func PlotGroups(src sim.Source, width, height int) (string, error) {
	have := make(map[string]bool)
	for _, name := range src.Names() {
		have[name] = true
	}

	var b strings.Builder
	for _, group := range Groups {
		ok := true
		for _, name := range group {
			ok = ok && have[name]
		}
		if !ok {
			continue
		}
		chart, err := Plot(src, group, width, height)
		if err != nil {
			return "", err
		}
		b.WriteString(chart + "\n\n")
	}
	return b.String(), nil
}
