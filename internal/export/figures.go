package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/gritsim/internal/sim"
)

// Panel is one subplot. A reference series is drawn dashed in the color of
// the series listed before it.
type Panel struct {
	Title  string
	YLabel string
	Series []string
}

// Figure is a column of panels sharing the time axis.
type Figure struct {
	Name   string
	Panels []Panel
}

// GridFigures returns the standard figures of a grid converter run:
// waveforms and dc bus, then powers and control quantities.
func GridFigures(src sim.Source) []Figure {
	have := make(map[string]bool)
	for _, name := range src.Names() {
		have[name] = true
	}

	waves := Figure{
		Name: "waveforms",
		Panels: []Panel{
			{Title: "PCC voltage", YLabel: "u_g", Series: []string{"u_g_a", "u_g_b", "u_g_c"}},
			{Title: "Converter current", YLabel: "i_c", Series: []string{"i_c_a", "i_c_b", "i_c_c"}},
		},
	}
	if have["u_dc"] {
		waves.Panels = append(waves.Panels, Panel{Title: "DC-bus voltage", YLabel: "u_dc", Series: []string{"u_dc", "u_dc_ref"}})
	}

	ctrl := Figure{
		Name: "control",
		Panels: []Panel{
			{Title: "Grid power", YLabel: "p_g, q_g", Series: []string{"p_g", "p_g_ref", "q_g", "q_g_ref"}},
			{Title: "Current in controller frame", YLabel: "i_c", Series: []string{"i_c_d", "i_c_ref_d", "i_c_q", "i_c_ref_q"}},
			{Title: "Converter voltage reference", YLabel: "u_c_ref", Series: []string{"u_c_ref_d", "u_c_ref_q"}},
			{Title: "PLL frequency", YLabel: "w_pll", Series: []string{"w_pll"}},
		},
	}

	for _, fig := range []*Figure{&waves, &ctrl} {
		for i := range fig.Panels {
			kept := fig.Panels[i].Series[:0:0]
			for _, name := range fig.Panels[i].Series {
				if have[name] {
					kept = append(kept, name)
				}
			}
			fig.Panels[i].Series = kept
		}
		panels := fig.Panels[:0]
		for _, panel := range fig.Panels {
			if len(panel.Series) > 0 {
				panels = append(panels, panel)
			}
		}
		fig.Panels = panels
	}
	return []Figure{waves, ctrl}
}

// Figures renders each figure to <dir>/<name>.png and returns the paths.
func Figures(dir string, src sim.Source, figs []Figure) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create directory: %w", err)
	}
	paths := make([]string, 0, len(figs))
	for _, fig := range figs {
		path := filepath.Join(dir, fig.Name+".png")
		if err := renderFigure(path, src, fig); err != nil {
			return paths, fmt.Errorf("%s: %w", fig.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func renderFigure(path string, src sim.Source, fig Figure) error {
	if len(fig.Panels) == 0 {
		return fmt.Errorf("no panels")
	}
	times := src.Times()

	plots := make([][]*plot.Plot, len(fig.Panels))
	for row, panel := range fig.Panels {
		p := plot.New()
		p.Title.Text = panel.Title
		p.Y.Label.Text = panel.YLabel
		if row == len(fig.Panels)-1 {
			p.X.Label.Text = "time (s)"
		}
		p.Add(plotter.NewGrid())
		p.Legend.Top = true

		color := -1
		for _, name := range panel.Series {
			ys, err := src.Series(name)
			if err != nil {
				return err
			}
			line, err := plotter.NewLine(xys(times, ys))
			if err != nil {
				return err
			}
			line.LineStyle.Width = vg.Points(1.2)
			if isReference(name) && color >= 0 {
				line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			} else {
				color++
			}
			line.LineStyle.Color = plotutil.Color(max(color, 0))
			p.Add(line)
			p.Legend.Add(name, line)
		}
		plots[row] = []*plot.Plot{p}
	}

	w := 8 * vg.Inch
	h := vg.Length(2.2*float64(len(fig.Panels))) * vg.Inch
	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(150))
	dc := draw.New(c)

	tiles := draw.Tiles{
		Rows: len(plots),
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: 3 * vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		plots[row][0].Draw(canvases[row][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// isReference reports whether name is the reference of the series logged
// before it.
func isReference(name string) bool {
	return strings.Contains(name, "_ref")
}
