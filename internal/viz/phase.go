package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/gritsim/internal/analysis"
)

// PhasePlot draws a trajectory on a braille canvas framed by its bounds.
func PhasePlot(pts []analysis.Point, cols, rows int) string {
	if len(pts) < 2 {
		return ""
	}
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		xMin, xMax = math.Min(xMin, p.X), math.Max(xMax, p.X)
		yMin, yMax = math.Min(yMin, p.Y), math.Max(yMax, p.Y)
	}
	xRange, yRange := xMax-xMin, yMax-yMin
	if xRange == 0 {
		xRange = 1
	}
	if yRange == 0 {
		yRange = 1
	}

	c := NewCanvas(cols, rows)
	dot := func(p analysis.Point) (int, int) {
		x := int(math.Round(float64(c.DotsX()-1) * (p.X - xMin) / xRange))
		y := int(math.Round(float64(c.DotsY()-1) * (yMax - p.Y) / yRange))
		return x, y
	}
	x0, y0 := dot(pts[0])
	for _, p := range pts[1:] {
		x1, y1 := dot(p)
		c.Line(x0, y0, x1, y1)
		x0, y0 = x1, y1
	}

	var b strings.Builder
	lines := strings.Split(strings.TrimRight(c.String(), "\n"), "\n")
	for i, line := range lines {
		label := "          "
		switch i {
		case 0:
			label = fmt.Sprintf("%10.3g", yMax)
		case len(lines) - 1:
			label = fmt.Sprintf("%10.3g", yMin)
		}
		b.WriteString(Subtle.Render(label+" │") + line + "\n")
	}
	b.WriteString(Subtle.Render(fmt.Sprintf("%10s └%s", "", strings.Repeat("─", cols))) + "\n")
	b.WriteString(Subtle.Render(fmt.Sprintf("%12s%-*.3g%*.3g", "", cols/2, xMin, cols-cols/2, xMax)) + "\n")
	return b.String()
}
