package viz

import (
	"math"
	"math/cmplx"
	"strings"
)

const brailleBase = 0x2800

// dot bits of a braille cell, indexed by [row][col] of its 4x2 dot grid
var brailleDots = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille raster. Each character cell holds 2x4 dots, so the
// drawable area is 2·Cols by 4·Rows dots.
type Canvas struct {
	Cols, Rows int
	cells      []uint8
}

func NewCanvas(cols, rows int) *Canvas {
	return &Canvas{Cols: cols, Rows: rows, cells: make([]uint8, cols*rows)}
}

func (c *Canvas) DotsX() int { return 2 * c.Cols }
func (c *Canvas) DotsY() int { return 4 * c.Rows }

// Set lights the dot at (x, y); dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.DotsX() || y >= c.DotsY() {
		return
	}
	c.cells[(y/4)*c.Cols+x/2] |= brailleDots[y%4][x%2]
}

func (c *Canvas) Clear() {
	clear(c.cells)
}

// Line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for r := 0; r < c.Rows; r++ {
		for _, cell := range c.cells[r*c.Cols : (r+1)*c.Cols] {
			b.WriteRune(rune(brailleBase + int(cell)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// PhasorDiagram draws space vectors in the complex plane, scaled so that
// magnitude full reaches the edge of the canvas.
type PhasorDiagram struct {
	*Canvas
	Full float64
}

func NewPhasorDiagram(cols, rows int, full float64) *PhasorDiagram {
	return &PhasorDiagram{Canvas: NewCanvas(cols, rows), Full: full}
}

func (p *PhasorDiagram) toDots(z complex128) (int, int) {
	cx, cy := p.DotsX()/2, p.DotsY()/2
	r := float64(min(cx, cy) - 1)
	if p.Full > 0 {
		z /= complex(p.Full, 0)
	}
	return cx + int(math.Round(real(z)*r)), cy - int(math.Round(imag(z)*r))
}

// Axes draws the real and imaginary axes and the unit circle.
func (p *PhasorDiagram) Axes() {
	cx, cy := p.DotsX()/2, p.DotsY()/2
	for x := 0; x < p.DotsX(); x += 2 {
		p.Set(x, cy)
	}
	for y := 0; y < p.DotsY(); y += 2 {
		p.Set(cx, y)
	}
	for k := 0; k < 64; k++ {
		x, y := p.toDots(cmplx.Rect(p.Full, 2*math.Pi*float64(k)/64))
		p.Set(x, y)
	}
}

// Vector draws z from the origin.
func (p *PhasorDiagram) Vector(z complex128) {
	cx, cy := p.DotsX()/2, p.DotsY()/2
	x, y := p.toDots(z)
	p.Line(cx, cy, x, y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
