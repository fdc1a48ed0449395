package viz

import (
	"strings"
	"testing"
	"time"

	"github.com/san-kum/gritsim/internal/analysis"
	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/experiment"
	"github.com/san-kum/gritsim/internal/sim"
)

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Line(0, 0, 7, 7)

	lines := strings.Split(strings.TrimRight(c.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}
	if []rune(lines[0])[0] == brailleBase {
		t.Error("origin cell should be lit")
	}
	if []rune(lines[1])[3] == brailleBase {
		t.Error("end cell should be lit")
	}

	c.Clear()
	for _, r := range c.String() {
		if r != brailleBase && r != '\n' {
			t.Fatalf("canvas not cleared: %q", r)
		}
	}
}

func lit(c *Canvas, x, y int) bool {
	return c.cells[(y/4)*c.Cols+x/2]&brailleDots[y%4][x%2] != 0
}

func TestCanvasLineAllOctants(t *testing.T) {
	const cx, cy = 8, 8
	for dx := -8; dx <= 8; dx++ {
		for dy := -8; dy <= 8; dy++ {
			c := NewCanvas(9, 5)
			done := make(chan struct{})
			go func() {
				c.Line(cx, cy, cx+dx, cy+dy)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatalf("line to offset (%d, %d) did not terminate", dx, dy)
			}
			if !lit(c, cx, cy) || !lit(c, cx+dx, cy+dy) {
				t.Errorf("line to offset (%d, %d) misses an endpoint", dx, dy)
			}
		}
	}
}

func TestCanvasOutOfBounds(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(-1, 0)
	c.Set(4, 0)
	c.Set(0, 4)
	if strings.ContainsFunc(c.String(), func(r rune) bool { return r != brailleBase && r != '\n' }) {
		t.Error("out of bounds dots drawn")
	}
}

func TestPhasorVector(t *testing.T) {
	p := NewPhasorDiagram(10, 5, 1)
	p.Vector(1)
	cx, cy := p.DotsX()/2, p.DotsY()/2
	x, y := p.toDots(1)
	if y != cy || x <= cx {
		t.Errorf("real unit vector should point right, got (%d, %d) from (%d, %d)", x, y, cx, cy)
	}
	if _, y := p.toDots(1i); y >= cy {
		t.Errorf("imaginary unit vector should point up, got y=%d", y)
	}
}

func runLog(t *testing.T) *sim.Log {
	t.Helper()
	cfg := config.GetPreset("gfl-vdc")
	cfg.TStop = 0.002
	e := experiment.New(cfg)
	if err := e.Setup(nil); err != nil {
		t.Fatal(err)
	}
	lg, err := e.Run()
	if err != nil {
		t.Fatal(err)
	}
	return lg
}

func TestPlot(t *testing.T) {
	lg := runLog(t)

	chart, err := Plot(lg, []string{"i_c_a", "i_c_b"}, 60, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(chart, "i_c_a, i_c_b") {
		t.Error("caption missing")
	}

	if _, err := Plot(lg, []string{"nope"}, 60, 8); err == nil {
		t.Error("expected error for unknown series")
	}
	if _, err := Plot(lg, nil, 60, 8); err == nil {
		t.Error("expected error for empty selection")
	}

	all, err := PlotGroups(lg, 60, 6)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(all, "t = ") != len(Groups) {
		t.Errorf("expected %d charts", len(Groups))
	}
}

func TestLiveReceivesRecords(t *testing.T) {
	feed := NewFeed(1)
	m := NewLive(feed, nil, LiveOptions{Title: "test", TStop: 1, IFull: 10, UFull: 100,
		Params: map[string]float64{"ctrl.k_t": 25.1327}})

	var r sim.Record
	r.T = 0.5
	r.Meas.IcABC = [3]float64{1, -0.5, -0.5}
	r.Meas.Udc = 600
	next, _ := m.Update(RecordMsg(r))
	m = next.(Live)

	if len(m.ia) != 1 || m.ia[0] != 1 || m.udc[0] != 600 {
		t.Errorf("record not observed: %v %v", m.ia, m.udc)
	}
	if !strings.Contains(m.View(), "0.50000 s") {
		t.Error("view does not show the record time")
	}
	if !strings.Contains(m.View(), "ctrl.k_t") {
		t.Error("view does not show the parameters")
	}
	if _, err := m.Result(); err == nil {
		t.Error("result before completion should fail")
	}

	next, _ = m.Update(DoneMsg{})
	m = next.(Live)
	if lg, err := m.Result(); lg != nil || err != nil {
		t.Errorf("unexpected result %v, %v", lg, err)
	}
}

func TestFeedDecimates(t *testing.T) {
	feed := NewFeed(3)
	got := make(chan int, 10)
	go func() {
		for r := range feed.records {
			got <- r.Step
		}
	}()
	for i := 1; i <= 7; i++ {
		feed.OnRecord(sim.Record{Step: i})
	}
	feed.Close()
	// Closing twice is harmless.
	feed.Close()

	if a, b := <-got, <-got; a != 3 || b != 6 {
		t.Errorf("forwarded steps %d, %d; want 3, 6", a, b)
	}
}

func TestHistoryBounded(t *testing.T) {
	var xs []float64
	for i := 0; i < historyCapacity+10; i++ {
		xs = push(xs, float64(i))
	}
	if len(xs) != historyCapacity || xs[0] != 10 {
		t.Errorf("len %d first %v", len(xs), xs[0])
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("missing").Name != "dark" {
		t.Error("unknown theme should fall back to dark")
	}
	if nextTheme(ThemeRetro).Name != Themes[0].Name {
		t.Error("theme cycle should wrap")
	}
	SetTheme("iec")
	defer SetTheme("dark")
	if CurrentTheme.Name != "iec" {
		t.Error("theme not applied")
	}
}

func TestPhasePlot(t *testing.T) {
	lg := runLog(t)
	pts, err := analysis.Trajectory(lg, "i_c_d", "i_c_q")
	if err != nil {
		t.Fatal(err)
	}
	out := PhasePlot(pts, 30, 8)
	if strings.Count(out, "\n") != 10 {
		t.Errorf("expected 8 canvas rows and 2 axis rows:\n%s", out)
	}
	if PhasePlot(pts[:1], 30, 8) != "" {
		t.Error("a single point has no trajectory")
	}
}
