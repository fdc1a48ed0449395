package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/experiment"
	"github.com/san-kum/gritsim/internal/sim"
)

func run(t *testing.T, preset string) (*config.Config, *sim.Log) {
	t.Helper()
	cfg := config.GetPreset(preset)
	cfg.TStop = 0.002
	e := experiment.New(cfg)
	if err := e.Setup(nil); err != nil {
		t.Fatalf("setup: %v", err)
	}
	lg, err := e.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return cfg, lg
}

func TestJSON(t *testing.T) {
	cfg, lg := run(t, "gfl-vdc")

	data, err := Collect(cfg, lg, lg.Metrics, "u_dc", "p_g")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := JSON(&buf, data); err != nil {
		t.Fatal(err)
	}

	var got Data
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Scenario != "gfl-vdc" || got.Steps != len(lg.Records) {
		t.Errorf("header mismatch: %+v", got)
	}
	if len(got.Series) != 2 || len(got.Series["u_dc"]) != got.Steps {
		t.Errorf("expected 2 series of %d samples, got %d", got.Steps, len(got.Series))
	}
}

func TestCollectUnknownSeries(t *testing.T) {
	cfg, lg := run(t, "gfl-fixed-dc")
	if _, err := Collect(cfg, lg, nil, "bogus"); err == nil {
		t.Error("expected error for unknown series")
	}
}

func TestGridFigures(t *testing.T) {
	_, lg := run(t, "gfl-vdc")
	figs := GridFigures(lg)
	if len(figs) != 2 {
		t.Fatalf("expected 2 figures, got %d", len(figs))
	}
	if len(figs[0].Panels) != 3 {
		t.Errorf("expected dc-bus panel, got %d panels", len(figs[0].Panels))
	}

	dir := t.TempDir()
	paths, err := Figures(dir, lg, figs)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatal(err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", filepath.Base(p))
		}
	}
}

func TestIsReference(t *testing.T) {
	tests := map[string]bool{
		"u_dc":      false,
		"u_dc_ref":  true,
		"i_c_ref_d": true,
		"i_c_d":     false,
	}
	for name, want := range tests {
		if got := isReference(name); got != want {
			t.Errorf("isReference(%q) = %v", name, got)
		}
	}
}
