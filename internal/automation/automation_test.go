package automation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/storage"
)

const batchYAML = `name: smoke
description: two short runs
steps:
  - preset: gfl-fixed-dc
    params:
      t_stop: 0.002
      f_pll: 40
    save_as: fast-pll
  - preset: gfl-vdc
    pwm: true
    params:
      t_stop: 0.002
  - preset: missing
`

func TestLoadAndRunBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(path, []byte(batchYAML), 0644); err != nil {
		t.Fatal(err)
	}

	batch, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(batch.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(batch.Steps))
	}

	cfg, err := batch.Steps[0].Scenario()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "fast-pll" || cfg.Control.FPLLHz != 40 || cfg.TStop != 0.002 {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	st := storage.New(filepath.Join(dir, "runs"))
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	results := RunBatch(batch, st, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results[:2] {
		if r.Err != nil {
			t.Errorf("%s: %v", r.Scenario, r.Err)
		}
		if r.RunID == "" {
			t.Errorf("%s: not stored", r.Scenario)
		}
	}
	if results[2].Err == nil {
		t.Error("expected error for unknown preset")
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 stored runs, got %d", len(runs))
	}
}

func TestLoadBatchEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: empty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBatch(path); err == nil {
		t.Error("expected error for a batch without steps")
	}
}

func TestRunSweep(t *testing.T) {
	base := config.GetPreset("gfl-fixed-dc")
	base.TStop = 0.002

	results, err := RunSweep(&Sweep{Base: base, ParamName: "f_c", ParamMin: 200, ParamMax: 600, NumSteps: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].ParamValue != 400 {
		t.Errorf("middle value %v, want 400", results[1].ParamValue)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("f_c=%v: %v", r.ParamValue, r.Err)
		}
		if r.FinalT != 0.002 {
			t.Errorf("f_c=%v: final time %v", r.ParamValue, r.FinalT)
		}
	}

	if _, err := RunSweep(&Sweep{Base: base, ParamName: "f_c", NumSteps: 1}); err == nil {
		t.Error("expected error for a single step")
	}
	if _, err := RunSweep(&Sweep{Base: base, ParamName: "t_stop", NumSteps: 2}); err == nil {
		t.Error("expected error for sweeping t_stop")
	}
}
