package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gritsim/internal/config"
	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Timestamp  time.Time          `json:"timestamp"`
	Plant      string             `json:"plant"`
	Controller string             `json:"controller"`
	Integrator string             `json:"integrator"`
	PWM        bool               `json:"pwm"`
	TStop      float64            `json:"t_stop"`
	Records    int                `json:"records"`
	Elapsed    float64            `json:"elapsed_s"`
	Failure    string             `json:"failure,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
	// Config is the scenario in YAML form, enough to rerun it.
	Config string `json:"config"`
}

// Save writes the metadata and the full log of a run. runErr, if not nil,
// is recorded as the failure of a partial log.
func (s *Store) Save(cfg *config.Config, lg *sim.Log, runErr error) (string, error) {
	name := cfg.Name
	if name == "" {
		name = "custom"
	}
	runID := fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
	runDir := s.Dir(runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	scenario, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Scenario:   name,
		Timestamp:  time.Now(),
		Plant:      cfg.Plant,
		Controller: cfg.Controller,
		Integrator: cfg.Integrator,
		PWM:        cfg.PWM,
		TStop:      cfg.TStop,
		Records:    len(lg.Records),
		Elapsed:    lg.Elapsed.Seconds(),
		Metrics:    lg.Metrics,
		Config:     string(scenario),
	}
	if runErr != nil {
		meta.Failure = runErr.Error()
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "log.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, lg); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteCSV writes one column per series of src, preceded by time.
func WriteCSV(out io.Writer, src sim.Source) error {
	w := csv.NewWriter(out)

	names := src.Names()
	cols := make([][]float64, len(names))
	for i, name := range names {
		col, err := src.Series(name)
		if err != nil {
			return err
		}
		cols[i] = col
	}

	if err := w.Write(append([]string{"time"}, names...)); err != nil {
		return err
	}
	for i, t := range src.Times() {
		row := make([]string, 0, len(names)+1)
		row = append(row, strconv.FormatFloat(t, 'g', -1, 64))
		for _, col := range cols {
			row = append(row, strconv.FormatFloat(col[i], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns all stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig returns the scenario a run was produced from.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	if err := yaml.Unmarshal([]byte(meta.Config), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLog reads the stored log of a run.
func (s *Store) LoadLog(runID string) (*Table, error) {
	file, err := os.Open(filepath.Join(s.Dir(runID), "log.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != "time" {
		return nil, fmt.Errorf("%s: missing header", runID)
	}

	tbl := &Table{
		names: records[0][1:],
		cols:  make(map[string][]float64, len(records[0])-1),
	}
	for i := 1; i < len(records); i++ {
		for j, field := range records[i] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %d: %w", runID, i, j, err)
			}
			if j == 0 {
				tbl.times = append(tbl.times, v)
			} else {
				tbl.cols[tbl.names[j-1]] = append(tbl.cols[tbl.names[j-1]], v)
			}
		}
	}
	return tbl, nil
}

// Table is a stored log. It implements sim.Source.
type Table struct {
	names []string
	times []float64
	cols  map[string][]float64
}

func (t *Table) Times() []float64 { return t.times }
func (t *Table) Names() []string  { return t.names }

func (t *Table) Series(name string) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown series %q", dynamo.ErrMisuse, name)
	}
	return col, nil
}
