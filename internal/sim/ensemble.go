package sim

import (
	"fmt"
	"runtime"
	"sync"
)

// Ensemble runs independent simulations concurrently. Build must return a
// fresh Simulation for run i that shares no mutable state with the others,
// typically differing only in the sensor seed.
type Ensemble struct {
	Runs  int
	Build func(i int) (*Simulation, error)

	// Workers bounds the number of members simulated at once; zero means
	// runtime.NumCPU().
	Workers int
}

func NewEnsemble(runs int, build func(i int) (*Simulation, error)) *Ensemble {
	return &Ensemble{Runs: runs, Build: build}
}

// Run simulates every member up to tStop. The logs are returned in run
// order; the first error by run index is reported.
func (e *Ensemble) Run(tStop float64) ([]*Log, error) {
	logs, errs := e.RunAll(tStop)
	for i, err := range errs {
		if err != nil {
			return logs, fmt.Errorf("run %d: %w", i, err)
		}
	}
	return logs, nil
}

// RunAll simulates every member up to tStop and reports each member's
// error. A failed member may still have a partial log.
func (e *Ensemble) RunAll(tStop float64) ([]*Log, []error) {
	logs := make([]*Log, e.Runs)
	errs := make([]error, e.Runs)

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i := 0; i < e.Runs; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			s, err := e.Build(idx)
			if err != nil {
				errs[idx] = err
				return
			}
			logs[idx], errs[idx] = s.Simulate(tStop)
		}(i)
	}

	wg.Wait()
	return logs, errs
}
